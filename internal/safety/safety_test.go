package safety_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/safety"
	"github.com/pagekeep/pagekeep/internal/snapshot"
)

func TestCheck_SafeURLs(t *testing.T) {
	t.Parallel()

	urls := []string{
		"http://example.com",
		"https://example.com/path?query=1",
		"https://sub.example.co.uk/article",
		"https://8.8.8.8/",
		"HTTPS://EXAMPLE.COM/upper-scheme",
		"https://example.com.",
	}

	for _, rawURL := range urls {
		result := safety.Check(rawURL)
		assert.True(t, result.Safe, "expected %s to be safe, got %s: %s", rawURL, result.Reason, result.Message)
	}
}

func TestCheck_InvalidURLs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		rawURL string
	}{
		{name: "ftp scheme", rawURL: "ftp://example.com/file"},
		{name: "javascript scheme", rawURL: "javascript:alert(1)"},
		{name: "file scheme", rawURL: "file:///etc/passwd"},
		{name: "gopher scheme", rawURL: "gopher://example.com"},
		{name: "no scheme", rawURL: "example.com/page"},
		{name: "empty hostname", rawURL: "http:///path-only"},
		{name: "malformed", rawURL: "http://exa mple.com/%zz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := safety.Check(tt.rawURL)
			require.False(t, result.Safe)
			assert.Equal(t, snapshot.ReasonInvalidURL, result.Reason)
		})
	}
}

func TestCheck_BlockedTargets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		rawURL string
	}{
		{name: "loopback ip", rawURL: "http://127.0.0.1/admin"},
		{name: "loopback range", rawURL: "http://127.8.4.2/"},
		{name: "localhost", rawURL: "http://localhost:8080/"},
		{name: "localhost mixed case", rawURL: "http://LocalHost/"},
		{name: "unspecified", rawURL: "http://0.0.0.0/"},
		{name: "rfc1918 10", rawURL: "http://10.0.0.1/"},
		{name: "rfc1918 172", rawURL: "http://172.16.0.1/"},
		{name: "rfc1918 192", rawURL: "http://192.168.1.1/router"},
		{name: "link local", rawURL: "http://169.254.10.20/"},
		{name: "aws metadata", rawURL: "http://169.254.169.254/latest/meta-data/"},
		{name: "gcp metadata", rawURL: "http://metadata.google.internal/computeMetadata/v1/"},
		{name: "cgnat", rawURL: "http://100.64.0.1/"},
		{name: "ipv6 loopback", rawURL: "http://[::1]/"},
		{name: "ipv6 unique local", rawURL: "http://[fc00::1]/"},
		{name: "ipv6 link local", rawURL: "http://[fe80::1]/"},
		{name: "ipv4 mapped loopback", rawURL: "http://[::ffff:127.0.0.1]/"},
		{name: "ipv4 mapped private", rawURL: "http://[::ffff:10.0.0.1]/"},
		{name: "dot local suffix", rawURL: "http://printer.local/"},
		{name: "dot internal suffix", rawURL: "http://db.prod.internal/"},
		{name: "multicast", rawURL: "http://224.0.0.1/"},
		{name: "broadcast", rawURL: "http://255.255.255.255/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := safety.Check(tt.rawURL)
			require.False(t, result.Safe, "expected %s to be blocked", tt.rawURL)
			assert.Equal(t, snapshot.ReasonSSRFBlocked, result.Reason)
			assert.NotEmpty(t, result.Message)
		})
	}
}
