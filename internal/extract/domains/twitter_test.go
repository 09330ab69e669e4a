package domains_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagekeep/pagekeep/internal/extract/domains"
)

func mustParse(t *testing.T, rawURL string) *url.URL {
	t.Helper()

	u, err := url.Parse(rawURL)
	require.NoError(t, err)

	return u
}

func TestTwitter_Match(t *testing.T) {
	t.Parallel()

	provider := domains.NewTwitter(domains.TwitterConfig{}, nil)

	tests := []struct {
		rawURL string
		want   bool
	}{
		{rawURL: "https://twitter.com/jack/status/20", want: true},
		{rawURL: "https://x.com/jack/status/20", want: true},
		{rawURL: "https://www.x.com/jack/status/20", want: true},
		{rawURL: "https://mobile.twitter.com/jack/statuses/20", want: true},
		{rawURL: "https://x.com/jack/status/20/photo/1", want: true},
		{rawURL: "https://x.com/jack", want: false},
		{rawURL: "https://x.com/jack/likes", want: false},
		{rawURL: "https://x.com/a_very_long_username_over_limit/status/20", want: false},
		{rawURL: "https://example.com/jack/status/20", want: false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, provider.Match(mustParse(t, tt.rawURL)), "url: %s", tt.rawURL)
	}
}

func TestTwitter_ExtractFromOEmbed(t *testing.T) {
	t.Parallel()

	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("url"), "x.com/jack/status/20")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"html": "<blockquote><p>just setting up my twttr</p></blockquote>",
			"author_name": "jack"
		}`))
	}))
	defer oembed.Close()

	provider := domains.NewTwitter(domains.TwitterConfig{OEmbedEndpoint: oembed.URL}, nil)

	result, err := provider.Extract(context.Background(), mustParse(t, "https://twitter.com/jack/status/20"))
	require.NoError(t, err)

	assert.Equal(t, "Tweet by @jack", result.Title)
	assert.Contains(t, result.HTML, "just setting up my twttr")
	assert.Contains(t, result.HTML, `href="https://x.com/jack/status/20"`)
	assert.Equal(t, "just setting up my twttr", result.Text)
	assert.Equal(t, "X (Twitter)", result.SiteName)
	assert.Equal(t, "https://x.com/jack/status/20", result.CanonicalURL)
	assert.Contains(t, result.Byline, "@jack")
}

func TestTwitter_FallsBackToMirror(t *testing.T) {
	t.Parallel()

	var oembedHits, mirrorHits atomic.Int32

	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		oembedHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer oembed.Close()

	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mirrorHits.Add(1)
		assert.Equal(t, "/jack/status/20", r.URL.Path)
		_, _ = w.Write([]byte(`<html><body>
			<div class="main-tweet"><div class="tweet-content">tweet text from mirror</div></div>
		</body></html>`))
	}))
	defer mirror.Close()

	provider := domains.NewTwitter(domains.TwitterConfig{
		OEmbedEndpoint: oembed.URL,
		MirrorBase:     mirror.URL,
	}, nil)

	result, err := provider.Extract(context.Background(), mustParse(t, "https://x.com/jack/status/20"))
	require.NoError(t, err)

	assert.Equal(t, int32(1), oembedHits.Load())
	assert.Equal(t, int32(1), mirrorHits.Load())
	assert.Equal(t, "tweet text from mirror", result.Text)
}

func TestTwitter_MirrorUsedWhenEmbedHasNoText(t *testing.T) {
	t.Parallel()

	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"html": "<blockquote></blockquote>", "author_name": "jack"}`))
	}))
	defer oembed.Close()

	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<div class="tweet-content">recovered from mirror</div>`))
	}))
	defer mirror.Close()

	provider := domains.NewTwitter(domains.TwitterConfig{
		OEmbedEndpoint: oembed.URL,
		MirrorBase:     mirror.URL,
	}, nil)

	result, err := provider.Extract(context.Background(), mustParse(t, "https://x.com/jack/status/20"))
	require.NoError(t, err)
	assert.Equal(t, "recovered from mirror", result.Text)
}

func TestTwitter_BothPathsFail(t *testing.T) {
	t.Parallel()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer failing.Close()

	provider := domains.NewTwitter(domains.TwitterConfig{
		OEmbedEndpoint: failing.URL,
		MirrorBase:     failing.URL,
	}, nil)

	_, err := provider.Extract(context.Background(), mustParse(t, "https://x.com/jack/status/20"))
	require.Error(t, err)

	// A plain error, not a terminal one: the generic pipeline should still
	// get its chance.
	var terminal *domains.TerminalError
	assert.False(t, errors.As(err, &terminal))
}

func TestTwitter_EscapesTweetText(t *testing.T) {
	t.Parallel()

	oembed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"html": "<blockquote><p>a &lt;script&gt; tag &amp; more</p></blockquote>"}`))
	}))
	defer oembed.Close()

	provider := domains.NewTwitter(domains.TwitterConfig{OEmbedEndpoint: oembed.URL}, nil)

	result, err := provider.Extract(context.Background(), mustParse(t, "https://x.com/jack/status/20"))
	require.NoError(t, err)

	assert.NotContains(t, result.HTML, "<script>")
	assert.Contains(t, result.HTML, "&lt;script&gt;")
}
