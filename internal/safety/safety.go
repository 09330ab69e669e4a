// Package safety classifies URLs as fetchable or blocked before any network
// request is made. It is the SSRF guard for the snapshot pipeline: schemes
// other than http/https, localhost variants, cloud metadata endpoints, and
// literal IPs in reserved or private ranges are all rejected.
//
// The check is static: it inspects the hostname string and literal IP
// addresses only and does not resolve DNS, so a public hostname that
// resolves to a private address (DNS rebinding) is not caught here. The
// fetcher re-runs this check on every redirect hop to at least close the
// redirect half of that gap.
package safety

import (
	"net"
	"net/url"
	"strings"

	"github.com/pagekeep/pagekeep/internal/snapshot"
)

// Result is the outcome of a safety check. Reason and Message are only set
// when Safe is false.
type Result struct {
	Safe    bool
	Reason  snapshot.BlockedReason
	Message string
}

// blockedHosts are hostnames rejected outright, case-insensitively.
var blockedHosts = map[string]struct{}{
	"localhost":                  {},
	"127.0.0.1":                  {},
	"0.0.0.0":                    {},
	"::1":                        {},
	"169.254.169.254":            {},
	"metadata.google.internal":   {},
	"metadata.goog":              {},
	"instance-data":              {},
	"instance-data.ec2.internal": {},
}

// blockedSuffixes are hostname suffixes that only resolve on internal
// networks and are never legitimate archive targets.
var blockedSuffixes = []string{".local", ".internal", ".localdomain"}

// reservedV4 lists IPv4 ranges that must never be fetched: loopback,
// RFC1918, link-local, CGNAT, documentation/benchmark ranges, multicast,
// and the 0.0.0.0/8 "this network" block.
var reservedV4 []*net.IPNet

// reservedV6 lists the IPv6 equivalents: unique-local, link-local unicast,
// and multicast. Loopback is handled by ip.IsLoopback.
var reservedV6 []*net.IPNet

func init() {
	v4 := []string{
		"0.0.0.0/8",
		"10.0.0.0/8",
		"100.64.0.0/10",
		"127.0.0.0/8",
		"169.254.0.0/16",
		"172.16.0.0/12",
		"192.0.0.0/24",
		"192.0.2.0/24",
		"192.168.0.0/16",
		"198.18.0.0/15",
		"198.51.100.0/24",
		"203.0.113.0/24",
		"224.0.0.0/4",
		"240.0.0.0/4",
	}
	v6 := []string{
		"fc00::/7",
		"fe80::/10",
		"ff00::/8",
	}

	for _, cidr := range v4 {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("safety: invalid IPv4 CIDR " + cidr + ": " + err.Error())
		}

		reservedV4 = append(reservedV4, network)
	}

	for _, cidr := range v6 {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("safety: invalid IPv6 CIDR " + cidr + ": " + err.Error())
		}

		reservedV6 = append(reservedV6, network)
	}
}

// Check classifies rawURL. Malformed URLs and non-http(s) schemes map to
// invalid_url; everything else that fails maps to ssrf_blocked.
func Check(rawURL string) Result {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return unsafe(snapshot.ReasonInvalidURL, "malformed URL")
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return unsafe(snapshot.ReasonInvalidURL, "scheme must be http or https")
	}

	host := strings.ToLower(strings.TrimSuffix(parsed.Hostname(), "."))
	if host == "" {
		return unsafe(snapshot.ReasonInvalidURL, "missing hostname")
	}

	if _, blocked := blockedHosts[host]; blocked {
		return unsafe(snapshot.ReasonSSRFBlocked, "blocked hostname")
	}

	for _, suffix := range blockedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return unsafe(snapshot.ReasonSSRFBlocked, "internal domain")
		}
	}

	if ip := net.ParseIP(host); ip != nil && isReservedIP(ip) {
		return unsafe(snapshot.ReasonSSRFBlocked, "reserved or private IP address")
	}

	return Result{Safe: true}
}

// isReservedIP reports whether ip falls in a loopback, private, link-local,
// or otherwise reserved range. IPv4-mapped IPv6 addresses are unwrapped and
// checked as IPv4 so ::ffff:127.0.0.1 cannot slip through.
func isReservedIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsUnspecified() || ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
		return true
	}

	if v4 := ip.To4(); v4 != nil {
		if v4.Equal(net.IPv4bcast) {
			return true
		}

		for _, network := range reservedV4 {
			if network.Contains(v4) {
				return true
			}
		}

		return false
	}

	for _, network := range reservedV6 {
		if network.Contains(ip) {
			return true
		}
	}

	return false
}

func unsafe(reason snapshot.BlockedReason, message string) Result {
	return Result{Safe: false, Reason: reason, Message: message}
}
