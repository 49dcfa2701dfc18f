// Package network provides client IP extraction and classification.
package network

import (
	"net"
	"net/http"
	"strings"
)

// Loopback is the canonical form every loopback spelling normalizes to.
const Loopback = "127.0.0.1"

const mappedPrefix = "::ffff:"

// reservedPrefixes are the private/loopback ranges that are never sent to an
// external geolocation service. This is a textual prefix match over
// 127/8, 10/8, 192.168/16 and 172.16/12, not a CIDR test.
var reservedPrefixes = []string{
	"127.", "10.", "192.168.",
	"172.16.", "172.17.", "172.18.", "172.19.",
	"172.20.", "172.21.", "172.22.", "172.23.",
	"172.24.", "172.25.", "172.26.", "172.27.",
	"172.28.", "172.29.", "172.30.", "172.31.",
}

// GetClientIP extracts the normalized client IP address from the request.
// It checks X-Forwarded-For and X-Real-IP headers for reverse proxy setups,
// and falls back to RemoteAddr if neither is present.
// The result may be empty when the request carries no usable address.
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For header first (for reverse proxies)
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		return Normalize(xff)
	}

	// Check X-Real-IP header
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return Normalize(xri)
	}

	// Fall back to RemoteAddr, stripping the port
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return Normalize(host)
	}
	return Normalize(r.RemoteAddr)
}

// Normalize reduces a raw address value to a single IP string.
//
// A proxy chain ("client, proxy1, proxy2") yields its first entry, the
// IPv4-mapped IPv6 prefix "::ffff:" is removed in any letter case, and the
// IPv6 loopback "::1" becomes "127.0.0.1". An empty input returns "".
func Normalize(raw string) string {
	ip := raw
	if idx := strings.Index(ip, ","); idx != -1 {
		ip = ip[:idx]
	}
	ip = strings.TrimSpace(ip)

	if len(ip) >= len(mappedPrefix) && strings.EqualFold(ip[:len(mappedPrefix)], mappedPrefix) {
		ip = ip[len(mappedPrefix):]
	}
	if ip == "::1" {
		return Loopback
	}
	return ip
}

// IsReserved reports whether ip falls in a loopback or private range.
// ip is expected to already be normalized.
func IsReserved(ip string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(ip, p) {
			return true
		}
	}
	return false
}
