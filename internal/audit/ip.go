package audit

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller address, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return loopback(first)
		}
	}
	if xr := strings.TrimSpace(r.Header.Get("X-Real-IP")); xr != "" {
		return loopback(xr)
	}
	return RemoteIP(r)
}

// RemoteIP is the address of the directly connected peer. Proxy headers
// are ignored.
func RemoteIP(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" {
		return "Unknown"
	}
	return loopback(host)
}

func loopback(ip string) string {
	if ip == "::1" || ip == "::ffff:127.0.0.1" {
		return "127.0.0.1"
	}
	return ip
}
