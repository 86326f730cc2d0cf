package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the remote host without port. RealIP has already replaced
// RemoteAddr when the request came through a trusted proxy.
func ClientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// RealIP rewrites RemoteAddr from X-Forwarded-For or X-Real-IP, but only when
// the socket peer is inside trusted. Any other peer keeps its socket address.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer, err := netip.ParseAddr(ClientIP(r))
			if err == nil && isTrusted(peer.Unmap(), trusted) {
				if forwarded := forwardedClient(r, trusted); forwarded != "" {
					r.RemoteAddr = forwarded
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedClient walks X-Forwarded-For from the right and returns the first
// hop that is not a trusted proxy.
func forwardedClient(r *http.Request, trusted []netip.Prefix) string {
	var hops []string
	for _, value := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(value, ",")...)
	}
	for i := len(hops) - 1; i >= 0; i-- {
		addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			return ""
		}
		addr = addr.Unmap()
		if i == 0 || !isTrusted(addr, trusted) {
			return addr.String()
		}
	}

	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return ""
}

func isTrusted(addr netip.Addr, trusted []netip.Prefix) bool {
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
