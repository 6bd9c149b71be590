package authhttp

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPFunc determines the client IP recorded on auth events.
// Returning an empty string means "unknown".
type ClientIPFunc func(r *http.Request) string

// DefaultClientIP uses the immediate peer address.
func DefaultClientIP() ClientIPFunc {
	return func(r *http.Request) string {
		a, err := netip.ParseAddr(remoteIP(r))
		if err != nil {
			return ""
		}
		return a.String()
	}
}

// ClientIPFromForwardedHeaders trusts CF-Connecting-IP and X-Forwarded-For only when the
// immediate peer (RemoteAddr) is in trustedProxies. Otherwise it returns the peer.
func ClientIPFromForwardedHeaders(trustedProxies []netip.Prefix) ClientIPFunc {
	fallback := DefaultClientIP()
	return func(r *http.Request) string {
		peer, err := netip.ParseAddr(remoteIP(r))
		if err != nil {
			return ""
		}
		trusted := false
		for _, p := range trustedProxies {
			if p.Contains(peer) {
				trusted = true
				break
			}
		}
		if !trusted {
			return fallback(r)
		}
		if v := strings.TrimSpace(r.Header.Get("CF-Connecting-IP")); v != "" {
			if a, err := netip.ParseAddr(v); err == nil {
				return a.String()
			}
		}
		if v := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); v != "" {
			// Left-most entry is the original client.
			if i := strings.IndexByte(v, ','); i >= 0 {
				v = v[:i]
			}
			if a, err := netip.ParseAddr(strings.TrimSpace(v)); err == nil {
				return a.String()
			}
		}
		return peer.String()
	}
}

func remoteIP(r *http.Request) string {
	if r == nil || r.RemoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
