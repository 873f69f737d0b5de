package utils

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the caller's IP. When trustProxy is set, forwarding
// headers win over the socket address (first X-Forwarded-For hop, then
// X-Real-IP); otherwise only RemoteAddr is trusted.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if first, _, ok := strings.Cut(xff, ","); ok {
				return strings.TrimSpace(first)
			}
			return strings.TrimSpace(xff)
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return strings.TrimSpace(xr)
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
