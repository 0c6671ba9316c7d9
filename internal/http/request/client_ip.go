package request

import (
	"net"
	"net/http"
	"strings"
)

type ContextKey int

const (
	ClientIPContextKey ContextKey = iota
)

// ClientIP returns the client IP address stored in the context.
func ClientIP(r *http.Request) string {
	if v := r.Context().Value(ClientIPContextKey); v != nil {
		if value, valid := v.(string); valid {
			return value
		}
	}
	return ""
}

// FindClientIP resolves the client IP from proxy headers, falling back
// to the socket address.
func FindClientIP(r *http.Request) string {
	for _, header := range []string{"X-Forwarded-For", "X-Real-IP"} {
		value := r.Header.Get(header)
		if value == "" {
			continue
		}
		// X-Forwarded-For may carry a chain, the first hop is the client.
		address := strings.TrimSpace(strings.Split(value, ",")[0])
		if net.ParseIP(address) != nil {
			return address
		}
	}

	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}
	return remoteIP
}
