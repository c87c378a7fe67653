package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

const clientIPKey ctxKey = iota + 1

// ClientIP resolves the caller's address once per request. trustedHops is
// the number of reverse proxies in front of the server that append to
// X-Forwarded-For. With zero hops the forwarding headers are ignored and
// the peer address is used. With n hops the n-th entry from the right is
// taken, which is the address the outermost trusted proxy saw.
func ClientIP(trustedHops int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, trustedHops)
			ctx := context.WithValue(r.Context(), clientIPKey, ip)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClientIP returns the address stored by ClientIP, or the peer address
// when the request did not pass through it.
func GetClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r)
}

func resolveClientIP(r *http.Request, trustedHops int) string {
	if trustedHops <= 0 {
		return remoteHost(r)
	}

	var hops []string
	for _, h := range r.Header.Values("X-Forwarded-For") {
		for _, part := range strings.Split(h, ",") {
			if part = strings.TrimSpace(part); part != "" {
				hops = append(hops, part)
			}
		}
	}
	if len(hops) == 0 {
		return remoteHost(r)
	}

	i := len(hops) - trustedHops
	if i < 0 {
		i = 0
	}
	return hops[i]
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
