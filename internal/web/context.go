package web

import (
	"context"
	"net"
	"net/http"

	"github.com/JonMunkholm/datamapper/internal/core"
)

// WithRequestMetadata adds the client IP and User-Agent to ctx so saved
// configs record who created them.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ip := r.RemoteAddr // Already resolved by TrustedRealIP
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ctx = core.ContextWithIPAddress(ctx, ip)
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}

// clientMetadata is middleware applying WithRequestMetadata to every request.
func clientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithRequestMetadata(r.Context(), r)))
	})
}
