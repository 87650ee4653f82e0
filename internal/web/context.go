package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/sellerdash/internal/core"
)

// WithRequestMetadata attaches the client IP and User-Agent to ctx for the
// service's log lines. RemoteAddr has already been rewritten by TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, core.Client{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
}
