package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type so no other package can read or shadow
// values this package stores in a request context.
type contextKey string

const (
	surfaceKey     contextKey = "surface"
	surfaceSinkKey contextKey = "surface_sink"
)

// RequireSurface rejects requests without a valid surface token and stores
// the surface name in the request context.
//
// WHERE THE TOKEN COMES FROM:
//   - "Authorization: Bearer <token>" for ordinary API calls
//   - "?token=<token>" for the websocket upgrade, because browsers cannot set
//     headers on new WebSocket(...)
//
// A nil tokens disables the check (no TOKEN_SECRET configured); every request
// is then treated as the "local" surface.
func RequireSurface(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil {
				next.ServeHTTP(w, r.WithContext(withSurface(r.Context(), "local")))
				return
			}

			surface, err := tokens.Validate(extractToken(r))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"a valid surface token is required"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(withSurface(r.Context(), surface)))
		})
	}
}

func withSurface(ctx context.Context, surface string) context.Context {
	if sink, ok := ctx.Value(surfaceSinkKey).(*string); ok && sink != nil {
		*sink = surface
	}
	return context.WithValue(ctx, surfaceKey, surface)
}

// WithSurfaceSink returns a context in which RequireSurface also writes the
// authenticated surface to *sink. Middleware that runs before auth (request
// logging) uses it to learn who called.
func WithSurfaceSink(ctx context.Context, sink *string) context.Context {
	return context.WithValue(ctx, surfaceSinkKey, sink)
}

// SurfaceFromContext returns the authenticated surface name, if any.
func SurfaceFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(surfaceKey).(string)
	return s, ok && s != ""
}

func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}
