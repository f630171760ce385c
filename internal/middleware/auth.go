package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/archiver/service/internal/auth"
	"github.com/archiver/service/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// principalKey is the context key for the authenticated principal marker.
const principalKey contextKey = "principal"

// RequireBearer returns middleware that validates the Bearer credential before
// anything else runs. Every failure is answered with an empty 400 so the
// caller learns nothing about why it was rejected.
func RequireBearer(v auth.Verifier, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err == nil {
				var p auth.Principal
				if p, err = v.Verify(token); err == nil {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
					return
				}
			}
			log.Debug("bearer rejected",
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
				zap.Error(err),
			)
			response.BadRequest(w)
		})
	}
}

// IsAuthenticated reports whether the request passed RequireBearer.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := ctx.Value(principalKey).(auth.Principal)
	return ok
}

// WithPrincipal marks ctx as authenticated. It exists for handlers tested
// without the guard in front of them.
func WithPrincipal(ctx context.Context) context.Context {
	return context.WithValue(ctx, principalKey, auth.Principal{})
}
