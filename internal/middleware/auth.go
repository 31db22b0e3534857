package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hongminglow/record-archive/internal/models"
)

type identityKey struct{}

// Authenticator resolves an Authorization header value to a caller.
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (*models.Identity, error)
}

// Identify attaches the caller to the request context. With auth disabled
// every request acts as the development admin; otherwise a missing or
// unknown token leaves the request anonymous and protected operations reject it.
func Identify(authEnabled bool, authn Authenticator, log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !authEnabled {
			dev := models.DevAdmin
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), &dev)))
			return
		}
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := authn.Authenticate(r.Context(), header)
		if err != nil {
			log.Debug("token rejected", "path", r.URL.Path, "error", err)
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller stored by Identify, or nil.
func IdentityFrom(ctx context.Context) *models.Identity {
	id, _ := ctx.Value(identityKey{}).(*models.Identity)
	return id
}
