package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the principal.
type contextKey string

const principalKey contextKey = "principal"

// UserFinder loads users by ID. repository.UserRepository satisfies it.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// LoadPrincipal is a middleware that resolves the session cookie to a User
// and stores it in the request context.
//
// It never blocks a request: a missing, expired or tampered cookie, or a
// user that no longer exists, leaves the request anonymous. Handlers read
// the result with PrincipalFromContext.
func LoadPrincipal(sessions *Sessions, users UserFinder, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := sessions.UserID(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.FindByID(r.Context(), userID)
			switch {
			case err == nil:
				r = r.WithContext(WithPrincipal(r.Context(), user))
			case errors.Is(err, apperror.ErrNotFound):
				logger.Warn("session refers to unknown user", slog.String("userID", userID))
			default:
				logger.Error("loading session principal",
					slog.String("userID", userID),
					slog.String("error", err.Error()),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous requests with 401. It must run after
// LoadPrincipal.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithPrincipal returns a copy of ctx carrying user as the principal.
func WithPrincipal(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, principalKey, user)
}

// PrincipalFromContext returns the authenticated user, or (nil, false) for
// an anonymous request.
func PrincipalFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(principalKey).(*model.User)
	return u, ok && u != nil
}
