package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"tag-server/internal/domain/models"
)

// SubjectHeader carries the auth provider's subject id. The OAuth flow
// itself terminates upstream; this service trusts the forwarded subject.
const SubjectHeader = "X-Auth-Subject"

type ctxKey int

const userKey ctxKey = iota

// UserProvider resolves a subject to a user row.
type UserProvider interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Authenticate resolves the caller once at the boundary and stores the
// user in the request context. Requests without a resolvable user pass
// through anonymously; enforcement happens per route.
func Authenticate(users UserProvider, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := r.Header.Get(SubjectHeader)
			if subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.GetUser(r.Context(), subject)
			if err != nil {
				log.Debug("unknown auth subject", slog.String("subject", subject))
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication required"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok
}
