package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aydinberk/sumchat/internal/token"
)

type key string

// UserIDKey holds the authenticated user's id in the request context once the
// session guard has verified the bearer token.
const UserIDKey key = "user_id"

// UserID returns the authenticated user id from the request context.
// ok is false when the request did not pass through the session guard.
func UserID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(UserIDKey).(int)
	return id, ok
}

// SessionGuard rejects requests without a valid bearer token before any
// handler logic runs. The client always sees the same 401 body; the precise
// verification failure (malformed, bad signature, expired) goes to the log only.
func SessionGuard(verifier *token.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w)
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				slog.Info("token rejected",
					"request_id", chimw.GetReqID(r.Context()),
					"path", r.URL.Path,
					"cause", err)
				unauthorized(w)
				return
			}

			userID, err := claims.UserID()
			if err != nil {
				slog.Info("token subject invalid",
					"request_id", chimw.GetReqID(r.Context()),
					"path", r.URL.Path,
					"cause", err)
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"success":false,"message":"unauthorized"}`))
}
