package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
)

type userCtxKey struct{}

// AccessTokenVerifier validates an access token and returns the user id it
// carries.
type AccessTokenVerifier interface {
	VerifyAccess(token string) (string, error)
}

// UserResolver loads the account behind a verified token.
type UserResolver interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Authenticate gates requests on a valid access token taken from the
// accessToken cookie or an Authorization bearer header. On success the
// resolved user (credential fields blanked) is attached to the request
// context; on any failure the request is rejected outright.
func Authenticate(tokens AccessTokenVerifier, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			logger := logging.FromContext(ctx)

			token := bearerToken(r)
			if token == "" {
				rejectUnauthenticated(w, "authentication required")
				return
			}

			userID, err := tokens.VerifyAccess(token)
			if err != nil {
				logger.Warn("access token rejected", "error", err)
				rejectUnauthenticated(w, "invalid or expired access token")
				return
			}

			user, err := users.FindByID(ctx, userID)
			if err != nil {
				logger.Warn("token user lookup failed", "userId", userID, "error", err)
				rejectUnauthenticated(w, "invalid or expired access token")
				return
			}

			user.Password = ""
			user.RefreshToken = ""

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, user)
}

// CurrentUser retrieves the authenticated user attached by Authenticate.
func CurrentUser(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userCtxKey{}).(models.User)
	return user, ok
}

func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}

	return ""
}

func rejectUnauthenticated(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": http.StatusUnauthorized,
		"data":       nil,
		"message":    message,
		"success":    false,
	})
}
