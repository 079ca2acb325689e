package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"hrms/internal/domain/auth"
)

// SessionValidator confirms a token's session has not been revoked.
type SessionValidator interface {
	SessionValid(ctx context.Context, userID int64, sessionID string) (bool, error)
}

// Auth attaches the caller to the context when a valid bearer token is
// present. Requests without one continue anonymously; handlers and
// RequirePermission decide whether that is allowed.
func Auth(secret string, sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if sessions != nil && claims.SessionID != "" {
				valid, err := sessions.SessionValid(r.Context(), claims.UserID, claims.SessionID)
				if err != nil {
					slog.Warn("session lookup failed", "userId", claims.UserID, "err", err)
				}
				if err != nil || !valid {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := WithUser(r.Context(), auth.UserContext{
				UserID:     claims.UserID,
				RoleID:     claims.RoleID,
				RoleName:   claims.RoleName,
				EmployeeID: claims.EmployeeID,
				SessionID:  claims.SessionID,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func BearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func userIDString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
