package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"hrms/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, roleID int64, permission string) (bool, error)
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Can reports whether the caller's role holds permission. Anonymous callers
// hold nothing.
func Can(ctx context.Context, store PermissionStore, permission string) (bool, error) {
	user, ok := GetUser(ctx)
	if !ok || store == nil {
		return false, nil
	}
	return store.HasPermission(ctx, user.RoleID, permission)
}

func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return RequireAnyPermission(store, permission)
}

// RequireAnyPermission lets the request through when the role holds at least
// one of permissions: 401 for anonymous callers, 403 otherwise.
func RequireAnyPermission(store PermissionStore, permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
				return
			}
			for _, perm := range permissions {
				allowed, err := store.HasPermission(r.Context(), user.RoleID, perm)
				if err != nil {
					slog.Warn("permission check failed", "permission", perm, "roleId", user.RoleID, "err", err)
					api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", reqID)
					return
				}
				if allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			slog.Debug("permission denied", "userId", user.UserID, "role", user.RoleName, "need", strings.Join(permissions, "|"), "path", r.URL.Path)
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", reqID)
		})
	}
}
