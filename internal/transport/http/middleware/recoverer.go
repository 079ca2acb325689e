package middleware

import (
	"net/http"

	"hrms/internal/platform/errreport"
	"hrms/internal/transport/http/api"
)

func Recoverer(reporter *errreport.Reporter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				extras := map[string]any{"requestId": GetRequestID(r.Context())}
				if user, ok := GetUser(r.Context()); ok {
					extras["userId"] = user.UserID
				}
				reporter.Panic(r, rec, extras)
				api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", GetRequestID(r.Context()))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
