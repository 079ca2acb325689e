package middleware

import (
	"net/http"
	"time"

	"hrms/internal/platform/metrics"
)

// Metrics records every request against its chi route pattern so ids in
// paths do not explode label cardinality.
func Metrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := newStatusRecorder(w)
			next.ServeHTTP(recorder, r)
			collector.Record(r.Method, routePattern(r), recorder.status, time.Since(start))
		})
	}
}
