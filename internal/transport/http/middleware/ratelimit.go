package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"hrms/internal/transport/http/api"
	"hrms/internal/transport/http/shared"
)

type RateLimitKeyFunc func(r *http.Request) string

type RateLimitOption func(*limiter)

func WithKeyFunc(fn RateLimitKeyFunc) RateLimitOption {
	return func(l *limiter) {
		if fn != nil {
			l.keyFn = fn
		}
	}
}

type tokenBucket struct {
	tokens float64
	last   time.Time
}

// limiter is a keyed token bucket: each key holds up to capacity tokens and
// regains capacity tokens per window.
type limiter struct {
	mu        sync.Mutex
	capacity  float64
	perSecond float64
	window    time.Duration
	keyFn     RateLimitKeyFunc
	buckets   map[string]*tokenBucket
	swept     time.Time
}

func newLimiter(limit int, window time.Duration, keyFn RateLimitKeyFunc) *limiter {
	if keyFn == nil {
		keyFn = actorOrIPKey
	}
	l := &limiter{
		capacity: float64(limit),
		window:   window,
		keyFn:    keyFn,
		buckets:  map[string]*tokenBucket{},
	}
	if window > 0 {
		l.perSecond = float64(limit) / window.Seconds()
	}
	return l
}

// take spends one token for key. When the bucket is empty it returns the
// wait until a token is available.
func (l *limiter) take(key string, now time.Time) (int, time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)
	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.capacity, last: now}
		l.buckets[key] = b
	} else if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.perSecond)
		b.last = now
	}

	if b.tokens < 1 {
		if l.perSecond <= 0 {
			return 0, l.window, false
		}
		wait := time.Duration((1 - b.tokens) / l.perSecond * float64(time.Second))
		return 0, wait, false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

// sweep drops buckets idle long enough to have refilled completely.
func (l *limiter) sweep(now time.Time) {
	if l.window <= 0 || now.Sub(l.swept) < l.window {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.last) >= l.window {
			delete(l.buckets, key)
		}
	}
	l.swept = now
}

func (l *limiter) allow(w http.ResponseWriter, r *http.Request) bool {
	if l.capacity <= 0 {
		return true
	}
	key := l.keyFn(r)
	if key == "" {
		key = "ip:" + shared.ClientIP(r)
	}
	remaining, wait, ok := l.take(key, time.Now())

	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(int(l.capacity)))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if ok {
		return true
	}

	retry := strconv.Itoa(int(math.Ceil(math.Max(wait.Seconds(), 1))))
	w.Header().Set("X-RateLimit-Reset", retry)
	w.Header().Set("Retry-After", retry)
	slog.Warn("rate limit exceeded", "key", key, "method", r.Method, "path", r.URL.Path, "limit", int(l.capacity))
	api.Fail(w, http.StatusTooManyRequests, "rate_limited", "too many requests", GetRequestID(r.Context()))
	return false
}

// RateLimit allows limit requests per window for each caller, keyed by user
// once authenticated and by client IP before that.
func RateLimit(limit int, window time.Duration, opts ...RateLimitOption) func(http.Handler) http.Handler {
	l := newLimiter(limit, window, actorOrIPKey)
	for _, opt := range opts {
		opt(l)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(w, r) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SensitiveMutationRateLimit adds tighter budgets on credential endpoints
// (per IP and per submitted email) and on payroll, approval and account
// mutations (per actor).
func SensitiveMutationRateLimit(baseLimit int, window time.Duration) func(http.Handler) http.Handler {
	authLimit := max(baseLimit/4, 1)
	byIP := newLimiter(authLimit, window, func(r *http.Request) string { return "ip:" + shared.ClientIP(r) })
	byEmail := newLimiter(authLimit, window, AuthEmailOrIPKey("email"))
	byActor := newLimiter(max(baseLimit/2, 1), window, actorOrIPKey)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch sensitiveRateScope(r) {
			case sensitiveScopeAuth:
				if !byIP.allow(w, r) || !byEmail.allow(w, r) {
					return
				}
			case sensitiveScopeActor:
				if !byActor.allow(w, r) {
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AuthEmailOrIPKey keys on a JSON body field, falling back to the client IP.
func AuthEmailOrIPKey(field string) RateLimitKeyFunc {
	if strings.TrimSpace(field) == "" {
		field = "email"
	}
	return func(r *http.Request) string {
		if email := peekJSONString(r, field); email != "" {
			return "email:" + strings.ToLower(email)
		}
		return "ip:" + shared.ClientIP(r)
	}
}

func actorOrIPKey(r *http.Request) string {
	if user, ok := GetUser(r.Context()); ok && user.UserID != 0 {
		return "user:" + userIDString(user.UserID)
	}
	return "ip:" + shared.ClientIP(r)
}

// peekJSONString reads one string field from a JSON body and restores the
// body for the next handler.
func peekJSONString(r *http.Request, field string) string {
	if r.Body == nil || !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		return ""
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(payload[field], &value); err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

type sensitiveScope string

const (
	sensitiveScopeNone  sensitiveScope = ""
	sensitiveScopeAuth  sensitiveScope = "auth"
	sensitiveScopeActor sensitiveScope = "actor"
)

// sensitiveRoutes are path.Match patterns relative to /api/v1.
var sensitiveRoutes = []struct {
	pattern string
	scope   sensitiveScope
}{
	{"/auth/login", sensitiveScopeAuth},
	{"/auth/request-reset", sensitiveScopeAuth},
	{"/auth/reset", sensitiveScopeAuth},
	{"/auth/mfa/*", sensitiveScopeAuth},
	{"/attendance/checkin", sensitiveScopeActor},
	{"/attendance/checkout", sensitiveScopeActor},
	{"/attendance/mark", sensitiveScopeActor},
	{"/leave/accrual/run", sensitiveScopeActor},
	{"/leave/requests/*/approve", sensitiveScopeActor},
	{"/leave/requests/*/reject", sensitiveScopeActor},
	{"/timesheets/lock", sensitiveScopeActor},
	{"/payroll/generate", sensitiveScopeActor},
	{"/payroll/runs/*/lock", sensitiveScopeActor},
	{"/users", sensitiveScopeActor},
	{"/users/*/role", sensitiveScopeActor},
	{"/users/*/deactivate", sensitiveScopeActor},
	{"/admin/jobs/*/run", sensitiveScopeActor},
}

func sensitiveRateScope(r *http.Request) sensitiveScope {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return sensitiveScopeNone
	}
	p := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1"), "/")
	for _, route := range sensitiveRoutes {
		if ok, _ := path.Match(route.pattern, p); ok {
			return route.scope
		}
	}
	return sensitiveScopeNone
}
