package authhandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pquerna/otp/totp"

	"hrms/internal/app/server"
	"hrms/internal/domain/audit"
	"hrms/internal/domain/auth"
	"hrms/internal/platform/config"
	cryptoutil "hrms/internal/platform/crypto"
	authhandler "hrms/internal/transport/http/handlers/auth"
	"hrms/internal/transport/http/middleware"
)

type sentMail struct {
	to      string
	subject string
	body    string
}

type outbox struct {
	mu   sync.Mutex
	sent []sentMail
}

func (o *outbox) Send(_ context.Context, _, to, subject, body string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (o *outbox) messages() []sentMail {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]sentMail(nil), o.sent...)
}

type envelope struct {
	Success bool           `json:"success"`
	Data    map[string]any `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (e envelope) code() string {
	if e.Error == nil {
		return ""
	}
	return e.Error.Code
}

// authFixture serves only the auth routes behind the real Auth middleware,
// with mail captured in memory.
type authFixture struct {
	app      *server.App
	ts       *httptest.Server
	mail     *outbox
	email    string
	password string
	userID   int64
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	dbURL := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	cfg := config.Config{
		DatabaseURL:        dbURL,
		MigrationsDir:      "../../../../../migrations",
		JWTSecret:          "auth-test-secret",
		JWTTTL:             time.Hour,
		DataEncryptionKey:  "0123456789abcdef0123456789abcdef",
		AppBaseURL:         "https://hr.example.com/app",
		Environment:        "test",
		SeedAdminEmail:     "hr@test.local",
		SeedAdminPassword:  "Str0ng!Passw0rd",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1 << 20,
		RateLimitPerMinute: 1000,
		QueueBackend:       "memory",
		OfficeStart:        "09:30",
		FullDayHours:       8,
		HalfDayHours:       4,
	}
	app, err := server.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("start app: %v", err)
	}

	crypto, err := cryptoutil.New(cfg.DataEncryptionKey)
	if err != nil {
		t.Fatalf("crypto: %v", err)
	}
	svc := auth.NewService(auth.NewStore(app.DB), crypto, cfg.JWTSecret, cfg.JWTTTL)
	mail := &outbox{}
	h := authhandler.NewHandler(svc, mail, cfg.EmailFrom, cfg.AppBaseURL, audit.New(app.DB))

	r := chi.NewRouter()
	r.Use(middleware.Auth(cfg.JWTSecret, svc))
	r.Route("/api/v1", h.RegisterRoutes)
	ts := httptest.NewServer(r)
	t.Cleanup(func() {
		ts.Close()
		app.Close()
	})

	f := &authFixture{app: app, ts: ts, mail: mail, password: "InitialReset123"}
	f.email = fmt.Sprintf("auth-%d@example.com", time.Now().UnixNano())
	hash, err := auth.HashPassword(f.password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := app.DB.QueryRow(context.Background(), `
		INSERT INTO users (email, password_hash, role_id)
		SELECT $1, $2, id FROM roles WHERE name = $3
		RETURNING id
	`, f.email, hash, auth.RoleEmployee).Scan(&f.userID); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return f
}

func (f *authFixture) post(t *testing.T, path, token string, payload any) (int, envelope) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, f.ts.URL+path, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return f.send(t, req, token)
}

func (f *authFixture) get(t *testing.T, path, token string) (int, envelope) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.ts.URL+path, nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	return f.send(t, req, token)
}

func (f *authFixture) send(t *testing.T, req *http.Request, token string) (int, envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := f.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode %s: %v", req.URL.Path, err)
	}
	return resp.StatusCode, env
}

func (f *authFixture) login(t *testing.T, password, mfaCode string) (int, envelope) {
	t.Helper()
	return f.post(t, "/api/v1/auth/login", "", map[string]any{"email": f.email, "password": password, "mfaCode": mfaCode})
}

func (f *authFixture) token(t *testing.T) string {
	t.Helper()
	status, env := f.login(t, f.password, "")
	if status != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", status, env.code())
	}
	token, _ := env.Data["token"].(string)
	if token == "" {
		t.Fatal("login returned no token")
	}
	return token
}

var linkPattern = regexp.MustCompile(`https?://\S+`)

func resetTokenFrom(t *testing.T, body string) string {
	t.Helper()
	link, err := url.Parse(linkPattern.FindString(body))
	if err != nil || link.Query().Get("token") == "" {
		t.Fatalf("no reset link in %q", body)
	}
	if !strings.HasSuffix(link.Path, "/app/reset") {
		t.Fatalf("expected link under the app base URL, got %s", link)
	}
	return link.Query().Get("token")
}

func TestPasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	before := f.token(t)

	status, env := f.post(t, "/api/v1/auth/request-reset", "", map[string]any{"email": f.email})
	if status != http.StatusOK || env.Data["status"] != "reset_requested" {
		t.Fatalf("request reset: got %d %+v", status, env.Data)
	}
	sent := f.mail.messages()
	if len(sent) != 1 || sent[0].to != f.email {
		t.Fatalf("expected one reset mail to %s, got %+v", f.email, sent)
	}
	token := resetTokenFrom(t, sent[0].body)

	var raw, hashed int
	if err := f.app.DB.QueryRow(ctx, `
		SELECT count(*) FILTER (WHERE token_hash = $1), count(*) FILTER (WHERE token_hash = $2)
		FROM password_resets WHERE user_id = $3
	`, token, auth.HashToken(token), f.userID).Scan(&raw, &hashed); err != nil {
		t.Fatalf("inspect resets: %v", err)
	}
	if raw != 0 || hashed != 1 {
		t.Fatalf("expected only the hashed token stored, raw=%d hashed=%d", raw, hashed)
	}

	status, env = f.post(t, "/api/v1/auth/reset", "", map[string]any{"token": token, "newPassword": "ResetStrong123"})
	if status != http.StatusOK || env.Data["status"] != "password_reset" {
		t.Fatalf("reset: got %d %s", status, env.code())
	}

	if status, _ := f.get(t, "/api/v1/auth/me", before); status != http.StatusUnauthorized {
		t.Fatalf("expected pre-reset session to be revoked, got %d", status)
	}
	if status, env := f.login(t, f.password, ""); status != http.StatusUnauthorized || env.code() != "invalid_credentials" {
		t.Fatalf("expected old password rejected, got %d %s", status, env.code())
	}
	if status, _ := f.login(t, "ResetStrong123", ""); status != http.StatusOK {
		t.Fatalf("expected new password accepted, got %d", status)
	}

	status, env = f.post(t, "/api/v1/auth/reset", "", map[string]any{"token": token, "newPassword": "AnotherStrong123"})
	if status != http.StatusBadRequest || env.code() != "invalid_token" {
		t.Fatalf("expected reused token rejected, got %d %s", status, env.code())
	}
}

func TestPasswordResetRejections(t *testing.T) {
	f := newAuthFixture(t)
	store := auth.NewStore(f.app.DB)

	expired := fmt.Sprintf("expired-%d", time.Now().UnixNano())
	if err := store.CreatePasswordReset(context.Background(), f.userID, auth.HashToken(expired), time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("seed expired token: %v", err)
	}
	live := fmt.Sprintf("live-%d", time.Now().UnixNano())
	if err := store.CreatePasswordReset(context.Background(), f.userID, auth.HashToken(live), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("seed live token: %v", err)
	}

	tests := []struct {
		name     string
		token    string
		password string
		wantCode string
	}{
		{name: "unknown token", token: "not-a-real-token", password: "StrongReset123", wantCode: "invalid_token"},
		{name: "expired token", token: expired, password: "StrongReset123", wantCode: "invalid_token"},
		{name: "weak password", token: live, password: "alllowercase", wantCode: "weak_password"},
		{name: "missing token", token: "", password: "StrongReset123", wantCode: "validation_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env := f.post(t, "/api/v1/auth/reset", "", map[string]any{"token": tc.token, "newPassword": tc.password})
			if status != http.StatusBadRequest || env.code() != tc.wantCode {
				t.Fatalf("expected 400 %s, got %d %s", tc.wantCode, status, env.code())
			}
		})
	}
}

func TestPasswordResetUnknownEmailLooksTheSame(t *testing.T) {
	f := newAuthFixture(t)
	status, env := f.post(t, "/api/v1/auth/request-reset", "", map[string]any{"email": "missing-" + f.email})
	if status != http.StatusOK || env.Data["status"] != "reset_requested" {
		t.Fatalf("expected generic success, got %d %+v", status, env.Data)
	}
	if n := len(f.mail.messages()); n != 0 {
		t.Fatalf("expected no mail for unknown account, got %d", n)
	}
}

func TestMFAEnrolmentGatesLogin(t *testing.T) {
	f := newAuthFixture(t)
	token := f.token(t)

	status, env := f.post(t, "/api/v1/auth/mfa/setup", token, map[string]any{})
	if status != http.StatusOK {
		t.Fatalf("mfa setup: got %d %s", status, env.code())
	}
	secret, _ := env.Data["secret"].(string)
	if secret == "" || !strings.HasPrefix(fmt.Sprint(env.Data["otpauthUrl"]), "otpauth://totp/") {
		t.Fatalf("unexpected setup payload %+v", env.Data)
	}

	if status, env := f.post(t, "/api/v1/auth/mfa/enable", token, map[string]any{"code": "000000"}); status != http.StatusBadRequest || env.code() != "mfa_invalid" {
		t.Fatalf("expected wrong code rejected, got %d %s", status, env.code())
	}
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if status, env := f.post(t, "/api/v1/auth/mfa/enable", token, map[string]any{"code": code}); status != http.StatusOK || env.Data["status"] != "enabled" {
		t.Fatalf("enable: got %d %s", status, env.code())
	}

	if status, env := f.login(t, f.password, ""); status != http.StatusUnauthorized || env.code() != "mfa_required" {
		t.Fatalf("expected mfa_required, got %d %s", status, env.code())
	}
	if status, env := f.login(t, f.password, "12345x"); status != http.StatusUnauthorized || env.code() != "mfa_invalid" {
		t.Fatalf("expected mfa_invalid, got %d %s", status, env.code())
	}
	code, _ = totp.GenerateCode(secret, time.Now())
	if status, env := f.login(t, f.password, code); status != http.StatusOK {
		t.Fatalf("expected login with code, got %d %s", status, env.code())
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	token := f.token(t)

	status, env := f.get(t, "/api/v1/auth/me", token)
	if status != http.StatusOK || env.Data["email"] != f.email {
		t.Fatalf("me: got %d %+v", status, env.Data)
	}

	status, env = f.post(t, "/api/v1/auth/refresh", token, map[string]any{})
	if status != http.StatusOK {
		t.Fatalf("refresh: got %d %s", status, env.code())
	}
	rotated, _ := env.Data["token"].(string)
	if status, _ := f.get(t, "/api/v1/auth/me", token); status != http.StatusUnauthorized {
		t.Fatalf("expected pre-refresh token to stop working, got %d", status)
	}

	if status, _ := f.post(t, "/api/v1/auth/logout", rotated, map[string]any{}); status != http.StatusOK {
		t.Fatalf("logout: got %d", status)
	}
	if status, _ := f.get(t, "/api/v1/auth/me", rotated); status != http.StatusUnauthorized {
		t.Fatalf("expected logged-out token rejected, got %d", status)
	}
}
