package auth

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pquerna/otp/totp"

	cryptoutil "hrms/internal/platform/crypto"
)

type fakeStore struct {
	users    map[string]AuthUser
	sessions map[string]int64
	resets   map[string]int64
	revoked  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]AuthUser{}, sessions: map[string]int64{}, resets: map[string]int64{}}
}

func (f *fakeStore) byID(id int64) (AuthUser, bool) {
	for _, u := range f.users {
		if u.ID == id {
			return u, true
		}
	}
	return AuthUser{}, false
}

func (f *fakeStore) FindUserByEmail(_ context.Context, email string) (AuthUser, error) {
	u, ok := f.users[email]
	if !ok {
		return AuthUser{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeStore) GetUser(_ context.Context, userID int64) (AuthUser, error) {
	u, ok := f.byID(userID)
	if !ok {
		return AuthUser{}, pgx.ErrNoRows
	}
	return u, nil
}

func (f *fakeStore) CreateSession(_ context.Context, userID int64, tokenHash string, _ time.Time) error {
	f.sessions[tokenHash] = userID
	return nil
}

func (f *fakeStore) UpdateLastLogin(context.Context, int64) error { return nil }

func (f *fakeStore) RevokeSession(_ context.Context, _ int64, tokenHash string) error {
	delete(f.sessions, tokenHash)
	f.revoked = append(f.revoked, tokenHash)
	return nil
}

func (f *fakeStore) SessionValid(_ context.Context, userID int64, tokenHash string) (bool, error) {
	return f.sessions[tokenHash] == userID, nil
}

func (f *fakeStore) RotateSession(_ context.Context, userID int64, oldHash, newHash string, _ time.Time) (bool, error) {
	if f.sessions[oldHash] != userID {
		return false, nil
	}
	delete(f.sessions, oldHash)
	f.sessions[newHash] = userID
	return true, nil
}

func (f *fakeStore) RevokeAllSessions(_ context.Context, userID int64) error {
	for hash, owner := range f.sessions {
		if owner == userID {
			delete(f.sessions, hash)
		}
	}
	return nil
}

func (f *fakeStore) UpdateMFASecret(_ context.Context, userID int64, secretEnc []byte) error {
	for email, u := range f.users {
		if u.ID == userID {
			u.MFASecretEn = secretEnc
			u.MFAEnabled = false
			f.users[email] = u
		}
	}
	return nil
}

func (f *fakeStore) SetMFAEnabled(_ context.Context, userID int64, enabled bool) error {
	for email, u := range f.users {
		if u.ID == userID {
			u.MFAEnabled = enabled
			f.users[email] = u
		}
	}
	return nil
}

func (f *fakeStore) CreatePasswordReset(_ context.Context, userID int64, tokenHash string, _ time.Time) error {
	f.resets[tokenHash] = userID
	return nil
}

func (f *fakeStore) ConsumePasswordReset(_ context.Context, tokenHash, passwordHash string) (int64, error) {
	userID, ok := f.resets[tokenHash]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	delete(f.resets, tokenHash)
	return userID, f.UpdatePassword(context.Background(), userID, passwordHash)
}

func (f *fakeStore) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	for email, u := range f.users {
		if u.ID == userID {
			u.Password = passwordHash
			f.users[email] = u
		}
	}
	return nil
}

func seededService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	hash, err := HashPassword("Password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	store.users["hr@example.com"] = AuthUser{ID: 1, Email: "hr@example.com", RoleID: 3, RoleName: RoleHR, EmployeeID: 7, Active: true, Password: hash}
	store.users["gone@example.com"] = AuthUser{ID: 2, Email: "gone@example.com", RoleID: 1, RoleName: RoleEmployee, Active: false, Password: hash}
	crypto, err := cryptoutil.New(hex.EncodeToString(bytes.Repeat([]byte{1}, 32)))
	if err != nil {
		t.Fatalf("crypto: %v", err)
	}
	return NewService(store, crypto, "secret", time.Hour), store
}

func TestLoginIssuesSessionToken(t *testing.T) {
	svc, store := seededService(t)
	result, err := svc.Login(context.Background(), "hr@example.com", "Password123", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := ParseToken("secret", result.Token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 1 || claims.EmployeeID != 7 || claims.RoleName != RoleHR {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if store.sessions[HashToken(claims.SessionID)] != 1 {
		t.Fatal("expected hashed session to be stored")
	}
}

func TestLoginRejectsBadCredentialsAndInactiveUsers(t *testing.T) {
	svc, _ := seededService(t)
	cases := []struct{ email, password string }{
		{"hr@example.com", "wrong"},
		{"nobody@example.com", "Password123"},
		{"gone@example.com", "Password123"},
	}
	for _, tc := range cases {
		if _, err := svc.Login(context.Background(), tc.email, tc.password, ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("%s: expected invalid credentials, got %v", tc.email, err)
		}
	}
}

func TestRefreshRotatesAndLogoutRevokes(t *testing.T) {
	svc, store := seededService(t)
	result, err := svc.Login(context.Background(), "hr@example.com", "Password123", "")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, _ := ParseToken("secret", result.Token)

	refreshed, err := svc.Refresh(context.Background(), claims)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), claims); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected old session to be rotated out, got %v", err)
	}

	newClaims, _ := ParseToken("secret", refreshed)
	user := UserContext{UserID: newClaims.UserID, SessionID: newClaims.SessionID}
	if err := svc.Logout(context.Background(), user); err != nil {
		t.Fatalf("logout: %v", err)
	}
	valid, _ := svc.SessionValid(context.Background(), 1, newClaims.SessionID)
	if valid || len(store.revoked) != 1 {
		t.Fatal("expected session revoked")
	}
}

func TestMFALifecycle(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()
	secret, url, err := svc.SetupMFA(ctx, 1, "hr@example.com")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if secret == "" || url == "" {
		t.Fatal("expected secret and otpauth url")
	}
	if err := svc.EnableMFA(ctx, 1, "000000"); !errors.Is(err, ErrMFAInvalid) {
		t.Fatalf("expected invalid code, got %v", err)
	}
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("code: %v", err)
	}
	if err := svc.EnableMFA(ctx, 1, code); err != nil {
		t.Fatalf("enable: %v", err)
	}

	if _, err := svc.Login(ctx, "hr@example.com", "Password123", ""); !errors.Is(err, ErrMFARequired) {
		t.Fatalf("expected mfa required, got %v", err)
	}
	if _, err := svc.Login(ctx, "hr@example.com", "Password123", code); err != nil {
		t.Fatalf("login with mfa: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, store := seededService(t)
	ctx := context.Background()

	token, to, err := svc.RequestReset(ctx, "nobody@example.com")
	if err != nil || token != "" || to != "" {
		t.Fatalf("unknown email should be silent, got %q %q %v", token, to, err)
	}

	token, to, err = svc.RequestReset(ctx, "hr@example.com")
	if err != nil || token == "" || to != "hr@example.com" {
		t.Fatalf("unexpected reset request result %q %q %v", token, to, err)
	}
	if err := svc.ResetPassword(ctx, token, "weak"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected policy error, got %v", err)
	}
	if err := svc.ResetPassword(ctx, token, "NewPassword9"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := svc.ResetPassword(ctx, token, "NewPassword9"); !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected token to be single use, got %v", err)
	}
	if err := CheckPassword(store.users["hr@example.com"].Password, "NewPassword9"); err != nil {
		t.Fatal("expected password to change")
	}
}
