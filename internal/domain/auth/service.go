package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	cryptoutil "hrms/internal/platform/crypto"
)

const (
	MFAIssuer     = "HRMS"
	ResetTokenTTL = 2 * time.Hour
)

type Service struct {
	store  StoreAPI
	Crypto *cryptoutil.Service
	Secret string
	TTL    time.Duration
	Now    func() time.Time
}

func NewService(store StoreAPI, crypto *cryptoutil.Service, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	return &Service{store: store, Crypto: crypto, Secret: secret, TTL: ttl, Now: time.Now}
}

type LoginResult struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expiresAt"`
	User      AuthUser `json:"user"`
}

func (s *Service) Login(ctx context.Context, email, password, mfaCode string) (LoginResult, error) {
	user, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if IsNotFound(err) {
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !user.Active {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err := CheckPassword(user.Password, password); err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}

	if user.MFAEnabled {
		if strings.TrimSpace(mfaCode) == "" {
			return LoginResult{}, ErrMFARequired
		}
		secret, err := s.openSecret(user.MFASecretEn)
		if err != nil || secret == "" || !totp.Validate(mfaCode, secret) {
			return LoginResult{}, ErrMFAInvalid
		}
	}

	token, expires, err := s.startSession(ctx, user)
	if err != nil {
		return LoginResult{}, err
	}
	if err := s.store.UpdateLastLogin(ctx, user.ID); err != nil {
		slog.Warn("update last login failed", "userId", user.ID, "err", err)
	}
	return LoginResult{Token: token, ExpiresAt: expires.UTC().Format(time.RFC3339), User: user}, nil
}

func (s *Service) startSession(ctx context.Context, user AuthUser) (string, time.Time, error) {
	sessionID, err := RandomToken()
	if err != nil {
		return "", time.Time{}, err
	}
	expires := s.Now().Add(s.TTL)
	if err := s.store.CreateSession(ctx, user.ID, HashToken(sessionID), expires); err != nil {
		return "", time.Time{}, fmt.Errorf("create session: %w", err)
	}
	token, err := GenerateToken(s.Secret, Claims{
		UserID:     user.ID,
		RoleID:     user.RoleID,
		RoleName:   user.RoleName,
		EmployeeID: user.EmployeeID,
		SessionID:  sessionID,
	}, s.TTL)
	return token, expires, err
}

func (s *Service) Logout(ctx context.Context, user UserContext) error {
	if user.SessionID == "" {
		return nil
	}
	return s.store.RevokeSession(ctx, user.UserID, HashToken(user.SessionID))
}

// Refresh rotates the session id behind a still-valid token.
func (s *Service) Refresh(ctx context.Context, claims *Claims) (string, error) {
	if claims == nil || claims.SessionID == "" {
		return "", ErrSessionExpired
	}
	newSessionID, err := RandomToken()
	if err != nil {
		return "", err
	}
	rotated, err := s.store.RotateSession(ctx, claims.UserID, HashToken(claims.SessionID), HashToken(newSessionID), s.Now().Add(s.TTL))
	if err != nil {
		return "", err
	}
	if !rotated {
		return "", ErrSessionExpired
	}
	return GenerateToken(s.Secret, Claims{
		UserID:     claims.UserID,
		RoleID:     claims.RoleID,
		RoleName:   claims.RoleName,
		EmployeeID: claims.EmployeeID,
		SessionID:  newSessionID,
	}, s.TTL)
}

func (s *Service) SessionValid(ctx context.Context, userID int64, sessionID string) (bool, error) {
	return s.store.SessionValid(ctx, userID, HashToken(sessionID))
}

func (s *Service) Me(ctx context.Context, userID int64) (AuthUser, error) {
	return s.store.GetUser(ctx, userID)
}

func (s *Service) SetupMFA(ctx context.Context, userID int64, accountName string) (string, string, error) {
	if !s.Crypto.Configured() {
		return "", "", ErrMFAUnavailable
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      MFAIssuer,
		AccountName: accountName,
		Period:      30,
		Digits:      otp.DigitsSix,
	})
	if err != nil {
		return "", "", err
	}
	encrypted, err := s.Crypto.EncryptString(key.Secret())
	if err != nil {
		return "", "", err
	}
	if err := s.store.UpdateMFASecret(ctx, userID, encrypted); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

func (s *Service) EnableMFA(ctx context.Context, userID int64, code string) error {
	return s.toggleMFA(ctx, userID, code, true)
}

func (s *Service) DisableMFA(ctx context.Context, userID int64, code string) error {
	return s.toggleMFA(ctx, userID, code, false)
}

func (s *Service) toggleMFA(ctx context.Context, userID int64, code string, enabled bool) error {
	if !s.Crypto.Configured() {
		return ErrMFAUnavailable
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(user.MFASecretEn) == 0 {
		return ErrMFANotSetUp
	}
	secret, err := s.openSecret(user.MFASecretEn)
	if err != nil {
		return ErrMFAInvalid
	}
	if !totp.Validate(code, secret) {
		return ErrMFAInvalid
	}
	return s.store.SetMFAEnabled(ctx, userID, enabled)
}

func (s *Service) openSecret(sealed []byte) (string, error) {
	if s.Crypto.Configured() {
		return s.Crypto.DecryptString(sealed)
	}
	return string(sealed), nil
}

// RequestReset returns the raw reset token and the address to send it to.
// Unknown or inactive emails yield an empty token and no error.
func (s *Service) RequestReset(ctx context.Context, email string) (string, string, error) {
	user, err := s.store.FindUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if IsNotFound(err) {
			return "", "", nil
		}
		return "", "", err
	}
	if !user.Active {
		return "", "", nil
	}
	token, err := RandomToken()
	if err != nil {
		return "", "", err
	}
	if err := s.store.CreatePasswordReset(ctx, user.ID, HashToken(token), s.Now().Add(ResetTokenTTL)); err != nil {
		return "", "", err
	}
	return token, user.Email, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if _, err := s.store.ConsumePasswordReset(ctx, HashToken(strings.TrimSpace(token)), hash); err != nil {
		if IsNotFound(err) {
			return ErrResetTokenInvalid
		}
		return err
	}
	return nil
}

// SetPassword is the administrative reset used by the CLI.
func (s *Service) SetPassword(ctx context.Context, email, newPassword string) error {
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		if IsNotFound(err) {
			return fmt.Errorf("user %s not found", email)
		}
		return err
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	return s.store.RevokeAllSessions(ctx, user.ID)
}

func IsPasswordPolicyError(err error) bool {
	return errors.Is(err, ErrPasswordTooShort) ||
		errors.Is(err, ErrPasswordNeedsUpper) ||
		errors.Is(err, ErrPasswordNeedsLower) ||
		errors.Is(err, ErrPasswordNeedsDigit)
}
