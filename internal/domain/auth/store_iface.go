package auth

import (
	"context"
	"time"
)

type StoreAPI interface {
	FindUserByEmail(ctx context.Context, email string) (AuthUser, error)
	GetUser(ctx context.Context, userID int64) (AuthUser, error)
	CreateSession(ctx context.Context, userID int64, tokenHash string, expires time.Time) error
	UpdateLastLogin(ctx context.Context, userID int64) error
	RevokeSession(ctx context.Context, userID int64, tokenHash string) error
	SessionValid(ctx context.Context, userID int64, tokenHash string) (bool, error)
	RotateSession(ctx context.Context, userID int64, oldHash, newHash string, expires time.Time) (bool, error)
	RevokeAllSessions(ctx context.Context, userID int64) error
	UpdateMFASecret(ctx context.Context, userID int64, secretEnc []byte) error
	SetMFAEnabled(ctx context.Context, userID int64, enabled bool) error
	CreatePasswordReset(ctx context.Context, userID int64, tokenHash string, expires time.Time) error
	ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string) (int64, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}
