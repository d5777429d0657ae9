package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenStore defines persistence operations for one kind of recovery token.
// Each kind (email verification, password reset) has its own store.
type TokenStore interface {
	Create(ctx context.Context, token Token) error
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	ListActive(ctx context.Context, now time.Time) ([]Token, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Token is a single-use recovery token. Only the argon2id hash of the secret
// is persisted; the plaintext secret exists solely in the issuance response.
type Token struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}
