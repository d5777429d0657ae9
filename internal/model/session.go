package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SessionStore is the external session registry the password reset flow
// invalidates. DeleteAllByUser is the only operation the core requires;
// Create and CountByUser exist so the cascade is observable.
type SessionStore interface {
	Create(ctx context.Context, session Session) error
	DeleteAllByUser(ctx context.Context, userID uuid.UUID) error
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Session is an opaque login session record.
type Session struct {
	ID        string
	UserID    uuid.UUID
	ExpiresAt time.Time
}
