package model

import (
	"context"

	"github.com/google/uuid"
)

// AuthMethodPassword marks users who authenticate with a locally stored
// password hash. Recovery flows only ever operate on these users; accounts
// backed by an external identity provider are ineligible.
const AuthMethodPassword = "password"

// UserStore defines the minimal user projection the recovery flows call.
// Full user CRUD lives elsewhere.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmailAndAuthMethod(ctx context.Context, email, authMethod string) (User, error)
	SetEmailVerified(ctx context.Context, id uuid.UUID) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// User is the projection of an account the recovery flows read.
type User struct {
	ID            uuid.UUID
	Email         string
	Username      string
	AuthMethod    string
	EmailVerified bool
}
