package model

import (
	"context"
	"time"
)

// SettingStore defines persistence operations for settings.
type SettingStore interface {
	GetByKey(ctx context.Context, key string) (Setting, error)
	GetAll(ctx context.Context) ([]Setting, error)
	Upsert(ctx context.Context, setting Setting) (Setting, error)
	Delete(ctx context.Context, key string) (bool, error)
	Search(ctx context.Context, substr string) ([]Setting, error)
	GetByGroup(ctx context.Context, groupID string) ([]Setting, error)
	GetGroups(ctx context.Context) ([]string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Setting represents a stored configuration value. When IsEncrypted is set
// the persisted value is ciphertext; callers of the settings service always
// see plaintext.
type Setting struct {
	Key         string
	Value       string
	IsEncrypted bool
	GroupID     *string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
