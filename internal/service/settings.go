package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/avolhov/recovery-server/internal/logger"
	"github.com/avolhov/recovery-server/internal/model"
	"github.com/avolhov/recovery-server/internal/secrets"
)

// DecryptFailedValue replaces a setting value that could not be decrypted
// during a bulk read, so the rest of the batch still returns.
const DecryptFailedValue = "<decryption failed>"

var settingKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Settings provides encrypted key/value configuration on top of a
// SettingStore. Values flagged as encrypted are sealed before persistence
// and opened on read; callers only ever see plaintext.
type Settings struct {
	store  model.SettingStore
	cipher *secrets.Cipher
	logger *logger.Logger
}

func NewSettings(store model.SettingStore, cipher *secrets.Cipher, logger *logger.Logger) *Settings {
	return &Settings{
		store:  store,
		cipher: cipher,
		logger: logger,
	}
}

// SetOptions carries the optional attributes of Set.
type SetOptions struct {
	Description string
	Encrypted   bool
	GroupID     *string
}

// UpdateParams carries the partial fields of Update. Nil fields are left
// unchanged.
type UpdateParams struct {
	Value       *string
	Description *string
	Encrypted   *bool
	GroupID     *string
}

func validateSettingKey(key string) error {
	if key == "" || len(key) > 255 || !settingKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", model.ErrInvalidSettingKey, key)
	}
	return nil
}

// Get returns the setting for key with its value decrypted. A decryption
// failure on a single-key read propagates to the caller.
func (s *Settings) Get(ctx context.Context, key string) (model.Setting, error) {
	if err := validateSettingKey(key); err != nil {
		return model.Setting{}, err
	}

	setting, err := s.store.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Setting{}, err
		}
		return model.Setting{}, fmt.Errorf("failed to get setting %q: %w", key, err)
	}

	if setting.IsEncrypted {
		plaintext, err := s.cipher.Decrypt(setting.Value)
		if err != nil {
			s.logger.Error("Settings service: failed to decrypt setting",
				"key", key,
				"error", err.Error())
			return model.Setting{}, fmt.Errorf("failed to decrypt setting %q: %w", key, err)
		}
		setting.Value = plaintext
	}

	return setting, nil
}

// Set upserts the setting by key, encrypting the value first when requested.
// The returned setting carries the plaintext value.
func (s *Settings) Set(ctx context.Context, key, value string, opts SetOptions) (model.Setting, error) {
	if err := validateSettingKey(key); err != nil {
		return model.Setting{}, err
	}

	stored := value
	if opts.Encrypted {
		encrypted, err := s.cipher.Encrypt(value)
		if err != nil {
			return model.Setting{}, fmt.Errorf("failed to encrypt setting %q: %w", key, err)
		}
		stored = encrypted
	}

	saved, err := s.store.Upsert(ctx, model.Setting{
		Key:         key,
		Value:       stored,
		IsEncrypted: opts.Encrypted,
		GroupID:     opts.GroupID,
		Description: opts.Description,
	})
	if err != nil {
		return model.Setting{}, fmt.Errorf("failed to upsert setting %q: %w", key, err)
	}

	saved.Value = value
	return saved, nil
}

// Update applies the provided fields to an existing setting and re-persists
// it, re-encrypting when the effective encrypted flag is set. Returns
// model.ErrNotFound when the key does not exist.
func (s *Settings) Update(ctx context.Context, key string, params UpdateParams) (model.Setting, error) {
	current, err := s.Get(ctx, key)
	if err != nil {
		return model.Setting{}, err
	}

	value := current.Value
	if params.Value != nil {
		value = *params.Value
	}
	encrypted := current.IsEncrypted
	if params.Encrypted != nil {
		encrypted = *params.Encrypted
	}
	description := current.Description
	if params.Description != nil {
		description = *params.Description
	}
	groupID := current.GroupID
	if params.GroupID != nil {
		groupID = params.GroupID
	}

	return s.Set(ctx, key, value, SetOptions{
		Description: description,
		Encrypted:   encrypted,
		GroupID:     groupID,
	})
}

// Delete removes the setting and reports whether a row was removed.
func (s *Settings) Delete(ctx context.Context, key string) (bool, error) {
	if err := validateSettingKey(key); err != nil {
		return false, err
	}

	deleted, err := s.store.Delete(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete setting %q: %w", key, err)
	}
	return deleted, nil
}

// GetAll returns every stored setting with values decrypted.
func (s *Settings) GetAll(ctx context.Context) ([]model.Setting, error) {
	settings, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return s.decryptBulk(settings), nil
}

// Search returns settings whose key contains substr, ordered by key.
func (s *Settings) Search(ctx context.Context, substr string) ([]model.Setting, error) {
	settings, err := s.store.Search(ctx, substr)
	if err != nil {
		return nil, fmt.Errorf("failed to search settings: %w", err)
	}
	return s.decryptBulk(settings), nil
}

// GetByGroup returns all settings of one group.
func (s *Settings) GetByGroup(ctx context.Context, groupID string) ([]model.Setting, error) {
	settings, err := s.store.GetByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings by group %q: %w", groupID, err)
	}
	return s.decryptBulk(settings), nil
}

// GetGroups returns the distinct group ids in use.
func (s *Settings) GetGroups(ctx context.Context) ([]string, error) {
	groups, err := s.store.GetGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get setting groups: %w", err)
	}
	return groups, nil
}

// Exists reports whether a setting with key is stored.
func (s *Settings) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateSettingKey(key); err != nil {
		return false, err
	}

	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to check setting %q: %w", key, err)
	}
	return exists, nil
}

// decryptBulk opens encrypted values in place. A row that fails to decrypt
// is logged and its value replaced with DecryptFailedValue; the batch itself
// always returns.
func (s *Settings) decryptBulk(settings []model.Setting) []model.Setting {
	for i := range settings {
		if !settings[i].IsEncrypted {
			continue
		}
		plaintext, err := s.cipher.Decrypt(settings[i].Value)
		if err != nil {
			s.logger.Error("Settings service: failed to decrypt setting in bulk read",
				"key", settings[i].Key,
				"error", err.Error())
			settings[i].Value = DecryptFailedValue
			continue
		}
		settings[i].Value = plaintext
	}
	return settings
}
