package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolhov/recovery-server/internal/model"
	"github.com/avolhov/recovery-server/internal/secrets"
	"github.com/avolhov/recovery-server/internal/testutil"
)

func newTestSettings(t *testing.T) (*Settings, *memSettingStore, *secrets.Cipher) {
	t.Helper()
	cipher, err := secrets.NewCipher("settings-test-secret")
	require.NoError(t, err)
	store := newMemSettingStore()
	return NewSettings(store, cipher, testutil.MakeNoopLogger()), store, cipher
}

func TestSettings_SetGet_Plaintext(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestSettings(t)

	saved, err := svc.Set(ctx, "app.name", "Acme", SetOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Acme", saved.Value)
	assert.False(t, saved.IsEncrypted)

	got, err := svc.Get(ctx, "app.name")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Value)
	assert.False(t, got.IsEncrypted)

	raw, ok := store.raw("app.name")
	require.True(t, ok)
	assert.Equal(t, "Acme", raw.Value)
}

func TestSettings_SetGet_Encrypted(t *testing.T) {
	ctx := context.Background()
	svc, store, cipher := newTestSettings(t)

	saved, err := svc.Set(ctx, "smtp.password", "p@ss", SetOptions{Encrypted: true, GroupID: strPtr("smtp")})
	require.NoError(t, err)
	assert.Equal(t, "p@ss", saved.Value)
	assert.True(t, saved.IsEncrypted)

	// The persisted value must be ciphertext in the wire format, never
	// the plaintext.
	raw, ok := store.raw("smtp.password")
	require.True(t, ok)
	assert.NotEqual(t, "p@ss", raw.Value)
	assert.True(t, cipher.IsWellFormed(raw.Value))

	got, err := svc.Get(ctx, "smtp.password")
	require.NoError(t, err)
	assert.Equal(t, "p@ss", got.Value)
}

func TestSettings_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestSettings(t)

	_, err := svc.Get(ctx, "missing.key")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSettings_KeyValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestSettings(t)

	for _, key := range []string{
		"",
		"has space",
		"has/slash",
		"has:colon",
		strings.Repeat("k", 256),
	} {
		_, err := svc.Get(ctx, key)
		assert.ErrorIs(t, err, model.ErrInvalidSettingKey, "key %q", key)

		_, err = svc.Set(ctx, key, "v", SetOptions{})
		assert.ErrorIs(t, err, model.ErrInvalidSettingKey, "key %q", key)
	}

	for _, key := range []string{"a", "global.send_mail", "smtp.from-email", "A1._-b"} {
		_, err := svc.Set(ctx, key, "v", SetOptions{})
		assert.NoError(t, err, "key %q", key)
	}
}

func TestSettings_Update_Partial(t *testing.T) {
	ctx := context.Background()
	svc, store, cipher := newTestSettings(t)

	_, err := svc.Set(ctx, "smtp.host", "mail.example.com", SetOptions{Description: "smtp host", GroupID: strPtr("smtp")})
	require.NoError(t, err)

	// Only the value changes; description and group survive.
	updated, err := svc.Update(ctx, "smtp.host", UpdateParams{Value: strPtr("mail2.example.com")})
	require.NoError(t, err)
	assert.Equal(t, "mail2.example.com", updated.Value)
	assert.Equal(t, "smtp host", updated.Description)
	require.NotNil(t, updated.GroupID)
	assert.Equal(t, "smtp", *updated.GroupID)

	// Flipping the encrypted flag re-encrypts the existing value.
	updated, err = svc.Update(ctx, "smtp.host", UpdateParams{Encrypted: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, "mail2.example.com", updated.Value)
	assert.True(t, updated.IsEncrypted)

	raw, ok := store.raw("smtp.host")
	require.True(t, ok)
	assert.True(t, cipher.IsWellFormed(raw.Value))
}

func TestSettings_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestSettings(t)

	_, err := svc.Update(ctx, "missing.key", UpdateParams{Value: strPtr("v")})
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSettings_Delete(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestSettings(t)

	_, err := svc.Set(ctx, "app.name", "Acme", SetOptions{})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, "app.name")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Delete(ctx, "app.name")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSettings_SearchAndGroups(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestSettings(t)

	_, err := svc.Set(ctx, "smtp.host", "h", SetOptions{GroupID: strPtr("smtp")})
	require.NoError(t, err)
	_, err = svc.Set(ctx, "smtp.port", "587", SetOptions{GroupID: strPtr("smtp")})
	require.NoError(t, err)
	_, err = svc.Set(ctx, "global.page_url", "https://example.com", SetOptions{GroupID: strPtr("global")})
	require.NoError(t, err)

	results, err := svc.Search(ctx, "smtp.")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "smtp.host", results[0].Key)
	assert.Equal(t, "smtp.port", results[1].Key)

	group, err := svc.GetByGroup(ctx, "smtp")
	require.NoError(t, err)
	assert.Len(t, group, 2)

	groups, err := svc.GetGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"global", "smtp"}, groups)

	exists, err := svc.Exists(ctx, "smtp.host")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.Exists(ctx, "smtp.missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSettings_GetAll(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestSettings(t)

	_, err := svc.Set(ctx, "app.name", "Acme", SetOptions{})
	require.NoError(t, err)
	_, err = svc.Set(ctx, "smtp.password", "p@ss", SetOptions{Encrypted: true})
	require.NoError(t, err)

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme", all[0].Value)
	assert.Equal(t, "p@ss", all[1].Value)
}

func TestSettings_Get_DecryptFailurePropagates(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestSettings(t)

	// Simulate a row written under a different key.
	otherCipher, err := secrets.NewCipher("some-other-secret")
	require.NoError(t, err)
	foreign, err := otherCipher.Encrypt("p@ss")
	require.NoError(t, err)
	_, err = store.Upsert(ctx, model.Setting{Key: "smtp.password", Value: foreign, IsEncrypted: true})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "smtp.password")
	assert.ErrorIs(t, err, model.ErrDecryptFailed)
}

func TestSettings_BulkRead_DecryptFailureUsesSentinel(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestSettings(t)

	otherCipher, err := secrets.NewCipher("some-other-secret")
	require.NoError(t, err)
	foreign, err := otherCipher.Encrypt("p@ss")
	require.NoError(t, err)
	_, err = store.Upsert(ctx, model.Setting{Key: "smtp.password", Value: foreign, IsEncrypted: true, GroupID: strPtr("smtp")})
	require.NoError(t, err)
	_, err = svc.Set(ctx, "smtp.host", "mail.example.com", SetOptions{GroupID: strPtr("smtp")})
	require.NoError(t, err)

	// The unreadable row is replaced with the sentinel, the batch survives.
	results, err := svc.GetByGroup(ctx, "smtp")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "mail.example.com", results[0].Value)
	assert.Equal(t, DecryptFailedValue, results[1].Value)
}

func TestSettings_TypedHelpers(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestSettings(t)

	_, err := svc.Set(ctx, "flag.yes", "YES", SetOptions{})
	require.NoError(t, err)
	_, err = svc.Set(ctx, "flag.off", "off", SetOptions{})
	require.NoError(t, err)
	_, err = svc.Set(ctx, "flag.maybe", "maybe", SetOptions{})
	require.NoError(t, err)
	_, err = svc.Set(ctx, "num.int", "42", SetOptions{})
	require.NoError(t, err)
	_, err = svc.Set(ctx, "num.float", "2.5", SetOptions{})
	require.NoError(t, err)
	_, err = svc.Set(ctx, "str.blank", "  ", SetOptions{})
	require.NoError(t, err)

	assert.True(t, svc.GetBool(ctx, "flag.yes", false))
	assert.False(t, svc.GetBool(ctx, "flag.off", true))
	assert.True(t, svc.GetBool(ctx, "flag.maybe", true))
	assert.False(t, svc.GetBool(ctx, "flag.missing", false))

	assert.Equal(t, int64(42), svc.GetInt(ctx, "num.int", 0))
	assert.Equal(t, int64(7), svc.GetInt(ctx, "num.float", 7))
	assert.Equal(t, 2.5, svc.GetFloat(ctx, "num.float", 0))

	assert.Equal(t, "fallback", svc.GetString(ctx, "str.blank", "fallback"))
	assert.Equal(t, "fallback", svc.GetString(ctx, "str.missing", "fallback"))
	assert.Equal(t, "42", svc.GetString(ctx, "num.int", "fallback"))
}

func TestSettings_GetRequiredString(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestSettings(t)

	_, err := svc.Set(ctx, "smtp.from_email", "noreply@example.com", SetOptions{})
	require.NoError(t, err)
	_, err = svc.Set(ctx, "str.blank", "  ", SetOptions{})
	require.NoError(t, err)

	value, err := svc.GetRequiredString(ctx, "smtp.from_email")
	require.NoError(t, err)
	assert.Equal(t, "noreply@example.com", value)

	_, err = svc.GetRequiredString(ctx, "smtp.missing")
	assert.ErrorIs(t, err, model.ErrNotConfigured)

	_, err = svc.GetRequiredString(ctx, "str.blank")
	assert.ErrorIs(t, err, model.ErrNotConfigured)
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }
