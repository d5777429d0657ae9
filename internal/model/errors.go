package model

import "errors"

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSettingKey is returned when a setting key fails the key
	// format invariant (letters, digits, dot, underscore, hyphen, <= 255).
	ErrInvalidSettingKey = errors.New("invalid setting key")

	// ErrDecryptFailed is returned when stored ciphertext is malformed or
	// its authentication tag does not verify. The two cases are deliberately
	// indistinguishable.
	ErrDecryptFailed = errors.New("decryption failed")

	// ErrFeatureDisabled is returned when a recovery flow is gated off
	// by configuration.
	ErrFeatureDisabled = errors.New("feature disabled")

	// ErrInvalidOrExpiredToken is returned when redemption finds no live
	// matching token. Expired, never-issued and already-consumed tokens all
	// collapse into this error.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// ErrIneligibleUser is returned when a token is valid but its owning
	// user no longer qualifies for the flow.
	ErrIneligibleUser = errors.New("user not eligible")

	// ErrNotConfigured is returned when a required setting is absent.
	ErrNotConfigured = errors.New("setting not configured")
)
