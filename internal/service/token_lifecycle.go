package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avolhov/recovery-server/internal/logger"
	"github.com/avolhov/recovery-server/internal/model"
	"github.com/avolhov/recovery-server/internal/secrets"
)

// Token lifetimes. Fixed by contract, not configurable via settings.
const (
	VerificationTokenTTL = 24 * time.Hour
	ResetTokenTTL        = 10 * time.Minute
)

// TokenLifecycle manages single-use secret tokens of one kind: issuance with
// hashed storage, scan-based verification, consumption on redemption and
// expired-row cleanup. The email verification and password reset flows each
// hold their own instance over their own store and TTL.
type TokenLifecycle struct {
	store  model.TokenStore
	hasher *secrets.Hasher
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
}

func NewTokenLifecycle(store model.TokenStore, ttl time.Duration, logger *logger.Logger) *TokenLifecycle {
	return &TokenLifecycle{
		store:  store,
		hasher: secrets.NewHasher(),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Issue generates a fresh secret for userID, persists its argon2id hash with
// an expiry of now+TTL and returns the plaintext secret. The plaintext is
// never stored; the caller embeds it in a link delivered out-of-band.
//
// Existing tokens of this kind for the user are deleted first so that at most
// one token is live per user. The delete and insert are separate statements,
// so two concurrent Issue calls can leave two live tokens until one is
// consumed or expires.
func (s *TokenLifecycle) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	secret, err := secrets.NewSecret()
	if err != nil {
		return "", fmt.Errorf("failed to generate token secret: %w", err)
	}

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return "", fmt.Errorf("failed to hash token secret: %w", err)
	}

	if err := s.store.DeleteByUserID(ctx, userID); err != nil {
		return "", fmt.Errorf("failed to delete existing tokens: %w", err)
	}

	now := s.now()
	token := model.Token{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.Create(ctx, token); err != nil {
		return "", fmt.Errorf("failed to create token: %w", err)
	}

	s.logger.Debug("Token lifecycle: token issued",
		"user_id", userID,
		"expires_at", token.ExpiresAt)

	return secret, nil
}

// Redeem verifies secret against every live token of this kind and consumes
// the first match, returning the owning user id. The stored hashes are
// salted, so equal secrets never hash equal and no indexed lookup is
// possible; the linear scan buys cryptographic strength at that cost.
//
// Expired, never-issued and already-consumed secrets are indistinguishable:
// all return model.ErrInvalidOrExpiredToken.
func (s *TokenLifecycle) Redeem(ctx context.Context, secret string) (uuid.UUID, error) {
	tokens, err := s.store.ListActive(ctx, s.now())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to list active tokens: %w", err)
	}

	for _, token := range tokens {
		match, err := s.hasher.Verify(secret, token.TokenHash)
		if err != nil {
			s.logger.Warn("Token lifecycle: skipping token with unreadable hash",
				"token_id", token.ID,
				"error", err.Error())
			continue
		}
		if !match {
			continue
		}

		// Consume before reporting success: a token redeems exactly once.
		if _, err := s.store.DeleteByID(ctx, token.ID); err != nil {
			return uuid.Nil, fmt.Errorf("failed to consume token: %w", err)
		}
		return token.UserID, nil
	}

	return uuid.Nil, model.ErrInvalidOrExpiredToken
}

// DeleteAllForUser removes every token of this kind owned by userID.
func (s *TokenLifecycle) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete tokens for user: %w", err)
	}
	return nil
}

// CleanupExpired deletes every token whose expiry has passed and returns the
// number of rows removed.
func (s *TokenLifecycle) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return count, nil
}

// CleanupExpiredAsync runs CleanupExpired in the background. Failures are
// logged and never reach the caller; redemption responses must not wait on
// housekeeping.
func (s *TokenLifecycle) CleanupExpiredAsync() {
	go func() {
		count, err := s.CleanupExpired(context.Background())
		if err != nil {
			s.logger.Error("Token lifecycle: expired token cleanup failed",
				"error", err.Error())
			return
		}
		if count > 0 {
			s.logger.Debug("Token lifecycle: removed expired tokens",
				"count", count)
		}
	}()
}
