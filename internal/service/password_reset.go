package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avolhov/recovery-server/internal/logger"
	"github.com/avolhov/recovery-server/internal/model"
	"github.com/avolhov/recovery-server/internal/secrets"
)

// PasswordReset drives the password reset flow: issue a short-lived token
// for a password-authenticated account, mail the reset link, and on
// redemption replace the password hash and invalidate every session the
// user holds.
type PasswordReset struct {
	tokens   *TokenLifecycle
	settings *Settings
	users    model.UserStore
	sessions model.SessionStore
	notifier model.Notifier
	hasher   *secrets.Hasher
	logger   *logger.Logger
}

func NewPasswordReset(
	tokens *TokenLifecycle,
	settings *Settings,
	users model.UserStore,
	sessions model.SessionStore,
	notifier model.Notifier,
	logger *logger.Logger,
) *PasswordReset {
	return &PasswordReset{
		tokens:   tokens,
		settings: settings,
		users:    users,
		sessions: sessions,
		notifier: notifier,
		hasher:   secrets.NewHasher(),
		logger:   logger,
	}
}

// SendResetEmail issues a reset token for the account registered under email
// and mails the link. The lookup is restricted to password-authenticated
// accounts; externally federated accounts never receive reset tokens.
//
// An unknown or ineligible email returns nil exactly like a successful send,
// so callers cannot probe for account existence. Only genuine failures
// (storage, notifier) surface.
func (s *PasswordReset) SendResetEmail(ctx context.Context, email string) error {
	if !s.settings.GetBool(ctx, settingSendMail, false) {
		return model.ErrFeatureDisabled
	}

	user, err := s.users.GetByEmailAndAuthMethod(ctx, email, model.AuthMethodPassword)
	if errors.Is(err, model.ErrNotFound) {
		s.logger.Debug("Password reset: no eligible account for requested email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up user by email: %w", err)
	}

	secret, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	link := buildRecoveryLink(s.settings.GetString(ctx, settingPageURL, defaultPageURL), "reset-password", secret)

	variables := map[string]string{
		"name":       user.Username,
		"link":       link,
		"expires_in": "10 minutes",
	}
	if support := s.settings.GetString(ctx, settingSupportEmail, ""); support != "" {
		variables["support_email"] = support
	}

	err = s.notifier.Send(ctx, model.Notification{
		To:        user.Email,
		Subject:   "Reset your password",
		Template:  "password_reset",
		Variables: variables,
	})
	if err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	s.logger.Info("Password reset: reset email sent",
		"user_id", user.ID)

	return nil
}

// ValidateAndResetPassword redeems the secret, re-confirms the owning user
// still authenticates with a password, replaces the stored password hash and
// deletes all of the user's sessions. The session cascade is best-effort: at
// that point the password has already changed, so a session store failure is
// logged but does not fail the reset.
func (s *PasswordReset) ValidateAndResetPassword(ctx context.Context, secret, newPassword string) error {
	userID, err := s.tokens.Redeem(ctx, secret)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrIneligibleUser
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.AuthMethod != model.AuthMethodPassword {
		s.logger.Info("Password reset: rejected token for non-password account",
			"user_id", userID)
		return model.ErrIneligibleUser
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := s.users.UpdatePasswordHash(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}

	// A stolen reset token must not leave the thief as the only live login.
	if err := s.sessions.DeleteAllByUser(ctx, userID); err != nil {
		s.logger.Error("Password reset: failed to invalidate sessions after password change",
			"user_id", userID,
			"error", err.Error())
	}

	s.logger.Info("Password reset: password changed",
		"user_id", userID)

	s.tokens.CleanupExpiredAsync()

	return nil
}
