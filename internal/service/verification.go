package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/avolhov/recovery-server/internal/logger"
	"github.com/avolhov/recovery-server/internal/model"
)

// Setting keys the recovery flows read.
const (
	settingSendMail     = "global.send_mail"
	settingPageURL      = "global.page_url"
	settingSupportEmail = "smtp.from_email"

	defaultPageURL = "http://localhost:5173"
)

// EmailVerification drives the email verification flow: issue a token, mail
// a verification link, and mark the account verified when the link is
// redeemed.
type EmailVerification struct {
	tokens   *TokenLifecycle
	settings *Settings
	users    model.UserStore
	notifier model.Notifier
	logger   *logger.Logger
}

func NewEmailVerification(
	tokens *TokenLifecycle,
	settings *Settings,
	users model.UserStore,
	notifier model.Notifier,
	logger *logger.Logger,
) *EmailVerification {
	return &EmailVerification{
		tokens:   tokens,
		settings: settings,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// SendVerificationEmail issues a verification token for userID and hands the
// link to the notifier. Fails with model.ErrFeatureDisabled when mail sending
// is gated off.
func (s *EmailVerification) SendVerificationEmail(ctx context.Context, userID uuid.UUID, email, displayName string) error {
	if !s.settings.GetBool(ctx, settingSendMail, false) {
		return model.ErrFeatureDisabled
	}

	secret, err := s.tokens.Issue(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to issue verification token: %w", err)
	}

	link := buildRecoveryLink(s.settings.GetString(ctx, settingPageURL, defaultPageURL), "verify-email", secret)

	variables := map[string]string{
		"name":       displayName,
		"link":       link,
		"expires_in": "24 hours",
	}
	if support := s.settings.GetString(ctx, settingSupportEmail, ""); support != "" {
		variables["support_email"] = support
	}

	err = s.notifier.Send(ctx, model.Notification{
		To:        email,
		Subject:   "Verify your email address",
		Template:  "verification",
		Variables: variables,
	})
	if err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	s.logger.Info("Email verification: verification email sent",
		"user_id", userID)

	return nil
}

// VerifyToken redeems the secret and marks the owning account as verified.
// A missing, expired or already-redeemed token uniformly returns
// model.ErrInvalidOrExpiredToken.
func (s *EmailVerification) VerifyToken(ctx context.Context, secret string) error {
	userID, err := s.tokens.Redeem(ctx, secret)
	if err != nil {
		return err
	}

	if err := s.users.SetEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}

	s.logger.Info("Email verification: user verified",
		"user_id", userID)

	s.tokens.CleanupExpiredAsync()

	return nil
}

// buildRecoveryLink joins the configured page base URL with a recovery path,
// carrying the plaintext secret in the token query parameter.
func buildRecoveryLink(baseURL, path, secret string) string {
	return strings.TrimRight(baseURL, "/") + "/" + path + "?token=" + url.QueryEscape(secret)
}
