package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avolhov/recovery-server/internal/model"
)

var _ model.TokenStore = (*TokenRepository)(nil)

// TokenRepository persists one kind of recovery token. Each kind has its own
// table so expiry sweeps and scans never cross kinds.
type TokenRepository struct {
	db    *Connection
	table string
}

// NewVerificationTokenRepository returns the store for email verification
// tokens.
func NewVerificationTokenRepository(db *Connection) *TokenRepository {
	return &TokenRepository{db: db, table: "email_verification_tokens"}
}

// NewResetTokenRepository returns the store for password reset tokens.
func NewResetTokenRepository(db *Connection) *TokenRepository {
	return &TokenRepository{db: db, table: "password_reset_tokens"}
}

func (r *TokenRepository) Create(ctx context.Context, token model.Token) error {
	query := fmt.Sprintf(`INSERT INTO %s (id, user_id, token_hash, expires_at, created_at)
			  VALUES ($1, $2, $3, $4, $5)`, r.table)

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query,
		token.ID, token.UserID, token.TokenHash, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

func (r *TokenRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, r.table)

	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete tokens by user: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table)

	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *TokenRepository) ListActive(ctx context.Context, now time.Time) ([]model.Token, error) {
	query := fmt.Sprintf(`SELECT id, user_id, token_hash, expires_at, created_at
			  FROM %s WHERE expires_at > $1`, r.table)

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list active tokens: %w", err)
	}
	defer rows.Close()

	var tokens []model.Token
	for rows.Next() {
		var token model.Token
		err := rows.Scan(&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tokens: %w", err)
	}

	return tokens, nil
}

func (r *TokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= $1`, r.table)

	cmd, err := r.db.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}
	return cmd.RowsAffected(), nil
}
