package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/avolhov/recovery-server/internal/model"
)

var _ model.SettingStore = (*SettingRepository)(nil)

type SettingRepository struct {
	db *Connection
}

func NewSettingRepository(db *Connection) *SettingRepository {
	return &SettingRepository{
		db: db,
	}
}

func (r *SettingRepository) GetByKey(ctx context.Context, key string) (model.Setting, error) {
	query := `SELECT key, value, is_encrypted, group_id, description, created_at, updated_at
			  FROM settings WHERE key = $1`

	var setting model.Setting
	err := r.db.QueryRow(ctx, query, key).Scan(
		&setting.Key, &setting.Value, &setting.IsEncrypted, &setting.GroupID,
		&setting.Description, &setting.CreatedAt, &setting.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Setting{}, model.ErrNotFound
		}
		return model.Setting{}, fmt.Errorf("failed to get setting by key: %w", err)
	}

	return setting, nil
}

func (r *SettingRepository) GetAll(ctx context.Context) ([]model.Setting, error) {
	query := `SELECT key, value, is_encrypted, group_id, description, created_at, updated_at
			  FROM settings ORDER BY key`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	defer rows.Close()

	return scanSettings(rows)
}

func (r *SettingRepository) Upsert(ctx context.Context, setting model.Setting) (model.Setting, error) {
	query := `INSERT INTO settings (key, value, is_encrypted, group_id, description)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (key) DO UPDATE SET
			      value = EXCLUDED.value,
			      is_encrypted = EXCLUDED.is_encrypted,
			      group_id = EXCLUDED.group_id,
			      description = EXCLUDED.description,
			      updated_at = NOW()
			  RETURNING key, value, is_encrypted, group_id, description, created_at, updated_at`

	var saved model.Setting
	err := r.db.QueryRow(ctx, query,
		setting.Key, setting.Value, setting.IsEncrypted, setting.GroupID, setting.Description,
	).Scan(
		&saved.Key, &saved.Value, &saved.IsEncrypted, &saved.GroupID,
		&saved.Description, &saved.CreatedAt, &saved.UpdatedAt,
	)
	if err != nil {
		return model.Setting{}, fmt.Errorf("failed to upsert setting: %w", err)
	}

	return saved, nil
}

func (r *SettingRepository) Delete(ctx context.Context, key string) (bool, error) {
	const query = `DELETE FROM settings WHERE key = $1`

	cmd, err := r.db.Exec(ctx, query, key)
	if err != nil {
		return false, fmt.Errorf("failed to delete setting: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *SettingRepository) Search(ctx context.Context, substr string) ([]model.Setting, error) {
	// POSITION keeps the match case-sensitive and free of LIKE wildcards.
	query := `SELECT key, value, is_encrypted, group_id, description, created_at, updated_at
			  FROM settings WHERE POSITION($1 IN key) > 0 ORDER BY key`

	rows, err := r.db.Query(ctx, query, substr)
	if err != nil {
		return nil, fmt.Errorf("failed to search settings: %w", err)
	}
	defer rows.Close()

	return scanSettings(rows)
}

func (r *SettingRepository) GetByGroup(ctx context.Context, groupID string) ([]model.Setting, error) {
	query := `SELECT key, value, is_encrypted, group_id, description, created_at, updated_at
			  FROM settings WHERE group_id = $1 ORDER BY key`

	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings by group: %w", err)
	}
	defer rows.Close()

	return scanSettings(rows)
}

func (r *SettingRepository) GetGroups(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT group_id FROM settings WHERE group_id IS NOT NULL ORDER BY group_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get setting groups: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var group string
		if err := rows.Scan(&group); err != nil {
			return nil, fmt.Errorf("failed to scan setting group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read setting groups: %w", err)
	}

	return groups, nil
}

func (r *SettingRepository) Exists(ctx context.Context, key string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM settings WHERE key = $1)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, key).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check setting existence: %w", err)
	}
	return exists, nil
}

func scanSettings(rows pgx.Rows) ([]model.Setting, error) {
	var settings []model.Setting
	for rows.Next() {
		var setting model.Setting
		err := rows.Scan(
			&setting.Key, &setting.Value, &setting.IsEncrypted, &setting.GroupID,
			&setting.Description, &setting.CreatedAt, &setting.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings = append(settings, setting)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	return settings, nil
}
