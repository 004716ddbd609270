package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrSettingNotFound = errors.New("setting not found")

var _ SettingsRepository = (*SettingsRepositoryImpl)(nil)

type SettingsRepositoryImpl struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepositoryImpl {
	return &SettingsRepositoryImpl{db: db}
}

func (r *SettingsRepositoryImpl) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()

	settings := []Setting{}
	for rows.Next() {
		s, err := scanSetting(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan setting row: %w", err)
		}
		settings = append(settings, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating setting rows: %w", err)
	}
	return settings, nil
}

func (r *SettingsRepositoryImpl) GetSetting(ctx context.Context, key string) (*Setting, error) {
	s, err := scanSetting(r.db.QueryRowContext(ctx, `SELECT key, value, updated_at FROM settings WHERE key = ?`, key))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return s, nil
}

func (r *SettingsRepositoryImpl) SetSetting(ctx context.Context, key, value string) (*Setting, error) {
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, toDBTime(now))
	if err != nil {
		return nil, fmt.Errorf("failed to set setting: %w", err)
	}

	return &Setting{Key: key, Value: value, UpdatedAt: now}, nil
}

func (r *SettingsRepositoryImpl) DeleteSetting(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return requireAffected(res, ErrSettingNotFound)
}

func scanSetting(row rowScanner) (*Setting, error) {
	var (
		s         Setting
		updatedAt string
	)
	if err := row.Scan(&s.Key, &s.Value, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if s.UpdatedAt, err = parseDBTime(updatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
