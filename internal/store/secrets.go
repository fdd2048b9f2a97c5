// ABOUTME: Secrets table for small credential values such as the gateway token
// ABOUTME: Upserts by key and keeps the original creation time on update

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SetSecret creates or replaces the secret stored under key.
func (s *SQLiteStore) SetSecret(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	query := `
		INSERT INTO secrets (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	if _, err := s.db.ExecContext(ctx, query, key, value, now, now); err != nil {
		return fmt.Errorf("saving secret: %w", err)
	}

	s.logger.Debug("saved secret", "key", key)
	return nil
}

// GetSecret returns the secret stored under key.
// Returns ErrNotFound if the key has no value.
func (s *SQLiteStore) GetSecret(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM secrets WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying secret: %w", err)
	}
	return value, nil
}

// DeleteSecret removes the secret stored under key.
// Returns ErrNotFound if the key has no value.
func (s *SQLiteStore) DeleteSecret(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM secrets WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting secret: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted secret", "key", key)
	return nil
}
