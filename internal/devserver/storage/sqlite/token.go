package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iudanet/mailguard/internal/devserver/storage"
	"github.com/iudanet/mailguard/internal/models"
)

// SaveRefreshToken stores a new refresh token
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT OR REPLACE INTO refresh_tokens (token, user_id, expires_at, used)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		token.Token,
		token.UserID,
		toUnix(token.ExpiresAt),
		token.Used,
	)
	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	return nil
}

// UseRefreshToken marks token as used in a single statement, so only one
// caller gets the row back
func (s *Storage) UseRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	query := `
		UPDATE refresh_tokens SET used = 1
		WHERE token = ? AND used = 0
		RETURNING user_id, expires_at
	`

	rt := &models.RefreshToken{Token: token, Used: true}
	var expiresAt int64

	err := s.db.QueryRowContext(ctx, query, token).Scan(&rt.UserID, &expiresAt)
	if err == nil {
		rt.ExpiresAt = fromUnix(expiresAt)
		return rt, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to use refresh token: %w", err)
	}

	// строки нет: либо токен неизвестен, либо уже использован
	var used bool
	err = s.db.QueryRowContext(ctx, `SELECT used FROM refresh_tokens WHERE token = ?`, token).Scan(&used)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, storage.ErrTokenNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	default:
		return nil, storage.ErrTokenUsed
	}
}

// DeleteUserTokens deletes all refresh tokens for a user
func (s *Storage) DeleteUserTokens(ctx context.Context, userID string) (int, error) {
	query := `DELETE FROM refresh_tokens WHERE user_id = ?`

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}
