// Package storage defines persistence contracts of the dev server
package storage

import (
	"context"
	"errors"

	"github.com/iudanet/mailguard/internal/models"
)

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that username or email is taken
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrTokenNotFound indicates that refresh token was not found
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrTokenUsed indicates that refresh token was already rotated
	ErrTokenUsed = errors.New("refresh token already used")
)

// UserStorage defines interface for user accounts persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if username or email is taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername retrieves user by username
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByID retrieves user by ID
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// GetUserByEmail retrieves user by mailbox address
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenStorage defines interface for refresh token persistence
type TokenStorage interface {
	// SaveRefreshToken stores a new refresh token
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// UseRefreshToken marks token as used and returns it.
	// Returns ErrTokenNotFound for an unknown token and ErrTokenUsed if
	// it was used before; exactly one of concurrent callers succeeds.
	UseRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteUserTokens deletes all refresh tokens for a user
	// Returns number of deleted tokens
	DeleteUserTokens(ctx context.Context, userID string) (int, error)
}

// MailStorage defines interface for mailbox persistence
type MailStorage interface {
	// AddEmail stores email in the mailbox of userID and assigns its ID
	AddEmail(ctx context.Context, userID string, email *models.Email) error

	// ListEmails returns emails of folder, newest first
	ListEmails(ctx context.Context, userID string, folder models.Folder, limit, offset int) ([]models.Email, error)

	// ListScanLogs returns scans of the user's emails, newest first
	ListScanLogs(ctx context.Context, userID string, limit, offset int) ([]models.ScanLog, error)
}

// Store is everything the server persists
type Store interface {
	UserStorage
	TokenStorage
	MailStorage
}
