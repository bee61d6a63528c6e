package storage

import (
	"context"
)

// Keys under which the session lives in a SessionStore.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyAuthState    = "isAuthenticated"
	KeyUserProfile  = "user_profile"

	// KeyLegacyToken is where older clients kept the access token.
	// It is migrated to KeyAccessToken on first read.
	KeyLegacyToken = "token"
)

// SessionKeys lists every key owned by the session, legacy key included.
var SessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyAuthState, KeyUserProfile, KeyLegacyToken}

// SessionStore defines interface for storing session values on client.
// This is the lowest storage layer - it works with raw string values
// and knows nothing about tokens or profiles.
type SessionStore interface {
	// Get returns the value stored under key.
	// Returns ErrKeyNotFound if nothing is stored.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key, replacing any previous value
	Set(ctx context.Context, key, value string) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Close releases the underlying resources
	Close() error
}
