package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Roles known to the backend
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserProfile is the cached identity of the signed-in user
type UserProfile struct {
	ID       ID     `json:"id"`       // numeric or string id, as the backend sends it
	Username string `json:"username"` // login name
	Email    string `json:"email"`    // mailbox address, used to tell sent from received
	Role     string `json:"role"`     // "user" or "admin"
}

// IsAdmin reports whether the profile carries the admin role
func (p *UserProfile) IsAdmin() bool {
	return p != nil && strings.EqualFold(p.Role, RoleAdmin)
}

// ID accepts both JSON numbers and JSON strings.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// User is an account record of the dev server
type User struct {
	ID           string    `json:"id"` // UUID пользователя
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"` // bcrypt
	CreatedAt    time.Time `json:"created_at"`
}

// Profile projects a User onto what /users/me/ returns
func (u *User) Profile() UserProfile {
	return UserProfile{ID: ID(u.ID), Username: u.Username, Email: u.Email, Role: u.Role}
}

// RefreshToken is an issued refresh token on the dev server
type RefreshToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"` // rotated tokens are single use
}
