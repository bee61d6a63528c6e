package api

import "github.com/iudanet/mailguard/internal/models"

// TokenRequest is the body of POST /auth/token/
type TokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by POST /auth/token/
type TokenResponse struct {
	Access  string              `json:"access"`            // JWT access token
	Refresh string              `json:"refresh,omitempty"` // optional refresh token
	User    *models.UserProfile `json:"user,omitempty"`    // some deployments embed the profile
}

// RefreshRequest is the body of POST /auth/token/refresh/
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse is returned by POST /auth/token/refresh/.
// Refresh is set only when the server rotates refresh tokens.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// SignupRequest is the body of POST /users/signup/
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ErrorResponse is the error body. DRF uses "detail", other views use "error".
type ErrorResponse struct {
	Error   string `json:"error,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Message string `json:"message,omitempty"`
}

// Text returns the first non-empty message field
func (e ErrorResponse) Text() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Error != "":
		return e.Error
	default:
		return e.Message
	}
}
