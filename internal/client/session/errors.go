package session

import (
	"errors"

	"github.com/iudanet/mailguard/internal/client/api"
)

// LoginPath is where the user is sent once the session cannot be recovered.
const LoginPath = "/login"

var (
	// ErrInvalidCredentials is returned by Login on 401. The session is untouched.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrSessionExpired means the refresh token was missing, expired or rejected.
	// The session has been cleared and the expiry handler has fired.
	ErrSessionExpired = errors.New("session expired, please login again")

	// ErrNotAuthenticated is returned when an operation needs a session and there is none.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrPermissionDenied is a well-formed request the user is not allowed to make.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNetwork matches every transport failure (see NetworkError).
	ErrNetwork = api.ErrNetwork
)

// NetworkError wraps a transport failure. The session is left as it was.
type NetworkError = api.NetworkError
