package graphql

import (
	"errors"
	"strings"

	"github.com/iudanet/mailguard/internal/client/session"
	pkgapi "github.com/iudanet/mailguard/pkg/api"
)

var (
	// ErrUnauthenticated means the server still refused the request after the
	// one allowed refresh (or the refresh itself failed).
	ErrUnauthenticated = errors.New("graphql: authentication required")

	// ErrPermissionDenied is returned for errors carrying PERMISSION_DENIED
	ErrPermissionDenied = session.ErrPermissionDenied
)

// Errors is the "errors" array of a GraphQL response
type Errors []pkgapi.GraphQLError

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// Unauthenticated reports whether any entry is the backend's
// "not signed in" signal
func (e Errors) Unauthenticated() bool {
	for _, err := range e {
		if err.Message == pkgapi.MessageAuthRequired {
			return true
		}
		switch err.Code() {
		case pkgapi.CodeUnauthenticated, pkgapi.CodeAuthRequired:
			return true
		}
	}
	return false
}

// PermissionDenied reports whether any entry carries PERMISSION_DENIED
func (e Errors) PermissionDenied() bool {
	for _, err := range e {
		if err.Code() == pkgapi.CodePermissionDenied {
			return true
		}
	}
	return false
}
