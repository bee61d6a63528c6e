package api

import "github.com/iudanet/mailguard/internal/models"

// SendEmailRequest is the body of POST /emails/send/.
// The recipient field is named "to"; "recipient" is not accepted.
type SendEmailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendEmailResponse is returned by POST /emails/send/
type SendEmailResponse struct {
	Email *models.Email `json:"email,omitempty"`
	Used  string        `json:"used,omitempty"` // "real" or "mock" mail route
}

// GraphQLRequest is a GraphQL-over-HTTP POST body
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// GraphQLError is one entry of the "errors" array
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Code returns extensions.code or "".
func (e GraphQLError) Code() string {
	if e.Extensions == nil {
		return ""
	}
	code, _ := e.Extensions["code"].(string)
	return code
}

// Error codes used in GraphQL extensions
const (
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodeAuthRequired     = "AUTH_REQUIRED"
	CodePermissionDenied = "PERMISSION_DENIED"

	// MessageAuthRequired is what the backend puts in errors[].message
	MessageAuthRequired = "Authentication required"
)
