package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/iudanet/mailguard/internal/devserver/storage"
	"github.com/iudanet/mailguard/internal/models"
	"github.com/iudanet/mailguard/pkg/api"
)

// MaxQueryLimit caps the limit argument of list fields
const MaxQueryLimit = 100

const codeQueryLimitExceeded = "QUERY_LIMIT_EXCEEDED"

// root fields the dev server resolves
var rootField = regexp.MustCompile(`\b(myEmails|myScanLogs|sendEmail)\b`)

type graphQLResponse struct {
	Data   map[string]any     `json:"data"`
	Errors []api.GraphQLError `json:"errors,omitempty"`
}

// GraphQLHandler answers the handful of operations the client sends.
//
// It does not parse GraphQL: the root fields are picked out of the query text
// and their arguments are taken from variables only. Every field requires a
// signed-in user; without one the response is still 200 and carries
// "Authentication required" with code AUTH_REQUIRED, like the real backend.
type GraphQLHandler struct {
	logger      *slog.Logger
	mailStorage storage.MailStorage
	mail        *MailHandler
}

// NewGraphQLHandler создает handler для /graphql/
func NewGraphQLHandler(logger *slog.Logger, mailStorage storage.MailStorage, mail *MailHandler) *GraphQLHandler {
	return &GraphQLHandler{
		logger:      logger,
		mailStorage: mailStorage,
		mail:        mail,
	}
}

// ServeHTTP обрабатывает POST /graphql/
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		sendError(h.logger, w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req api.GraphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Query == "" {
		sendJSON(h.logger, w, graphQLResponse{Errors: []api.GraphQLError{{Message: "Must provide query string."}}}, http.StatusBadRequest)
		return
	}

	fields := rootField.FindAllString(req.Query, -1)
	if len(fields) == 0 {
		sendJSON(h.logger, w, graphQLResponse{Errors: []api.GraphQLError{{Message: "Unknown operation"}}}, http.StatusBadRequest)
		return
	}

	resp := graphQLResponse{Data: map[string]any{}}
	userID, authenticated := UserIDFromContext(ctx)

	for _, field := range fields {
		if _, done := resp.Data[field]; done {
			continue
		}
		resp.Data[field] = nil

		if !authenticated {
			resp.Errors = append(resp.Errors, api.GraphQLError{
				Message:    api.MessageAuthRequired,
				Path:       []any{field},
				Extensions: map[string]any{"code": api.CodeAuthRequired},
			})
			continue
		}

		value, gqlErr := h.resolve(r, userID, field, req.Variables)
		if gqlErr != nil {
			gqlErr.Path = []any{field}
			resp.Errors = append(resp.Errors, *gqlErr)
			continue
		}
		resp.Data[field] = value
	}

	sendJSON(h.logger, w, resp, http.StatusOK)
}

func (h *GraphQLHandler) resolve(r *http.Request, userID, field string, vars map[string]any) (any, *api.GraphQLError) {
	ctx := r.Context()

	switch field {
	case "myEmails":
		limit, offset, gqlErr := window(vars)
		if gqlErr != nil {
			return nil, gqlErr
		}
		if limit == 0 {
			return []models.Email{}, nil
		}
		folder := models.FolderInbox
		if f, ok := vars["folder"].(string); ok && f != "" {
			folder = models.Folder(f)
		}
		emails, err := h.mailStorage.ListEmails(ctx, userID, folder, limit, offset)
		if err != nil {
			return nil, h.internal(r, err)
		}
		return emails, nil

	case "myScanLogs":
		limit, offset, gqlErr := window(vars)
		if gqlErr != nil {
			return nil, gqlErr
		}
		if limit == 0 {
			return []models.ScanLog{}, nil
		}
		logs, err := h.mailStorage.ListScanLogs(ctx, userID, limit, offset)
		if err != nil {
			return nil, h.internal(r, err)
		}
		return logs, nil

	case "sendEmail":
		to, _ := vars["to"].(string)
		subject, _ := vars["subject"].(string)
		body, _ := vars["body"].(string)
		email, err := h.mail.Deliver(ctx, userID, to, subject, body)
		if err != nil {
			var invalid *InvalidMessageError
			if errors.As(err, &invalid) {
				return nil, &api.GraphQLError{Message: invalid.Error()}
			}
			return nil, h.internal(r, err)
		}
		return map[string]any{"email": email, "used": RouteMock}, nil
	}
	return nil, &api.GraphQLError{Message: fmt.Sprintf("Cannot query field %q", field)}
}

func (h *GraphQLHandler) internal(r *http.Request, err error) *api.GraphQLError {
	h.logger.ErrorContext(r.Context(), "graphql resolver failed", slog.Any("error", err))
	return &api.GraphQLError{Message: "Internal server error"}
}

// window reads limit and offset with the backend defaults 50 and 0
func window(vars map[string]any) (int, int, *api.GraphQLError) {
	limit := intVar(vars, "limit", 50)
	offset := intVar(vars, "offset", 0)
	if limit > MaxQueryLimit {
		return 0, 0, &api.GraphQLError{
			Message:    fmt.Sprintf("Query limit exceeded (max %d)", MaxQueryLimit),
			Extensions: map[string]any{"code": codeQueryLimitExceeded, "max_limit": MaxQueryLimit},
		}
	}
	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, nil
}

// intVar reads a JSON number variable
func intVar(vars map[string]any, name string, def int) int {
	switch v := vars[name].(type) {
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}
