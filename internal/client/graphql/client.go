// Package graphql is a small GraphQL-over-HTTP client for the mail backend.
//
// Requests go through a Doer (normally *session.Guard), which already handles
// a 401 status. The backend however reports a missing or expired token inside
// a 200 response as an "Authentication required" error; on that signal the
// client asks its Refresher for one refresh and replays the query once.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/iudanet/mailguard/internal/client/api"
	pkgapi "github.com/iudanet/mailguard/pkg/api"
)

// Doer sends an HTTP request
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Refresher renews the access token after the server rejected it.
// rejected is the token that was refused ("" if none was sent).
type Refresher interface {
	Reauthenticate(ctx context.Context, rejected string) error
}

// Client executes queries and mutations against one endpoint
type Client struct {
	endpoint  string
	doer      Doer
	refresher Refresher
	logger    *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithRefresher enables refresh-and-replay on the unauthenticated signal
func WithRefresher(r Refresher) Option {
	return func(c *Client) { c.refresher = r }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a client for endpoint. doer defaults to http.DefaultClient.
func NewClient(endpoint string, doer Doer, opts ...Option) *Client {
	if doer == nil {
		doer = http.DefaultClient
	}
	c := &Client{
		endpoint: endpoint,
		doer:     doer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the GraphQL URL
func (c *Client) Endpoint() string { return c.endpoint }

type response struct {
	Data   json.RawMessage `json:"data"`
	Errors Errors          `json:"errors"`
}

// Query runs query with variables and decodes "data" into result.
//
// Data is decoded even when the response also carries errors; those are then
// returned as Errors (or wrapped in ErrUnauthenticated / ErrPermissionDenied).
func (c *Client) Query(ctx context.Context, query string, variables map[string]any, result any) error {
	return c.Do(ctx, pkgapi.GraphQLRequest{Query: query, Variables: variables}, result)
}

// Mutate is Query for mutations
func (c *Client) Mutate(ctx context.Context, mutation string, variables map[string]any, result any) error {
	return c.Do(ctx, pkgapi.GraphQLRequest{Query: mutation, Variables: variables}, result)
}

// Do executes req
func (c *Client) Do(ctx context.Context, req pkgapi.GraphQLRequest, result any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal graphql request: %w", err)
	}

	resp, token, err := c.post(ctx, payload)
	if err != nil {
		return err
	}
	if !resp.Errors.Unauthenticated() || c.refresher == nil {
		return c.finish(resp, result)
	}

	c.logger.DebugContext(ctx, "graphql: authentication required, refreshing")
	if err := c.refresher.Reauthenticate(ctx, token); err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	resp, _, err = c.post(ctx, payload)
	if err != nil {
		return err
	}
	return c.finish(resp, result)
}

// post sends payload and returns the decoded envelope plus the bearer token
// the request actually carried
func (c *Client) post(ctx context.Context, payload []byte) (*response, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	httpResp, err := c.doer.Do(httpReq)
	if err != nil {
		var netErr *api.NetworkError
		if errors.As(err, &netErr) {
			return nil, "", err
		}
		return nil, "", &api.NetworkError{Op: "POST " + httpReq.URL.Path, Err: err}
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	token := ""
	if httpResp.Request != nil {
		token = strings.TrimPrefix(httpResp.Request.Header.Get("Authorization"), "Bearer ")
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, "", &api.NetworkError{Op: "POST " + httpReq.URL.Path, Err: err}
	}

	switch httpResp.StatusCode {
	case http.StatusUnauthorized:
		// the guard has already spent its refresh on this one
		return nil, "", ErrUnauthenticated
	case http.StatusForbidden:
		return nil, "", fmt.Errorf("graphql: %w", ErrPermissionDenied)
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
			return nil, "", &api.StatusError{StatusCode: httpResp.StatusCode, Message: strings.TrimSpace(string(body))}
		}
		return nil, "", fmt.Errorf("failed to decode graphql response: %w", err)
	}
	if len(resp.Errors) == 0 && (httpResp.StatusCode < 200 || httpResp.StatusCode >= 300) {
		return nil, "", &api.StatusError{StatusCode: httpResp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return &resp, token, nil
}

func (c *Client) finish(resp *response, result any) error {
	if result != nil && len(resp.Data) > 0 && !bytes.Equal(resp.Data, []byte("null")) {
		if err := json.Unmarshal(resp.Data, result); err != nil {
			return fmt.Errorf("failed to decode graphql data: %w", err)
		}
	}

	switch {
	case len(resp.Errors) == 0:
		return nil
	case resp.Errors.Unauthenticated():
		return fmt.Errorf("%w: %w", ErrUnauthenticated, resp.Errors)
	case resp.Errors.PermissionDenied():
		return fmt.Errorf("%w: %w", ErrPermissionDenied, resp.Errors)
	default:
		return resp.Errors
	}
}
