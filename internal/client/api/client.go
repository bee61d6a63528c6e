package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/mailguard/pkg/api"
)

// REST endpoints, relative to the API base URL
const (
	PathToken        = "/auth/token/"
	PathTokenRefresh = "/auth/token/refresh/"
	PathSignup       = "/users/signup/"
	PathMe           = "/users/me/"
	PathSendEmail    = "/emails/send/"
)

// DefaultTimeout bounds every HTTP exchange
const DefaultTimeout = 30 * time.Second

// Client is the HTTP client for the unauthenticated REST endpoints.
// Authenticated traffic goes through session.Guard, which reuses
// NewRequest and Decode from here.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the client timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a new API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// bearer header follows same-host redirects only
				if len(via) > 0 && req.URL.Host == via[0].URL.Host && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API base URL without trailing slash
func (c *Client) BaseURL() string { return c.baseURL }

// HTTPClient returns the underlying *http.Client
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// URL resolves endpoint against the base URL. Absolute URLs pass through.
func (c *Client) URL(endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.baseURL + endpoint
}

// ObtainToken exchanges credentials for a token pair
func (c *Client) ObtainToken(ctx context.Context, req api.TokenRequest) (*api.TokenResponse, error) {
	var resp api.TokenResponse
	if err := c.doRequest(ctx, http.MethodPost, PathToken, req, &resp); err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	if resp.Access == "" {
		return nil, fmt.Errorf("token request failed: response has no access token")
	}
	return &resp, nil
}

// RefreshToken exchanges a refresh token for a new access token
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*api.RefreshResponse, error) {
	var resp api.RefreshResponse
	if err := c.doRequest(ctx, http.MethodPost, PathTokenRefresh, api.RefreshRequest{Refresh: refresh}, &resp); err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	if resp.Access == "" {
		return nil, fmt.Errorf("refresh request failed: response has no access token")
	}
	return &resp, nil
}

// Signup registers a new account
func (c *Client) Signup(ctx context.Context, req api.SignupRequest) error {
	if err := c.doRequest(ctx, http.MethodPost, PathSignup, req, nil); err != nil {
		return fmt.Errorf("signup request failed: %w", err)
	}
	return nil
}

// NewRequest builds a request with a JSON body (if any) and a request id
func (c *Client) NewRequest(ctx context.Context, method, endpoint string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(endpoint), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Decode checks the status code and decodes a JSON body into result.
// It always closes resp.Body.
func Decode(resp *http.Response, result any) error {
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		op := "read response"
		if resp.Request != nil {
			op = resp.Request.Method + " " + resp.Request.URL.Path
		}
		return &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Text() != "" {
			return &StatusError{StatusCode: resp.StatusCode, Message: errResp.Text()}
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// doRequest executes an unauthenticated JSON request
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	req, err := c.NewRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}

	return Decode(resp, result)
}
