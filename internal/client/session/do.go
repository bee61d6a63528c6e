package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/iudanet/mailguard/internal/client/api"
	"github.com/iudanet/mailguard/internal/client/storage"
)

type sendFunc func(*http.Request) (*http.Response, error)

// Do sends req with the current access token as bearer.
//
// On 401 it refreshes once (sharing any refresh already in flight) and, if
// that worked, replays req once with the new token. If the refresh fails the
// original 401 response is returned untouched. A 401 on the replay is
// returned as is.
func (g *Guard) Do(req *http.Request) (*http.Response, error) {
	return g.do(req, g.httpClient.Do)
}

// Fetch builds a JSON request for endpoint and sends it through Do
func (g *Guard) Fetch(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	req, err := g.client.NewRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	return g.Do(req)
}

// FetchJSON is Fetch plus status mapping and decoding into result.
// A final 401 becomes ErrSessionExpired once the session is gone,
// 403 becomes ErrPermissionDenied.
func (g *Guard) FetchJSON(ctx context.Context, method, endpoint string, body, result any) error {
	resp, err := g.Fetch(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	err = api.Decode(resp, result)
	switch {
	case err == nil:
		return nil
	case api.IsUnauthorized(err) && !g.IsAuthenticated(ctx):
		return fmt.Errorf("%s %s: %w", method, endpoint, ErrSessionExpired)
	case api.IsStatus(err, http.StatusForbidden):
		return fmt.Errorf("%s %s: %w: %v", method, endpoint, ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
}

// Transport returns a RoundTripper that authenticates through the guard.
// base defaults to http.DefaultTransport.
func (g *Guard) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &guardTransport{guard: g, base: base}
}

type guardTransport struct {
	guard *Guard
	base  http.RoundTripper
}

func (t *guardTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.guard.do(req, t.base.RoundTrip)
}

func (g *Guard) do(req *http.Request, send sendFunc) (*http.Response, error) {
	ctx := req.Context()

	// the body is replayed after a refresh, so keep a copy
	body, err := readBody(req)
	if err != nil {
		return nil, fmt.Errorf("failed to buffer request body: %w", err)
	}

	token, err := g.AccessToken(ctx)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return nil, err
	}

	resp, err := g.send(req, body, token, send)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	if err := g.refreshShared(ctx, token); err != nil {
		return resp, nil
	}

	newToken, err := g.AccessToken(ctx)
	if err != nil {
		return resp, nil
	}
	discard(resp)

	g.metrics.retry()
	return g.send(req, body, newToken, send)
}

func (g *Guard) send(req *http.Request, body []byte, token string, send sendFunc) (*http.Response, error) {
	r := req.Clone(req.Context())
	if body != nil {
		r.Body = io.NopCloser(bytes.NewReader(body))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
		r.ContentLength = int64(len(body))
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	} else {
		r.Header.Del("Authorization")
	}

	resp, err := send(r)
	if err != nil {
		return nil, &NetworkError{Op: r.Method + " " + r.URL.Path, Err: err}
	}
	return resp, nil
}

func readBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer func() {
		_ = req.Body.Close()
	}()
	return io.ReadAll(req.Body)
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
