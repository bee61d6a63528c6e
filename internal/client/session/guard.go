// Package session owns the access/refresh token pair of the signed-in user.
//
// Guard gates every authenticated request on the stored access token and
// recovers from an expired token by refreshing it once per request. Concurrent
// requests that hit 401 share a single refresh call; issuing a second refresh
// with an already rotated refresh token would make the backend revoke the
// session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/iudanet/mailguard/internal/client/api"
	"github.com/iudanet/mailguard/internal/client/storage"
	"github.com/iudanet/mailguard/internal/models"
	pkgapi "github.com/iudanet/mailguard/pkg/api"
)

const authStateTrue = "true"

// ExpiredHandler is told where to send the user after the session was cleared.
type ExpiredHandler func(ctx context.Context, redirectTo string)

// Guard is the session guard. It is safe for concurrent use.
type Guard struct {
	client     *api.Client
	store      storage.SessionStore
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *Metrics
	onExpired  ExpiredHandler

	refreshes  singleflight.Group
	refreshing atomic.Bool
}

// Option configures a Guard
type Option func(*Guard)

// WithExpiredHandler sets the callback fired when the session is cleared
// after a failed refresh
func WithExpiredHandler(h ExpiredHandler) Option {
	return func(g *Guard) { g.onExpired = h }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(g *Guard) { g.logger = l }
}

// WithMetrics enables refresh/retry counters
func WithMetrics(m *Metrics) Option {
	return func(g *Guard) { g.metrics = m }
}

// WithHTTPClient sets the client used for authenticated requests.
// Defaults to the api.Client's one.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Guard) { g.httpClient = hc }
}

// NewGuard creates a guard over client and store
func NewGuard(client *api.Client, store storage.SessionStore, opts ...Option) *Guard {
	g := &Guard{
		client:     client,
		store:      store,
		httpClient: client.HTTPClient(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Client returns the REST client the guard authenticates against
func (g *Guard) Client() *api.Client { return g.client }

// IsAuthenticated reports whether the authenticated flag is set and an access
// token is present. It never writes to the store.
func (g *Guard) IsAuthenticated(ctx context.Context) bool {
	flag, err := g.store.Get(ctx, storage.KeyAuthState)
	if err != nil || flag != authStateTrue {
		return false
	}
	return g.peekAccessToken(ctx) != ""
}

// State reports the current state of the session state machine
func (g *Guard) State(ctx context.Context) State {
	if g.refreshing.Load() {
		return StateRefreshing
	}
	if g.IsAuthenticated(ctx) {
		return StateAuthenticated
	}
	return StateAnonymous
}

// Login exchanges credentials for tokens and stores the new session.
// A 401 yields ErrInvalidCredentials, a transport failure a *NetworkError;
// in both cases the existing session is left as it was.
func (g *Guard) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}

	resp, err := g.client.ObtainToken(ctx, pkgapi.TokenRequest{Username: username, Password: password})
	if err != nil {
		switch {
		case api.IsUnauthorized(err):
			g.logger.WarnContext(ctx, "login rejected", slog.String("username", username))
			return ErrInvalidCredentials
		case errors.Is(err, ErrNetwork):
			g.logger.WarnContext(ctx, "login failed: server unreachable", slog.Any("error", err))
			return err
		default:
			return fmt.Errorf("login failed: %w", err)
		}
	}

	// a new login replaces whatever was stored before, profile included
	if err := g.store.Delete(ctx, storage.SessionKeys...); err != nil {
		return fmt.Errorf("failed to reset session: %w", err)
	}
	if err := g.store.Set(ctx, storage.KeyAccessToken, resp.Access); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if resp.Refresh != "" {
		if err := g.store.Set(ctx, storage.KeyRefreshToken, resp.Refresh); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
	}
	if resp.User != nil {
		if err := g.SaveProfile(ctx, resp.User); err != nil {
			return err
		}
	}
	if err := g.store.Set(ctx, storage.KeyAuthState, authStateTrue); err != nil {
		return fmt.Errorf("failed to save auth state: %w", err)
	}

	g.logger.InfoContext(ctx, "logged in",
		slog.String("username", username),
		slog.Bool("has_refresh_token", resp.Refresh != ""))
	return nil
}

// Logout clears every session key. Calling it without a session is fine.
func (g *Guard) Logout(ctx context.Context) error {
	if err := g.store.Delete(ctx, storage.SessionKeys...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// AccessToken returns the stored access token. A token found only under the
// legacy key is moved to the canonical key first.
// Returns storage.ErrKeyNotFound when there is no token at all.
func (g *Guard) AccessToken(ctx context.Context) (string, error) {
	token, err := g.store.Get(ctx, storage.KeyAccessToken)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, storage.ErrKeyNotFound) {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}

	legacy, err := g.store.Get(ctx, storage.KeyLegacyToken)
	if err != nil {
		return "", err
	}
	if err := g.store.Set(ctx, storage.KeyAccessToken, legacy); err != nil {
		return "", fmt.Errorf("failed to migrate legacy token: %w", err)
	}
	if err := g.store.Delete(ctx, storage.KeyLegacyToken); err != nil {
		return "", fmt.Errorf("failed to remove legacy token: %w", err)
	}
	g.logger.InfoContext(ctx, "migrated access token from legacy key")
	return legacy, nil
}

// peekAccessToken is AccessToken without the migration write
func (g *Guard) peekAccessToken(ctx context.Context) string {
	if token, err := g.store.Get(ctx, storage.KeyAccessToken); err == nil {
		return token
	}
	token, _ := g.store.Get(ctx, storage.KeyLegacyToken)
	return token
}

// TokenExpiry reads the exp claim of the access token without verifying the signature
func (g *Guard) TokenExpiry(ctx context.Context) (time.Time, bool) {
	token := g.peekAccessToken(ctx)
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Profile returns the cached user profile, or nil if it was not loaded yet
func (g *Guard) Profile(ctx context.Context) (*models.UserProfile, error) {
	raw, err := g.store.Get(ctx, storage.KeyUserProfile)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var p models.UserProfile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		// a broken cache entry is the same as no entry
		g.logger.WarnContext(ctx, "discarding unreadable cached profile", slog.Any("error", err))
		return nil, nil
	}
	return &p, nil
}

// SaveProfile caches p
func (g *Guard) SaveProfile(ctx context.Context, p *models.UserProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := g.store.Set(ctx, storage.KeyUserProfile, string(raw)); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// RefreshToken exchanges the stored refresh token for a new access token.
// Concurrent callers share one in-flight attempt. On rejection the session is
// cleared, the expiry handler fires and ErrSessionExpired is returned.
func (g *Guard) RefreshToken(ctx context.Context) error {
	return g.refreshShared(ctx, "")
}

// Reauthenticate is RefreshToken for a rejection that did not come as a 401
// status (GraphQL reports it in the body). rejected is the access token the
// server refused; nothing is sent if the stored token has already changed.
func (g *Guard) Reauthenticate(ctx context.Context, rejected string) error {
	return g.refreshShared(ctx, rejected)
}

// refreshShared joins the in-flight refresh or starts one. stale is the access
// token a caller saw rejected; if the store already holds a different token,
// someone else refreshed in the meantime and no call is made.
func (g *Guard) refreshShared(ctx context.Context, stale string) error {
	ch := g.refreshes.DoChan("refresh", func() (any, error) {
		// the attempt outlives any single caller's cancellation
		return nil, g.refresh(context.WithoutCancel(ctx), stale)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Guard) refresh(ctx context.Context, stale string) error {
	if stale != "" {
		current := g.peekAccessToken(ctx)
		if current == "" {
			// сессию уже завершил другой запрос, повторный expire не нужен
			return fmt.Errorf("%w: session already cleared", ErrSessionExpired)
		}
		if current != stale {
			g.metrics.refresh(outcomeSkipped)
			return nil
		}
	}

	g.refreshing.Store(true)
	defer g.refreshing.Store(false)

	refreshToken, err := g.store.Get(ctx, storage.KeyRefreshToken)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return fmt.Errorf("failed to read refresh token: %w", err)
	}
	if refreshToken == "" {
		g.metrics.refresh(outcomeFailure)
		return g.expire(ctx, errors.New("no refresh token stored"))
	}

	resp, err := g.client.RefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrNetwork) {
			g.metrics.refresh(outcomeNetwork)
			g.logger.WarnContext(ctx, "token refresh failed: server unreachable", slog.Any("error", err))
			return err
		}
		g.metrics.refresh(outcomeFailure)
		return g.expire(ctx, err)
	}

	if err := g.store.Set(ctx, storage.KeyAccessToken, resp.Access); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if resp.Refresh != "" {
		if err := g.store.Set(ctx, storage.KeyRefreshToken, resp.Refresh); err != nil {
			return fmt.Errorf("failed to save refresh token: %w", err)
		}
	}
	if err := g.store.Set(ctx, storage.KeyAuthState, authStateTrue); err != nil {
		return fmt.Errorf("failed to save auth state: %w", err)
	}

	g.metrics.refresh(outcomeSuccess)
	g.logger.DebugContext(ctx, "access token refreshed", slog.Bool("rotated", resp.Refresh != ""))
	return nil
}

// expire clears the session and signals the redirect to the login screen
func (g *Guard) expire(ctx context.Context, cause error) error {
	g.logger.WarnContext(ctx, "session expired", slog.Any("cause", cause))

	if err := g.Logout(ctx); err != nil {
		g.logger.ErrorContext(ctx, "failed to clear expired session", slog.Any("error", err))
	}
	g.metrics.expired()

	if g.onExpired != nil {
		g.onExpired(ctx, LoginPath)
	}
	return fmt.Errorf("%w: %v", ErrSessionExpired, cause)
}
