package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/mailguard/internal/client/api"
	"github.com/iudanet/mailguard/internal/client/storage"
	"github.com/iudanet/mailguard/internal/client/storage/memory"
	"github.com/iudanet/mailguard/internal/models"
	pkgapi "github.com/iudanet/mailguard/pkg/api"
)

// fakeBackend accepts one access token at a time on /protected and hands out
// newAccess on refresh.
type fakeBackend struct {
	mu            sync.Mutex
	validAccess   string
	refreshToken  string
	newAccess     string
	rotateRefresh string
	refreshStatus int
	refreshGate   chan struct{} // when set, refresh blocks until closed

	refreshCalls   atomic.Int32
	protectedCalls atomic.Int32
	lastAuth       atomic.Value
	lastBody       atomic.Value
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token/", func(w http.ResponseWriter, r *http.Request) {
		var req pkgapi.TokenRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Username != "jane" || req.Password != "x" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(pkgapi.TokenResponse{Access: "A1", Refresh: "R1"})
	})
	mux.HandleFunc("POST /auth/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		if b.refreshGate != nil {
			<-b.refreshGate
		}

		var req pkgapi.RefreshRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.refreshStatus != 0 {
			w.WriteHeader(b.refreshStatus)
			_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
			return
		}
		if req.Refresh != b.refreshToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
			return
		}
		b.validAccess = b.newAccess
		if b.rotateRefresh != "" {
			b.refreshToken = b.rotateRefresh
		}
		_ = json.NewEncoder(w).Encode(pkgapi.RefreshResponse{Access: b.newAccess, Refresh: b.rotateRefresh})
	})
	mux.HandleFunc("/protected", func(w http.ResponseWriter, r *http.Request) {
		b.protectedCalls.Add(1)
		b.lastAuth.Store(r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		b.lastBody.Store(string(body))

		b.mu.Lock()
		valid := b.validAccess
		b.mu.Unlock()

		if r.Header.Get("Authorization") != "Bearer "+valid {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Given token not valid for any token type"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	mux.HandleFunc("/admin-only", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"You do not have permission to perform this action."}`))
	})
	return mux
}

type testEnv struct {
	backend   *fakeBackend
	server    *httptest.Server
	store     *memory.Storage
	guard     *Guard
	metrics   *Metrics
	redirects []string
	mu        sync.Mutex
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		backend: &fakeBackend{validAccess: "A2", refreshToken: "R1", newAccess: "A2"},
		store:   memory.New(),
		metrics: NewMetrics(prometheus.NewRegistry()),
	}
	env.server = httptest.NewServer(env.backend.handler(t))
	t.Cleanup(env.server.Close)

	env.guard = NewGuard(api.NewClient(env.server.URL), env.store,
		WithMetrics(env.metrics),
		WithExpiredHandler(func(_ context.Context, to string) {
			env.mu.Lock()
			defer env.mu.Unlock()
			env.redirects = append(env.redirects, to)
		}),
	)
	return env
}

// seed stores an authenticated session with access token A1 and refresh token R1
func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.store.Set(ctx, storage.KeyAccessToken, "A1"))
	require.NoError(t, e.store.Set(ctx, storage.KeyRefreshToken, "R1"))
	require.NoError(t, e.store.Set(ctx, storage.KeyAuthState, "true"))
}

func (e *testEnv) value(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, err := e.store.Get(context.Background(), key)
	if err != nil {
		require.ErrorIs(t, err, storage.ErrKeyNotFound)
		return "", false
	}
	return v, true
}

func TestGuard_IsAuthenticated(t *testing.T) {
	tests := []struct {
		name  string
		flag  string
		token string
		want  bool
	}{
		{name: "flag and token", flag: "true", token: "A1", want: true},
		{name: "flag only", flag: "true"},
		{name: "token only", token: "A1"},
		{name: "flag false", flag: "false", token: "A1"},
		{name: "neither"},
		{name: "empty token", flag: "true", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			if tt.flag != "" {
				require.NoError(t, store.Set(ctx, storage.KeyAuthState, tt.flag))
			}
			if tt.token != "" {
				require.NoError(t, store.Set(ctx, storage.KeyAccessToken, tt.token))
			}
			g := NewGuard(api.NewClient("http://unused"), store)
			assert.Equal(t, tt.want, g.IsAuthenticated(ctx))
		})
	}
}

func TestGuard_IsAuthenticated_DoesNotMigrate(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, storage.KeyAuthState, "true"))
	require.NoError(t, store.Set(ctx, storage.KeyLegacyToken, "OLD"))

	g := NewGuard(api.NewClient("http://unused"), store)
	assert.True(t, g.IsAuthenticated(ctx))

	_, err := store.Get(ctx, storage.KeyAccessToken)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestGuard_Login(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	require.NoError(t, env.guard.Login(ctx, "jane", "x"))

	assert.True(t, env.guard.IsAuthenticated(ctx))
	assert.Equal(t, StateAuthenticated, env.guard.State(ctx))

	access, _ := env.value(t, storage.KeyAccessToken)
	refresh, _ := env.value(t, storage.KeyRefreshToken)
	assert.Equal(t, "A1", access)
	assert.Equal(t, "R1", refresh)
}

func TestGuard_Login_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)

	err := env.guard.Login(ctx, "jane", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// existing session untouched
	access, ok := env.value(t, storage.KeyAccessToken)
	assert.True(t, ok)
	assert.Equal(t, "A1", access)
	assert.True(t, env.guard.IsAuthenticated(ctx))

	assert.ErrorIs(t, env.guard.Login(ctx, "", ""), ErrInvalidCredentials)
}

func TestGuard_Login_NetworkError(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	g := NewGuard(api.NewClient(url), store)
	err := g.Login(ctx, "jane", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, g.IsAuthenticated(ctx))
}

func TestGuard_Login_StoresEmbeddedProfile(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(pkgapi.TokenResponse{
			Access: "A1",
			User:   &models.UserProfile{ID: "7", Username: "jane", Email: "jane@example.com", Role: "user"},
		})
	}))
	defer server.Close()

	store := memory.New()
	g := NewGuard(api.NewClient(server.URL), store)
	require.NoError(t, g.Login(ctx, "jane", "x"))

	p, err := g.Profile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "jane@example.com", p.Email)

	// no refresh token in the response, none stored
	_, err = store.Get(ctx, storage.KeyRefreshToken)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestGuard_Logout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)
	require.NoError(t, env.guard.SaveProfile(ctx, &models.UserProfile{Username: "jane"}))

	require.NoError(t, env.guard.Logout(ctx))

	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyAuthState, storage.KeyUserProfile} {
		_, ok := env.value(t, key)
		assert.False(t, ok, key)
	}
	assert.False(t, env.guard.IsAuthenticated(ctx))
	assert.Equal(t, StateAnonymous, env.guard.State(ctx))

	// idempotent
	assert.NoError(t, env.guard.Logout(ctx))
}

func TestGuard_AccessToken_LegacyMigration(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, storage.KeyLegacyToken, "OLD"))

	g := NewGuard(api.NewClient("http://unused"), store)

	token, err := g.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "OLD", token)

	canonical, err := store.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "OLD", canonical)

	_, err = store.Get(ctx, storage.KeyLegacyToken)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestGuard_AccessToken_CanonicalWins(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, storage.KeyAccessToken, "NEW"))
	require.NoError(t, store.Set(ctx, storage.KeyLegacyToken, "OLD"))

	g := NewGuard(api.NewClient("http://unused"), store)
	token, err := g.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "NEW", token)

	legacy, err := store.Get(ctx, storage.KeyLegacyToken)
	require.NoError(t, err)
	assert.Equal(t, "OLD", legacy)

	_, err = NewGuard(api.NewClient("http://unused"), memory.New()).AccessToken(ctx)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestGuard_Do_RefreshAndRetry(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)

	resp, err := env.guard.Fetch(ctx, http.MethodPost, "/protected", map[string]string{"k": "v"})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer A2", env.backend.lastAuth.Load())
	assert.JSONEq(t, `{"k":"v"}`, env.backend.lastBody.Load().(string), "body must be replayed")
	assert.Equal(t, int32(1), env.backend.refreshCalls.Load())
	assert.Equal(t, int32(2), env.backend.protectedCalls.Load())

	access, _ := env.value(t, storage.KeyAccessToken)
	assert.Equal(t, "A2", access)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Retries))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Refreshes.WithLabelValues(outcomeSuccess)))
	assert.Empty(t, env.redirects)
}

func TestGuard_Do_NoRefreshWhenAuthorized(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)
	env.backend.validAccess = "A1"

	resp, err := env.guard.Fetch(ctx, http.MethodGet, "/protected", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer A1", env.backend.lastAuth.Load())
	assert.Equal(t, int32(0), env.backend.refreshCalls.Load())
}

func TestGuard_Do_RefreshRejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)
	env.backend.refreshStatus = http.StatusUnauthorized

	resp, err := env.guard.Fetch(ctx, http.MethodGet, "/protected", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	// original 401 returned untouched
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Given token not valid")

	assert.Equal(t, int32(1), env.backend.protectedCalls.Load())
	assert.False(t, env.guard.IsAuthenticated(ctx))
	for _, key := range storage.SessionKeys {
		_, ok := env.value(t, key)
		assert.False(t, ok, key)
	}
	assert.Equal(t, []string{"/login"}, env.redirects)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Expirations))
}

func TestGuard_Do_SecondUnauthorizedIsNotRetried(t *testing.T) {
	ctx := context.Background()
	var refreshCalls, calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case api.PathTokenRefresh:
			refreshCalls.Add(1)
			_ = json.NewEncoder(w).Encode(pkgapi.RefreshResponse{Access: "A2"})
		default:
			calls.Add(1)
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer server.Close()

	store := memory.New()
	require.NoError(t, store.Set(ctx, storage.KeyAccessToken, "A1"))
	require.NoError(t, store.Set(ctx, storage.KeyRefreshToken, "R1"))
	require.NoError(t, store.Set(ctx, storage.KeyAuthState, "true"))

	g := NewGuard(api.NewClient(server.URL), store)
	resp, err := g.Fetch(ctx, http.MethodGet, "/always-401", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), refreshCalls.Load())
	assert.Equal(t, int32(2), calls.Load(), "one original call and one replay")
	assert.True(t, g.IsAuthenticated(ctx), "a successful refresh keeps the session")
}

func TestGuard_Do_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	const n = 25
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)
	// rotation makes a duplicate refresh fail: R1 is only good once
	env.backend.rotateRefresh = "R2"
	env.backend.refreshGate = make(chan struct{})

	var wg sync.WaitGroup
	statuses := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := env.guard.Fetch(ctx, http.MethodGet, "/protected", nil)
			errs[i] = err
			if err == nil {
				statuses[i] = resp.StatusCode
				_ = resp.Body.Close()
			}
		}(i)
	}

	// let every request hit the 401 before the refresh answers
	require.Eventually(t, func() bool {
		return env.backend.protectedCalls.Load() == n && env.backend.refreshCalls.Load() == 1
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, StateRefreshing, env.guard.State(ctx))
	close(env.backend.refreshGate)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, http.StatusOK, statuses[i])
	}
	assert.Equal(t, int32(1), env.backend.refreshCalls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Refreshes.WithLabelValues(outcomeSuccess)))
	assert.Equal(t, StateAuthenticated, env.guard.State(ctx))

	refresh, _ := env.value(t, storage.KeyRefreshToken)
	assert.Equal(t, "R2", refresh)
	assert.Empty(t, env.redirects)
}

func TestGuard_Do_LateUnauthorizedSkipsRefresh(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)

	require.NoError(t, env.guard.RefreshToken(ctx))
	require.Equal(t, int32(1), env.backend.refreshCalls.Load())

	// a request that was sent with the old token and comes back 401 after the
	// refresh finished must not refresh again
	require.NoError(t, env.guard.refreshShared(ctx, "A1"))
	assert.Equal(t, int32(1), env.backend.refreshCalls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Refreshes.WithLabelValues(outcomeSkipped)))
}

func TestGuard_Do_LateUnauthorizedAfterExpiryDoesNotExpireAgain(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)
	env.backend.refreshStatus = http.StatusUnauthorized

	resp, err := env.guard.Fetch(ctx, http.MethodGet, "/protected", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, []string{LoginPath}, env.redirects)
	require.Equal(t, int32(1), env.backend.refreshCalls.Load())

	// a second request sent with A1 comes back 401 after the session was cleared
	err = env.guard.refreshShared(ctx, "A1")
	assert.ErrorIs(t, err, ErrSessionExpired)
	err = env.guard.Reauthenticate(ctx, "A1")
	assert.ErrorIs(t, err, ErrSessionExpired)

	assert.Equal(t, int32(1), env.backend.refreshCalls.Load())
	assert.Equal(t, []string{LoginPath}, env.redirects)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Expirations))
}

func TestGuard_Reauthenticate_AfterLogout(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)

	require.NoError(t, env.guard.Logout(ctx))

	err := env.guard.Reauthenticate(ctx, "A1")
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(0), env.backend.refreshCalls.Load())
	assert.Empty(t, env.redirects)
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.Expirations))
}

func TestGuard_RefreshToken_NoRefreshToken(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	require.NoError(t, env.store.Set(ctx, storage.KeyAccessToken, "A1"))
	require.NoError(t, env.store.Set(ctx, storage.KeyAuthState, "true"))

	err := env.guard.RefreshToken(ctx)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, int32(0), env.backend.refreshCalls.Load())
	assert.False(t, env.guard.IsAuthenticated(ctx))
	assert.Equal(t, []string{LoginPath}, env.redirects)
}

func TestGuard_RefreshToken_NetworkErrorKeepsSession(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Set(ctx, storage.KeyAccessToken, "A1"))
	require.NoError(t, store.Set(ctx, storage.KeyRefreshToken, "R1"))
	require.NoError(t, store.Set(ctx, storage.KeyAuthState, "true"))

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	var redirected bool
	g := NewGuard(api.NewClient(url), store, WithExpiredHandler(func(context.Context, string) { redirected = true }))

	err := g.RefreshToken(ctx)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.NotErrorIs(t, err, ErrSessionExpired)
	assert.True(t, g.IsAuthenticated(ctx))
	assert.False(t, redirected)
}

func TestGuard_RefreshToken_CallerCancellation(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)
	env.backend.refreshGate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.guard.RefreshToken(ctx) }()

	require.Eventually(t, func() bool { return env.backend.refreshCalls.Load() == 1 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// the shared attempt still completes for everybody else
	close(env.backend.refreshGate)
	require.Eventually(t, func() bool {
		access, _ := env.value(t, storage.KeyAccessToken)
		return access == "A2"
	}, 5*time.Second, 5*time.Millisecond)
}

func TestGuard_FetchJSON_StatusMapping(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)
	env.backend.validAccess = "A1"

	err := env.guard.FetchJSON(ctx, http.MethodGet, "/admin-only", nil, nil)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.True(t, env.guard.IsAuthenticated(ctx), "denial does not touch the session")

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, env.guard.FetchJSON(ctx, http.MethodGet, "/protected", nil, &out))
	assert.True(t, out.OK)

	env.backend.validAccess = "other"
	env.backend.refreshStatus = http.StatusUnauthorized
	err = env.guard.FetchJSON(ctx, http.MethodGet, "/protected", nil, &out)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestGuard_Transport(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.seed(t)

	hc := &http.Client{Transport: env.guard.Transport(nil)}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.server.URL+"/protected", nil)
	require.NoError(t, err)

	resp, err := hc.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer A2", env.backend.lastAuth.Load())
	assert.Empty(t, req.Header.Get("Authorization"), "caller's request is not modified")
}

func TestGuard_TokenExpiry(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := NewGuard(api.NewClient("http://unused"), store)

	_, ok := g.TokenExpiry(ctx)
	assert.False(t, ok)

	exp := time.Now().Add(5 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret-the-client-does-not-know"))
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, storage.KeyAccessToken, token))

	got, ok := g.TokenExpiry(ctx)
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	require.NoError(t, store.Set(ctx, storage.KeyAccessToken, "not-a-jwt"))
	_, ok = g.TokenExpiry(ctx)
	assert.False(t, ok)
}

func TestGuard_Profile(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	g := NewGuard(api.NewClient("http://unused"), store)

	p, err := g.Profile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p, "absent profile means not loaded yet")

	require.NoError(t, g.SaveProfile(ctx, &models.UserProfile{ID: "1", Username: "jane", Email: "jane@example.com", Role: "admin"}))
	p, err = g.Profile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "jane", p.Username)
	assert.True(t, p.IsAdmin())

	require.NoError(t, store.Set(ctx, storage.KeyUserProfile, "{broken"))
	p, err = g.Profile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "anonymous", StateAnonymous.String())
	assert.Equal(t, "authenticated", StateAuthenticated.String())
	assert.Equal(t, "refreshing", StateRefreshing.String())
}
