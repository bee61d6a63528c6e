package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/mailguard/internal/client/api"
	"github.com/iudanet/mailguard/internal/client/graphql"
	"github.com/iudanet/mailguard/internal/client/iocli"
	"github.com/iudanet/mailguard/internal/client/session"
	"github.com/iudanet/mailguard/internal/client/storage"
	"github.com/iudanet/mailguard/internal/client/storage/memory"
	"github.com/iudanet/mailguard/internal/models"
	pkgapi "github.com/iudanet/mailguard/pkg/api"
)

// fakeTerminal records output and answers prompts from queues
type fakeTerminal struct {
	mu        sync.Mutex
	out       bytes.Buffer
	inputs    []string
	passwords []string
}

func (f *fakeTerminal) mock() *iocli.IOMock {
	return &iocli.IOMock{
		PrintlnFunc: func(a ...any) {
			f.mu.Lock()
			defer f.mu.Unlock()
			_, _ = fmt.Fprintln(&f.out, a...)
		},
		PrintfFunc: func(format string, a ...any) {
			f.mu.Lock()
			defer f.mu.Unlock()
			_, _ = fmt.Fprintf(&f.out, format, a...)
		},
		WriteFunc: func(p []byte) (int, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.out.Write(p)
		},
		ReadInputFunc: func(prompt string) (string, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if len(f.inputs) == 0 {
				return "", errors.New("no more input")
			}
			v := f.inputs[0]
			f.inputs = f.inputs[1:]
			return v, nil
		},
		ReadPasswordFunc: func(prompt string) (string, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			if len(f.passwords) == 0 {
				return "", errors.New("no more input")
			}
			v := f.passwords[0]
			f.passwords = f.passwords[1:]
			return v, nil
		},
	}
}

func (f *fakeTerminal) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.String()
}

type authBackend struct {
	signups []pkgapi.SignupRequest
	mu      sync.Mutex
}

func (b *authBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case api.PathToken:
		var req pkgapi.TokenRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "jane" || req.Password != "correct horse" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"No active account found with the given credentials"}`))
			return
		}
		access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		}).SignedString([]byte("k"))
		_ = json.NewEncoder(w).Encode(pkgapi.TokenResponse{Access: access, Refresh: "R1"})
	case api.PathSignup:
		var req pkgapi.SignupRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.signups = append(b.signups, req)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"User created"}`))
	default:
		http.NotFound(w, r)
	}
}

type testCli struct {
	cli     *Cli
	term    *fakeTerminal
	io      *iocli.IOMock
	mail    *MailServiceMock
	cache   *CacheMock
	guard   *session.Guard
	store   *memory.Storage
	backend *authBackend
}

func newTestCli(t *testing.T) *testCli {
	t.Helper()
	backend := &authBackend{}
	server := httptest.NewServer(backend)
	t.Cleanup(server.Close)

	term := &fakeTerminal{}
	store := memory.New()
	guard := session.NewGuard(api.NewClient(server.URL), store)
	mailMock := &MailServiceMock{
		MeFunc: func(ctx context.Context) (*models.UserProfile, error) {
			return &models.UserProfile{ID: "7", Username: "jane", Email: "jane@example.com", Role: models.RoleUser}, nil
		},
		ProfileFunc: func(ctx context.Context) *models.UserProfile {
			return &models.UserProfile{Email: "jane@example.com"}
		},
	}
	cacheMock := &CacheMock{
		ClearFunc: func(ctx context.Context) error { return nil },
	}
	ioMock := term.mock()

	return &testCli{
		cli:     New(ioMock, guard, mailMock, cacheMock),
		term:    term,
		io:      ioMock,
		mail:    mailMock,
		cache:   cacheMock,
		guard:   guard,
		store:   store,
		backend: backend,
	}
}

func (tc *testCli) signIn(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, tc.store.Set(ctx, storage.KeyAccessToken, "A1"))
	require.NoError(t, tc.store.Set(ctx, storage.KeyRefreshToken, "R1"))
	require.NoError(t, tc.store.Set(ctx, storage.KeyAuthState, "true"))
}

func inboxFixture() []models.Email {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []models.Email{
		{ID: "1", Sender: "bob@example.com", Recipient: "jane@example.com", Subject: "Quarterly report", CreatedAt: at,
			Scan: &models.Scan{Result: models.VerdictClean, Confidence: 0.95}},
		{ID: "2", Sender: "evil@phish.io", Recipient: "jane@example.com", Subject: "You won a prize", CreatedAt: at.Add(24 * time.Hour),
			Scan: &models.Scan{Result: models.VerdictMalicious, Confidence: 0.85}},
		{ID: "3", Sender: "jane@example.com", Recipient: "bob@example.com", Subject: "re: report", CreatedAt: at.Add(25 * time.Hour)},
	}
}

func TestGetPassword_Priority(t *testing.T) {
	tc := newTestCli(t)

	t.Setenv(PasswordEnv, "from-env")
	password, err := tc.cli.getPassword(Passwords{FromArgs: "from-args"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", password)

	t.Setenv(PasswordEnv, "")
	file := filepath.Join(t.TempDir(), "password")
	require.NoError(t, os.WriteFile(file, []byte("from-file\n"), 0o600))
	password, err = tc.cli.getPassword(Passwords{FromFile: file, FromArgs: "from-args"})
	require.NoError(t, err)
	assert.Equal(t, "from-file", password)

	password, err = tc.cli.getPassword(Passwords{FromArgs: "from-args"})
	require.NoError(t, err)
	assert.Equal(t, "from-args", password)

	tc.term.passwords = []string{"from-prompt"}
	password, err = tc.cli.getPassword(Passwords{})
	require.NoError(t, err)
	assert.Equal(t, "from-prompt", password)
	assert.Len(t, tc.io.ReadPasswordCalls(), 1)
}

func TestGetPassword_Errors(t *testing.T) {
	tc := newTestCli(t)
	t.Setenv(PasswordEnv, "")

	empty := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
	_, err := tc.cli.getPassword(Passwords{FromFile: empty})
	assert.ErrorContains(t, err, "password file is empty")

	_, err = tc.cli.getPassword(Passwords{FromFile: filepath.Join(t.TempDir(), "missing")})
	assert.ErrorContains(t, err, "failed to read password file")

	tc.term.passwords = []string{""}
	_, err = tc.cli.getPassword(Passwords{})
	assert.ErrorContains(t, err, "password cannot be empty")
}

func TestRun_RequiresSession(t *testing.T) {
	tc := newTestCli(t)

	for _, cmd := range []string{"whoami", "inbox", "sent", "scans", "threats", "summary", "send"} {
		err := tc.cli.Run(context.Background(), cmd, nil)
		assert.ErrorIs(t, err, session.ErrNotAuthenticated, cmd)
	}
	assert.Empty(t, tc.mail.EmailsCalls())
}

func TestRun_UnknownCommand(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)

	err := tc.cli.Run(context.Background(), "frobnicate", nil)
	assert.ErrorContains(t, err, "unknown command: frobnicate")
}

func TestRunLogin(t *testing.T) {
	tc := newTestCli(t)
	t.Setenv(PasswordEnv, "")
	tc.term.passwords = []string{"correct horse"}

	require.NoError(t, tc.cli.Run(context.Background(), "login", []string{"jane"}))

	assert.True(t, tc.guard.IsAuthenticated(context.Background()))
	assert.Len(t, tc.cache.ClearCalls(), 1)
	assert.Contains(t, tc.term.String(), "✓ Login successful!")
	assert.Contains(t, tc.term.String(), "Signed in as jane <jane@example.com>")
	assert.Empty(t, tc.io.ReadInputCalls(), "username came from the arguments")
}

func TestRunLogin_PromptsUsername(t *testing.T) {
	tc := newTestCli(t)
	t.Setenv(PasswordEnv, "")
	tc.term.inputs = []string{"jane"}

	require.NoError(t, tc.cli.Run(context.Background(), "login", []string{"--password", "correct horse"}))
	require.Len(t, tc.io.ReadInputCalls(), 1)
	assert.Equal(t, "Username: ", tc.io.ReadInputCalls()[0].Prompt)
}

func TestRunLogin_InvalidCredentials(t *testing.T) {
	tc := newTestCli(t)
	t.Setenv(PasswordEnv, "")
	tc.term.passwords = []string{"wrong"}

	err := tc.cli.Run(context.Background(), "login", []string{"jane"})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.Equal(t, "invalid username or password", Describe(err))
	assert.False(t, tc.guard.IsAuthenticated(context.Background()))
	assert.Empty(t, tc.cache.ClearCalls())
}

func TestRunLogout(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)

	require.NoError(t, tc.cli.Run(context.Background(), "logout", nil))
	assert.False(t, tc.guard.IsAuthenticated(context.Background()))
	assert.Len(t, tc.cache.ClearCalls(), 1)
	assert.Contains(t, tc.term.String(), "✓ Logout successful!")
}

func TestRunStatus(t *testing.T) {
	tc := newTestCli(t)
	ctx := context.Background()

	require.NoError(t, tc.cli.Run(ctx, "status", nil))
	assert.Contains(t, tc.term.String(), "Status: Not authenticated")

	t.Setenv(PasswordEnv, "correct horse")
	require.NoError(t, tc.cli.Run(ctx, "login", []string{"jane"}))
	require.NoError(t, tc.guard.SaveProfile(ctx, &models.UserProfile{Username: "jane", Email: "jane@example.com", Role: "admin"}))

	tc.term.out.Reset()
	require.NoError(t, tc.cli.Run(ctx, "status", nil))
	out := tc.term.String()
	assert.Contains(t, out, "Status: authenticated")
	assert.Contains(t, out, "Username: jane")
	assert.Contains(t, out, "Role: admin")
	assert.Contains(t, out, "Token expires:")
	assert.Contains(t, out, "Time remaining:")
}

func TestRunSignup(t *testing.T) {
	tc := newTestCli(t)
	tc.term.inputs = []string{"newbie", "newbie@example.com"}
	tc.term.passwords = []string{"s3cret-pass", "s3cret-pass"}

	require.NoError(t, tc.cli.Run(context.Background(), "signup", nil))
	require.Len(t, tc.backend.signups, 1)
	assert.Equal(t, pkgapi.SignupRequest{Username: "newbie", Email: "newbie@example.com", Password: "s3cret-pass"}, tc.backend.signups[0])
	assert.Contains(t, tc.term.String(), "✓ Account created!")
}

func TestRunSignup_Validation(t *testing.T) {
	tests := []struct {
		name      string
		inputs    []string
		passwords []string
		msg       string
	}{
		{name: "bad username", inputs: []string{"a!"}, msg: "username"},
		{name: "bad email", inputs: []string{"newbie", "nope"}, msg: "invalid email"},
		{name: "short password", inputs: []string{"newbie", "n@example.com"}, passwords: []string{"short"}, msg: "at least 8"},
		{name: "mismatch", inputs: []string{"newbie", "n@example.com"}, passwords: []string{"longenough", "different1"}, msg: "passwords do not match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCli(t)
			tc.term.inputs = tt.inputs
			tc.term.passwords = tt.passwords

			err := tc.cli.Run(context.Background(), "signup", nil)
			assert.ErrorContains(t, err, tt.msg)
			assert.Empty(t, tc.backend.signups)
		})
	}
}

func TestRunWhoami(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)

	require.NoError(t, tc.cli.Run(context.Background(), "whoami", nil))
	assert.Contains(t, tc.term.String(), "Email:    jane@example.com")
}

func TestRunList(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.mail.EmailsFunc = func(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error) {
		return inboxFixture(), nil
	}

	require.NoError(t, tc.cli.Run(context.Background(), "inbox", []string{"--verdict", "malicious,dangerous"}))

	calls := tc.mail.EmailsCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, models.FolderInbox, calls[0].Folder)

	out := tc.term.String()
	assert.Contains(t, out, "=== Inbox ===")
	assert.Contains(t, out, "You won a prize")
	assert.Contains(t, out, "⚠ MALICIOUS (85%)")
	assert.NotContains(t, out, "Quarterly report")
	assert.Contains(t, out, "Page 1 of 1 (1 emails)")
}

func TestRunList_Sent(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.mail.EmailsFunc = func(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error) {
		return []models.Email{}, nil
	}

	require.NoError(t, tc.cli.Run(context.Background(), "sent", nil))
	assert.Equal(t, models.FolderSent, tc.mail.EmailsCalls()[0].Folder)
	assert.Contains(t, tc.term.String(), "No emails found.")
}

func TestRunList_Offline(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.cache.ListFunc = func(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error) {
		return inboxFixture(), nil
	}

	require.NoError(t, tc.cli.Run(context.Background(), "inbox", []string{"--offline", "--search", "REPORT", "--per-page", "1", "--page", "2"}))
	assert.Empty(t, tc.mail.EmailsCalls(), "offline does not touch the server")

	out := tc.term.String()
	assert.Contains(t, out, "Inbox (offline)")
	assert.Contains(t, out, "re: report")
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "Page 2 of 2 (2 emails)")
}

func TestRunList_OfflineWithoutCache(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.cli.cache = nil

	err := tc.cli.Run(context.Background(), "inbox", []string{"--offline"})
	assert.ErrorContains(t, err, "offline mode needs the email cache")
}

func TestRunShow(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.mail.EmailsFunc = func(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error) {
		if folder == models.FolderSent {
			sent := inboxFixture()[2]
			sent.Body = "see attached"
			return []models.Email{sent}, nil
		}
		return inboxFixture()[:2], nil
	}

	require.NoError(t, tc.cli.Run(context.Background(), "show", []string{"3"}))

	calls := tc.mail.EmailsCalls()
	require.Len(t, calls, 2, "inbox first, then sent")
	assert.Equal(t, models.FolderSent, calls[1].Folder)

	out := tc.term.String()
	assert.Contains(t, out, "=== re: report ===")
	assert.Contains(t, out, "From:    jane@example.com")
	assert.Contains(t, out, "To:      bob@example.com")
	assert.Contains(t, out, "Verdict: pending")
	assert.Contains(t, out, "see attached")
}

func TestRunShow_Threat(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.mail.EmailsFunc = func(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error) {
		return inboxFixture(), nil
	}

	require.NoError(t, tc.cli.Run(context.Background(), "show", []string{"2"}))
	assert.Len(t, tc.mail.EmailsCalls(), 1, "found in the inbox")
	assert.Contains(t, tc.term.String(), "Verdict: ⚠ MALICIOUS (85%)")
}

func TestRunShow_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		noCache bool
		wantErr string
	}{
		{name: "no id", args: nil, wantErr: "usage: mailguard show"},
		{name: "unknown id", args: []string{"42"}, wantErr: "email not found: 42"},
		{name: "offline without cache", args: []string{"--offline", "1"}, noCache: true, wantErr: "offline mode needs the email cache"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := newTestCli(t)
			tc.signIn(t)
			tc.mail.EmailsFunc = func(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error) {
				return inboxFixture(), nil
			}
			if tt.noCache {
				tc.cli.cache = nil
			}

			err := tc.cli.Run(context.Background(), "show", tt.args)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRunShow_Offline(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.cache.ListFunc = func(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error) {
		return inboxFixture(), nil
	}

	require.NoError(t, tc.cli.Run(context.Background(), "show", []string{"--offline", "1"}))
	assert.Empty(t, tc.mail.EmailsCalls(), "offline does not touch the server")
	assert.Contains(t, tc.term.String(), "Quarterly report")
}

func TestRunScans(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.mail.ScanLogsFunc = func(ctx context.Context, limit, offset int) ([]models.ScanLog, error) {
		return []models.ScanLog{{ID: "5", Result: models.VerdictSuspicious, Confidence: 0.5,
			Email: &models.Email{Subject: "odd one"}}}, nil
	}

	require.NoError(t, tc.cli.Run(context.Background(), "scans", []string{"--limit", "3"}))
	assert.Equal(t, 3, tc.mail.ScanLogsCalls()[0].Limit)
	assert.Contains(t, tc.term.String(), "suspicious")
	assert.Contains(t, tc.term.String(), "odd one")
}

func TestRunThreats(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.mail.EmailsFunc = func(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error) {
		return inboxFixture(), nil
	}

	require.NoError(t, tc.cli.Run(context.Background(), "threats", nil))
	out := tc.term.String()
	assert.Contains(t, out, "MALICIOUS")
	assert.Contains(t, out, "evil@phish.io")
	assert.Contains(t, out, "2025-03-02 █ 1")
}

func TestRunSummary(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.mail.EmailsFunc = func(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error) {
		return inboxFixture(), nil
	}

	require.NoError(t, tc.cli.Run(context.Background(), "summary", nil))
	out := tc.term.String()
	assert.Contains(t, out, "Total scanned:      2")
	assert.Contains(t, out, "Threats blocked:    1")
	assert.Contains(t, out, "Detection accuracy: 90.0%")
	assert.Contains(t, out, "Received / sent:    2 / 1")
}

func TestRunSend(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.mail.SendFunc = func(ctx context.Context, to, subject, body string) (*pkgapi.SendEmailResponse, error) {
		return &pkgapi.SendEmailResponse{Email: &models.Email{ID: "42"}}, nil
	}
	tc.term.inputs = []string{"Hello Bob"}

	require.NoError(t, tc.cli.Run(context.Background(), "send", []string{"--to", "bob@example.com", "--subject", "Hi"}))

	calls := tc.mail.SendCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "bob@example.com", calls[0].To)
	assert.Equal(t, "Hi", calls[0].Subject)
	assert.Equal(t, "Hello Bob", calls[0].Body)
	assert.Contains(t, tc.term.String(), "✓ Email sent successfully")
	assert.Contains(t, tc.term.String(), "ID: 42")
}

func TestRunSend_PermissionDenied(t *testing.T) {
	tc := newTestCli(t)
	tc.signIn(t)
	tc.mail.SendFunc = func(ctx context.Context, to, subject, body string) (*pkgapi.SendEmailResponse, error) {
		return nil, fmt.Errorf("failed to send email: %w", session.ErrPermissionDenied)
	}

	err := tc.cli.Run(context.Background(), "send", []string{"--to", "b@example.com", "--subject", "s", "--body", "b"})
	assert.Equal(t, "access denied", Describe(err))
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: nil, want: ""},
		{err: session.ErrInvalidCredentials, want: "invalid username or password"},
		{err: fmt.Errorf("x: %w", session.ErrSessionExpired), want: "session expired, please login again (redirect: /login)"},
		{err: fmt.Errorf("%w: %w", graphql.ErrUnauthenticated, session.ErrSessionExpired), want: "session expired, please login again (redirect: /login)"},
		{err: graphql.ErrUnauthenticated, want: "not authenticated. Please run 'mailguard login' first"},
		{err: session.ErrNotAuthenticated, want: "not authenticated. Please run 'mailguard login' first"},
		{err: &api.NetworkError{Op: "POST /auth/token/", Err: errors.New("dial tcp: refused")}, want: "unable to reach the server"},
		{err: errors.New("boom"), want: "boom"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Describe(tt.err))
	}
}
