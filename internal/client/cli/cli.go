package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/iudanet/mailguard/internal/client/graphql"
	"github.com/iudanet/mailguard/internal/client/iocli"
	"github.com/iudanet/mailguard/internal/client/session"
	"github.com/iudanet/mailguard/internal/models"
	pkgapi "github.com/iudanet/mailguard/pkg/api"
)

//go:generate go tool moq -out mail_mock.go . MailService Cache

// PasswordEnv holds the login password for non-interactive use
const PasswordEnv = "MAILGUARD_PASSWORD"

// MailService is what the mail commands need from mail.Service
type MailService interface {
	Emails(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error)
	ScanLogs(ctx context.Context, limit, offset int) ([]models.ScanLog, error)
	Send(ctx context.Context, to, subject, body string) (*pkgapi.SendEmailResponse, error)
	Me(ctx context.Context) (*models.UserProfile, error)
	Profile(ctx context.Context) *models.UserProfile
}

// Cache is the offline email cache
type Cache interface {
	List(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error)
	Clear(ctx context.Context) error
}

// Passwords are the non-interactive password sources
type Passwords struct {
	FromFile string
	FromArgs string
}

type Cli struct {
	io    iocli.IO
	guard *session.Guard
	mail  MailService
	cache Cache // nil when caching is off
}

func New(io iocli.IO, guard *session.Guard, mail MailService, cache Cache) *Cli {
	return &Cli{
		io:    io,
		guard: guard,
		mail:  mail,
		cache: cache,
	}
}

// Run executes command with its arguments
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return c.runSignup(ctx)
	case "login":
		return c.runLogin(ctx, args)
	case "logout":
		return c.runLogout(ctx)
	case "status":
		return c.runStatus(ctx)
	}

	// остальным командам нужна сессия
	if !c.guard.IsAuthenticated(ctx) {
		return session.ErrNotAuthenticated
	}

	switch command {
	case "whoami":
		return c.runWhoami(ctx)
	case "inbox":
		return c.runList(ctx, models.FolderInbox, args)
	case "sent":
		return c.runList(ctx, models.FolderSent, args)
	case "show":
		return c.runShow(ctx, args)
	case "scans":
		return c.runScans(ctx, args)
	case "threats":
		return c.runThreats(ctx, args)
	case "summary":
		return c.runSummary(ctx, args)
	case "send":
		return c.runSend(ctx, args)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// Describe turns an error into the message shown to the user
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, session.ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, session.ErrSessionExpired):
		return fmt.Sprintf("session expired, please login again (redirect: %s)", session.LoginPath)
	case errors.Is(err, graphql.ErrUnauthenticated), errors.Is(err, session.ErrNotAuthenticated):
		return "not authenticated. Please run 'mailguard login' first"
	case errors.Is(err, session.ErrPermissionDenied):
		return "access denied"
	case errors.Is(err, session.ErrNetwork):
		return "unable to reach the server"
	default:
		return err.Error()
	}
}

// getPassword retrieves the login password with priority:
// 1. Environment variable MAILGUARD_PASSWORD
// 2. File given with --password-file
// 3. --password argument
// 4. Interactive prompt
func (c *Cli) getPassword(passwords Passwords) (string, error) {
	if envPassword := os.Getenv(PasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	if passwords.FromFile != "" {
		content, err := os.ReadFile(passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		// Убираем trailing newline/whitespace
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	if passwords.FromArgs != "" {
		return passwords.FromArgs, nil
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}

func PrintUsage() {
	fmt.Println("MailGuard Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  mailguard [OPTIONS] COMMAND [ARGS]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version                 Show version information")
	fmt.Println("  --server URL              API base URL (default: http://localhost:8000)")
	fmt.Println("  --graphql-url URL         GraphQL endpoint (default: <server>/graphql/)")
	fmt.Println("  --store KIND              Session store: bolt, memory or redis (default: bolt)")
	fmt.Println("  --db PATH                 Session database for the bolt store")
	fmt.Println("  --redis-addr ADDR         Redis address for the redis store")
	fmt.Println("  --cache PATH              Offline email cache, empty to disable")
	fmt.Println("  --log-level LEVEL         debug, info, warn or error (default: warn)")
	fmt.Println("  --timeout DURATION        HTTP timeout (default: 30s)")
	fmt.Println("  --metrics-addr ADDR       Serve session metrics while the command runs")
	fmt.Println()
	fmt.Println("Every option can also be set as MAILGUARD_<OPTION> in the environment or a .env file,")
	fmt.Println("MAILGUARD_PASSPHRASE encrypts the stored session.")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  signup                         Create an account")
	fmt.Println("  login [USERNAME]               Login (password from MAILGUARD_PASSWORD,")
	fmt.Println("                                 --password-file, --password or prompt)")
	fmt.Println("  logout                         Clear the stored session")
	fmt.Println("  status                         Show session state and token expiry")
	fmt.Println("  whoami                         Show the signed-in user")
	fmt.Println("  inbox [--page N] [--per-page N] [--search TERM] [--verdict V,...] [--offline]")
	fmt.Println("                                 List received emails with scan verdicts")
	fmt.Println("  sent  [same flags as inbox]    List sent emails")
	fmt.Println("  show [--offline] ID            Show one email with its scan verdict")
	fmt.Println("  scans [--limit N]              List scanner results")
	fmt.Println("  threats [--limit N]            Latest threats and threats per day")
	fmt.Println("  summary                        Scan totals and detection accuracy")
	fmt.Println("  send --to ADDR --subject S [--body B]")
	fmt.Println("                                 Send an email (body is prompted if omitted)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  mailguard login jane")
	fmt.Println("  mailguard inbox --verdict malicious,dangerous")
	fmt.Println("  mailguard show 3f2b9c1e")
	fmt.Println("  mailguard send --to bob@example.com --subject 'Hi' --body 'Hello Bob'")
	fmt.Println("  mailguard --server https://mail.example.com status")
}
