// Package devserver is a local stand-in for the MailGuard backend. It speaks
// the same REST and GraphQL contract as the real service. State lives in
// memory unless a SQLite database path is configured.
package devserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iudanet/mailguard/internal/crypto"
	"github.com/iudanet/mailguard/internal/devserver/handlers"
	"github.com/iudanet/mailguard/internal/devserver/middleware"
	"github.com/iudanet/mailguard/internal/devserver/scanner"
	"github.com/iudanet/mailguard/internal/devserver/storage"
	"github.com/iudanet/mailguard/internal/devserver/storage/memory"
	"github.com/iudanet/mailguard/internal/devserver/storage/sqlite"
	"github.com/iudanet/mailguard/internal/models"
)

// Server wires handlers, middleware and storage
type Server struct {
	handler    http.Handler
	store      storage.Store
	closeStore func() error
	limiter    *middleware.RateLimiter
	logger     *slog.Logger
}

// New builds the server. Metrics are registered with reg and served on /metrics.
func New(ctx context.Context, cfg Config, version string, logger *slog.Logger, reg *prometheus.Registry) (*Server, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		// токены не переживают рестарт, для dev это нормально
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate secret: %w", err)
		}
		logger.Info("using random JWT secret", "fingerprint", hex.EncodeToString(secret[:4]))
	}
	jwtConfig := handlers.JWTConfig{
		Secret:          secret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	}

	store, closeStore, err := openStore(ctx, cfg.DBPath)
	if err != nil {
		return nil, err
	}
	limiter := middleware.NewRateLimiter(cfg.LoginBurst, cfg.LoginEvery, logger)
	metrics := middleware.NewMetrics(reg)

	var authOpts []handlers.AuthOption
	if cfg.EmbedUser {
		authOpts = append(authOpts, handlers.WithEmbeddedUser())
	}
	authHandler := handlers.NewAuthHandler(logger, store, store, jwtConfig, authOpts...)
	mailHandler := handlers.NewMailHandler(logger, store, store)
	graphQLHandler := handlers.NewGraphQLHandler(logger, store, mailHandler)
	healthHandler := handlers.NewHealthHandler(logger, version)

	requireAuth := middleware.AuthMiddleware(logger, jwtConfig)
	optionalAuth := middleware.OptionalAuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	route := func(pattern, name string, h http.Handler) {
		mux.Handle(pattern, metrics.Middleware(name, h))
	}
	route("POST /auth/token/", "token", limiter.Middleware(http.HandlerFunc(authHandler.Token)))
	route("POST /auth/token/refresh/", "token_refresh", http.HandlerFunc(authHandler.Refresh))
	route("POST /users/signup/", "signup", http.HandlerFunc(authHandler.Signup))
	route("GET /users/me/", "me", requireAuth(http.HandlerFunc(authHandler.Me)))
	route("POST /emails/send/", "send_email", requireAuth(http.HandlerFunc(mailHandler.Send)))
	route("/graphql/", "graphql", optionalAuth(graphQLHandler))
	route("GET /health/", "health", http.HandlerFunc(healthHandler.Health))
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = middleware.LoggingMiddleware(logger, "/health/", "/metrics")(handler)
	handler = middleware.RecoveryMiddleware(logger)(handler)

	return &Server{
		handler:    handler,
		store:      store,
		closeStore: closeStore,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// openStore returns SQLite storage for a non-empty path, memory otherwise
func openStore(ctx context.Context, dbPath string) (storage.Store, func() error, error) {
	if dbPath == "" {
		return memory.New(), func() error { return nil }, nil
	}
	s, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return s, s.Close, nil
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler { return s.handler }

// Close stops background work and closes the storage
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.closeStore()
}

// CreateUser adds an account directly, bypassing signup validation
func (s *Server) CreateUser(ctx context.Context, username, email, password, role string) (*models.User, error) {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", username, err)
	}
	return user, nil
}

// sample mail for the demo account
var sampleInbox = []struct {
	sender, subject, body string
	age                   time.Duration
}{
	{"it@corp.example", "Password expiry notice", "Your password expires in 7 days. Change it in the portal.", 2 * time.Hour},
	{"lottery@winbig.example", "You are our WINNER", "Click here to claim your prize. Urgent: send a wire transfer fee.", 26 * time.Hour},
	{"alice@partner.example", "Meeting notes", "Notes from Tuesday are attached.", 30 * time.Hour},
	{"security@bank.example", "Verify your account", "Please verify your account within 24 hours.", 50 * time.Hour},
	{"bob@partner.example", "Lunch?", "Free on Friday?", 75 * time.Hour},
	{"billing@crypto.example", "Invoice", "Pay in bitcoin or open invoice.exe to review. Urgent!", 98 * time.Hour},
}

// Seed creates the demo account with a scanned sample inbox.
// A database that already has the account is left alone.
func (s *Server) Seed(ctx context.Context) error {
	user, err := s.CreateUser(ctx, DemoUsername, DemoEmail, DemoPassword, models.RoleUser)
	if errors.Is(err, storage.ErrUserAlreadyExists) {
		s.logger.InfoContext(ctx, "demo account already exists", slog.String("username", DemoUsername))
		return nil
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, m := range sampleInbox {
		scan := scanner.Scan(m.subject, m.body)
		email := &models.Email{
			Sender:    m.sender,
			Recipient: user.Email,
			Subject:   m.subject,
			Body:      m.body,
			Folder:    models.FolderInbox,
			CreatedAt: now.Add(-m.age),
			Scan:      &scan,
		}
		if err := s.store.AddEmail(ctx, user.ID, email); err != nil {
			return fmt.Errorf("failed to seed inbox: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "demo account ready",
		slog.String("username", DemoUsername),
		slog.Int("emails", len(sampleInbox)))
	return nil
}
