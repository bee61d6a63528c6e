// Package mail reads the user's mailbox and scan results over GraphQL and
// sends mail over REST, both authenticated through the session guard.
package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iudanet/mailguard/internal/client/api"
	"github.com/iudanet/mailguard/internal/client/graphql"
	"github.com/iudanet/mailguard/internal/client/session"
	"github.com/iudanet/mailguard/internal/models"
	"github.com/iudanet/mailguard/internal/validation"
	pkgapi "github.com/iudanet/mailguard/pkg/api"
)

// Listing defaults
const (
	DefaultLimit  = 50
	DefaultOffset = 0
)

// Cache receives fetched emails. *cache.Cache implements it.
type Cache interface {
	Put(ctx context.Context, folder models.Folder, emails []models.Email) error
}

// Service is the mail and scan service
type Service struct {
	guard  *session.Guard
	gql    *graphql.Client
	cache  Cache
	logger *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithCache writes fetched emails through to c
func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates the service. gql should send through guard.
func NewService(guard *session.Guard, gql *graphql.Client, opts ...Option) *Service {
	s := &Service{
		guard:  guard,
		gql:    gql,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emails lists the user's emails in folder. limit <= 0 means DefaultLimit.
func (s *Service) Emails(ctx context.Context, folder models.Folder, limit, offset int) ([]models.Email, error) {
	if folder == "" {
		folder = models.FolderInbox
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = DefaultOffset
	}

	var data struct {
		MyEmails []models.Email `json:"myEmails"`
	}
	err := s.gql.Query(ctx, myEmailsQuery, map[string]any{
		"folder": string(folder),
		"limit":  limit,
		"offset": offset,
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", folder, err)
	}
	if data.MyEmails == nil {
		data.MyEmails = []models.Email{}
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, folder, data.MyEmails); err != nil {
			// listing still works, only offline mode is stale
			s.logger.WarnContext(ctx, "failed to cache emails", slog.Any("error", err))
		}
	}
	return data.MyEmails, nil
}

// ScanLogs lists scanner results for the user's emails
func (s *Service) ScanLogs(ctx context.Context, limit, offset int) ([]models.ScanLog, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = DefaultOffset
	}

	var data struct {
		MyScanLogs []models.ScanLog `json:"myScanLogs"`
	}
	if err := s.gql.Query(ctx, myScanLogsQuery, map[string]any{"limit": limit, "offset": offset}, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch scan logs: %w", err)
	}
	if data.MyScanLogs == nil {
		data.MyScanLogs = []models.ScanLog{}
	}
	return data.MyScanLogs, nil
}

// Send sends an email through POST /emails/send/
func (s *Service) Send(ctx context.Context, to, subject, body string) (*pkgapi.SendEmailResponse, error) {
	if err := validation.ValidateMessage(to, subject, body); err != nil {
		return nil, err
	}

	var resp pkgapi.SendEmailResponse
	err := s.guard.FetchJSON(ctx, http.MethodPost, api.PathSendEmail,
		pkgapi.SendEmailRequest{To: to, Subject: subject, Body: body}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.InfoContext(ctx, "email sent", slog.String("used", resp.Used))
	return &resp, nil
}

// SendViaGraphQL sends an email with the sendEmail mutation
func (s *Service) SendViaGraphQL(ctx context.Context, to, subject, body string) (*models.Email, error) {
	if err := validation.ValidateMessage(to, subject, body); err != nil {
		return nil, err
	}

	var data struct {
		SendEmail struct {
			Email *models.Email `json:"email"`
		} `json:"sendEmail"`
	}
	err := s.gql.Mutate(ctx, sendEmailMutation, map[string]any{
		"to":      to,
		"subject": subject,
		"body":    body,
	}, &data)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}
	if data.SendEmail.Email == nil {
		return nil, errors.New("failed to send email: server returned no email")
	}
	return data.SendEmail.Email, nil
}

// Me fetches the user's profile and caches it in the session
func (s *Service) Me(ctx context.Context) (*models.UserProfile, error) {
	var p models.UserProfile
	if err := s.guard.FetchJSON(ctx, http.MethodGet, api.PathMe, nil, &p); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	if err := s.guard.SaveProfile(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Profile returns the cached profile, fetching it when not loaded yet.
// A fetch failure is logged and yields nil: callers treat nil as
// "profile not loaded", never as "signed out".
func (s *Service) Profile(ctx context.Context) *models.UserProfile {
	p, err := s.guard.Profile(ctx)
	if err == nil && p != nil {
		return p
	}
	p, err = s.Me(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "profile not available", slog.Any("error", err))
		return nil
	}
	return p
}
