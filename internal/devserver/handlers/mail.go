package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/mailguard/internal/devserver/scanner"
	"github.com/iudanet/mailguard/internal/devserver/storage"
	"github.com/iudanet/mailguard/internal/models"
	"github.com/iudanet/mailguard/internal/validation"
	"github.com/iudanet/mailguard/pkg/api"
)

// RouteMock is the only mail route of the dev server: nothing leaves the process
const RouteMock = "mock"

// MailHandler обрабатывает отправку писем
type MailHandler struct {
	logger      *slog.Logger
	userStorage storage.UserStorage
	mailStorage storage.MailStorage
	now         func() time.Time
}

// NewMailHandler создает новый handler для писем
func NewMailHandler(logger *slog.Logger, userStorage storage.UserStorage, mailStorage storage.MailStorage) *MailHandler {
	return &MailHandler{
		logger:      logger,
		userStorage: userStorage,
		mailStorage: mailStorage,
		now:         time.Now,
	}
}

// Send обрабатывает POST /emails/send/
func (h *MailHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		sendError(h.logger, w, "Authentication credentials were not provided.", http.StatusUnauthorized)
		return
	}

	var req api.SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.To == "" {
		sendError(h.logger, w, "to is required", http.StatusBadRequest)
		return
	}

	email, err := h.Deliver(ctx, userID, req.To, req.Subject, req.Body)
	if err != nil {
		var invalid *InvalidMessageError
		if errors.As(err, &invalid) {
			sendError(h.logger, w, invalid.Error(), http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "failed to send email", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, api.SendEmailResponse{Email: email, Used: RouteMock}, http.StatusOK)
}

// InvalidMessageError is a message rejected by validation
type InvalidMessageError struct {
	Err error
}

func (e *InvalidMessageError) Error() string { return e.Err.Error() }

func (e *InvalidMessageError) Unwrap() error { return e.Err }

// Deliver stores the message in the sender's sent folder and, when the
// recipient has an account here, in their inbox. Both copies are scanned.
// Returns the sender's copy.
func (h *MailHandler) Deliver(ctx context.Context, senderID, to, subject, body string) (*models.Email, error) {
	if err := validation.ValidateMessage(to, subject, body); err != nil {
		return nil, &InvalidMessageError{Err: err}
	}

	sender, err := h.userStorage.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sender: %w", err)
	}

	scan := scanner.Scan(subject, body)
	now := h.now().UTC()
	to = strings.ToLower(strings.TrimSpace(to))

	sent := &models.Email{
		Sender:    sender.Email,
		Recipient: to,
		Subject:   subject,
		Body:      body,
		Folder:    models.FolderSent,
		CreatedAt: now,
		Scan:      &scan,
	}
	if err := h.mailStorage.AddEmail(ctx, sender.ID, sent); err != nil {
		return nil, fmt.Errorf("failed to store sent email: %w", err)
	}

	recipient, err := h.userStorage.GetUserByEmail(ctx, to)
	switch {
	case err == nil:
		received := *sent
		received.Folder = models.FolderInbox
		if err := h.mailStorage.AddEmail(ctx, recipient.ID, &received); err != nil {
			return nil, fmt.Errorf("failed to deliver email: %w", err)
		}
	case errors.Is(err, storage.ErrUserNotFound):
		// внешний адрес, доставлять некуда
	default:
		return nil, fmt.Errorf("failed to look up recipient: %w", err)
	}

	h.logger.InfoContext(ctx, "email sent",
		slog.String("user_id", sender.ID),
		slog.String("verdict", string(scan.Result)))
	return sent, nil
}
