package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/iudanet/mailguard/internal/models"
)

// AddEmail stores email in the mailbox of userID and assigns its ID
func (s *Storage) AddEmail(ctx context.Context, userID string, email *models.Email) error {
	query := `
		INSERT INTO emails (user_id, folder, sender, recipient, subject, body, verdict, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var verdict sql.NullString
	var confidence sql.NullFloat64
	if email.Scan != nil {
		verdict = sql.NullString{String: string(email.Scan.Result), Valid: true}
		confidence = sql.NullFloat64{Float64: email.Scan.Confidence, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query,
		userID,
		string(email.Folder),
		email.Sender,
		email.Recipient,
		email.Subject,
		email.Body,
		verdict,
		confidence,
		toUnix(email.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert email: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get email id: %w", err)
	}
	email.ID = models.ID(strconv.FormatInt(id, 10))
	return nil
}

// ListEmails returns emails of folder, newest first
func (s *Storage) ListEmails(ctx context.Context, userID string, folder models.Folder, limit, offset int) ([]models.Email, error) {
	query := `
		SELECT id, folder, sender, recipient, subject, body, verdict, confidence, created_at
		FROM emails
		WHERE user_id = ? AND folder = ?
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?
	`
	limit, offset = bounds(limit, offset)
	return s.queryEmails(ctx, query, userID, string(folder), limit, offset)
}

// ListScanLogs returns scans of the user's emails, newest first
func (s *Storage) ListScanLogs(ctx context.Context, userID string, limit, offset int) ([]models.ScanLog, error) {
	query := `
		SELECT id, folder, sender, recipient, subject, body, verdict, confidence, created_at
		FROM emails
		WHERE user_id = ? AND verdict IS NOT NULL
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?
	`
	limit, offset = bounds(limit, offset)
	emails, err := s.queryEmails(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	logs := make([]models.ScanLog, 0, len(emails))
	for _, e := range emails {
		email := e
		email.Scan = nil
		logs = append(logs, models.ScanLog{
			ID:         e.ID,
			Result:     e.Scan.Result,
			Confidence: e.Scan.Confidence,
			CreatedAt:  e.CreatedAt,
			Email:      &email,
		})
	}
	return logs, nil
}

func (s *Storage) queryEmails(ctx context.Context, query string, args ...any) ([]models.Email, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	emails := []models.Email{}
	for rows.Next() {
		var (
			e          models.Email
			id         int64
			folder     string
			verdict    sql.NullString
			confidence sql.NullFloat64
			createdAt  int64
		)
		if err := rows.Scan(&id, &folder, &e.Sender, &e.Recipient, &e.Subject, &e.Body, &verdict, &confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		e.ID = models.ID(strconv.FormatInt(id, 10))
		e.Folder = models.Folder(folder)
		e.CreatedAt = fromUnix(createdAt)
		if verdict.Valid {
			e.Scan = &models.Scan{Result: models.ParseVerdict(verdict.String), Confidence: confidence.Float64}
		}
		emails = append(emails, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return emails, nil
}

// bounds maps "no limit" to SQLite's LIMIT -1
func bounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
