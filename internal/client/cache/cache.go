// Package cache keeps the last fetched emails in a local SQLite database so
// listings work without the server.
package cache

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/iudanet/mailguard/internal/models"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Cache is the SQLite email cache
type Cache struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (or creates) the cache at dbPath and migrates it.
// Use ":memory:" for a throwaway cache.
func New(ctx context.Context, dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// один писатель; для :memory: это ещё и одна общая база
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	c := &Cache{db: db, now: time.Now}
	if err := c.runMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return c, nil
}

// Close closes the database
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, c.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}
	return nil
}

// Put upserts emails. An email without a folder is filed under folder.
func (c *Cache) Put(ctx context.Context, folder models.Folder, emails []models.Email) (err error) {
	if len(emails) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO emails (id, folder, sender, recipient, subject, body, verdict, confidence, created_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			folder = excluded.folder,
			sender = excluded.sender,
			recipient = excluded.recipient,
			subject = excluded.subject,
			body = excluded.body,
			verdict = excluded.verdict,
			confidence = excluded.confidence,
			created_at = excluded.created_at,
			cached_at = excluded.cached_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	cachedAt := c.now().Unix()
	for _, e := range emails {
		f := e.Folder
		if f == "" {
			f = folder
		}

		var verdict sql.NullString
		var confidence sql.NullFloat64
		if e.Scan != nil {
			verdict = sql.NullString{String: string(e.Scan.Result), Valid: true}
			confidence = sql.NullFloat64{Float64: e.Scan.Confidence, Valid: true}
		}

		if _, err = stmt.ExecContext(ctx,
			string(e.ID), string(f), e.Sender, e.Recipient, e.Subject, e.Body,
			verdict, confidence, e.CreatedAt.UnixMilli(), cachedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert email %s: %w", e.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// List returns cached emails newest first. An empty folder lists everything.
func (c *Cache) List(ctx context.Context, folder models.Folder, limit, offset int) (_ []models.Email, err error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, folder, sender, recipient, subject, body, verdict, confidence, created_at
		FROM emails
		WHERE ? = '' OR folder = ?
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, string(folder), string(folder), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query emails: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	emails := []models.Email{}
	for rows.Next() {
		var (
			e          models.Email
			id, f      string
			verdict    sql.NullString
			confidence sql.NullFloat64
			createdAt  int64
		)
		if err := rows.Scan(&id, &f, &e.Sender, &e.Recipient, &e.Subject, &e.Body, &verdict, &confidence, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan email: %w", err)
		}
		e.ID = models.ID(id)
		e.Folder = models.Folder(f)
		e.CreatedAt = time.UnixMilli(createdAt).UTC()
		if verdict.Valid {
			e.Scan = &models.Scan{Result: models.ParseVerdict(verdict.String), Confidence: confidence.Float64}
		}
		emails = append(emails, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate emails: %w", err)
	}
	return emails, nil
}

// Count returns the number of cached emails in folder ("" for all)
func (c *Cache) Count(ctx context.Context, folder models.Folder) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emails WHERE ? = '' OR folder = ?`,
		string(folder), string(folder)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count emails: %w", err)
	}
	return n, nil
}

// Clear drops every cached email. Called on logout.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM emails`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}
