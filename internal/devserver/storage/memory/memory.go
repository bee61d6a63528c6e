// Package memory keeps the dev server state in process memory
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/iudanet/mailguard/internal/devserver/storage"
	"github.com/iudanet/mailguard/internal/models"
)

type mailbox struct {
	userID string
	email  models.Email
}

// Storage implements every dev server storage interface. Safe for concurrent use.
type Storage struct {
	users  map[string]*models.User         // id -> user
	tokens map[string]*models.RefreshToken // token -> record
	emails []mailbox
	nextID int
	mu     sync.RWMutex
}

var (
	_ storage.UserStorage  = (*Storage)(nil)
	_ storage.TokenStorage = (*Storage)(nil)
	_ storage.MailStorage  = (*Storage)(nil)
)

// New creates empty storage
func New() *Storage {
	return &Storage{
		users:  make(map[string]*models.User),
		tokens: make(map[string]*models.RefreshToken),
	}
}

func (s *Storage) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username || (user.Email != "" && strings.EqualFold(u.Email, user.Email)) {
			return storage.ErrUserAlreadyExists
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *Storage) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (s *Storage) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Storage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, storage.ErrUserNotFound
}

func (s *Storage) SaveRefreshToken(_ context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	s.tokens[token.Token] = &cp
	return nil
}

func (s *Storage) UseRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.tokens[token]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}
	if rt.Used {
		return nil, storage.ErrTokenUsed
	}
	rt.Used = true
	cp := *rt
	return &cp, nil
}

func (s *Storage) DeleteUserTokens(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for token, rt := range s.tokens {
		if rt.UserID == userID {
			delete(s.tokens, token)
			count++
		}
	}
	return count, nil
}

func (s *Storage) AddEmail(_ context.Context, userID string, email *models.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	email.ID = models.ID(strconv.Itoa(s.nextID))
	s.emails = append(s.emails, mailbox{userID: userID, email: *email})
	return nil
}

// newest returns the user's emails accepted by keep, newest first.
// Caller holds the lock.
func (s *Storage) newest(userID string, keep func(models.Email) bool) []models.Email {
	out := []models.Email{}
	for _, m := range s.emails {
		if m.userID == userID && keep(m.email) {
			out = append(out, m.email)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Storage) ListEmails(_ context.Context, userID string, folder models.Folder, limit, offset int) ([]models.Email, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emails := s.newest(userID, func(e models.Email) bool { return e.Folder == folder })
	return window(emails, limit, offset), nil
}

func (s *Storage) ListScanLogs(_ context.Context, userID string, limit, offset int) ([]models.ScanLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scanned := s.newest(userID, func(e models.Email) bool { return e.Scan != nil })
	scanned = window(scanned, limit, offset)

	logs := make([]models.ScanLog, 0, len(scanned))
	for _, e := range scanned {
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

func window[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
