package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/mailguard/internal/devserver/storage/memory"
	"github.com/iudanet/mailguard/internal/models"
	"github.com/iudanet/mailguard/pkg/api"
)

func sendRequest(userID, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/emails/send/", strings.NewReader(body))
	if userID != "" {
		r = r.WithContext(context.WithValue(r.Context(), UserIDKey, userID))
	}
	return r
}

func TestMailHandler_Send(t *testing.T) {
	store := memory.New()
	sender := seedUser(t, store)
	require.NoError(t, store.CreateUser(context.Background(), &models.User{ID: "u2", Username: "bob", Email: "bob@example.com"}))
	h := NewMailHandler(testLogger(), store, store)

	w := httptest.NewRecorder()
	h.Send(w, sendRequest(sender.ID, `{"to":"Bob@Example.com","subject":"Urgent","body":"call me"}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp api.SendEmailResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Email)
	assert.Equal(t, "bob@example.com", resp.Email.Recipient)
	assert.Equal(t, models.VerdictSuspicious, resp.Email.Scan.Result)

	inbox, err := store.ListEmails(context.Background(), "u2", models.FolderInbox, 10, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.NotEqual(t, resp.Email.ID, inbox[0].ID)
}

func TestMailHandler_SendErrors(t *testing.T) {
	store := memory.New()
	sender := seedUser(t, store)
	h := NewMailHandler(testLogger(), store, store)

	tests := []struct {
		name   string
		userID string
		body   string
		code   int
	}{
		{name: "anonymous", body: `{"to":"a@example.com","subject":"s","body":"b"}`, code: http.StatusUnauthorized},
		{name: "broken json", userID: sender.ID, body: `{`, code: http.StatusBadRequest},
		{name: "recipient instead of to", userID: sender.ID, body: `{"recipient":"a@example.com","subject":"s","body":"b"}`, code: http.StatusBadRequest},
		{name: "empty subject", userID: sender.ID, body: `{"to":"a@example.com","subject":"","body":"b"}`, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Send(w, sendRequest(tt.userID, tt.body))
			assert.Equal(t, tt.code, w.Code)
		})
	}
}
