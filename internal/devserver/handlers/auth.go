package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/mailguard/internal/crypto"
	"github.com/iudanet/mailguard/internal/devserver/storage"
	"github.com/iudanet/mailguard/internal/models"
	"github.com/iudanet/mailguard/internal/validation"
	"github.com/iudanet/mailguard/pkg/api"
)

// Сообщения об ошибках в формате simplejwt
const (
	msgNoActiveAccount = "No active account found with the given credentials"
	msgTokenNotValid   = "Token is invalid or expired"
)

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger       *slog.Logger
	userStorage  storage.UserStorage
	tokenStorage storage.TokenStorage
	jwtConfig    JWTConfig
	embedUser    bool
}

// AuthOption configures an AuthHandler
type AuthOption func(*AuthHandler)

// WithEmbeddedUser makes the token endpoint return the profile along with the tokens
func WithEmbeddedUser() AuthOption {
	return func(h *AuthHandler) { h.embedUser = true }
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, userStorage storage.UserStorage, tokenStorage storage.TokenStorage, jwtConfig JWTConfig, opts ...AuthOption) *AuthHandler {
	h := &AuthHandler{
		logger:       logger,
		userStorage:  userStorage,
		tokenStorage: tokenStorage,
		jwtConfig:    jwtConfig,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Signup обрабатывает POST /users/signup/
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode signup request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateUsername(req.Username); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateEmail(req.Email); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		sendError(h.logger, w, err.Error(), http.StatusBadRequest)
		return
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		Role:         models.RoleUser,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if err := h.userStorage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			h.logger.WarnContext(ctx, "user already exists", slog.String("username", req.Username))
			sendError(h.logger, w, "username or email already taken", http.StatusBadRequest)
			return
		}
		h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user signed up",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID))
	sendJSON(h.logger, w, api.ErrorResponse{Message: "User created"}, http.StatusCreated)
}

// Token обрабатывает POST /auth/token/
// Обмен логина и пароля на пару токенов
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode token request", slog.Any("error", err))
		sendError(h.logger, w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		sendError(h.logger, w, "username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userStorage.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			h.logger.WarnContext(ctx, "login failed: user not found", slog.String("username", req.Username))
			sendError(h.logger, w, msgNoActiveAccount, http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := crypto.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		h.logger.WarnContext(ctx, "login failed: wrong password", slog.String("username", req.Username))
		sendError(h.logger, w, msgNoActiveAccount, http.StatusUnauthorized)
		return
	}

	access, refresh, err := h.issue(r, user)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue tokens", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID))

	resp := api.TokenResponse{Access: access, Refresh: refresh}
	if h.embedUser {
		profile := user.Profile()
		resp.User = &profile
	}
	sendJSON(h.logger, w, resp, http.StatusOK)
}

// Refresh обрабатывает POST /auth/token/refresh/
// Refresh token одноразовый: в ответ выдается новая пара, старый токен
// больше не принимается
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		sendError(h.logger, w, "refresh token is required", http.StatusBadRequest)
		return
	}

	stored, err := h.tokenStorage.UseRefreshToken(ctx, req.Refresh)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrTokenUsed):
			h.logger.WarnContext(ctx, "refresh token reused")
			sendError(h.logger, w, msgTokenNotValid, http.StatusUnauthorized)
		case errors.Is(err, storage.ErrTokenNotFound):
			h.logger.WarnContext(ctx, "refresh token not found")
			sendError(h.logger, w, msgTokenNotValid, http.StatusUnauthorized)
		default:
			h.logger.ErrorContext(ctx, "failed to use refresh token", slog.Any("error", err))
			sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	if time.Now().After(stored.ExpiresAt) {
		h.logger.WarnContext(ctx, "refresh token expired", slog.String("user_id", stored.UserID))
		sendError(h.logger, w, msgTokenNotValid, http.StatusUnauthorized)
		return
	}

	user, err := h.userStorage.GetUserByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			sendError(h.logger, w, msgTokenNotValid, http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	access, refresh, err := h.issue(r, user)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue tokens", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "tokens refreshed", slog.String("user_id", user.ID))
	sendJSON(h.logger, w, api.RefreshResponse{Access: access, Refresh: refresh}, http.StatusOK)
}

// Me обрабатывает GET /users/me/
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		sendError(h.logger, w, "Authentication credentials were not provided.", http.StatusUnauthorized)
		return
	}

	user, err := h.userStorage.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			sendError(h.logger, w, "user not found", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		sendError(h.logger, w, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(h.logger, w, user.Profile(), http.StatusOK)
}

// issue creates an access token and a stored refresh token for user
func (h *AuthHandler) issue(r *http.Request, user *models.User) (string, string, error) {
	access, err := GenerateAccessToken(h.jwtConfig, user)
	if err != nil {
		return "", "", err
	}

	refresh, expiresAt, err := GenerateRefreshToken(h.jwtConfig)
	if err != nil {
		return "", "", err
	}
	err = h.tokenStorage.SaveRefreshToken(r.Context(), &models.RefreshToken{
		Token:     refresh,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
