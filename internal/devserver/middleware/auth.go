package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/mailguard/internal/devserver/handlers"
)

// AuthMiddleware создает middleware для проверки JWT токена.
// Запрос без валидного токена получает 401.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, jwtConfig)
			if err != "" {
				logger.WarnContext(r.Context(), "request rejected", "path", r.URL.Path, "reason", err)
				writeJSONError(w, http.StatusUnauthorized, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuthMiddleware кладет пользователя в контекст, если токен валиден,
// и пропускает запрос дальше в любом случае. Решение принимает handler.
func OptionalAuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, err := authenticate(r, jwtConfig)
			if err != "" {
				logger.DebugContext(r.Context(), "anonymous request", "path", r.URL.Path, "reason", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate returns the request context with the user set, or a reason
// the token was not accepted
func authenticate(r *http.Request, jwtConfig handlers.JWTConfig) (context.Context, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, "Authentication credentials were not provided."
	}

	// Ожидаем формат: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return nil, "Authorization header must contain two space-delimited values"
	}

	claims, err := handlers.ValidateAccessToken(jwtConfig, parts[1])
	if err != nil {
		return nil, "Given token not valid for any token type"
	}

	ctx := context.WithValue(r.Context(), handlers.UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, handlers.UsernameKey, claims.Username)
	return ctx, ""
}

func writeJSONError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
