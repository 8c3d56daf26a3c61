package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/iudanet/esps-console/internal/server/handlers"
)

// RevocationChecker сообщает, отозван ли токен с данным jti
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthMiddleware создает middleware для проверки bearer токена.
// Отозванные через /auth/logout токены отклоняются так же, как истекшие.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig, revoked RevocationChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(ctx, "missing Authorization header", slog.String("path", r.URL.Path))
				handlers.SendError(w, logger, "missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				logger.WarnContext(ctx, "invalid Authorization header format")
				handlers.SendError(w, logger, "invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, parts[1])
			if err != nil {
				logger.WarnContext(ctx, "invalid access token", slog.Any("error", err))
				handlers.SendError(w, logger, "invalid token", http.StatusUnauthorized)
				return
			}

			isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
			if err != nil {
				logger.ErrorContext(ctx, "failed to check token revocation", slog.Any("error", err))
				handlers.SendError(w, logger, "internal server error", http.StatusInternalServerError)
				return
			}
			if isRevoked {
				logger.WarnContext(ctx, "revoked access token", slog.String("user_id", claims.UserID))
				handlers.SendError(w, logger, "token revoked", http.StatusUnauthorized)
				return
			}

			logger.DebugContext(ctx, "user authenticated",
				slog.String("user_id", claims.UserID),
				slog.String("username", claims.Username))

			next.ServeHTTP(w, r.WithContext(handlers.WithClaims(ctx, claims)))
		})
	}
}
