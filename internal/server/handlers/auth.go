package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iudanet/esps-console/internal/crypto"
	"github.com/iudanet/esps-console/internal/models"
	"github.com/iudanet/esps-console/internal/server/lockout"
	"github.com/iudanet/esps-console/internal/server/storage"
	"github.com/iudanet/esps-console/internal/validation"
	"github.com/iudanet/esps-console/pkg/api"
)

const invalidCredentials = "invalid username or password"

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	responder
	userStorage  storage.UserStorage
	tokenStorage storage.TokenStorage
	limiter      lockout.Limiter
	now          func() time.Time
	jwtConfig    JWTConfig
}

// NewAuthHandler создает новый handler для авторизации
func NewAuthHandler(logger *slog.Logger, userStorage storage.UserStorage, tokenStorage storage.TokenStorage, limiter lockout.Limiter, jwtConfig JWTConfig) *AuthHandler {
	return &AuthHandler{
		responder:    responder{logger: logger},
		userStorage:  userStorage,
		tokenStorage: tokenStorage,
		limiter:      limiter,
		jwtConfig:    jwtConfig,
		now:          time.Now,
	}
}

// Login обрабатывает POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode login request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.Username = strings.TrimSpace(req.Username)

	if err := validation.ValidateUsername(req.Username); err != nil {
		h.logger.WarnContext(ctx, "invalid username", slog.Any("error", err))
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Password == "" {
		h.sendError(w, "password is required", http.StatusBadRequest)
		return
	}

	locked, retryAfter, err := h.limiter.Locked(ctx, req.Username)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to check lockout", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if locked {
		h.logger.WarnContext(ctx, "login rejected: account locked", slog.String("username", req.Username))
		seconds := int(math.Ceil(retryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		h.sendError(w, fmt.Sprintf("too many failed attempts, try again in %d minute(s)", (seconds+59)/60), http.StatusTooManyRequests)
		return
	}

	user, err := h.userStorage.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			crypto.BurnVerify(req.Password)
			h.loginFailed(w, r, req.Username, "user not found")
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := crypto.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		if errors.Is(err, crypto.ErrPasswordMismatch) {
			h.loginFailed(w, r, req.Username, "invalid password")
			return
		}
		h.logger.ErrorContext(ctx, "failed to verify password", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.limiter.Reset(ctx, req.Username); err != nil {
		// Не критичная ошибка, логируем но не прерываем
		h.logger.WarnContext(ctx, "failed to reset lockout", slog.Any("error", err))
	}

	now := h.now()
	accessToken, _, err := GenerateAccessToken(h.jwtConfig, user.ID, user.Username, now)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.userStorage.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// Не критичная ошибка, логируем но не прерываем
		h.logger.WarnContext(ctx, "failed to update last login", slog.Any("error", err))
	}

	h.logger.InfoContext(ctx, "user logged in successfully",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID))

	h.sendJSON(w, api.LoginResponse{
		Status: true,
		Token:  accessToken,
		User:   profileOf(user),
	}, http.StatusOK)
}

// loginFailed учитывает неудачную попытку и отвечает 401 без уточнения причины
func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, username, reason string) {
	ctx := r.Context()

	failures, err := h.limiter.Fail(ctx, username)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to record login failure", slog.Any("error", err))
	}

	h.logger.WarnContext(ctx, "login failed",
		slog.String("username", username),
		slog.String("reason", reason),
		slog.Int("failures", failures))

	h.sendJSON(w, api.LoginResponse{Status: false, Message: invalidCredentials}, http.StatusUnauthorized)
}

// Me обрабатывает GET /auth/me: проверка токена и актуальный профиль
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := GetClaims(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	user, err := h.userStorage.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// пользователь удален после выдачи токена
			h.logger.WarnContext(ctx, "token of unknown user", slog.String("user_id", claims.UserID))
			h.sendError(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.sendJSON(w, api.MeResponse{Status: true, User: profileOf(user)}, http.StatusOK)
}

// Logout обрабатывает POST /auth/logout: отзывает текущий access token
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, ok := GetClaims(ctx)
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	token := &models.RevokedToken{
		ID:        claims.ID,
		UserID:    claims.UserID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: h.now(),
	}
	if err := h.tokenStorage.RevokeToken(ctx, token); err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "user logged out successfully", slog.String("user_id", claims.UserID))

	h.sendJSON(w, api.StatusResponse{Status: true, Message: "logged out"}, http.StatusOK)
}

func profileOf(user *models.User) *api.UserProfile {
	roles := make([]api.RoleAssignment, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, api.RoleAssignment{RoleName: r.RoleName, AppsID: r.AppsID})
	}
	return &api.UserProfile{
		Username: user.Username,
		Name:     user.Name,
		Detil:    roles,
	}
}
