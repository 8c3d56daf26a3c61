package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	clientapi "github.com/iudanet/esps-console/internal/client/api"
	"github.com/iudanet/esps-console/pkg/api"
)

//go:generate moq -out authapi_mock.go . AuthAPI

// AuthAPI is the part of the backend client the session layer depends on.
type AuthAPI interface {
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	Me(ctx context.Context, token string) (*api.MeResponse, error)
	Logout(ctx context.Context, token string) error
}

var (
	// ErrEmptyCredentials возвращается, если не указан username или пароль
	ErrEmptyCredentials = errors.New("username and password are required")
	// ErrLockedOut возвращается, когда backend заблокировал вход (HTTP 429)
	ErrLockedOut = errors.New("login temporarily locked by server")
)

// LoginError describes a rejected login together with the attempt counter.
type LoginError struct {
	Err         error
	Reason      string
	Attempt     int
	MaxAttempts int
}

func (e *LoginError) Error() string {
	return fmt.Sprintf("login failed: %s (attempt %d of %d)", e.Reason, e.Attempt, e.MaxAttempts)
}

func (e *LoginError) Unwrap() error {
	return e.Err
}

// Service управляет жизненным циклом сессии: login, logout, current
type Service struct {
	api      AuthAPI
	store    *Store
	attempts *AttemptTracker
	logger   *slog.Logger
}

// NewService создает сервис сессии
func NewService(authAPI AuthAPI, store *Store, attempts *AttemptTracker, logger *slog.Logger) *Service {
	if attempts == nil {
		attempts = NewAttemptTracker(DefaultMaxAttempts)
	}
	return &Service{
		api:      authAPI,
		store:    store,
		attempts: attempts,
		logger:   logger,
	}
}

// Login выполняет аутентификацию и устанавливает сессию.
// Неудачные попытки увеличивают счетчик предупреждений; блокировку выполняет сервер.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	resp, err := s.api.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		if errors.Is(err, clientapi.ErrTooManyRequests) {
			s.logger.WarnContext(ctx, "login locked by server", slog.String("username", username))
			return nil, fmt.Errorf("%w: %w", ErrLockedOut, err)
		}
		if errors.Is(err, clientapi.ErrUnauthorized) {
			return nil, s.rejected(ctx, username, reasonFrom(err), err)
		}
		return nil, fmt.Errorf("login failed: %w", err)
	}

	if !resp.Status || resp.Token == "" {
		reason := resp.Message
		if reason == "" {
			reason = "login rejected"
		}
		return nil, s.rejected(ctx, username, reason, nil)
	}

	s.attempts.Reset()
	s.store.Set(resp.Token, resp.User)

	s.logger.InfoContext(ctx, "user logged in", slog.String("username", username))

	sess, _ := s.store.Snapshot()
	return &sess, nil
}

func (s *Service) rejected(ctx context.Context, username, reason string, cause error) error {
	attempt := s.attempts.Fail()
	s.logger.WarnContext(ctx, "login rejected",
		slog.String("username", username),
		slog.Int("attempt", attempt))
	return &LoginError{
		Err:         cause,
		Reason:      reason,
		Attempt:     attempt,
		MaxAttempts: s.attempts.Max(),
	}
}

func reasonFrom(err error) string {
	var statusErr *clientapi.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return statusErr.Message
	}
	return "invalid credentials"
}

// Logout уведомляет сервер (best effort) и уничтожает локальную сессию.
// Локальная сессия удаляется даже если сервер недоступен.
func (s *Service) Logout(ctx context.Context) error {
	sess, ok := s.store.Snapshot()
	if !ok {
		return nil
	}

	err := s.api.Logout(ctx, sess.Token)
	if err != nil {
		s.logger.WarnContext(ctx, "server logout failed", slog.Any("error", err))
	}

	s.store.Clear()
	return err
}

// Expire уничтожает сессию без обращения к серверу (токен отвергнут или истек)
func (s *Service) Expire() {
	s.store.Clear()
}

// Current возвращает текущую сессию
func (s *Service) Current() (Session, bool) {
	return s.store.Snapshot()
}

// Attempts возвращает счетчик неудачных попыток входа
func (s *Service) Attempts() *AttemptTracker {
	return s.attempts
}
