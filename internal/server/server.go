package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iudanet/esps-console/internal/server/storage"
)

const (
	shutdownTimeout      = 10 * time.Second
	tokenCleanupInterval = time.Hour
)

// Server - HTTP сервер backend с фоновой очисткой отозванных токенов
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	tokens     storage.TokenStorage
	stop       func()
}

// New создает сервер на addr с маршрутами NewRouter
func New(addr string, d Deps) *Server {
	handler, stop := NewRouter(d)
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ErrorLog:          slog.NewLogLogger(d.Logger.Handler(), slog.LevelWarn),
		},
		logger: d.Logger,
		tokens: d.Tokens,
		stop:   stop,
	}
}

// Run слушает addr до отмены ctx, затем корректно завершает активные запросы
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve обслуживает уже открытый listener (используется в тестах)
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server listening", slog.String("addr", ln.Addr().String()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.cleanupTokens(gctx)
		return nil
	})

	return g.Wait()
}

// cleanupTokens удаляет из черного списка токены, срок которых уже истек
func (s *Server) cleanupTokens(ctx context.Context) {
	ticker := time.NewTicker(tokenCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.tokens.DeleteExpiredTokens(ctx, now)
			if err != nil {
				s.logger.WarnContext(ctx, "failed to delete expired tokens", slog.Any("error", err))
				continue
			}
			if n > 0 {
				s.logger.InfoContext(ctx, "expired revoked tokens deleted", slog.Int("count", n))
			}
		}
	}
}
