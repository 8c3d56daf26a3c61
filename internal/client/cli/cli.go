// Package cli implements the interactive certificate console.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	clientapi "github.com/iudanet/esps-console/internal/client/api"
	"github.com/iudanet/esps-console/internal/client/document"
	"github.com/iudanet/esps-console/internal/client/filter"
	"github.com/iudanet/esps-console/internal/client/iocli"
	"github.com/iudanet/esps-console/internal/client/menu"
	"github.com/iudanet/esps-console/internal/client/poller"
	"github.com/iudanet/esps-console/internal/client/session"
	"github.com/iudanet/esps-console/internal/client/storage"
	"github.com/iudanet/esps-console/internal/models"
)

// Backend is the part of the REST client the console uses.
type Backend interface {
	session.AuthAPI
	FetchCollection(ctx context.Context, token string, source models.Source) ([]byte, error)
	FetchDocument(ctx context.Context, token string, source models.Source, id, field string) (string, error)
}

// Passwords задает источники пароля для неинтерактивного входа
type Passwords struct {
	FromFile string
}

// Options настраивают консоль
type Options struct {
	Labels       filter.Labels
	Clipboard    document.Clipboard
	Passwords    Passwords
	PollInterval time.Duration
	PageSize     int
	MaxAttempts  int
}

// Cli - интерактивная консоль. Один процесс соответствует одной вкладке браузера:
// сессия живет только в памяти.
type Cli struct {
	io       iocli.IO
	backend  Backend
	meta     storage.MetadataStorage
	store    *session.Store
	sessions *session.Service
	guard    *session.Guard
	loader   *document.Loader
	logger   *slog.Logger
	view     *tableView
	opts     Options
	// expired выставляется из горутин poller'а при отказе в доступе
	expired bool
	mu      sync.Mutex
}

// New создает консоль
func New(cio iocli.IO, backend Backend, meta storage.MetadataStorage, logger *slog.Logger, opts Options) *Cli {
	if opts.PollInterval <= 0 {
		opts.PollInterval = poller.DefaultInterval
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if opts.Clipboard == nil {
		opts.Clipboard = document.SystemClipboard{}
	}

	store := session.NewStore()
	c := &Cli{
		io:      cio,
		backend: backend,
		meta:    meta,
		store:   store,
		logger:  logger,
		opts:    opts,
	}
	c.sessions = session.NewService(backend, store, session.NewAttemptTracker(opts.MaxAttempts), logger)
	c.guard = session.NewGuard(store, backend, logger, session.WithObserver(c.onGuardState))
	c.loader = document.NewLoader(documentFetcher{c: c}, ioNotifier{io: cio}, opts.Clipboard, logger)
	return c
}

// Run читает команды до quit или конца ввода
func (c *Cli) Run(ctx context.Context) error {
	c.io.Println("ESPS certificate console. Type 'help' for commands.")
	defer c.unmount()

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := c.io.ReadInput(c.prompt())
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.io.Println("")
				return nil
			}
			return fmt.Errorf("failed to read command: %w", err)
		}

		quit, err := c.Execute(ctx, line)
		if err != nil {
			c.io.Printf("Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (c *Cli) prompt() string {
	if v := c.view; v != nil {
		return fmt.Sprintf("esps %s/%s> ", v.direction, v.active)
	}
	return "esps> "
}

// onGuardState отображает переходы guard'а
func (c *Cli) onGuardState(s session.State) {
	if s == session.StateLoading {
		c.io.Println("Loading...")
	}
}

// handleFetchError вызывается из горутин poller'а и загрузчика документов
func (c *Cli) handleFetchError(err error) {
	if !errors.Is(err, clientapi.ErrUnauthorized) {
		return
	}
	c.mu.Lock()
	c.expired = true
	c.mu.Unlock()
	c.sessions.Expire()
}

// checkExpired закрывает защищенные представления, если сессия истекла в фоне
func (c *Cli) checkExpired() {
	c.mu.Lock()
	expired := c.expired
	c.expired = false
	c.mu.Unlock()

	if expired {
		c.unmount()
		c.io.Println("Session expired. Please login again.")
	}
}

// requireSession: без токена сразу отказ, без сетевых запросов
func (c *Cli) requireSession() (session.Session, error) {
	sess, ok := c.sessions.Current()
	if !ok {
		return session.Session{}, errNotLoggedIn
	}
	return sess, nil
}

// enter проверяет доступ к защищенной части. top=true означает навигацию верхнего уровня:
// результат предыдущей проверки сбрасывается и токен проверяется через /auth/me.
func (c *Cli) enter(ctx context.Context, top bool) (*session.Decision, error) {
	if top {
		c.guard.Reset()
	}
	d := c.guard.Enter(ctx)
	if d.State != session.StateAuthenticated {
		c.unmount()
		return nil, errNotLoggedIn
	}
	return &d, nil
}

func (c *Cli) capabilities() menu.Capabilities {
	sess, ok := c.sessions.Current()
	if !ok || sess.User == nil {
		return menu.Capabilities{}
	}
	return menu.CapabilitiesFrom(sess.User.Detil)
}

// unmount останавливает polling и закрывает карточку
func (c *Cli) unmount() {
	c.loader.Close()
	if c.view != nil {
		c.view.poller.Stop()
		c.view = nil
	}
}

var errNotLoggedIn = errors.New("not logged in, run 'login' first")

// getPassword возвращает пароль из источников с приоритетом:
// 1. переменная окружения ESPS_PASSWORD
// 2. файл из Passwords.FromFile
// 3. интерактивный ввод
func (c *Cli) getPassword() (string, error) {
	if envPassword := os.Getenv("ESPS_PASSWORD"); envPassword != "" {
		return envPassword, nil
	}

	if c.opts.Passwords.FromFile != "" {
		content, err := os.ReadFile(c.opts.Passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	password, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return password, nil
}
