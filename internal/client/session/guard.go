package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/iudanet/esps-console/pkg/api"
)

// State is the outcome of a guard check.
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// IdentityAPI verifies a bearer token against the backend.
type IdentityAPI interface {
	Me(ctx context.Context, token string) (*api.MeResponse, error)
}

// Decision is returned by Guard.Enter.
type Decision struct {
	User  *api.UserProfile
	State State
}

// GuardOption настраивает Guard
type GuardOption func(*Guard)

// WithObserver регистрирует наблюдателя за переходами состояний (loading -> authenticated ...)
func WithObserver(fn func(State)) GuardOption {
	return func(g *Guard) {
		g.observer = fn
	}
}

// Guard decides whether the protected part of the console may be shown.
// It never sets a token; a rejected token is invalidated in the store.
type Guard struct {
	store    *Store
	api      IdentityAPI
	logger   *slog.Logger
	observer func(State)
	verified string
	mu       sync.Mutex
}

// NewGuard создает guard
func NewGuard(store *Store, identity IdentityAPI, logger *slog.Logger, opts ...GuardOption) *Guard {
	g := &Guard{
		store:  store,
		api:    identity,
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enter проверяет сессию при входе в защищенную часть.
// Без токена сразу возвращает StateUnauthenticated без сетевого запроса.
// Проверка через /auth/me выполняется один раз на токен: навигация внутри
// защищенной части повторно backend не опрашивает, пока не вызван Reset.
// Любая ошибка проверки трактуется как StateUnauthenticated: сессия
// уничтожается, повторных запросов нет.
func (g *Guard) Enter(ctx context.Context) Decision {
	sess, ok := g.store.Snapshot()
	if !ok {
		g.notify(StateUnauthenticated)
		return Decision{State: StateUnauthenticated}
	}

	g.mu.Lock()
	alreadyVerified := g.verified != "" && g.verified == sess.Token
	g.mu.Unlock()

	if alreadyVerified {
		g.notify(StateAuthenticated)
		return Decision{State: StateAuthenticated, User: sess.User}
	}

	g.notify(StateLoading)

	resp, err := g.api.Me(ctx, sess.Token)
	if err != nil {
		g.logger.WarnContext(ctx, "identity check failed", slog.Any("error", err))
		return g.reject(sess.Token)
	}
	if resp == nil || !resp.Status {
		g.logger.WarnContext(ctx, "identity check rejected token")
		return g.reject(sess.Token)
	}

	user := sess.User
	if resp.User != nil {
		// профиль заменяется целиком; если за время запроса сессия сменилась, результат не применяем
		if !g.store.ReplaceUser(sess.Token, resp.User) {
			g.notify(StateUnauthenticated)
			return Decision{State: StateUnauthenticated}
		}
		user = cloneProfile(resp.User)
	}

	g.mu.Lock()
	g.verified = sess.Token
	g.mu.Unlock()

	g.notify(StateAuthenticated)
	return Decision{State: StateAuthenticated, User: user}
}

// Reset забывает результат проверки: следующий Enter снова обратится к /auth/me.
// Вызывается при новом входе в защищенную часть верхнего уровня.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verified = ""
}

func (g *Guard) reject(token string) Decision {
	g.store.Invalidate(token)
	g.mu.Lock()
	if g.verified == token {
		g.verified = ""
	}
	g.mu.Unlock()
	g.notify(StateUnauthenticated)
	return Decision{State: StateUnauthenticated}
}

func (g *Guard) notify(s State) {
	if g.observer != nil {
		g.observer(s)
	}
}
