// Package lockout counts failed logins per username and blocks further
// attempts once the limit is reached inside the window.
package lockout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/esps-console/internal/config"
)

// Limiter tracks login failures.
type Limiter interface {
	// Locked reports whether the key is blocked and for how long.
	Locked(ctx context.Context, key string) (bool, time.Duration, error)
	// Fail records a failure and returns the number of failures in the current window.
	Fail(ctx context.Context, key string) (int, error)
	// Reset forgets all failures of the key (successful login).
	Reset(ctx context.Context, key string) error
	Close() error
}

// New создает Limiter по драйверу из конфигурации
func New(cfg config.Lockout) (Limiter, error) {
	switch cfg.Driver {
	case "", config.LockoutMemory:
		return NewMemory(cfg.MaxFailures, cfg.Window), nil
	case config.LockoutRedis:
		return NewRedis(cfg.Redis, cfg.MaxFailures, cfg.Window)
	default:
		return nil, fmt.Errorf("unsupported lockout driver: %s", cfg.Driver)
	}
}

// normalizeKey: логин не чувствителен к регистру и пробелам по краям
func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
