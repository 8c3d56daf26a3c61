package session

import (
	"fmt"
	"sync"
)

// DefaultMaxAttempts is the number of failed logins after which the backend locks the account.
const DefaultMaxAttempts = 5

// AttemptTracker counts consecutive failed logins for the warning shown to the user.
// It never blocks a login attempt itself: lockout is the backend's job.
type AttemptTracker struct {
	max    int
	failed int
	mu     sync.Mutex
}

// NewAttemptTracker создает счетчик; max <= 0 означает DefaultMaxAttempts
func NewAttemptTracker(max int) *AttemptTracker {
	if max <= 0 {
		max = DefaultMaxAttempts
	}
	return &AttemptTracker{max: max}
}

// Fail регистрирует неудачную попытку и возвращает ее номер
func (t *AttemptTracker) Fail() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed++
	return t.failed
}

// Reset сбрасывает счетчик после успешного входа
func (t *AttemptTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = 0
}

// Failed возвращает количество неудачных попыток подряд
func (t *AttemptTracker) Failed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// Max возвращает лимит попыток
func (t *AttemptTracker) Max() int {
	return t.max
}

// Warning формирует предупреждение для пользователя
func (t *AttemptTracker) Warning(attempt int) string {
	if attempt >= t.max {
		return fmt.Sprintf("attempt %d of %d: the account may now be locked by the server", attempt, t.max)
	}
	return fmt.Sprintf("attempt %d of %d", attempt, t.max)
}
