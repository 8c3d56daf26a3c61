package lockout

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	start    time.Time
	failures int
}

// Memory хранит счетчики в памяти процесса.
// Просроченные окна периодически удаляются фоновой goroutine до вызова Close.
type Memory struct {
	entries  map[string]*entry
	now      func() time.Time
	cleanupC chan struct{}
	window   time.Duration
	max      int
	mu       sync.Mutex
	stopOnce sync.Once
}

// NewMemory создает in-memory Limiter
func NewMemory(maxFailures int, window time.Duration) *Memory {
	m := &Memory{
		entries:  make(map[string]*entry),
		now:      time.Now,
		cleanupC: make(chan struct{}),
		window:   window,
		max:      maxFailures,
	}

	go m.cleanup()

	return m
}

// cleanup раз в окно удаляет счетчики, окно которых уже закончилось
func (m *Memory) cleanup() {
	interval := m.window
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.cleanupC:
			return
		}
	}
}

func (m *Memory) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.entries {
		if now.Sub(e.start) >= m.window {
			delete(m.entries, key)
		}
	}
}

// current возвращает запись текущего окна, удаляя просроченную
func (m *Memory) current(key string) *entry {
	e, ok := m.entries[key]
	if !ok {
		return nil
	}
	if m.now().Sub(e.start) >= m.window {
		delete(m.entries, key)
		return nil
	}
	return e
}

func (m *Memory) Locked(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.current(normalizeKey(key))
	if e == nil || e.failures < m.max {
		return false, 0, nil
	}
	return true, e.start.Add(m.window).Sub(m.now()), nil
}

func (m *Memory) Fail(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key = normalizeKey(key)
	e := m.current(key)
	if e == nil {
		e = &entry{start: m.now()}
		m.entries[key] = e
	}
	e.failures++
	return e.failures, nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, normalizeKey(key))
	return nil
}

// Close останавливает фоновую очистку
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.cleanupC) })
	return nil
}
