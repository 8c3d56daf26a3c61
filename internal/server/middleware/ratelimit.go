package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iudanet/esps-console/internal/server/handlers"
)

// RateLimiter - token bucket на каждый ключ (обычно IP клиента).
// Бакет вмещает burst токенов и пополняется со скоростью rate в секунду.
type RateLimiter struct {
	buckets  map[string]*bucket
	logger   *slog.Logger
	cleanupC chan struct{}
	now      func() time.Time
	rate     float64
	burst    float64
	idle     time.Duration
	mu       sync.Mutex
	stopOnce sync.Once
}

type bucket struct {
	lastSeen time.Time
	tokens   float64
}

// NewRateLimiter создает rate limiter; rate <= 0 отключает ограничение
func NewRateLimiter(rate float64, burst int, logger *slog.Logger) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	idle := time.Minute
	if rate > 0 {
		// за это время пустой бакет гарантированно наполняется
		if fill := time.Duration(float64(burst) / rate * float64(time.Second)); fill > idle {
			idle = fill
		}
	}

	rl := &RateLimiter{
		buckets:  make(map[string]*bucket),
		logger:   logger,
		cleanupC: make(chan struct{}),
		now:      time.Now,
		rate:     rate,
		burst:    float64(burst),
		idle:     idle,
	}

	go rl.cleanup()

	return rl
}

// cleanup периодически удаляет неактивные buckets для экономии памяти
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupOldBuckets()
		case <-rl.cleanupC:
			return
		}
	}
}

// cleanupOldBuckets удаляет полные buckets: их состояние совпадает с новым
func (rl *RateLimiter) cleanupOldBuckets() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.idle {
			delete(rl.buckets, key)
		}
	}
}

// Stop останавливает cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.cleanupC) })
}

// Allow забирает токен из бакета key; false, если бакет пуст
func (rl *RateLimiter) Allow(key string) bool {
	if rl.rate <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: rl.burst, lastSeen: now}
		rl.buckets[key] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * rl.rate
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// retryAfter - секунды до появления следующего токена
func (rl *RateLimiter) retryAfter() int {
	if rl.rate <= 0 {
		return 0
	}
	s := int(1/rl.rate + 0.999)
	if s < 1 {
		s = 1
	}
	return s
}

func (rl *RateLimiter) reject(w http.ResponseWriter, r *http.Request, key string) {
	rl.logger.WarnContext(r.Context(), "rate limit exceeded",
		slog.String("ip", key),
		slog.String("method", r.Method),
		slog.String("path", sanitizePath(r.URL.Path)),
	)
	w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter()))
	handlers.SendError(w, rl.logger, "rate limit exceeded, please try again later", http.StatusTooManyRequests)
}

// PathRateLimit задает отдельный лимит для пути (например, /auth/login)
type PathRateLimit struct {
	Path  string
	Rate  float64
	Burst int
}

// RateLimitMiddleware ограничивает частоту запросов по IP клиента.
// Пути из limits получают собственные бакеты, остальные делят общий limiter.
// Возвращает функцию остановки фоновой очистки.
func RateLimitMiddleware(logger *slog.Logger, rate float64, burst int, limits ...PathRateLimit) (func(http.Handler) http.Handler, func()) {
	limiters := make(map[string]*RateLimiter, len(limits))
	for _, limit := range limits {
		limiters[limit.Path] = NewRateLimiter(limit.Rate, limit.Burst, logger)
	}
	defaultLimiter := NewRateLimiter(rate, burst, logger)

	stop := func() {
		defaultLimiter.Stop()
		for _, l := range limiters {
			l.Stop()
		}
	}

	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter, exists := limiters[r.URL.Path]
			if !exists {
				limiter = defaultLimiter
			}

			key := getClientIP(r)
			if !limiter.Allow(key) {
				limiter.reject(w, r, key)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
	return mw, stop
}

// getClientIP извлекает IP адрес клиента из запроса.
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Берем первый IP из списка (реальный клиент)
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// порт у каждого соединения свой, считаем по хосту
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
