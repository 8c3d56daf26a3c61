package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iudanet/esps-console/internal/config"
)

// Redis хранит счетчики в Redis, чтобы блокировка действовала для всех экземпляров backend
type Redis struct {
	client *redis.Client
	prefix string
	window time.Duration
	max    int
}

// NewRedis подключается к Redis и проверяет соединение
func NewRedis(cfg config.Redis, maxFailures int, window time.Duration) (*Redis, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "esps:lockout:"
	}

	return &Redis{client: client, prefix: prefix, window: window, max: maxFailures}, nil
}

func (r *Redis) key(key string) string {
	return r.prefix + normalizeKey(key)
}

func (r *Redis) Locked(ctx context.Context, key string) (bool, time.Duration, error) {
	k := r.key(key)
	failures, err := r.client.Get(ctx, k).Int()
	if errors.Is(err, redis.Nil) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read failures: %w", err)
	}
	if failures < r.max {
		return false, 0, nil
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read lockout ttl: %w", err)
	}
	if ttl < 0 {
		ttl = r.window
	}
	return true, ttl, nil
}

// Fail увеличивает счетчик; окно отсчитывается от первой неудачи
func (r *Redis) Fail(ctx context.Context, key string) (int, error) {
	k := r.key(key)

	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		ttl = pipe.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record failure: %w", err)
	}

	// ключ без срока жизни: первая неудача в окне
	if ttl.Val() < 0 {
		if err := r.client.PExpire(ctx, k, r.window).Err(); err != nil {
			return 0, fmt.Errorf("failed to set lockout window: %w", err)
		}
	}
	return int(incr.Val()), nil
}

func (r *Redis) Reset(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to reset failures: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
