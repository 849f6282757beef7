// Package cache реализует кеш контактов и блокировки выдачи пропусков на Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/gatepass-assistant/internal/config"
)

// ErrLocked блокировка удерживается другим обработчиком дольше допустимого ожидания.
var ErrLocked = errors.New("lock is held by another worker")

// Cache обёртка над клиентом Redis.
type Cache struct {
	Db *redis.Client

	lockPoll time.Duration
}

// InitServer подключается к Redis и проверяет соединение.
func InitServer(ctx context.Context, cfg config.RedisConnection) (*Cache, error) {
	const op = "cache.InitServer"
	db := redis.NewClient(&redis.Options{
		Addr:         cfg.AddressRedis,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Username:     cfg.User,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.TimeoutRedis,
		WriteTimeout: cfg.TimeoutRedis,
	})

	if err := db.Ping(ctx).Err(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Cache{Db: db, lockPoll: 50 * time.Millisecond}, nil
}

// Close закрывает соединение.
func (c *Cache) Close() error {
	return c.Db.Close()
}

// Get читает JSON-значение по ключу в result; found=false, если ключа нет.
func (c *Cache) Get(ctx context.Context, key string, result any) (bool, error) {
	const op = "cache.Get"
	val, err := c.Db.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if err = json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set сохраняет значение в JSON с временем жизни.
func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	const op = "cache.Set"
	jsonData, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.Db.Set(ctx, key, jsonData, expiration).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Invalidate удаляет ключ.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	const op = "cache.Invalidate"
	if err := c.Db.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Lock захватывает блокировку key на ttl, ожидая освобождения не дольше ttl.
// Возвращённая функция снимает блокировку, только если она всё ещё наша.
func (c *Cache) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	const op = "cache.Lock"
	token := uuid.NewString()
	deadline := time.Now().Add(ttl)

	for {
		ok, err := c.Db.SetNX(ctx, "lock:"+key, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%s: %s: %w", op, key, ErrLocked)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(c.lockPoll):
		}
	}

	return func() {
		_ = unlockScript.Run(context.WithoutCancel(ctx), c.Db, []string{"lock:" + key}, token).Err()
	}, nil
}
