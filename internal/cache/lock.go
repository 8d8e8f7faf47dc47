package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DispatchLockKey ключ блокировки запуска рассылки напоминаний.
const DispatchLockKey = "lock:reminders:dispatch"

// ErrLockNotHeld блокировка уже истекла или принадлежит другому владельцу.
var ErrLockNotHeld = errors.New("lock not held")

// удаляем ключ только если он всё ещё наш
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker выдаёт блокировки с истечением на основе SET NX PX.
type Locker struct {
	db *redis.Client
}

// NewLocker создаёт Locker поверх клиента кеша.
func NewLocker(c *Cache) *Locker {
	return &Locker{db: c.Db}
}

// Lock захваченная блокировка.
type Lock struct {
	key   string
	token string
	db    *redis.Client
}

// Acquire пытается захватить key на ttl. Если ключ занят, возвращает nil, false, nil.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, bool, error) {
	const op = "cache.Acquire"
	token := uuid.NewString()
	ok, err := l.db.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{key: key, token: token, db: l.db}, true, nil
}

// Release освобождает блокировку, если она всё ещё принадлежит владельцу.
func (lk *Lock) Release(ctx context.Context) error {
	const op = "cache.Release"
	n, err := releaseScript.Run(ctx, lk.db, []string{lk.key}, lk.token).Int64()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrLockNotHeld)
	}
	return nil
}
