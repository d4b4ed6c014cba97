// Package rdx holds the Redis connection and the per-key locks built on it.
package rdx

import (
	"context"
	"fmt"
	"time"

	"storefront/errs"
	"storefront/utils"

	"github.com/redis/go-redis/v9"
)

// Connect opens a client on addr and pings it.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password, // Empty if no password
		DB:       0,        // Default DB
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis at %s: %w", addr, err)
	}
	return client, nil
}

// unlockScript deletes the key only while it still holds our token, so a lock
// that expired and was re-acquired by someone else is left alone.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive locks using SET NX with a TTL.
type Locker struct {
	conn   *redis.Client
	prefix string
}

func NewLocker(conn *redis.Client, prefix string) *Locker {
	return &Locker{conn: conn, prefix: prefix}
}

// TryLock acquires key for ttl. It returns errs.ErrLocked when another holder
// owns it. The returned unlock is safe to call once the caller is done.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	full := l.prefix + key
	token := utils.GetUUID()
	ok, err := l.conn.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", full, err)
	}
	if !ok {
		return nil, errs.ErrLocked
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = unlockScript.Run(ctx, l.conn, []string{full}, token).Err()
	}, nil
}
