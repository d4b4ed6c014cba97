package memstore

import (
	"context"
	"sync"
	"time"

	"storefront/errs"
)

// TxRunner runs callbacks directly. The in-memory stores have no rollback, so
// callers get the same behaviour as MongoDB without transactions.
type TxRunner struct{}

func (TxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type lease struct {
	token uint64
	until time.Time
}

// Locker is a process-local stand-in for the Redis locker.
type Locker struct {
	mu   sync.Mutex
	held map[string]lease
	seq  uint64
}

func NewLocker() *Locker {
	return &Locker{held: make(map[string]lease)}
}

func (l *Locker) TryLock(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if cur, ok := l.held[key]; ok && now.Before(cur.until) {
		return nil, errs.ErrLocked
	}
	l.seq++
	token := l.seq
	l.held[key] = lease{token: token, until: now.Add(ttl)}
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key].token == token {
			delete(l.held, key)
		}
	}, nil
}
