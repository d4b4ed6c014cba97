package rdx

import (
	"context"
	"testing"
	"time"

	"storefront/errs"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	conn, err := Connect(context.Background(), mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return NewLocker(conn, "lock:"), mr
}

func TestTryLockExclusive(t *testing.T) {
	l, _ := newTestLocker(t)
	ctx := context.Background()

	unlock, err := l.TryLock(ctx, "checkout:u1", time.Minute)
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "checkout:u1", time.Minute)
	assert.ErrorIs(t, err, errs.ErrLocked)

	_, err = l.TryLock(ctx, "checkout:u2", time.Minute)
	assert.NoError(t, err, "different keys do not contend")

	unlock()
	_, err = l.TryLock(ctx, "checkout:u1", time.Minute)
	assert.NoError(t, err)
}

func TestExpiredLockIsNotReleasedByOldHolder(t *testing.T) {
	l, mr := newTestLocker(t)
	ctx := context.Background()

	unlockOld, err := l.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	_, err = l.TryLock(ctx, "k", time.Minute)
	require.NoError(t, err)

	unlockOld()
	assert.True(t, mr.Exists("lock:k"), "the new holder keeps its lock")
}

func TestConnectFailsWithoutServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Connect(ctx, "127.0.0.1:1", "")
	assert.Error(t, err)
}
