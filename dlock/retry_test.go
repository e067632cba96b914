package dlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keylock/xerrors"
)

func TestAcquire_NoRetry(t *testing.T) {
	m, store, _ := newCountingManager(t)
	ctx := context.Background()

	_, err := m.TryAcquire(ctx, "distributedLock:once", time.Second)
	require.NoError(t, err)

	_, err = m.Acquire(ctx, "distributedLock:once", time.Second, NoRetry)
	assert.ErrorIs(t, err, ErrAcquisitionFailed)
	assert.Equal(t, int64(2), store.sets.Load())
}

func TestAcquire_DefaultTTL(t *testing.T) {
	m, mr := newRedisManager(t)

	lease, err := m.Acquire(context.Background(), "distributedLock:default-ttl", 0, NoRetry)
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, lease.TTL)
	assert.Equal(t, DefaultTTL, mr.TTL(lease.Key))
}

func TestAcquire_RetryTimeout(t *testing.T) {
	m, store, _ := newCountingManager(t)
	ctx := context.Background()

	_, err := m.TryAcquire(ctx, "distributedLock:busy", 10*time.Second)
	require.NoError(t, err)

	start := time.Now()
	_, err = m.Acquire(ctx, "distributedLock:busy", time.Second, RetryPolicy{
		Enabled:  true,
		WaitTime: 50 * time.Millisecond,
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.Equal(t, CodeLockTimeout, xerrors.GetCode(err))
	assert.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	assert.Greater(t, store.sets.Load(), int64(2), "should retry more than once")
}

func TestAcquire_RetrySucceedsAfterRelease(t *testing.T) {
	m, _ := newRedisManager(t)
	ctx := context.Background()

	holder, err := m.TryAcquire(ctx, "distributedLock:handoff", 10*time.Second)
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = m.ReleaseLease(context.Background(), holder)
	}()

	lease, err := m.Acquire(ctx, "distributedLock:handoff", time.Second, RetryPolicy{
		Enabled:  true,
		WaitTime: 2 * time.Second,
	})
	require.NoError(t, err)
	assert.NotEqual(t, holder.Token, lease.Token)
}

func TestAcquire_RetryCanceled(t *testing.T) {
	m, _ := newRedisManager(t)

	_, err := m.TryAcquire(context.Background(), "distributedLock:cancel", 10*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	_, err = m.Acquire(ctx, "distributedLock:cancel", time.Second, RetryPolicy{
		Enabled:  true,
		WaitTime: 5 * time.Second,
		Interval: 10 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCanceled)
	assert.NotErrorIs(t, err, ErrLockTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestAcquire_StoreErrorAbortsRetry(t *testing.T) {
	store := &failingStore{err: errors.New("connection reset")}
	m, err := NewManager(store, &Config{Backend: BackendRedis})
	require.NoError(t, err)

	_, err = m.Acquire(context.Background(), "distributedLock:broken", time.Second, RetryPolicy{
		Enabled:  true,
		WaitTime: time.Second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, int64(1), store.calls.Load())
}

func TestSpec_RetryPolicy(t *testing.T) {
	assert.Equal(t, NoRetry, NewSpec("a").retryPolicy(DefaultRetryInterval))

	spec := Spec{IsRetry: true}
	assert.Equal(t, RetryPolicy{Enabled: true, WaitTime: DefaultWaitTime, Interval: 7 * time.Millisecond},
		spec.retryPolicy(7*time.Millisecond))

	spec.WaitTime = time.Second
	assert.Equal(t, time.Second, spec.retryPolicy(DefaultRetryInterval).WaitTime)

	assert.Error(t, Spec{TTL: -1}.validate())
	assert.Error(t, Spec{WaitTime: -1}.validate())
	assert.NoError(t, NewSpec("a", "b").validate())
}
