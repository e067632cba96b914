package dlock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keylock/testkit"
)

// newRedisManager 返回基于 miniredis 的 Manager
func newRedisManager(t *testing.T, opts ...Option) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	conn, mr := testkit.NewRedisConnector(t)
	opts = append([]Option{
		WithRedisConnector(conn),
		WithLogger(testkit.NewLogger()),
	}, opts...)
	m, err := New(&Config{Backend: BackendRedis}, opts...)
	require.NoError(t, err)
	return m, mr
}

// countingStore 统计对底层 Store 的调用次数
type countingStore struct {
	Store
	sets    atomic.Int64
	deletes atomic.Int64
}

func (s *countingStore) ConditionalSet(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.sets.Add(1)
	return s.Store.ConditionalSet(ctx, key, value, ttl)
}

func (s *countingStore) CompareAndDelete(ctx context.Context, key, expected string) (int64, error) {
	s.deletes.Add(1)
	return s.Store.CompareAndDelete(ctx, key, expected)
}

// newCountingManager 返回包装了 countingStore 的 Manager
func newCountingManager(t *testing.T, opts ...Option) (*Manager, *countingStore, *miniredis.Miniredis) {
	t.Helper()
	conn, mr := testkit.NewRedisConnector(t)
	store := &countingStore{Store: NewRedisStore(conn.GetClient())}
	opts = append([]Option{WithLogger(testkit.NewLogger())}, opts...)
	m, err := NewManager(store, &Config{Backend: BackendRedis}, opts...)
	require.NoError(t, err)
	return m, store, mr
}

// failingStore 所有调用都返回 err
type failingStore struct {
	err   error
	calls atomic.Int64
}

func (s *failingStore) ConditionalSet(context.Context, string, string, time.Duration) (bool, error) {
	s.calls.Add(1)
	return false, s.err
}

func (s *failingStore) CompareAndDelete(context.Context, string, string) (int64, error) {
	s.calls.Add(1)
	return 0, s.err
}
