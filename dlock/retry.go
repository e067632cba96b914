package dlock

import (
	"context"
	"time"

	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/xerrors"
)

// RetryPolicy 获取锁时的重试策略
//
// Enabled 为 false 时只尝试一次。开启后在 WaitTime 窗口内反复尝试，
// 每两次之间等待 Interval，窗口耗尽返回 ErrLockTimeout。
// 等待期间 context 结束返回 ErrCanceled。
type RetryPolicy struct {
	Enabled  bool
	WaitTime time.Duration
	Interval time.Duration
}

// NoRetry 只尝试一次
var NoRetry = RetryPolicy{}

// Acquire 按 policy 获取锁，ttl 为 0 时使用默认 TTL
func (m *Manager) Acquire(ctx context.Context, key string, ttl time.Duration, policy RetryPolicy) (*Lease, error) {
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	if policy.Enabled {
		if policy.WaitTime <= 0 {
			policy.WaitTime = DefaultWaitTime
		}
		if policy.Interval <= 0 {
			policy.Interval = m.retryInterval
		}
	}

	start := time.Now()
	attempts := 0
	for {
		attempts++
		lease, err := m.tryAcquire(ctx, key, ttl)
		if err == nil {
			m.metrics.recordAcquired(ctx, attempts)
			return lease, nil
		}
		if !policy.Enabled || !xerrors.Is(err, ErrAcquisitionFailed) {
			m.metrics.recordFailed(ctx, failureReason(err), attempts)
			return nil, err
		}

		elapsed := time.Since(start)
		remaining := policy.WaitTime - elapsed
		if remaining <= 0 {
			m.logger.WarnContext(ctx, "lock wait timed out",
				clog.String("key", key),
				clog.Duration("waited", elapsed),
				clog.Int("attempts", attempts))
			m.metrics.recordFailed(ctx, reasonTimeout, attempts)
			return nil, newLockError("acquire", key, ErrLockTimeout,
				xerrors.New("no acquisition within "+policy.WaitTime.String()))
		}

		if err := sleep(ctx, min(policy.Interval, remaining)); err != nil {
			m.metrics.recordFailed(ctx, reasonCanceled, attempts)
			return nil, newLockError("acquire", key, ErrCanceled, err)
		}
	}
}

// sleep 等待 d 或 ctx 结束
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
