package dlock

import (
	"context"
	"time"

	"github.com/ceyewan/keylock/metrics"
)

// 指标名称
const (
	// MetricLockAcquired 锁获取成功次数 (Counter)
	MetricLockAcquired = "dlock_lock_acquired_total"

	// MetricLockFailed 锁获取失败次数 (Counter)，reason = contended|timeout|canceled|store|invalid
	MetricLockFailed = "dlock_lock_failed_total"

	// MetricLockReleased 锁释放次数 (Counter)，outcome = released|lost|error
	MetricLockReleased = "dlock_lock_released_total"

	// MetricLockHoldDuration 锁持有时长 (Histogram)
	MetricLockHoldDuration = "dlock_lock_hold_duration_seconds"

	// MetricAcquireAttempts 每次获取锁的尝试次数 (Histogram)
	MetricAcquireAttempts = "dlock_acquire_attempts"
)

const (
	reasonContended = "contended"
	reasonTimeout   = "timeout"
	reasonCanceled  = "canceled"
	reasonStore     = "store"
	reasonInvalid   = "invalid"

	outcomeReleased = "released"
	outcomeLost     = "lost"
	outcomeError    = "error"
)

type lockMetrics struct {
	acquired metrics.Counter
	failed   metrics.Counter
	released metrics.Counter
	hold     metrics.Histogram
	attempts metrics.Histogram
	backend  metrics.Label
}

func newLockMetrics(meter metrics.Meter, backend BackendType) (*lockMetrics, error) {
	m := &lockMetrics{backend: metrics.L(metrics.LabelBackend, string(backend))}
	var err error
	if m.acquired, err = meter.Counter(MetricLockAcquired, "Number of successful lock acquisitions"); err != nil {
		return nil, err
	}
	if m.failed, err = meter.Counter(MetricLockFailed, "Number of failed lock acquisitions by reason"); err != nil {
		return nil, err
	}
	if m.released, err = meter.Counter(MetricLockReleased, "Number of lock releases by outcome"); err != nil {
		return nil, err
	}
	if m.hold, err = meter.Histogram(MetricLockHoldDuration, "Time between acquisition and release",
		metrics.WithUnit("s"), metrics.WithBuckets(0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60)); err != nil {
		return nil, err
	}
	if m.attempts, err = meter.Histogram(MetricAcquireAttempts, "Store attempts per acquisition",
		metrics.WithBuckets(1, 2, 5, 10, 20, 50, 100)); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *lockMetrics) recordAcquired(ctx context.Context, attempts int) {
	m.acquired.Inc(ctx, m.backend)
	m.attempts.Record(ctx, float64(attempts), m.backend)
}

func (m *lockMetrics) recordFailed(ctx context.Context, reason string, attempts int) {
	m.failed.Inc(ctx, m.backend, metrics.L(metrics.LabelReason, reason))
	if attempts > 0 {
		m.attempts.Record(ctx, float64(attempts), m.backend)
	}
}

func (m *lockMetrics) recordReleased(ctx context.Context, outcome string, held time.Duration) {
	m.released.Inc(ctx, m.backend, metrics.L(metrics.LabelOutcome, outcome))
	if outcome == outcomeReleased {
		m.hold.Record(ctx, held.Seconds(), m.backend)
	}
}
