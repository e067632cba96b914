package dlock

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/xerrors"
)

// breakerStore 为 Store 增加熔断保护
//
// 只有存储故障计入失败，锁被占用 (false, nil) 属于正常结果。
// 熔断器打开期间调用直接返回包装了 gobreaker.ErrOpenState 的错误，不再访问存储。
type breakerStore struct {
	next    Store
	acquire *gobreaker.CircuitBreaker[bool]
	release *gobreaker.CircuitBreaker[int64]
}

// NewBreakerStore 用熔断器包装 store，acquire 与 release 各自独立计数
func NewBreakerStore(next Store, cfg *BreakerConfig, logger clog.Logger) Store {
	if cfg == nil {
		cfg = &BreakerConfig{Enabled: true}
	}
	cfg.setDefaults()
	if logger == nil {
		logger = clog.Discard()
	}
	return &breakerStore{
		next:    next,
		acquire: gobreaker.NewCircuitBreaker[bool](breakerSettings("dlock.acquire", cfg, logger)),
		release: gobreaker.NewCircuitBreaker[int64](breakerSettings("dlock.release", cfg, logger)),
	}
}

func breakerSettings(name string, cfg *BreakerConfig, logger clog.Logger) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store circuit breaker state changed",
				clog.String("breaker", name),
				clog.String("from", from.String()),
				clog.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			// 调用方取消不代表存储故障
			return err == nil || xerrors.Is(err, context.Canceled)
		},
	}
}

func (s *breakerStore) ConditionalSet(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.acquire.Execute(func() (bool, error) {
		return s.next.ConditionalSet(ctx, key, value, ttl)
	})
}

func (s *breakerStore) CompareAndDelete(ctx context.Context, key, expected string) (int64, error) {
	return s.release.Execute(func() (int64, error) {
		return s.next.CompareAndDelete(ctx, key, expected)
	})
}
