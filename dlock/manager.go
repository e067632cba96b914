package dlock

import (
	"context"
	"time"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/metrics"
	"github.com/ceyewan/keylock/xerrors"
)

// Token 标识一次成功获取的持有者，每次尝试都会生成新值
type Token string

// Lease 一次成功获取的锁
type Lease struct {
	Key        string
	Token      Token
	TTL        time.Duration
	AcquiredAt time.Time
}

// Manager 在 Store 之上实现锁的获取与释放
//
// Manager 本身不持有任何互斥状态，正确性完全依赖 Store 的原子操作，
// 可被多个 goroutine 并发使用。
type Manager struct {
	store          Store
	backend        BackendType
	prefix         string
	defaultTTL     time.Duration
	retryInterval  time.Duration
	releaseTimeout time.Duration
	logger         clog.Logger
	metrics        *lockMetrics
	tracer         oteltrace.Tracer
	newToken       func() string
}

// NewManager 使用给定的 Store 创建 Manager
//
// cfg.Backend 仅用于日志和指标标签，store 由调用方提供。
func NewManager(store Store, cfg *Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if store == nil {
		return nil, ErrConnectorNil
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	lm, err := newLockMetrics(o.meter, cfg.Backend)
	if err != nil {
		return nil, xerrors.Wrap(err, "create dlock metrics")
	}

	if cfg.Breaker != nil && cfg.Breaker.Enabled {
		store = NewBreakerStore(store, cfg.Breaker, o.logger)
	}

	return &Manager{
		store:          store,
		backend:        cfg.Backend,
		prefix:         cfg.Prefix,
		defaultTTL:     cfg.DefaultTTL,
		retryInterval:  cfg.RetryInterval,
		releaseTimeout: cfg.ReleaseTimeout,
		logger:         o.logger.With(clog.String("backend", string(cfg.Backend))),
		metrics:        lm,
		tracer:         o.tracer,
		newToken:       o.newToken,
	}, nil
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	if o.newToken == nil {
		o.newToken = uuid.NewString
	}
	return o
}

// Prefix 返回 key 的命名空间前缀
func (m *Manager) Prefix() string {
	return m.prefix
}

// DefaultTTL 返回未指定 TTL 时使用的租约时长
func (m *Manager) DefaultTTL() time.Duration {
	return m.defaultTTL
}

// Backend 返回后端类型
func (m *Manager) Backend() BackendType {
	return m.backend
}

// TryAcquire 对 key 做一次原子的条件写入
//
// 成功返回 Lease；key 已被持有时返回 ErrAcquisitionFailed，这是正常的竞争结果。
// ttl 必须为正数，etcd 后端会向上取整到秒。存储故障返回 ErrStore，context 结束返回 ErrCanceled。
func (m *Manager) TryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	lease, err := m.tryAcquire(ctx, key, ttl)
	if err != nil {
		m.metrics.recordFailed(ctx, failureReason(err), 1)
		return nil, err
	}
	m.metrics.recordAcquired(ctx, 1)
	return lease, nil
}

func (m *Manager) tryAcquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error) {
	if key == "" {
		return nil, newLockError("acquire", key, ErrInvalidSpec, xerrors.New("empty key"))
	}
	if ttl <= 0 {
		return nil, newLockError("acquire", key, ErrInvalidSpec, xerrors.New("ttl must be positive"))
	}
	if err := ctx.Err(); err != nil {
		return nil, newLockError("acquire", key, ErrCanceled, err)
	}

	token := Token(m.newToken())
	ok, err := m.store.ConditionalSet(ctx, key, string(token), ttl)
	if err != nil {
		return nil, newLockError("acquire", key, classifyStoreErr(err), err)
	}
	if !ok {
		m.logger.DebugContext(ctx, "lock contended", clog.String("key", key))
		return nil, newLockError("acquire", key, ErrAcquisitionFailed, nil)
	}

	m.logger.InfoContext(ctx, "lock acquired",
		clog.String("key", key),
		clog.String("token", string(token)),
		clog.Duration("ttl", ttl))
	return &Lease{Key: key, Token: token, TTL: ttl, AcquiredAt: time.Now()}, nil
}

// Release 仅当 key 当前仍由 token 持有时删除它
//
// 返回 true 表示确实删除了锁。令牌不匹配（锁已过期并被他人获取）或 key 不存在时
// 返回 (false, nil)，这是预期内的结果而非故障。只有存储不可达才返回 ErrReleaseFailed。
func (m *Manager) Release(ctx context.Context, key string, token Token) (bool, error) {
	return m.release(ctx, key, token, time.Time{})
}

// ReleaseLease 释放 lease，并记录持有时长
func (m *Manager) ReleaseLease(ctx context.Context, lease *Lease) (bool, error) {
	if lease == nil {
		return false, nil
	}
	return m.release(ctx, lease.Key, lease.Token, lease.AcquiredAt)
}

func (m *Manager) release(ctx context.Context, key string, token Token, acquiredAt time.Time) (bool, error) {
	var held time.Duration
	if !acquiredAt.IsZero() {
		held = time.Since(acquiredAt)
	}

	deleted, err := m.store.CompareAndDelete(ctx, key, string(token))
	if err != nil {
		m.metrics.recordReleased(ctx, outcomeError, held)
		m.logger.WarnContext(ctx, "lock release failed",
			clog.String("key", key),
			clog.String("reason", "store error"),
			clog.Error(err))
		return false, newLockError("release", key, ErrReleaseFailed, err)
	}
	if deleted == 0 {
		m.metrics.recordReleased(ctx, outcomeLost, held)
		m.logger.WarnContext(ctx, "lock release failed",
			clog.String("key", key),
			clog.String("token", string(token)),
			clog.String("reason", "not held by token"))
		return false, nil
	}

	m.metrics.recordReleased(ctx, outcomeReleased, held)
	m.logger.InfoContext(ctx, "lock released",
		clog.String("key", key),
		clog.Duration("held", held))
	return true, nil
}

// releaseDetached 在脱离调用方取消信号的 context 上释放 lease
func (m *Manager) releaseDetached(ctx context.Context, lease *Lease) bool {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.releaseTimeout)
	defer cancel()
	ok, _ := m.ReleaseLease(rctx, lease)
	return ok
}

func classifyStoreErr(err error) error {
	if xerrors.Is(err, context.Canceled) || xerrors.Is(err, context.DeadlineExceeded) {
		return ErrCanceled
	}
	return ErrStore
}

func failureReason(err error) string {
	switch {
	case xerrors.Is(err, ErrAcquisitionFailed):
		return reasonContended
	case xerrors.Is(err, ErrLockTimeout):
		return reasonTimeout
	case xerrors.Is(err, ErrCanceled):
		return reasonCanceled
	case xerrors.Is(err, ErrInvalidSpec):
		return reasonInvalid
	default:
		return reasonStore
	}
}
