package dlock

import (
	"context"

	"github.com/ceyewan/keylock/trace"
	"github.com/ceyewan/keylock/xerrors"
)

var errOperationPanicked = xerrors.New("dlock: guarded operation panicked")

// Guard 把一个操作包装成"组合 key、获取锁、执行、释放锁"的受保护调用
//
// 获取成功后，无论操作正常返回、返回错误还是 panic，锁都恰好释放一次。
// 释放在脱离调用方取消信号的 context 上进行，结果只记录日志和指标，
// 不会覆盖操作本身的返回值或错误。
type Guard struct {
	m *Manager
}

// NewGuard 创建绑定到 m 的 Guard
func NewGuard(m *Manager) *Guard {
	return &Guard{m: m}
}

// Manager 返回底层的 Manager
func (g *Guard) Manager() *Manager {
	return g.m
}

// Run 在锁保护下执行 fn，values 与 spec.KeyLabels 一一对应
//
//	err := guard.Run(ctx, dlock.NewSpec("order"), []string{orderID}, func(ctx context.Context) error {
//	    return ship(ctx, orderID)
//	})
func (g *Guard) Run(ctx context.Context, spec Spec, values []string, fn func(context.Context) error) error {
	_, err := Do(ctx, g, spec, values, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do 是 Run 的带返回值版本
func Do[R any](ctx context.Context, g *Guard, spec Spec, values []string, fn func(context.Context) (R, error)) (result R, err error) {
	if err := spec.validate(); err != nil {
		g.m.metrics.recordFailed(ctx, reasonInvalid, 0)
		return result, newLockError("compose", "", ErrInvalidSpec, err)
	}
	key, err := ComposeKey(g.m.prefix, spec.KeyLabels, values)
	if err != nil {
		g.m.metrics.recordFailed(ctx, reasonInvalid, 0)
		return result, err
	}

	ctx, span := trace.StartLockSpan(ctx, g.m.tracer, trace.SpanNameLockGuard, trace.LockMeta{
		Key:     key,
		Retry:   spec.IsRetry,
		Backend: string(g.m.backend),
	})
	returned := false
	defer func() {
		// fn panic 时 span 也要标记为失败，panic 本身继续向上传播
		if !returned {
			trace.MarkSpanError(span, errOperationPanicked)
		}
		span.End()
	}()

	lease, err := g.m.Acquire(ctx, key, spec.TTL, spec.retryPolicy(g.m.retryInterval))
	if err != nil {
		returned = true
		trace.MarkSpanError(span, err)
		return result, err
	}
	defer g.m.releaseDetached(ctx, lease)

	result, err = fn(ctx)
	returned = true
	trace.MarkSpanError(span, err)
	return result, err
}

// Wrap 把 op 包装成受保护的函数，keyFn 从参数中提取与 spec.KeyLabels 对应的取值
//
//	type Transfer struct{ From, To string }
//
//	transfer := dlock.Wrap(guard, dlock.NewSpec("from", "to"),
//	    func(t Transfer) []string { return []string{t.From, t.To} },
//	    func(ctx context.Context, t Transfer) (Receipt, error) { ... })
//
//	receipt, err := transfer(ctx, Transfer{From: "a", To: "b"})
func Wrap[P, R any](g *Guard, spec Spec, keyFn func(P) []string, op func(context.Context, P) (R, error)) func(context.Context, P) (R, error) {
	return func(ctx context.Context, p P) (R, error) {
		return Do(ctx, g, spec, keyFn(p), func(ctx context.Context) (R, error) {
			return op(ctx, p)
		})
	}
}
