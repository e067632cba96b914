package trace

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// LockMeta 描述一次锁操作的标准属性
type LockMeta struct {
	Key     string
	Retry   bool
	Backend string
}

func lockAttributes(meta LockMeta, attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs)+3)
	out = append(out, attribute.String(AttrLockKey, meta.Key), attribute.Bool(AttrLockRetry, meta.Retry))
	if meta.Backend != "" {
		out = append(out, attribute.String(AttrLockBackend, meta.Backend))
	}
	return append(out, attrs...)
}

// StartLockSpan 启动一个锁操作 Span，tracer 为 nil 时使用全局 Provider
func StartLockSpan(
	ctx context.Context,
	tracer oteltrace.Tracer,
	spanName string,
	meta LockMeta,
	attrs ...attribute.KeyValue,
) (context.Context, oteltrace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	if tracer == nil {
		tracer = otel.Tracer("keylock.dlock")
	}
	spanCtx, span := tracer.Start(ctx, spanName, oteltrace.WithSpanKind(oteltrace.SpanKindInternal))
	span.SetAttributes(lockAttributes(meta, attrs...)...)
	return spanCtx, span
}

// MarkSpanError 记录并将 Span 标记为错误，当 err 不为 nil 时
func MarkSpanError(span oteltrace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Inject 将 ctx 中的 trace 上下文写入 carrier
func Inject(ctx context.Context, carrier map[string]string) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(carrier))
}

// Extract 从 carrier 恢复 trace 上下文
func Extract(ctx context.Context, carrier map[string]string) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(carrier))
}

// InjectEnv 将 trace 上下文编码为环境变量（TRACEPARENT、TRACESTATE、BAGGAGE），
// 供子进程继续同一条链路
func InjectEnv(ctx context.Context) []string {
	carrier := map[string]string{}
	Inject(ctx, carrier)
	env := make([]string, 0, len(carrier))
	for k, v := range carrier {
		env = append(env, strings.ToUpper(k)+"="+v)
	}
	return env
}
