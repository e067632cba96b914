// Package metrics 为 keylock 提供统一的指标收集能力。
// 基于 OpenTelemetry 构建，通过 Prometheus exporter 暴露，接口只保留 Counter、Gauge、Histogram。
//
// 快速开始：
//
//	meter, err := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "order-worker",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	if err != nil {
//	    return err
//	}
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("dlock_lock_acquired_total", "锁获取成功次数")
//	counter.Inc(ctx, metrics.L("backend", "redis"))
//
// Config.Enabled 为 false 时 New 返回 noop 实现，调用方无需判空。
package metrics

import (
	"context"
	"net/http"
)

// Counter 计数器接口，只能增加
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值，负数会被忽略
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘接口，记录可任意增减的瞬时值，例如当前持有的锁数量
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 直方图接口，记录值的分布，例如锁持有时长
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标工厂
//
// 同名指标重复创建会返回同一个底层 instrument，组件可以在构造时创建一次并复用。
type Meter interface {
	Counter(name string, desc string, opts ...MetricOption) (Counter, error)
	Gauge(name string, desc string, opts ...MetricOption) (Gauge, error)
	Histogram(name string, desc string, opts ...MetricOption) (Histogram, error)

	// Handler 返回 Prometheus 抓取用的 http.Handler，noop 实现返回 404 handler
	Handler() http.Handler

	// Shutdown 刷新并关闭指标管道，同时关闭内置的 HTTP 服务器
	Shutdown(ctx context.Context) error
}

// MetricOptions 创建指标时的可选参数
type MetricOptions struct {
	Unit    string
	Buckets []float64
}

// MetricOption 指标选项函数
type MetricOption func(*MetricOptions)

// WithUnit 设置指标单位，例如 "s"、"By"
func WithUnit(unit string) MetricOption {
	return func(o *MetricOptions) {
		o.Unit = unit
	}
}

// WithBuckets 设置直方图的显式分桶边界
func WithBuckets(buckets ...float64) MetricOption {
	return func(o *MetricOptions) {
		o.Buckets = buckets
	}
}
