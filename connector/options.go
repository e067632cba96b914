package connector

import (
	"context"

	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/metrics"
)

type options struct {
	logger clog.Logger
	meter  metrics.Meter
}

// Option 配置连接器的选项
type Option func(*options)

// WithLogger 设置日志记录器，自动添加 connector 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("connector")
		}
	}
}

// WithMeter 设置指标收集器
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
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
	return o
}

// connectMetrics 记录连接尝试与当前连接状态
type connectMetrics struct {
	attempts metrics.Counter
	up       metrics.Gauge
	labels   []metrics.Label
}

func newConnectMetrics(meter metrics.Meter, kind, name string) (*connectMetrics, error) {
	attempts, err := meter.Counter("connector_connect_total", "Number of connection attempts by outcome")
	if err != nil {
		return nil, err
	}
	up, err := meter.Gauge("connector_up", "Whether the connector is currently connected")
	if err != nil {
		return nil, err
	}
	return &connectMetrics{
		attempts: attempts,
		up:       up,
		labels:   []metrics.Label{metrics.L("connector", kind), metrics.L("name", name)},
	}, nil
}

func (m *connectMetrics) connected(ctx context.Context, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	m.attempts.Inc(ctx, append([]metrics.Label{metrics.L(metrics.LabelOutcome, outcome)}, m.labels...)...)
	if err == nil {
		m.up.Set(ctx, 1, m.labels...)
	}
}

func (m *connectMetrics) closed() {
	m.up.Set(context.Background(), 0, m.labels...)
}
