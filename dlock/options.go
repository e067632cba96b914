package dlock

import (
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/connector"
	"github.com/ceyewan/keylock/metrics"
)

// Option DLock 组件初始化选项函数
type Option func(*options)

type options struct {
	logger         clog.Logger
	meter          metrics.Meter
	tracer         oteltrace.Tracer
	newToken       func() string
	redisConnector connector.RedisConnector
	etcdConnector  connector.EtcdConnector
	sqlConnector   connector.SQLConnector
}

// WithLogger 注入日志记录器，组件会自动添加 dlock 命名空间
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("dlock")
		}
	}
}

// WithMeter 注入指标收集器
func WithMeter(m metrics.Meter) Option {
	return func(o *options) {
		if m != nil {
			o.meter = m
		}
	}
}

// WithTracer 指定 Guard 使用的 Tracer，默认使用全局 TracerProvider
func WithTracer(t oteltrace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithTokenGenerator 替换默认的 UUID 令牌生成器，令牌必须全局唯一
func WithTokenGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.newToken = fn
		}
	}
}

// WithRedisConnector 注入 Redis 连接器，Backend 为 redis 时必需
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConnector = conn
	}
}

// WithEtcdConnector 注入 Etcd 连接器，Backend 为 etcd 时必需
func WithEtcdConnector(conn connector.EtcdConnector) Option {
	return func(o *options) {
		o.etcdConnector = conn
	}
}

// WithSQLConnector 注入 SQLite 或 MySQL 连接器，Backend 为 sqlite/mysql 时必需
func WithSQLConnector(conn connector.SQLConnector) Option {
	return func(o *options) {
		o.sqlConnector = conn
	}
}
