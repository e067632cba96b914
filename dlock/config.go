package dlock

import (
	"time"

	"github.com/ceyewan/keylock/xerrors"
)

// BackendType 定义支持的后端类型
type BackendType string

const (
	BackendRedis  BackendType = "redis"
	BackendEtcd   BackendType = "etcd"
	BackendSQLite BackendType = "sqlite"
	BackendMySQL  BackendType = "mysql"
)

const (
	// DefaultPrefix 锁 key 的默认命名空间
	DefaultPrefix = "distributedLock:"

	// DefaultTTL 未显式指定时的租约时长
	DefaultTTL = 30 * time.Second

	// DefaultWaitTime 开启重试时的默认等待窗口
	DefaultWaitTime = 200 * time.Millisecond

	// DefaultRetryInterval 两次尝试之间的间隔
	DefaultRetryInterval = 5 * time.Millisecond

	// DefaultReleaseTimeout 释放锁的超时，独立于调用方的 context
	DefaultReleaseTimeout = 3 * time.Second
)

// Config 组件静态配置
//
// 典型配置示例（YAML）：
//
//	dlock:
//	  backend: redis
//	  prefix: "distributedLock:"
//	  default_ttl: 30s
//	  retry_interval: 5ms
//	  breaker:
//	    enabled: true
//	    failure_ratio: 0.6
type Config struct {
	// Backend 选择使用的后端 (redis | etcd | sqlite | mysql)，默认 redis
	Backend BackendType `mapstructure:"backend" json:"backend" yaml:"backend"`

	// Prefix 锁 key 的全局前缀，默认 "distributedLock:"
	Prefix string `mapstructure:"prefix" json:"prefix" yaml:"prefix"`

	// DefaultTTL Spec 未指定 TTL 时使用的租约时长，默认 30s
	DefaultTTL time.Duration `mapstructure:"default_ttl" json:"default_ttl" yaml:"default_ttl"`

	// RetryInterval 重试模式下两次尝试之间的间隔，默认 5ms
	RetryInterval time.Duration `mapstructure:"retry_interval" json:"retry_interval" yaml:"retry_interval"`

	// ReleaseTimeout 释放锁的超时，默认 3s
	ReleaseTimeout time.Duration `mapstructure:"release_timeout" json:"release_timeout" yaml:"release_timeout"`

	// Breaker 存储访问的熔断配置，为 nil 或未启用时不包装
	Breaker *BreakerConfig `mapstructure:"breaker" json:"breaker" yaml:"breaker"`
}

// BreakerConfig 存储熔断配置
type BreakerConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`

	// MaxRequests 半开状态允许通过的请求数，默认 1
	MaxRequests uint32 `mapstructure:"max_requests" json:"max_requests" yaml:"max_requests"`

	// Interval 闭合状态下清空计数的周期，0 表示不清空
	Interval time.Duration `mapstructure:"interval" json:"interval" yaml:"interval"`

	// Timeout 打开状态持续多久后进入半开，默认 30s
	Timeout time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`

	// MinRequests 触发熔断判断所需的最少请求数，默认 10
	MinRequests uint32 `mapstructure:"min_requests" json:"min_requests" yaml:"min_requests"`

	// FailureRatio 失败率达到该值时打开熔断器，默认 0.6
	FailureRatio float64 `mapstructure:"failure_ratio" json:"failure_ratio" yaml:"failure_ratio"`
}

func (c *Config) setDefaults() {
	if c.Backend == "" {
		c.Backend = BackendRedis
	}
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = DefaultTTL
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.ReleaseTimeout <= 0 {
		c.ReleaseTimeout = DefaultReleaseTimeout
	}
	if c.Breaker != nil {
		c.Breaker.setDefaults()
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendRedis, BackendEtcd, BackendSQLite, BackendMySQL:
	default:
		return xerrors.Wrapf(ErrInvalidSpec, "unsupported backend: %s", c.Backend)
	}
	if c.Breaker != nil && (c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1) {
		return xerrors.Wrapf(ErrInvalidSpec, "breaker failure_ratio must be in (0, 1], got %v", c.Breaker.FailureRatio)
	}
	return nil
}

func (b *BreakerConfig) setDefaults() {
	if b.MaxRequests == 0 {
		b.MaxRequests = 1
	}
	if b.Timeout <= 0 {
		b.Timeout = 30 * time.Second
	}
	if b.MinRequests == 0 {
		b.MinRequests = 10
	}
	if b.FailureRatio == 0 {
		b.FailureRatio = 0.6
	}
}
