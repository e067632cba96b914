// Package testkit 为各组件的测试提供统一的依赖构造：日志、指标、上下文、存储连接器。
//
// Redis 测试运行在进程内的 miniredis 上，SQLite 测试使用临时目录中的数据库文件，
// 二者都不需要外部服务。Etcd 测试需要设置 KEYLOCK_TEST_ETCD_ENDPOINTS，否则跳过。
package testkit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/metrics"
)

// Kit 包含通用的测试依赖
type Kit struct {
	Ctx    context.Context
	Logger clog.Logger
	Meter  metrics.Meter
}

// NewKit 返回一个包含默认依赖的测试工具包，Meter 在测试结束时关闭
func NewKit(t *testing.T) *Kit {
	t.Helper()
	meter := NewMeter()
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })
	return &Kit{
		Ctx:    context.Background(),
		Logger: NewLogger(),
		Meter:  meter,
	}
}

// NewLogger 返回一个用于测试的 logger
//
// 默认输出 warn 及以上级别，设置 KEYLOCK_TEST_LOG_LEVEL=debug 可查看完整日志
func NewLogger() clog.Logger {
	cfg := clog.NewDevDefaultConfig()
	cfg.Level = "warn"
	if level := os.Getenv("KEYLOCK_TEST_LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	logger, err := clog.New(cfg)
	if err != nil {
		return clog.Discard()
	}
	return logger
}

// NewMeter 返回一个用于测试的 meter，不启动 HTTP 服务器，可通过 Handler 抓取
func NewMeter() metrics.Meter {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("keylock-test"))
	if err != nil {
		return metrics.Discard()
	}
	return meter
}

// NewContext 返回一个带有超时的测试上下文，测试结束时自动取消
func NewContext(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// NewID 返回一个唯一的测试 ID (UUID v4 前 8 位)
// 用于生成唯一的锁标签值，避免测试间数据冲突
func NewID() string {
	return uuid.New().String()[0:8]
}
