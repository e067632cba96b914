package dlock

import (
	"fmt"
	"time"
)

// Spec 一次受保护调用的锁声明
//
//	spec := dlock.Spec{
//	    KeyLabels: []string{"order", "user"},
//	    IsRetry:   true,
//	    WaitTime:  time.Second,
//	}
type Spec struct {
	// KeyLabels 参与 key 拼接的标签，顺序即拼接顺序
	KeyLabels []string

	// IsRetry 是否在 WaitTime 窗口内重试，默认只尝试一次
	IsRetry bool

	// WaitTime 重试窗口，0 表示 200ms
	WaitTime time.Duration

	// TTL 租约时长，0 表示使用 Config.DefaultTTL
	//
	// etcd 后端的租约以整秒计：TTL 向上取整且至少 1 秒，例如 100ms 实际持有 1s，
	// 1500ms 实际持有 2s。Redis 与 SQL 后端精确到毫秒。
	TTL time.Duration
}

// NewSpec 返回使用默认值的 Spec
func NewSpec(labels ...string) Spec {
	return Spec{KeyLabels: labels, WaitTime: DefaultWaitTime}
}

func (s Spec) validate() error {
	if s.TTL < 0 {
		return fmt.Errorf("negative ttl %s", s.TTL)
	}
	if s.WaitTime < 0 {
		return fmt.Errorf("negative wait time %s", s.WaitTime)
	}
	return nil
}

func (s Spec) retryPolicy(interval time.Duration) RetryPolicy {
	if !s.IsRetry {
		return NoRetry
	}
	wait := s.WaitTime
	if wait == 0 {
		wait = DefaultWaitTime
	}
	return RetryPolicy{Enabled: true, WaitTime: wait, Interval: interval}
}
