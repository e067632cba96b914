package dlock

import (
	"context"
	"time"
)

// Store 锁依赖的最小键值存储能力，两个操作都必须是原子的
type Store interface {
	// ConditionalSet 仅当 key 不存在时写入 value 并设置 ttl 过期，返回是否写入成功
	//
	// 已过期的条目视为不存在。锁被占用时返回 (false, nil)，只有存储故障才返回 error。
	ConditionalSet(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// CompareAndDelete 仅当 key 当前值等于 expected 时删除，返回删除的条目数（0 或 1）
	CompareAndDelete(ctx context.Context, key, expected string) (int64, error)
}
