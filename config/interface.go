// Package config 为 keylock 提供统一的配置加载能力，基于 Viper 实现。
//
// 特性：
//   - 多源配置加载：YAML/JSON 文件、环境变量、.env 文件、命令行 flag
//   - 配置优先级：flag > 环境变量 > .env > 环境特定配置 > 基础配置
//   - 热更新支持：监听配置文件变化并通知订阅者
//
// 基本使用：
//
//	loader, err := config.New(&config.Config{
//		Name:      "keylock",
//		Paths:     []string{".", "/etc/keylock"},
//		EnvPrefix: "KEYLOCK",
//	})
//	if err != nil {
//		return err
//	}
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//
//	var cfg dlock.Config
//	if err := loader.UnmarshalKey("dlock", &cfg); err != nil {
//		return err
//	}
package config

import (
	"context"
	"time"

	"github.com/spf13/pflag"
)

// Loader 定义配置加载器的核心行为
// 职责：加载、解析和监听配置变化
type Loader interface {
	// Load 加载配置并初始化内部状态
	Load(ctx context.Context) error

	// BindPFlags 绑定命令行 flag，flag 名中的 "-" 会映射为配置 key 中的 "."
	// 需要在 Load 之前调用
	BindPFlags(fs *pflag.FlagSet) error

	// Get 获取原始配置值
	Get(key string) any

	// GetString 获取字符串配置值
	GetString(key string) string

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听配置变化，通过 context 取消监听
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 验证当前配置的有效性
	Validate() error
}

// Event 配置变更事件
type Event struct {
	Key       string // 配置 key
	Value     any    // 新值
	OldValue  any    // 旧值
	Source    string // "file" | "env"
	Timestamp time.Time
}
