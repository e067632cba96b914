// Package clog 为 keylock 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间，组件注入 Logger 时自动追加自己的命名空间
//   - 支持从 Context 中提取字段（如 trace_id、request_id）
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{Level: "info", Format: "json", Output: "stdout"})
//	logger.Info("lock acquired", clog.String("key", key))
//
// 创建子 Logger：
//
//	lockLogger := logger.WithNamespace("dlock")
//	lockLogger.With(clog.String("backend", "redis")).Info("ready")
package clog

import "context"

// Logger 日志接口，提供结构化日志记录功能
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// 带 Context 的版本会按 WithContextField 配置的规则提取字段
	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger
	//
	// 示例：
	//   logger.WithNamespace("keylock").WithNamespace("dlock")
	//   // namespace=keylock.dlock
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，对共享同一 handler 的所有子 Logger 生效
	SetLevel(level Level) error

	// Flush 强制同步所有缓冲区的日志
	Flush()
}
