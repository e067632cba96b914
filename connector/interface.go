// Package connector 管理 keylock 存储后端的连接生命周期：Redis、Etcd、SQLite、MySQL。
//
// 设计约定：
//   - NewXXX() 只校验配置并创建连接器，Connect() 时才真正建立连接
//   - Connect() 幂等，可安全重复调用
//   - 连接器拥有底层客户端的生命周期，dlock 等组件只借用客户端，不调用 Close()
//
// 基本使用：
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{
//		Addr: "127.0.0.1:6379",
//	}, connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//
//	locker, err := dlock.New(&dlock.Config{Backend: dlock.BackendRedis},
//		dlock.WithRedisConnector(conn))
//
// 应用层应按照 LIFO 顺序释放资源：先关闭依赖 Connector 的组件，再关闭 Connector。
package connector

import (
	"context"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"gorm.io/gorm"
)

// Connector 定义所有连接器的通用行为，方法均为并发安全
type Connector interface {
	// Connect 建立连接，幂等
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源，幂等
	Close() error

	// HealthCheck 发送测试请求验证连接可用性，并更新 IsHealthy 的缓存结果
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最后一次检查的结果，无阻塞
	IsHealthy() bool

	// Name 返回连接实例名称，用于日志和指标
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
//
// 在 Connect() 之前或 Close() 之后调用 GetClient 可能返回 nil。
type TypedConnector[T any] interface {
	Connector
	GetClient() T
}

// RedisConnector Redis 连接器
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// EtcdConnector Etcd 连接器
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}

// SQLConnector 基于 GORM 的关系型数据库连接器，SQLite 与 MySQL 共用
type SQLConnector interface {
	TypedConnector[*gorm.DB]

	// Dialect 返回方言名称："sqlite" 或 "mysql"
	Dialect() string
}
