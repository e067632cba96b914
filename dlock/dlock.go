// Package dlock 提供基于共享存储的分布式互斥锁。
//
// 多个进程之间不共享内存，只通过同一个存储协调：获取锁是一次原子的条件写入
// （key 不存在时写入随机令牌并设置 TTL），释放锁是一次原子的比较删除
// （值等于自己的令牌时才删除）。TTL 是持有者崩溃时唯一的兜底。
//
// 支持的后端：
//   - redis:  SET NX PX + Lua 比较删除
//   - etcd:   租约 + 事务
//   - sqlite / mysql: 租约表 + 过期时间列
//
// 基本使用：
//
//	conn, _ := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"})
//	_ = conn.Connect(ctx)
//	defer conn.Close()
//
//	locker, err := dlock.New(&dlock.Config{Backend: dlock.BackendRedis},
//	    dlock.WithRedisConnector(conn),
//	    dlock.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//
//	guard := locker.Guard()
//	err = guard.Run(ctx, dlock.NewSpec("order"), []string{orderID}, func(ctx context.Context) error {
//	    return ship(ctx, orderID)
//	})
//	switch {
//	case errors.Is(err, dlock.ErrAcquisitionFailed), errors.Is(err, dlock.ErrLockTimeout):
//	    // 其他进程正在处理
//	}
//
// 锁不可重入，也不保证公平性：竞争时谁的条件写入先到达存储谁就获胜。
package dlock

import (
	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/xerrors"
)

// New 根据 cfg.Backend 从注入的连接器创建 Manager
//
// 连接器必须已经 Connect，Manager 只借用其客户端，不负责关闭。
func New(cfg *Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	store, err := newStore(cfg.Backend, o)
	if err != nil {
		return nil, err
	}

	m, err := NewManager(store, cfg, opts...)
	if err != nil {
		return nil, err
	}
	o.logger.Info("dlock initialized",
		clog.String("backend", string(cfg.Backend)),
		clog.String("prefix", cfg.Prefix))
	return m, nil
}

func newStore(backend BackendType, o *options) (Store, error) {
	switch backend {
	case BackendRedis:
		if o.redisConnector == nil || o.redisConnector.GetClient() == nil {
			return nil, xerrors.Wrap(ErrConnectorNil, "redis")
		}
		return NewRedisStore(o.redisConnector.GetClient()), nil

	case BackendEtcd:
		if o.etcdConnector == nil || o.etcdConnector.GetClient() == nil {
			return nil, xerrors.Wrap(ErrConnectorNil, "etcd")
		}
		return NewEtcdStore(o.etcdConnector.GetClient()), nil

	case BackendSQLite, BackendMySQL:
		if o.sqlConnector == nil || o.sqlConnector.GetClient() == nil {
			return nil, xerrors.Wrapf(ErrConnectorNil, "%s", backend)
		}
		if o.sqlConnector.Dialect() != string(backend) {
			return nil, xerrors.Wrapf(ErrInvalidSpec, "backend %s but connector dialect %s",
				backend, o.sqlConnector.Dialect())
		}
		store, err := NewSQLStore(o.sqlConnector.GetClient())
		if err != nil {
			return nil, xerrors.Wrap(err, "migrate lease table")
		}
		return store, nil

	default:
		return nil, xerrors.Wrapf(ErrInvalidSpec, "unsupported backend: %s", backend)
	}
}

// Guard 返回绑定到 m 的 Guard
func (m *Manager) Guard() *Guard {
	return NewGuard(m)
}
