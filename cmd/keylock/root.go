package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/config"
	"github.com/ceyewan/keylock/connector"
	"github.com/ceyewan/keylock/dlock"
	"github.com/ceyewan/keylock/metrics"
	"github.com/ceyewan/keylock/trace"
	"github.com/ceyewan/keylock/xerrors"
)

// ExitLockUnavailable 未能获得锁时的退出码 (EX_TEMPFAIL)
const ExitLockUnavailable = 75

// settings 对应 keylock.yaml 的完整结构
//
//	backend: redis
//	log:
//	  level: info
//	dlock:
//	  prefix: "distributedLock:"
//	  default_ttl: 30s
//	redis:
//	  addr: 127.0.0.1:6379
//	metrics:
//	  enabled: true
//	  port: 9090
type settings struct {
	Backend string                 `mapstructure:"backend"`
	Log     clog.Config            `mapstructure:"log"`
	Metrics metrics.Config         `mapstructure:"metrics"`
	Trace   trace.Config           `mapstructure:"trace"`
	DLock   dlock.Config           `mapstructure:"dlock"`
	Redis   connector.RedisConfig  `mapstructure:"redis"`
	Etcd    connector.EtcdConfig   `mapstructure:"etcd"`
	SQLite  connector.SQLiteConfig `mapstructure:"sqlite"`
	MySQL   connector.MySQLConfig  `mapstructure:"mysql"`
}

func defaultSettings() *settings {
	return &settings{
		Log:     clog.Config{Level: "info", Format: "console", Output: "stderr"},
		Metrics: metrics.Config{ServiceName: "keylock"},
		Trace:   *trace.DefaultConfig("keylock"),
		SQLite:  connector.SQLiteConfig{Path: "keylock.db"},
	}
}

// annotationOffline 标记只读取配置、不连接后端的子命令
const annotationOffline = "keylock.offline"

// app 一次命令执行期间共享的依赖
type app struct {
	configFile string
	prefix     string

	logger  clog.Logger
	meter   metrics.Meter
	locker  *dlock.Manager
	closers []func(context.Context) error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "keylock",
		Short:         "Run commands under a distributed lock",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := cmd.Annotations[annotationOffline]; ok {
				return a.setupOffline(cmd)
			}
			if err := a.setup(cmd); err != nil {
				_ = a.close(cmd.Context())
				return err
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ./keylock.yaml or ./config/keylock.yaml)")
	flags.String("backend", "", "lock backend: redis, etcd, sqlite or mysql")
	flags.String("redis-addr", "127.0.0.1:6379", "redis address")
	flags.String("log-level", "info", "log level: debug, info, warn or error")

	root.AddCommand(newExecCmd(a), newReleaseCmd(a), newKeyCmd(a))
	return root
}

// loadSettings 在默认值之上依次合并配置文件、环境变量和命令行参数
func (a *app) loadSettings(cmd *cobra.Command) (*settings, error) {
	loader, err := config.New(&config.Config{
		Name:       "keylock",
		File:       a.configFile,
		EnvPrefix:  "KEYLOCK",
		AllowEmpty: true,
	})
	if err != nil {
		return nil, err
	}
	if err := loader.BindPFlags(cmd.Root().PersistentFlags()); err != nil {
		return nil, err
	}
	if err := loader.Load(cmd.Context()); err != nil {
		return nil, xerrors.Wrap(err, "load config")
	}

	s := defaultSettings()
	if err := loader.Unmarshal(s); err != nil {
		return nil, xerrors.Wrap(err, "decode config")
	}
	return s, nil
}

// setupOffline 只解析 key 前缀，不初始化日志、指标和后端连接
func (a *app) setupOffline(cmd *cobra.Command) error {
	s, err := a.loadSettings(cmd)
	if err != nil {
		return err
	}
	a.prefix = s.DLock.Prefix
	if a.prefix == "" {
		a.prefix = dlock.DefaultPrefix
	}
	return nil
}

// setup 加载配置并按依赖顺序初始化日志、指标、追踪、连接器和锁管理器
func (a *app) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()

	s, err := a.loadSettings(cmd)
	if err != nil {
		return err
	}

	if a.logger, err = clog.New(&s.Log, clog.WithNamespace("keylock")); err != nil {
		return err
	}

	if a.meter, err = metrics.New(&s.Metrics, metrics.WithLogger(a.logger)); err != nil {
		return err
	}
	a.closers = append(a.closers, a.meter.Shutdown)

	shutdownTrace, err := trace.Init(&s.Trace)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, shutdownTrace)

	if s.Backend != "" {
		s.DLock.Backend = dlock.BackendType(s.Backend)
	}
	if s.DLock.Backend == "" {
		s.DLock.Backend = dlock.BackendRedis
	}

	opts, err := a.connect(ctx, s)
	if err != nil {
		return err
	}
	opts = append(opts, dlock.WithLogger(a.logger), dlock.WithMeter(a.meter))

	if a.locker, err = dlock.New(&s.DLock, opts...); err != nil {
		return err
	}
	a.prefix = a.locker.Prefix()
	return nil
}

// connect 创建并连接所选后端的连接器，返回对应的 dlock 选项
func (a *app) connect(ctx context.Context, s *settings) ([]dlock.Option, error) {
	connOpts := []connector.Option{connector.WithLogger(a.logger), connector.WithMeter(a.meter)}

	switch s.DLock.Backend {
	case dlock.BackendRedis:
		conn, err := connector.NewRedis(&s.Redis, connOpts...)
		if err != nil {
			return nil, err
		}
		return []dlock.Option{dlock.WithRedisConnector(conn)}, a.open(ctx, conn)

	case dlock.BackendEtcd:
		conn, err := connector.NewEtcd(&s.Etcd, connOpts...)
		if err != nil {
			return nil, err
		}
		return []dlock.Option{dlock.WithEtcdConnector(conn)}, a.open(ctx, conn)

	case dlock.BackendSQLite:
		conn, err := connector.NewSQLite(&s.SQLite, connOpts...)
		if err != nil {
			return nil, err
		}
		return []dlock.Option{dlock.WithSQLConnector(conn)}, a.open(ctx, conn)

	case dlock.BackendMySQL:
		conn, err := connector.NewMySQL(&s.MySQL, connOpts...)
		if err != nil {
			return nil, err
		}
		return []dlock.Option{dlock.WithSQLConnector(conn)}, a.open(ctx, conn)

	default:
		return nil, fmt.Errorf("unsupported backend %q", s.DLock.Backend)
	}
}

// run 包装子命令，无论成功与否都在返回前释放资源
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if closeErr := a.close(cmd.Context()); closeErr != nil {
			a.logger.Warn("failed to release resources", clog.Error(closeErr))
		}
		return err
	}
}

func (a *app) open(ctx context.Context, conn connector.Connector) error {
	a.closers = append(a.closers, func(context.Context) error { return conn.Close() })
	return conn.Connect(ctx)
}

// close 按创建的逆序释放资源
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](context.WithoutCancel(ctx)))
	}
	a.closers = nil
	return xerrors.Combine(errs...)
}
