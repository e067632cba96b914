package connector

import (
	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/xerrors"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL 创建 MySQL 连接器
func NewMySQL(cfg *MySQLConfig, opts ...Option) (SQLConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "mysql config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(ErrConfig, "invalid mysql config: %v", err)
	}

	opt := applyOptions(opts)
	m, err := newConnectMetrics(opt.meter, "mysql", cfg.Name)
	if err != nil {
		return nil, xerrors.Wrap(err, "create mysql connector metrics")
	}

	dsn := cfg.dsn()
	return &gormConnector{
		name:    cfg.Name,
		dialect: "mysql",
		tracing: cfg.EnableTracing,
		open:    func() gorm.Dialector { return mysql.Open(dsn) },
		tune: func(db *gorm.DB) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
			sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
			return nil
		},
		logger:   opt.logger.With(clog.String("connector", "mysql"), clog.String("name", cfg.Name)),
		metrics:  m,
		describe: []clog.Field{clog.String("host", cfg.Host), clog.Int("port", cfg.Port), clog.String("database", cfg.Database)},
	}, nil
}
