package connector

import (
	"fmt"
	"strings"

	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/xerrors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewSQLite 创建 SQLite 连接器
//
// SQLite 只允许一个写者，连接池被限制为单连接，写操作在池上排队而不是返回 "database is locked"。
func NewSQLite(cfg *SQLiteConfig, opts ...Option) (SQLConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "sqlite config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrapf(ErrConfig, "invalid sqlite config: %v", err)
	}

	opt := applyOptions(opts)
	m, err := newConnectMetrics(opt.meter, "sqlite", cfg.Name)
	if err != nil {
		return nil, xerrors.Wrap(err, "create sqlite connector metrics")
	}

	dsn := sqliteDSN(cfg)
	return &gormConnector{
		name:     cfg.Name,
		dialect:  "sqlite",
		tracing:  cfg.EnableTracing,
		open:     func() gorm.Dialector { return sqlite.Open(dsn) },
		tune:     limitSingleConn,
		logger:   opt.logger.With(clog.String("connector", "sqlite"), clog.String("name", cfg.Name)),
		metrics:  m,
		describe: []clog.Field{clog.String("path", cfg.Path)},
	}, nil
}

func sqliteDSN(cfg *SQLiteConfig) string {
	sep := "?"
	if strings.Contains(cfg.Path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", cfg.Path, sep, cfg.BusyTimeout.Milliseconds())
}

func limitSingleConn(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	return nil
}
