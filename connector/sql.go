package connector

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ceyewan/keylock/clog"
	"github.com/ceyewan/keylock/xerrors"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormConnector SQLite 与 MySQL 共用的 GORM 连接器实现
type gormConnector struct {
	name     string
	dialect  string
	tracing  bool
	open     func() gorm.Dialector
	tune     func(db *gorm.DB) error
	logger   clog.Logger
	metrics  *connectMetrics
	healthy  atomic.Bool
	mu       sync.RWMutex
	db       *gorm.DB
	describe []clog.Field
}

// Connect 打开数据库并 Ping，幂等
func (c *gormConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db != nil {
		return nil
	}

	c.logger.Info("attempting to connect to "+c.dialect, c.describe...)

	db, err := c.connect(ctx)
	c.metrics.connected(ctx, err)
	if err != nil {
		c.logger.Error("failed to connect to "+c.dialect, clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "%s connector[%s]: %v", c.dialect, c.name, err)
	}

	c.db = db
	c.healthy.Store(true)
	c.logger.Info("successfully connected to "+c.dialect, c.describe...)
	return nil
}

func (c *gormConnector) connect(ctx context.Context) (*gorm.DB, error) {
	db, err := gorm.Open(c.open(), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if c.tracing {
		if err := db.Use(otelgorm.NewPlugin()); err != nil {
			return nil, xerrors.Wrap(err, "install otelgorm plugin")
		}
	}
	if c.tune != nil {
		if err := c.tune(db); err != nil {
			return nil, err
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func (c *gormConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthy.Store(false)
	if c.db == nil {
		return nil
	}
	c.metrics.closed()

	sqlDB, err := c.db.DB()
	c.db = nil
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		c.logger.Error("failed to close "+c.dialect+" connection", clog.Error(err))
		return err
	}
	c.logger.Info(c.dialect + " connection closed")
	return nil
}

func (c *gormConnector) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	db := c.db
	c.mu.RUnlock()

	if db == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "%s connector[%s]", c.dialect, c.name)
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.healthy.Store(false)
		c.logger.Warn(c.dialect+" health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "%s connector[%s]: %v", c.dialect, c.name, err)
	}

	c.healthy.Store(true)
	return nil
}

func (c *gormConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *gormConnector) Name() string {
	return c.name
}

func (c *gormConnector) Dialect() string {
	return c.dialect
}

func (c *gormConnector) GetClient() *gorm.DB {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.db
}
