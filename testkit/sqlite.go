package testkit

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keylock/connector"
)

// NewSQLiteConfig 返回临时目录中的 SQLite 配置，测试结束后文件随目录删除
func NewSQLiteConfig(t *testing.T) *connector.SQLiteConfig {
	t.Helper()
	return &connector.SQLiteConfig{
		Name: "test-sqlite",
		Path: filepath.Join(t.TempDir(), "keylock.db"),
	}
}

// NewSQLiteConnector 获取已连接的 SQLite 连接器，生命周期由 t.Cleanup 管理
func NewSQLiteConnector(t *testing.T) connector.SQLConnector {
	t.Helper()
	conn, err := connector.NewSQLite(NewSQLiteConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create sqlite connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to sqlite")

	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
