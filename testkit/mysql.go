package testkit

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keylock/connector"
)

// MySQLDSNEnv 指定测试用 MySQL DSN 的环境变量
//
// 例如 root:secret@tcp(127.0.0.1:3306)/keylock?parseTime=true，
// DSN 中不要开启 clientFoundRows。
const MySQLDSNEnv = "KEYLOCK_TEST_MYSQL_DSN"

// NewMySQLConnector 获取已连接的 MySQL 连接器，未设置 KEYLOCK_TEST_MYSQL_DSN 时跳过测试
func NewMySQLConnector(t *testing.T) connector.SQLConnector {
	t.Helper()
	dsn := os.Getenv(MySQLDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set", MySQLDSNEnv)
	}

	conn, err := connector.NewMySQL(&connector.MySQLConfig{
		Name: "test-mysql",
		DSN:  dsn,
	}, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create mysql connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to mysql")

	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
