package testkit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keylock/connector"
)

// NewRedisConnector 启动一个 miniredis 并返回已连接的 Redis 连接器
//
// 返回的 *miniredis.Miniredis 可用于检查数据或通过 FastForward 推进 TTL。
// 二者的生命周期都由 t.Cleanup 管理。
func NewRedisConnector(t *testing.T) (connector.RedisConnector, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	conn, err := connector.NewRedis(&connector.RedisConfig{
		Name: "test-redis",
		Addr: mr.Addr(),
	}, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to miniredis")

	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn, mr
}
