package testkit

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keylock/connector"
)

// EtcdEndpointsEnv 指定测试用 etcd 地址的环境变量，逗号分隔
const EtcdEndpointsEnv = "KEYLOCK_TEST_ETCD_ENDPOINTS"

// GetEtcdConnector 获取 Etcd 连接器，未设置 KEYLOCK_TEST_ETCD_ENDPOINTS 时跳过测试
func GetEtcdConnector(t *testing.T) connector.EtcdConnector {
	t.Helper()
	endpoints := os.Getenv(EtcdEndpointsEnv)
	if endpoints == "" {
		t.Skipf("%s not set", EtcdEndpointsEnv)
	}

	conn, err := connector.NewEtcd(&connector.EtcdConfig{
		Name:        "test-etcd",
		Endpoints:   strings.Split(endpoints, ","),
		DialTimeout: 5 * time.Second,
	}, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create etcd connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to etcd")

	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}
