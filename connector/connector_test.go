package connector

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/keylock/metrics"
	"github.com/ceyewan/keylock/xerrors"
)

// TestRedisConfigValidation 测试 Redis 配置验证
func TestRedisConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *RedisConfig
		wantErr     bool
		errContains string
	}{
		{name: "valid config with defaults", cfg: &RedisConfig{Addr: "localhost:6379"}},
		{name: "empty address should fail", cfg: &RedisConfig{}, wantErr: true, errContains: "地址不能为空"},
		{name: "negative DB should fail", cfg: &RedisConfig{Addr: "localhost:6379", DB: -1}, wantErr: true, errContains: "数据库编号不能小于0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "default", tt.cfg.Name)
			assert.Equal(t, 10, tt.cfg.PoolSize)
			assert.Equal(t, 5*time.Second, tt.cfg.ConnectTimeout)
		})
	}
}

func TestSQLConfigValidation(t *testing.T) {
	require.Error(t, (&SQLiteConfig{}).validate())
	require.NoError(t, (&SQLiteConfig{Path: ":memory:"}).validate())

	require.NoError(t, (&MySQLConfig{DSN: "root:pw@tcp(db:3306)/locks"}).validate())
	require.Error(t, (&MySQLConfig{Host: "db", Username: "root"}).validate())

	cfg := &MySQLConfig{Host: "db", Username: "root", Password: "pw", Database: "locks"}
	require.NoError(t, cfg.validate())
	assert.Equal(t, "root:pw@tcp(db:3306)/locks?charset=utf8mb4&parseTime=True&loc=Local", cfg.dsn())
}

func TestEtcdConfigValidation(t *testing.T) {
	require.Error(t, (&EtcdConfig{}).validate())
	cfg := &EtcdConfig{Endpoints: []string{"127.0.0.1:2379"}}
	require.NoError(t, cfg.validate())
	assert.Equal(t, 10*time.Second, cfg.KeepAliveTime)
}

func TestNilConfig(t *testing.T) {
	_, err := NewRedis(nil)
	assert.ErrorIs(t, err, ErrConfig)
	_, err = NewEtcd(nil)
	assert.ErrorIs(t, err, ErrConfig)
	_, err = NewSQLite(nil)
	assert.ErrorIs(t, err, ErrConfig)
	_, err = NewMySQL(nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRedisConnector(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	conn, err := NewRedis(&RedisConfig{Name: "locks", Addr: mr.Addr(), EnableTracing: true})
	require.NoError(t, err)
	assert.Equal(t, "locks", conn.Name())
	assert.False(t, conn.IsHealthy())

	require.NoError(t, conn.Connect(ctx))
	require.NoError(t, conn.Connect(ctx))
	assert.True(t, conn.IsHealthy())

	require.NoError(t, conn.GetClient().Set(ctx, "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, conn.HealthCheck(ctx))

	mr.Close()
	err = conn.HealthCheck(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHealthCheck)
	assert.False(t, conn.IsHealthy())

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
}

func TestRedisConnector_ConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	conn, err := NewRedis(&RedisConfig{Addr: addr, ConnectTimeout: 500 * time.Millisecond, DialTimeout: 200 * time.Millisecond})
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrConnection))
}

func TestSQLiteConnector(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "locks.db")

	conn, err := NewSQLite(&SQLiteConfig{Path: path, EnableTracing: true})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", conn.Dialect())
	assert.Nil(t, conn.GetClient())

	err = conn.HealthCheck(ctx)
	assert.ErrorIs(t, err, ErrClientNil)

	require.NoError(t, conn.Connect(ctx))
	require.NoError(t, conn.Connect(ctx))
	require.NotNil(t, conn.GetClient())
	require.NoError(t, conn.HealthCheck(ctx))
	assert.True(t, conn.IsHealthy())

	sqlDB, err := conn.GetClient().DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	_, err = os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.Nil(t, conn.GetClient())
	assert.False(t, conn.IsHealthy())
}

func TestConnectorMetrics(t *testing.T) {
	meter, err := metrics.New(metrics.NewDevDefaultConfig("connector-test"))
	require.NoError(t, err)
	defer meter.Shutdown(context.Background())

	mr := miniredis.RunT(t)
	conn, err := NewRedis(&RedisConfig{Addr: mr.Addr()}, WithMeter(meter))
	require.NoError(t, err)
	require.NoError(t, conn.Connect(context.Background()))
	defer conn.Close()

	rec := httptest.NewRecorder()
	meter.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), "connector_connect_total"))
	assert.True(t, strings.Contains(string(body), `connector="redis"`))
}

// TestEtcdConnector 需要真实的 etcd，设置 KEYLOCK_TEST_ETCD_ENDPOINTS 后运行
func TestEtcdConnector(t *testing.T) {
	endpoints := os.Getenv("KEYLOCK_TEST_ETCD_ENDPOINTS")
	if endpoints == "" {
		t.Skip("KEYLOCK_TEST_ETCD_ENDPOINTS not set")
	}

	conn, err := NewEtcd(&EtcdConfig{Endpoints: strings.Split(endpoints, ",")})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Connect(context.Background()))
	assert.True(t, conn.IsHealthy())
	require.NoError(t, conn.HealthCheck(context.Background()))
}
