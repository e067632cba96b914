package dlock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript 只有持有者才能删除，GET 与 DEL 在服务端原子执行
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

type redisStore struct {
	client redis.Cmdable
}

// NewRedisStore 基于 SET NX PX 与 Lua 脚本的 Store 实现
func NewRedisStore(client redis.Cmdable) Store {
	return &redisStore{client: client}
}

func (s *redisStore) ConditionalSet(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *redisStore) CompareAndDelete(ctx context.Context, key, expected string) (int64, error) {
	return releaseScript.Run(ctx, s.client, []string{key}, expected).Int64()
}
