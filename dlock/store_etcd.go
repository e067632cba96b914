package dlock

import (
	"context"
	"math"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// revokeTimeout 回收未使用租约的时限，调用方取消后仍会尝试回收
const revokeTimeout = 3 * time.Second

type etcdStore struct {
	client *clientv3.Client
}

// NewEtcdStore 基于事务与租约的 Store 实现
//
// 写入时为每个 key 授予独立租约，租约过期后 key 由 etcd 删除。
// etcd 租约以秒为单位，ttl 会向上取整且至少为 1 秒。
func NewEtcdStore(client *clientv3.Client) Store {
	return &etcdStore{client: client}
}

func leaseSeconds(ttl time.Duration) int64 {
	secs := int64(math.Ceil(ttl.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func (s *etcdStore) ConditionalSet(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	lease, err := s.client.Grant(ctx, leaseSeconds(ttl))
	if err != nil {
		return false, err
	}

	resp, err := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
		Then(clientv3.OpPut(key, value, clientv3.WithLease(lease.ID))).
		Commit()
	if err != nil || !resp.Succeeded {
		// 未写入的租约立即回收，避免堆积到过期
		s.revoke(ctx, lease.ID)
		return false, err
	}
	return true, nil
}

func (s *etcdStore) revoke(ctx context.Context, id clientv3.LeaseID) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), revokeTimeout)
	defer cancel()
	_, _ = s.client.Revoke(rctx, id)
}

func (s *etcdStore) CompareAndDelete(ctx context.Context, key, expected string) (int64, error) {
	resp, err := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.Value(key), "=", expected)).
		Then(clientv3.OpDelete(key)).
		Commit()
	if err != nil {
		return 0, err
	}
	if !resp.Succeeded || len(resp.Responses) == 0 {
		return 0, nil
	}
	return resp.Responses[0].GetResponseDeleteRange().Deleted, nil
}
