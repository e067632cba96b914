package dlock

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// leaseRecord 锁租约表的一行
type leaseRecord struct {
	LockKey   string `gorm:"column:lock_key;primaryKey;size:255"`
	Token     string `gorm:"column:token;size:64;not null"`
	ExpiresAt int64  `gorm:"column:expires_at;not null;index"` // unix 毫秒
}

func (leaseRecord) TableName() string {
	return "keylock_leases"
}

// mysqlUpsert 单条语句完成"不存在或已过期则写入"
//
// 赋值从左到右求值，第二个 IF 读到的仍是旧的 expires_at。
// 未写入时影响行数为 0，插入为 1，覆盖过期行为 2。
// DSN 中不能开启 clientFoundRows，否则未修改的行也计为 1。
const mysqlUpsert = "INSERT INTO keylock_leases (lock_key, token, expires_at) VALUES (?, ?, ?) " +
	"ON DUPLICATE KEY UPDATE " +
	"token = IF(expires_at <= ?, VALUES(token), token), " +
	"expires_at = IF(expires_at <= ?, VALUES(expires_at), expires_at)"

// InnoDB 锁冲突错误码，出现在同一 key 的并发写入上
const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

type sqlStore struct {
	db      *gorm.DB
	dialect string
	now     func() time.Time
}

// NewSQLStore 基于关系型数据库的 Store 实现，支持 SQLite 与 MySQL
//
// 过期时间以列的形式保存，过期行与不存在的行等价：写入时覆盖同 key 的过期行，
// 删除时要求未过期。会自动迁移 keylock_leases 表。
func NewSQLStore(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&leaseRecord{}); err != nil {
		return nil, err
	}
	return &sqlStore{db: db, dialect: db.Dialector.Name(), now: time.Now}, nil
}

func (s *sqlStore) ConditionalSet(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if s.dialect == string(BackendMySQL) {
		return s.conditionalSetMySQL(ctx, key, value, ttl)
	}

	var inserted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()
		if err := tx.Where("lock_key = ? AND expires_at <= ?", key, now.UnixMilli()).
			Delete(&leaseRecord{}).Error; err != nil {
			return err
		}

		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&leaseRecord{
			LockKey:   key,
			Token:     value,
			ExpiresAt: now.Add(ttl).UnixMilli(),
		})
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return inserted, nil
}

// conditionalSetMySQL 避免先删后插：REPEATABLE READ 下两个事务对同一空 key 的
// DELETE 各自持有间隙锁，随后的 INSERT 互相等待形成死锁
func (s *sqlStore) conditionalSetMySQL(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	now := s.now().UnixMilli()
	res := s.db.WithContext(ctx).Exec(mysqlUpsert, key, value, now+ttl.Milliseconds(), now, now)
	if res.Error != nil {
		if isLockConflict(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// isLockConflict 判断错误是否只是并发写入同一 key 的锁冲突
func isLockConflict(err error) bool {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == mysqlErrDeadlock || myErr.Number == mysqlErrLockWaitTimeout
}

func (s *sqlStore) CompareAndDelete(ctx context.Context, key, expected string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("lock_key = ? AND token = ? AND expires_at > ?", key, expected, s.now().UnixMilli()).
		Delete(&leaseRecord{})
	return res.RowsAffected, res.Error
}
