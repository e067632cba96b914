package dlock

import (
	"fmt"

	"github.com/ceyewan/keylock/xerrors"
)

var (
	// ErrInvalidSpec 配置或调用参数无效，例如标签与取值数量不一致、TTL 非正数
	ErrInvalidSpec = xerrors.New("dlock: invalid lock spec")

	// ErrAcquisitionFailed 单次尝试时锁已被他人持有
	ErrAcquisitionFailed = xerrors.New("dlock: lock acquisition failed")

	// ErrLockTimeout 重试窗口耗尽仍未获得锁
	ErrLockTimeout = xerrors.New("dlock: lock wait timed out")

	// ErrReleaseFailed 释放锁时存储不可达
	ErrReleaseFailed = xerrors.New("dlock: lock release failed")

	// ErrCanceled 等待锁期间调用方 context 被取消
	ErrCanceled = xerrors.New("dlock: lock wait canceled")

	// ErrStore 存储访问失败（网络、脚本、事务错误），与锁竞争区分
	ErrStore = xerrors.New("dlock: store unavailable")

	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("dlock: config is nil")

	// ErrConnectorNil 所选后端的连接器为空
	ErrConnectorNil = xerrors.New("dlock: connector is nil")
)

// 错误码，可通过 xerrors.GetCode 获取
const (
	CodeInvalidSpec       = "INVALID_SPEC"
	CodeAcquisitionFailed = "ACQUISITION_FAILED"
	CodeLockTimeout       = "LOCK_TIMEOUT"
	CodeReleaseFailed     = "RELEASE_FAILED"
	CodeCanceled          = "CANCELED"
	CodeStore             = "STORE_ERROR"
)

var kindCodes = map[error]string{
	ErrInvalidSpec:       CodeInvalidSpec,
	ErrAcquisitionFailed: CodeAcquisitionFailed,
	ErrLockTimeout:       CodeLockTimeout,
	ErrReleaseFailed:     CodeReleaseFailed,
	ErrCanceled:          CodeCanceled,
	ErrStore:             CodeStore,
}

// LockError 描述一次失败的锁操作
//
// errors.Is 同时匹配 Kind（哨兵错误）和 Err（底层原因）：
//
//	if errors.Is(err, dlock.ErrLockTimeout) { ... }
type LockError struct {
	Op   string // "compose" | "acquire" | "release"
	Key  string
	Kind error
	Err  error
}

func (e *LockError) Error() string {
	msg := fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LockError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ErrorCode 返回机器可读的错误码
func (e *LockError) ErrorCode() string {
	return kindCodes[e.Kind]
}

func newLockError(op, key string, kind, cause error) *LockError {
	return &LockError{Op: op, Key: key, Kind: kind, Err: cause}
}
