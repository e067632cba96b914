package trace

const (
	// 锁操作的语义属性键
	AttrLockKey     = "lock.key"
	AttrLockRetry   = "lock.retry"
	AttrLockBackend = "lock.backend"
	AttrLockOutcome = "lock.outcome"
)

const (
	// 锁操作的 Span 名称
	SpanNameLockGuard   = "dlock.guard"
	SpanNameLockAcquire = "dlock.acquire"
	SpanNameLockRelease = "dlock.release"
)
