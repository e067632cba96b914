package metrics

// Label 指标标签
//
// 标签值应保持低基数：锁的 key 由调用参数拼接而成，不要直接作为标签值。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数
//
//	counter.Inc(ctx, metrics.L("backend", "redis"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

const (
	// 常见的标签
	LabelService = "service"
	LabelBackend = "backend"
	LabelOutcome = "outcome"
	LabelReason  = "reason"
)

const (
	// 常见的结果
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)
