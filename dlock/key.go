package dlock

import (
	"fmt"
	"strings"
)

// ComposeKey 按顺序拼接 label_value 片段并加上前缀
//
//	ComposeKey("distributedLock:", []string{"order", "user"}, []string{"42", "7"})
//	// "distributedLock:order_42_user_7"
//
// labels 与 values 数量不一致时返回 ErrInvalidSpec，此时不会访问存储。
// 相同输入总是得到逐字节相同的 key。
func ComposeKey(prefix string, labels, values []string) (string, error) {
	if len(labels) != len(values) {
		return "", newLockError("compose", "", ErrInvalidSpec,
			fmt.Errorf("%d labels but %d values", len(labels), len(values)))
	}

	var b strings.Builder
	b.WriteString(prefix)
	for i := range labels {
		if i > 0 {
			b.WriteByte('_')
		}
		b.WriteString(labels[i])
		b.WriteByte('_')
		b.WriteString(values[i])
	}
	return b.String(), nil
}

// Composer 绑定前缀和标签列表，调用时只需提供取值
type Composer struct {
	Prefix string
	Labels []string
}

// Compose 生成 key，规则同 ComposeKey
func (c Composer) Compose(values ...string) (string, error) {
	return ComposeKey(c.Prefix, c.Labels, values)
}
