package metrics

import (
	"errors"
	"fmt"
)

var (
	// ErrNaming 指标名为空（去除首尾空白后）
	ErrNaming = errors.New("metric name is required")

	// ErrKindMismatch 同名指标已以另一种类型注册
	ErrKindMismatch = errors.New("metric kind mismatch")

	// ErrUnsupportedOperation 被包装的连接/流不支持半关闭或 Reset
	ErrUnsupportedOperation = fmt.Errorf("operation not supported by wrapped stream: %w", errors.ErrUnsupported)
)

// KindMismatchError 以不同类型重复注册同名指标
type KindMismatchError struct {
	Name      string
	Existing  Kind
	Requested Kind
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("metric %q already registered as %s, cannot register as %s", e.Name, e.Existing, e.Requested)
}

// Is 使 errors.Is(err, ErrKindMismatch) 成立
func (e *KindMismatchError) Is(target error) bool {
	return target == ErrKindMismatch
}

// CalculatorError 某个指标的计算器在抓取时返回错误
type CalculatorError struct {
	Name string
	Err  error
}

func (e *CalculatorError) Error() string {
	return fmt.Sprintf("calculate metric %q: %v", e.Name, e.Err)
}

func (e *CalculatorError) Unwrap() error {
	return e.Err
}
