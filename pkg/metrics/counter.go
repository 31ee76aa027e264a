package metrics

import (
	"context"

	"go.uber.org/zap"

	"github.com/prom-metrics/pkg/logger"
	"github.com/prom-metrics/pkg/store"
)

// Counter 标量计数器：只增，Decrement 在 0 处截断
type Counter struct {
	family      *store.Family
	calculators calculators[float64]
}

var _ CalculatedMetric = (*Counter)(nil)

func newCounter(st *store.Store, name, help string) *Counter {
	return &Counter{family: st.Create(store.KindCounter, name, help)}
}

// Increment 加 1
func (c *Counter) Increment() {
	c.IncrementBy(1)
}

// IncrementBy 加 value；负数被丢弃
func (c *Counter) IncrementBy(value float64) {
	if value < 0 {
		logger.Debug("drop negative counter increment",
			zap.String("metric", c.family.Name()), zap.Float64("value", value))
		return
	}
	c.family.Add(value)
}

// Decrement 减 1
func (c *Counter) Decrement() {
	c.DecrementBy(1)
}

// DecrementBy 减 value，结果不小于 0
func (c *Counter) DecrementBy(value float64) {
	c.family.Sub(value)
}

// Reset 归零
func (c *Counter) Reset() {
	c.family.Reset()
}

// AddCalculator 追加计算器，抓取时所有计算器结果之和覆盖当前值
func (c *Counter) AddCalculator(fn CalculateMetric) {
	c.calculators.add(fn)
}

// Calculate 并发运行计算器；任一失败则不写入
func (c *Counter) Calculate(ctx context.Context) error {
	if c.calculators.len() == 0 {
		return nil
	}
	results, ok, err := c.calculators.run(ctx)
	if err != nil {
		return err
	}
	total := sum(results, ok)
	if total < 0 {
		logger.Debug("drop negative counter value",
			zap.String("metric", c.family.Name()), zap.Float64("value", total))
		return nil
	}
	c.family.Set(total)
	return nil
}
