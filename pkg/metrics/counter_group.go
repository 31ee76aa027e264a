package metrics

import (
	"context"

	"go.uber.org/zap"

	"github.com/prom-metrics/pkg/logger"
	"github.com/prom-metrics/pkg/store"
)

// CounterGroup 一组共享名字、以单个标签区分的计数器
type CounterGroup struct {
	family      *store.Family
	calculators calculators[map[string]float64]
}

var _ CalculatedMetric = (*CounterGroup)(nil)

func newCounterGroup(st *store.Store, name, help, label string) *CounterGroup {
	return &CounterGroup{family: st.Create(store.KindCounter, name, help, label)}
}

// Label 返回分组标签名
func (g *CounterGroup) Label() string {
	return g.family.LabelNames()[0]
}

// Increment 按 key 增加对应值；负数被丢弃
func (g *CounterGroup) Increment(values map[string]float64) {
	for key, v := range values {
		if v < 0 {
			logger.Debug("drop negative counter increment",
				zap.String("metric", g.family.Name()), zap.String("key", key), zap.Float64("value", v))
			continue
		}
		g.family.Add(v, key)
	}
}

// IncrementKeys 每个 key 加 1
func (g *CounterGroup) IncrementKeys(keys ...string) {
	g.Increment(unitValues(keys))
}

// Decrement 按 key 减少对应值，结果不小于 0
func (g *CounterGroup) Decrement(values map[string]float64) {
	for key, v := range values {
		g.family.Sub(v, key)
	}
}

// DecrementKeys 每个 key 减 1
func (g *CounterGroup) DecrementKeys(keys ...string) {
	g.Decrement(unitValues(keys))
}

// Reset 所有 key 归零
func (g *CounterGroup) Reset() {
	g.family.Reset()
}

// AddCalculator 追加计算器；抓取时返回的 key 被覆盖写入
func (g *CounterGroup) AddCalculator(fn CalculateMetricGroup) {
	g.calculators.add(fn)
}

// Calculate 并发运行计算器，按注册顺序应用成功的结果（后者覆盖前者），返回第一个错误
func (g *CounterGroup) Calculate(ctx context.Context) error {
	results, ok, err := g.calculators.run(ctx)
	for i, values := range results {
		if ok[i] {
			g.set(values)
		}
	}
	return err
}

func (g *CounterGroup) set(values map[string]float64) {
	for key, v := range values {
		if v < 0 {
			logger.Debug("drop negative counter value",
				zap.String("metric", g.family.Name()), zap.String("key", key), zap.Float64("value", v))
			continue
		}
		g.family.Set(v, key)
	}
}
