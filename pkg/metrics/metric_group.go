package metrics

import (
	"context"

	"github.com/prom-metrics/pkg/store"
)

// MetricGroup 一组共享名字、以单个标签区分的 gauge
type MetricGroup struct {
	family      *store.Family
	calculators calculators[map[string]float64]
}

var _ CalculatedMetric = (*MetricGroup)(nil)

func newMetricGroup(st *store.Store, name, help, label string) *MetricGroup {
	return &MetricGroup{family: st.Create(store.KindGauge, name, help, label)}
}

// Label 返回分组标签名
func (g *MetricGroup) Label() string {
	return g.family.LabelNames()[0]
}

// Update 按 key 覆盖写入
func (g *MetricGroup) Update(values map[string]float64) {
	for key, v := range values {
		g.family.Set(v, key)
	}
}

// Increment 按 key 增加对应值
func (g *MetricGroup) Increment(values map[string]float64) {
	for key, v := range values {
		g.family.Add(v, key)
	}
}

// IncrementKeys 每个 key 加 1
func (g *MetricGroup) IncrementKeys(keys ...string) {
	g.Increment(unitValues(keys))
}

// Decrement 按 key 减少对应值；从未写入过的 key 结果为负值
func (g *MetricGroup) Decrement(values map[string]float64) {
	for key, v := range values {
		decrementGauge(g.family, v, key)
	}
}

// DecrementKeys 每个 key 减 1
func (g *MetricGroup) DecrementKeys(keys ...string) {
	g.Decrement(unitValues(keys))
}

// Reset 所有 key 归零
func (g *MetricGroup) Reset() {
	g.family.Reset()
}

// Timer 开始计时，停止时把经过的秒数写入 key
func (g *MetricGroup) Timer(key string) StopTimer {
	return startTimer(g.family, key)
}

// AddCalculator 追加计算器；抓取时返回的 key 被覆盖写入
func (g *MetricGroup) AddCalculator(fn CalculateMetricGroup) {
	g.calculators.add(fn)
}

// Calculate 并发运行计算器，按注册顺序应用成功的结果（后者覆盖前者），返回第一个错误
func (g *MetricGroup) Calculate(ctx context.Context) error {
	results, ok, err := g.calculators.run(ctx)
	for i, values := range results {
		if ok[i] {
			g.Update(values)
		}
	}
	return err
}
