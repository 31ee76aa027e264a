package metrics

import (
	"context"

	"github.com/prom-metrics/pkg/store"
)

// Metric 标量 gauge：可任意设置、增减、计时
type Metric struct {
	family      *store.Family
	calculators calculators[float64]
}

var _ CalculatedMetric = (*Metric)(nil)

func newMetric(st *store.Store, name, help string) *Metric {
	return &Metric{family: st.Create(store.KindGauge, name, help)}
}

// Update 覆盖写入
func (m *Metric) Update(value float64) {
	m.family.Set(value)
}

// Increment 加 1
func (m *Metric) Increment() {
	m.IncrementBy(1)
}

// IncrementBy 加 value
func (m *Metric) IncrementBy(value float64) {
	m.family.Add(value)
}

// Decrement 减 1
func (m *Metric) Decrement() {
	m.DecrementBy(1)
}

// DecrementBy 减 value；从未写入过时结果为 -value
func (m *Metric) DecrementBy(value float64) {
	decrementGauge(m.family, value)
}

// Reset 归零
func (m *Metric) Reset() {
	m.family.Reset()
}

// Timer 开始计时，调用返回的 StopTimer 时写入经过的秒数
func (m *Metric) Timer() StopTimer {
	return startTimer(m.family)
}

// AddCalculator 追加计算器，抓取时所有计算器结果之和覆盖当前值
func (m *Metric) AddCalculator(fn CalculateMetric) {
	m.calculators.add(fn)
}

// Calculate 并发运行计算器；任一失败则不写入
func (m *Metric) Calculate(ctx context.Context) error {
	if m.calculators.len() == 0 {
		return nil
	}
	results, ok, err := m.calculators.run(ctx)
	if err != nil {
		return err
	}
	m.family.Set(sum(results, ok))
	return nil
}
