package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Kind 指标族类型（与 exposition 格式中的 # TYPE 一致）
type Kind string

const (
	KindGauge   Kind = "gauge"
	KindCounter Kind = "counter"
)

// labelSep 多个标签值拼接成 cell key 时使用的分隔符
const labelSep = "\xff"

// cell 单条时间序列
type cell struct {
	labelValues []string
	value       float64
	set         bool // reset 之后为 false，Get 视为未设置
}

// Family 同名指标族：一个名字 + 固定的标签名，下挂若干 cell
// 所有读写方法并发安全，单个 cell 的写入是原子的
type Family struct {
	mu         sync.RWMutex
	kind       Kind
	name       string
	help       string
	labelNames []string
	desc       *prometheus.Desc
	cells      map[string]*cell
	order      []string // cell 首次出现的顺序
}

func newFamily(kind Kind, name, help string, labelNames []string) *Family {
	return &Family{
		kind:       kind,
		name:       name,
		help:       help,
		labelNames: labelNames,
		desc:       prometheus.NewDesc(name, help, labelNames, nil),
		cells:      make(map[string]*cell),
	}
}

func (f *Family) Kind() Kind   { return f.kind }
func (f *Family) Name() string { return f.name }
func (f *Family) Help() string { return f.help }

// LabelNames 返回标签名副本
func (f *Family) LabelNames() []string {
	out := make([]string, len(f.labelNames))
	copy(out, f.labelNames)
	return out
}

// key 校验标签基数并生成 cell key，基数不一致属于调用方编程错误
func (f *Family) key(lvs []string) string {
	if len(lvs) != len(f.labelNames) {
		panic(fmt.Sprintf("store: %s expects %d label values, got %d", f.name, len(f.labelNames), len(lvs)))
	}
	return strings.Join(lvs, labelSep)
}

// cellLocked 获取或创建 cell（调用方持有写锁）
func (f *Family) cellLocked(lvs []string) *cell {
	k := f.key(lvs)
	c, ok := f.cells[k]
	if !ok {
		values := make([]string, len(lvs))
		copy(values, lvs)
		c = &cell{labelValues: values}
		f.cells[k] = c
		f.order = append(f.order, k)
	}
	return c
}

// Get 读取 cell 当前值；未设置过（或 reset 之后）返回 false
func (f *Family) Get(lvs ...string) (float64, bool) {
	k := f.key(lvs)
	f.mu.RLock()
	defer f.mu.RUnlock()
	c, ok := f.cells[k]
	if !ok || !c.set {
		return 0, false
	}
	return c.value, true
}

// Set 覆盖写
func (f *Family) Set(v float64, lvs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cellLocked(lvs)
	c.value = v
	c.set = true
}

// Add 累加
func (f *Family) Add(v float64, lvs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cellLocked(lvs)
	c.value += v
	c.set = true
}

// Sub 递减；counter 的值在 0 处截断
func (f *Family) Sub(v float64, lvs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cellLocked(lvs)
	c.value -= v
	if f.kind == KindCounter && c.value < 0 {
		c.value = 0
	}
	c.set = true
}

// Reset 将整个指标族的所有 cell 清零并标记为未设置
// 已出现过的标签值继续以 0 输出
func (f *Family) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cells {
		c.value = 0
		c.set = false
	}
}

// Values 返回 标签值 -> 当前值 的快照；多标签时标签值以 "," 拼接
func (f *Family) Values() map[string]float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]float64, len(f.cells))
	for _, c := range f.cells {
		out[strings.Join(c.labelValues, ",")] = c.value
	}
	return out
}

func (f *Family) valueType() prometheus.ValueType {
	if f.kind == KindCounter {
		return prometheus.CounterValue
	}
	return prometheus.GaugeValue
}

// collect 以常量指标的形式输出全部 cell
func (f *Family) collect(ch chan<- prometheus.Metric) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, k := range f.order {
		c := f.cells[k]
		m, err := prometheus.NewConstMetric(f.desc, f.valueType(), c.value, c.labelValues...)
		if err != nil {
			ch <- prometheus.NewInvalidMetric(f.desc, err)
			continue
		}
		ch <- m
	}
}
