package metrics

import (
	"github.com/prom-metrics/pkg/store"
)

// Option 门面构造选项
type Option func(*options)

type options struct {
	registry         *Registry
	store            *store.Store
	preserveExisting bool
	trackMemory      bool
	memorySampler    MemorySampler
}

func defaultOptions() *options {
	return &options{trackMemory: true}
}

// WithRegistry 使用指定注册表（默认进程级共享注册表）
func WithRegistry(r *Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithStore 使用外部存储引擎；创建一个与之绑定的新注册表
func WithStore(st *store.Store) Option {
	return func(o *options) { o.store = st }
}

// WithPreserveExistingMetrics 构造时保留注册表中已有的指标
func WithPreserveExistingMetrics(preserve bool) Option {
	return func(o *options) { o.preserveExisting = preserve }
}

// WithMemoryTracking 是否注册进程内存指标
func WithMemoryTracking(enabled bool) Option {
	return func(o *options) { o.trackMemory = enabled }
}

// WithMemorySampler 替换内存采样实现
func WithMemorySampler(s MemorySampler) Option {
	return func(o *options) { o.memorySampler = s }
}

// MetricOption 注册选项
type MetricOption func(*metricOptions)

type metricOptions struct {
	help           string
	label          string
	calculate      CalculateMetric
	groupCalculate CalculateMetricGroup
}

// WithHelp 帮助文本，默认与名称相同；与标签名一样经 NormaliseString 规范化
func WithHelp(help string) MetricOption {
	return func(o *metricOptions) { o.help = help }
}

// WithLabel 分组标签名，默认与名称相同；仅对分组指标生效
func WithLabel(label string) MetricOption {
	return func(o *metricOptions) { o.label = label }
}

// WithCalculate 标量计算器；仅对 Metric/Counter 生效
func WithCalculate(fn CalculateMetric) MetricOption {
	return func(o *metricOptions) { o.calculate = fn }
}

// WithGroupCalculate 分组计算器；仅对 MetricGroup/CounterGroup 生效
func WithGroupCalculate(fn CalculateMetricGroup) MetricOption {
	return func(o *metricOptions) { o.groupCalculate = fn }
}

func applyMetricOptions(name string, opts []MetricOption) *metricOptions {
	o := &metricOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.help == "" {
		o.help = name
	}
	if o.label == "" {
		o.label = name
	}
	o.help = NormaliseString(o.help)
	o.label = NormaliseString(o.label)
	return o
}
