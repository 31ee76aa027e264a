// Package metrics 在 Prometheus 文本格式之上提供简化的指标门面：
// 标量/分组 gauge 与计数器、按需计算器、连接与协议流的字节统计。
package metrics

import (
	"context"

	"go.uber.org/zap"

	"github.com/prom-metrics/pkg/logger"
	"github.com/prom-metrics/pkg/store"
)

const (
	// DataTransferMetricName 字节收发计数器组
	DataTransferMetricName = "libp2p_data_transfer_bytes_total"
	// DataTransferLabel 字节收发计数器组的标签名
	DataTransferLabel = "protocol"

	// MemoryMetricName 进程内存 gauge 组
	MemoryMetricName = "process_memory_usage_bytes"
	// MemoryLabel 进程内存 gauge 组的标签名
	MemoryLabel = "memory"
)

// MetricData GetMetricsAsMap 的单条结果
type MetricData struct {
	Type     store.Kind
	Help     string
	Instance *store.Family
}

// Metrics 指标门面
type Metrics struct {
	registry      *Registry
	transferStats *TransferStats
}

// New 创建指标门面
// 默认清空共享注册表中已有的指标，并注册字节收发与进程内存两组内置指标
func New(opts ...Option) *Metrics {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	registry := o.registry
	switch {
	case o.store != nil:
		registry = NewRegistry(o.store)
	case registry == nil:
		registry = DefaultRegistry()
	}

	if !o.preserveExisting {
		logger.Debug("clearing existing metrics", zap.Int("count", registry.Len()))
		registry.Clear()
	}

	m := &Metrics{
		registry:      registry,
		transferStats: NewTransferStats(),
	}
	m.registerBuiltins(o)
	return m
}

func (m *Metrics) registerBuiltins(o *options) {
	transfer, err := m.RegisterCounterGroup(DataTransferMetricName,
		WithHelp("Total bytes transferred, by protocol and direction"),
		WithLabel(DataTransferLabel),
	)
	if err != nil {
		logger.Error("register data transfer metric failed", zap.Error(err))
	} else {
		// 写入在 Publish 内完成，计算器本身不返回结果
		transfer.AddCalculator(func(context.Context) (map[string]float64, error) {
			m.transferStats.Publish(transfer)
			return nil, nil
		})
	}

	if !o.trackMemory {
		return
	}
	sampler := o.memorySampler
	if sampler == nil {
		sampler = NewProcessMemorySampler()
	}
	_, err = m.RegisterMetricGroup(MemoryMetricName,
		WithHelp("Current process memory usage in bytes"),
		WithLabel(MemoryLabel),
		WithGroupCalculate(sampler.SampleMemory),
	)
	if err != nil {
		logger.Error("register memory metric failed", zap.Error(err))
	}
}

// Registry 返回门面使用的注册表
func (m *Metrics) Registry() *Registry {
	return m.registry
}

// TransferStats 返回字节收发统计
func (m *Metrics) TransferStats() *TransferStats {
	return m.transferStats
}

// RegisterMetric 注册标量 gauge；同名同类型时返回已有实例并追加计算器
func (m *Metrics) RegisterMetric(name string, opts ...MetricOption) (*Metric, error) {
	o := applyMetricOptions(NormaliseString(name), opts)
	warnIgnoredCalculator(name, o.groupCalculate != nil)

	cm, err := m.register(name, KindMetric, func(n string) CalculatedMetric {
		return newMetric(m.registry.store, n, o.help)
	})
	if err != nil {
		return nil, err
	}
	metric := cm.(*Metric)
	metric.AddCalculator(o.calculate)
	return metric, nil
}

// RegisterMetricGroup 注册分组 gauge
func (m *Metrics) RegisterMetricGroup(name string, opts ...MetricOption) (*MetricGroup, error) {
	o := applyMetricOptions(NormaliseString(name), opts)
	warnIgnoredCalculator(name, o.calculate != nil)

	cm, err := m.register(name, KindMetricGroup, func(n string) CalculatedMetric {
		return newMetricGroup(m.registry.store, n, o.help, o.label)
	})
	if err != nil {
		return nil, err
	}
	group := cm.(*MetricGroup)
	group.AddCalculator(o.groupCalculate)
	return group, nil
}

// RegisterCounter 注册标量计数器
func (m *Metrics) RegisterCounter(name string, opts ...MetricOption) (*Counter, error) {
	o := applyMetricOptions(NormaliseString(name), opts)
	warnIgnoredCalculator(name, o.groupCalculate != nil)

	cm, err := m.register(name, KindCounter, func(n string) CalculatedMetric {
		return newCounter(m.registry.store, n, o.help)
	})
	if err != nil {
		return nil, err
	}
	counter := cm.(*Counter)
	counter.AddCalculator(o.calculate)
	return counter, nil
}

// RegisterCounterGroup 注册分组计数器
func (m *Metrics) RegisterCounterGroup(name string, opts ...MetricOption) (*CounterGroup, error) {
	o := applyMetricOptions(NormaliseString(name), opts)
	warnIgnoredCalculator(name, o.calculate != nil)

	cm, err := m.register(name, KindCounterGroup, func(n string) CalculatedMetric {
		return newCounterGroup(m.registry.store, n, o.help, o.label)
	})
	if err != nil {
		return nil, err
	}
	group := cm.(*CounterGroup)
	group.AddCalculator(o.groupCalculate)
	return group, nil
}

func (m *Metrics) register(name string, kind Kind, create func(string) CalculatedMetric) (CalculatedMetric, error) {
	cm, created, err := m.registry.register(name, kind, create)
	if err != nil {
		logger.Warn("register metric failed", zap.String("name", name), zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}
	if created {
		logger.Debug("metric registered", zap.String("name", NormaliseString(name)), zap.String("kind", string(kind)))
	}
	return cm, nil
}

func warnIgnoredCalculator(name string, ignored bool) {
	if ignored {
		logger.Warn("calculator does not match metric shape, ignored", zap.String("name", name))
	}
}

// GetMetrics 运行全部计算器后渲染 Prometheus 文本格式
func (m *Metrics) GetMetrics(ctx context.Context) (string, error) {
	if err := m.registry.Calculate(ctx); err != nil {
		return "", err
	}
	return m.registry.store.Metrics()
}

// GetMetricsAsMap 运行全部计算器后按名称返回存储中的指标族
func (m *Metrics) GetMetricsAsMap(ctx context.Context) (map[string]MetricData, error) {
	if err := m.registry.Calculate(ctx); err != nil {
		return nil, err
	}
	families := m.registry.store.Families()
	out := make(map[string]MetricData, len(families))
	for _, f := range families {
		out[f.Name()] = MetricData{Type: f.Kind(), Help: f.Help(), Instance: f}
	}
	return out, nil
}
