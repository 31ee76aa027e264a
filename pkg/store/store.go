// Package store 是指标门面下层的时间序列存储与文本渲染引擎。
// 它只提供 create/get/set/add/sub/reset 等原语，并借助 Prometheus 官方
// Registry 收集、expfmt 渲染 exposition 文本。
package store

import (
	"bytes"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"

	"github.com/prom-metrics/pkg/logger"
)

// Store 存储引擎，实现 prometheus.Collector（unchecked collector，Describe 不输出任何 Desc）
type Store struct {
	mu       sync.RWMutex
	families map[string]*Family
	registry *prometheus.Registry
}

// 确保实现接口
var _ prometheus.Collector = (*Store)(nil)

// New 创建存储引擎，内部使用独立的 prometheus.Registry 收集
func New() *Store {
	s := &Store{
		families: make(map[string]*Family),
		registry: prometheus.NewRegistry(),
	}
	s.registry.MustRegister(s)
	return s
}

// Create 创建指标族；同名同类型时返回已有实例，类型不同则替换
func (s *Store) Create(kind Kind, name, help string, labelNames ...string) *Family {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.families[name]; ok && f.kind == kind {
		return f
	}
	f := newFamily(kind, name, help, labelNames)
	s.families[name] = f
	return f
}

// Get 按类型和名称查找指标族
func (s *Store) Get(kind Kind, name string) (*Family, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.families[name]
	if !ok || f.kind != kind {
		return nil, false
	}
	return f, true
}

// Clear 丢弃全部指标族
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.families = make(map[string]*Family)
}

// Families 按名称排序返回全部指标族
func (s *Store) Families() []*Family {
	s.mu.RLock()
	out := make([]*Family, 0, len(s.families))
	for _, f := range s.families {
		out = append(out, f)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Describe 实现 prometheus.Collector；不输出 Desc，指标族可动态增减
func (s *Store) Describe(chan<- *prometheus.Desc) {}

// Collect 实现 prometheus.Collector
func (s *Store) Collect(ch chan<- prometheus.Metric) {
	for _, f := range s.Families() {
		f.collect(ch)
	}
}

// Gather 收集当前全部指标族
func (s *Store) Gather() ([]*dto.MetricFamily, error) {
	return s.registry.Gather()
}

// Metrics 渲染 Prometheus 文本格式
// 非法的指标族（例如名称不是合法 UTF-8）会被跳过并记录告警，其余照常输出
// 全部非法时输出空文本
func (s *Store) Metrics() (string, error) {
	mfs, err := s.Gather()
	if err != nil {
		logger.Warn("some metric families could not be gathered",
			zap.Int("gathered", len(mfs)), zap.Error(err))
	}

	var buf bytes.Buffer
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
