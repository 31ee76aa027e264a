package metrics

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/prom-metrics/pkg/store"
)

// Kind 注册记录的指标类型
type Kind string

const (
	KindMetric       Kind = "metric"
	KindMetricGroup  Kind = "metric_group"
	KindCounter      Kind = "counter"
	KindCounterGroup Kind = "counter_group"
)

// record 注册表中的一条记录
type record struct {
	kind   Kind
	metric CalculatedMetric
}

// Registry 规范化名称 -> 指标实例 的注册表，与一个存储引擎绑定
// 同一个 Registry 上的多个 Metrics 门面共享全部指标
type Registry struct {
	mu      sync.RWMutex
	store   *store.Store
	records map[string]*record
}

// NewRegistry 创建注册表；st 为空时新建存储引擎
func NewRegistry(st *store.Store) *Registry {
	if st == nil {
		st = store.New()
	}
	return &Registry{
		store:   st,
		records: make(map[string]*record),
	}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(store.New())
})

// DefaultRegistry 进程级共享注册表
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// Store 返回绑定的存储引擎
func (r *Registry) Store() *store.Store {
	return r.store
}

// Len 已注册的指标数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Names 按字典序返回已注册的规范化名称
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Clear 清空注册记录与存储引擎
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[string]*record)
	r.store.Clear()
}

// register 按规范化名称查找或创建；created 表示本次新建
func (r *Registry) register(name string, kind Kind, create func(name string) CalculatedMetric) (m CalculatedMetric, created bool, err error) {
	if strings.TrimSpace(name) == "" {
		return nil, false, ErrNaming
	}
	name = NormaliseString(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[name]; ok {
		if rec.kind != kind {
			return nil, false, &KindMismatchError{Name: name, Existing: rec.kind, Requested: kind}
		}
		return rec.metric, false, nil
	}

	m = create(name)
	r.records[name] = &record{kind: kind, metric: m}
	return m, true, nil
}

// Calculate 并发重新计算全部指标，等待全部结束后返回第一个错误
func (r *Registry) Calculate(ctx context.Context) error {
	r.mu.RLock()
	snapshot := make(map[string]CalculatedMetric, len(r.records))
	for name, rec := range r.records {
		snapshot[name] = rec.metric
	}
	r.mu.RUnlock()

	var g errgroup.Group
	for name, m := range snapshot {
		g.Go(func() error {
			if err := m.Calculate(ctx); err != nil {
				return &CalculatorError{Name: name, Err: err}
			}
			return nil
		})
	}
	return g.Wait()
}
