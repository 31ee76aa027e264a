package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prom-metrics/pkg/store"
)

// newTestMetrics 每个测试使用独立注册表，关闭内存采样
func newTestMetrics(t *testing.T, opts ...Option) *Metrics {
	t.Helper()
	base := []Option{WithRegistry(NewRegistry(nil)), WithMemoryTracking(false)}
	return New(append(base, opts...)...)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	out, err := m.GetMetrics(context.Background())
	require.NoError(t, err)
	return out
}

func TestMetricUpdate(t *testing.T) {
	m := newTestMetrics(t)
	metric, err := m.RegisterMetric("test_metric")
	require.NoError(t, err)

	metric.Update(5)
	out := scrape(t, m)
	assert.Contains(t, out, "# TYPE test_metric gauge")
	assert.Contains(t, out, "# HELP test_metric test_metric")
	assert.Contains(t, out, "test_metric 5\n")
}

func TestMetricIncrementDecrement(t *testing.T) {
	m := newTestMetrics(t)
	metric, err := m.RegisterMetric("test_metric")
	require.NoError(t, err)

	metric.Increment()
	metric.IncrementBy(1)
	assert.Contains(t, scrape(t, m), "test_metric 2\n")

	metric.Decrement()
	metric.DecrementBy(0.5)
	assert.Contains(t, scrape(t, m), "test_metric 0.5\n")
}

func TestMetricDecrementUnset(t *testing.T) {
	m := newTestMetrics(t)
	metric, err := m.RegisterMetric("test_metric")
	require.NoError(t, err)

	metric.Decrement()
	assert.Contains(t, scrape(t, m), "test_metric -1\n")

	metric.Reset()
	metric.DecrementBy(3)
	assert.Contains(t, scrape(t, m), "test_metric -3\n")
}

func TestMetricReset(t *testing.T) {
	m := newTestMetrics(t)
	metric, err := m.RegisterMetric("test_metric")
	require.NoError(t, err)

	metric.Update(5)
	metric.Reset()
	assert.Contains(t, scrape(t, m), "test_metric 0\n")
}

func TestMetricTimer(t *testing.T) {
	m := newTestMetrics(t)
	metric, err := m.RegisterMetric("test_timer")
	require.NoError(t, err)

	stop := metric.Timer()
	stop()

	data, err := m.GetMetricsAsMap(context.Background())
	require.NoError(t, err)
	v, ok := data["test_timer"].Instance.Get()
	require.True(t, ok)
	assert.GreaterOrEqual(t, v, 0.0)
}

func TestMetricCalculatorsSum(t *testing.T) {
	m := newTestMetrics(t)
	_, err := m.RegisterMetric("test_metric", WithCalculate(func(context.Context) (float64, error) {
		return 3, nil
	}))
	require.NoError(t, err)
	_, err = m.RegisterMetric("test_metric", WithCalculate(func(context.Context) (float64, error) {
		return 4, nil
	}))
	require.NoError(t, err)

	assert.Contains(t, scrape(t, m), "test_metric 7\n")
	// gauge 计算结果覆盖而非累加
	assert.Contains(t, scrape(t, m), "test_metric 7\n")
}

func TestMetricCalculatorError(t *testing.T) {
	boom := errors.New("boom")
	m := newTestMetrics(t)
	metric, err := m.RegisterMetric("test-metric",
		WithCalculate(func(context.Context) (float64, error) { return 0, boom }))
	require.NoError(t, err)
	metric.Update(2)

	_, err = m.GetMetrics(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var calcErr *CalculatorError
	require.ErrorAs(t, err, &calcErr)
	assert.Equal(t, "test_metric", calcErr.Name)

	// 失败时不写入
	family, ok := m.Registry().Store().Get(store.KindGauge, "test_metric")
	require.True(t, ok)
	v, ok := family.Get()
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestMetricGroup(t *testing.T) {
	m := newTestMetrics(t)
	group, err := m.RegisterMetricGroup("test_metric", WithLabel("label"))
	require.NoError(t, err)
	assert.Equal(t, "label", group.Label())

	group.Update(map[string]float64{"key": 5})
	out := scrape(t, m)
	assert.Contains(t, out, "# TYPE test_metric gauge")
	assert.Contains(t, out, `test_metric{label="key"} 5`)

	group.IncrementKeys("key", "other")
	group.Increment(map[string]float64{"key": 2})
	out = scrape(t, m)
	assert.Contains(t, out, `test_metric{label="key"} 8`)
	assert.Contains(t, out, `test_metric{label="other"} 1`)

	group.DecrementKeys("fresh")
	group.Decrement(map[string]float64{"key": 3})
	out = scrape(t, m)
	assert.Contains(t, out, `test_metric{label="fresh"} -1`)
	assert.Contains(t, out, `test_metric{label="key"} 5`)

	group.Reset()
	out = scrape(t, m)
	assert.Contains(t, out, `test_metric{label="key"} 0`)
	assert.Contains(t, out, `test_metric{label="other"} 0`)
}

func TestMetricGroupDefaultLabel(t *testing.T) {
	m := newTestMetrics(t)
	group, err := m.RegisterMetricGroup("my-group")
	require.NoError(t, err)
	assert.Equal(t, "my_group", group.Label())

	group.Update(map[string]float64{"a": 1})
	assert.Contains(t, scrape(t, m), `my_group{my_group="a"} 1`)
}

func TestMetricGroupTimer(t *testing.T) {
	m := newTestMetrics(t)
	group, err := m.RegisterMetricGroup("test_timer", WithLabel("op"))
	require.NoError(t, err)

	group.Timer("dial")()

	data, err := m.GetMetricsAsMap(context.Background())
	require.NoError(t, err)
	_, ok := data["test_timer"].Instance.Get("dial")
	assert.True(t, ok)
}

func TestMetricGroupCalculatorsOverwrite(t *testing.T) {
	m := newTestMetrics(t)
	_, err := m.RegisterMetricGroup("test_metric", WithLabel("label"),
		WithGroupCalculate(func(context.Context) (map[string]float64, error) {
			return map[string]float64{"a": 1, "b": 2}, nil
		}))
	require.NoError(t, err)
	_, err = m.RegisterMetricGroup("test_metric",
		WithGroupCalculate(func(context.Context) (map[string]float64, error) {
			return map[string]float64{"a": 3}, nil
		}))
	require.NoError(t, err)

	out := scrape(t, m)
	assert.Contains(t, out, `test_metric{label="a"} 3`)
	assert.Contains(t, out, `test_metric{label="b"} 2`)
}

func TestMetricGroupPartialFailure(t *testing.T) {
	boom := errors.New("boom")
	m := newTestMetrics(t)
	_, err := m.RegisterMetricGroup("test_metric", WithLabel("label"),
		WithGroupCalculate(func(context.Context) (map[string]float64, error) {
			return map[string]float64{"a": 1}, nil
		}))
	require.NoError(t, err)
	_, err = m.RegisterMetricGroup("test_metric",
		WithGroupCalculate(func(context.Context) (map[string]float64, error) {
			return nil, boom
		}))
	require.NoError(t, err)

	_, err = m.GetMetrics(context.Background())
	require.ErrorIs(t, err, boom)

	// 成功的计算器结果保留
	data, err := m.Registry().Store().Gather()
	require.NoError(t, err)
	require.Len(t, data, 1)
	assert.Equal(t, 1.0, data[0].GetMetric()[0].GetGauge().GetValue())
}

func TestCounter(t *testing.T) {
	m := newTestMetrics(t)
	counter, err := m.RegisterCounter("test_counter")
	require.NoError(t, err)

	counter.Increment()
	counter.IncrementBy(4)
	counter.IncrementBy(-10)
	out := scrape(t, m)
	assert.Contains(t, out, "# TYPE test_counter counter")
	assert.Contains(t, out, "test_counter 5\n")

	counter.DecrementBy(10)
	assert.Contains(t, scrape(t, m), "test_counter 0\n")

	counter.IncrementBy(2)
	counter.Decrement()
	assert.Contains(t, scrape(t, m), "test_counter 1\n")

	counter.Reset()
	assert.Contains(t, scrape(t, m), "test_counter 0\n")
}

func TestCounterCalculatorsSum(t *testing.T) {
	m := newTestMetrics(t)
	_, err := m.RegisterCounter("test_counter", WithCalculate(func(context.Context) (float64, error) {
		return 3, nil
	}))
	require.NoError(t, err)
	_, err = m.RegisterCounter("test_counter", WithCalculate(func(context.Context) (float64, error) {
		return 4, nil
	}))
	require.NoError(t, err)

	assert.Contains(t, scrape(t, m), "test_counter 7\n")
	assert.Contains(t, scrape(t, m), "test_counter 7\n")
}

func TestCounterGroup(t *testing.T) {
	m := newTestMetrics(t)
	group, err := m.RegisterCounterGroup("test_counter", WithLabel("label"))
	require.NoError(t, err)

	group.IncrementKeys("key")
	group.Increment(map[string]float64{"key": 4, "neg": -1})
	out := scrape(t, m)
	assert.Contains(t, out, "# TYPE test_counter counter")
	assert.Contains(t, out, `test_counter{label="key"} 5`)
	assert.NotContains(t, out, `label="neg"`)

	group.Decrement(map[string]float64{"key": 10})
	group.DecrementKeys("other")
	out = scrape(t, m)
	assert.Contains(t, out, `test_counter{label="key"} 0`)
	assert.Contains(t, out, `test_counter{label="other"} 0`)

	group.IncrementKeys("key")
	group.Reset()
	assert.Contains(t, scrape(t, m), `test_counter{label="key"} 0`)
}

func TestCounterGroupCalculator(t *testing.T) {
	m := newTestMetrics(t)
	_, err := m.RegisterCounterGroup("test_counter", WithLabel("label"),
		WithGroupCalculate(func(context.Context) (map[string]float64, error) {
			return map[string]float64{"a": 2, "neg": -1}, nil
		}))
	require.NoError(t, err)
	_, err = m.RegisterCounterGroup("test_counter",
		WithGroupCalculate(func(context.Context) (map[string]float64, error) {
			return map[string]float64{"a": 5}, nil
		}))
	require.NoError(t, err)

	out := scrape(t, m)
	assert.Contains(t, out, `test_counter{label="a"} 5`)
	assert.NotContains(t, out, `label="neg"`)
}

func TestRegisterSharedIdentity(t *testing.T) {
	registry := NewRegistry(nil)
	m1 := New(WithRegistry(registry), WithMemoryTracking(false))
	m2 := New(WithRegistry(registry), WithMemoryTracking(false), WithPreserveExistingMetrics(true))

	first, err := m1.RegisterMetric("test_metric")
	require.NoError(t, err)
	second, err := m2.RegisterMetric("test-metric")
	require.NoError(t, err)
	assert.Same(t, first, second)

	first.Update(5)
	second.Update(6)
	assert.Contains(t, scrape(t, m1), "test_metric 6\n")
	assert.Contains(t, scrape(t, m2), "test_metric 6\n")
}

func TestRegisterKindMismatch(t *testing.T) {
	m := newTestMetrics(t)
	_, err := m.RegisterMetric("test_metric")
	require.NoError(t, err)

	_, err = m.RegisterCounter("test_metric")
	require.ErrorIs(t, err, ErrKindMismatch)

	var mismatch *KindMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, KindMetric, mismatch.Existing)
	assert.Equal(t, KindCounter, mismatch.Requested)

	_, err = m.RegisterMetricGroup("test_metric")
	assert.ErrorIs(t, err, ErrKindMismatch)
}

func TestRegisterBlankName(t *testing.T) {
	m := newTestMetrics(t)
	for _, name := range []string{"", "   "} {
		_, err := m.RegisterMetric(name)
		assert.ErrorIs(t, err, ErrNaming)
		_, err = m.RegisterCounterGroup(name)
		assert.ErrorIs(t, err, ErrNaming)
	}
}

func TestNewClearsExistingMetrics(t *testing.T) {
	registry := NewRegistry(nil)
	m1 := New(WithRegistry(registry), WithMemoryTracking(false))
	metric, err := m1.RegisterMetric("test_metric")
	require.NoError(t, err)
	metric.Update(1)
	assert.Equal(t, 2, registry.Len())

	m2 := New(WithRegistry(registry), WithMemoryTracking(false))
	assert.Equal(t, []string{DataTransferMetricName}, registry.Names())
	assert.NotContains(t, scrape(t, m2), "test_metric")
}

func TestNewPreservesExistingMetrics(t *testing.T) {
	registry := NewRegistry(nil)
	m1 := New(WithRegistry(registry), WithMemoryTracking(false))
	metric, err := m1.RegisterMetric("test_metric")
	require.NoError(t, err)
	metric.Update(1)

	m2 := New(WithRegistry(registry), WithMemoryTracking(false), WithPreserveExistingMetrics(true))
	assert.Contains(t, scrape(t, m2), "test_metric 1\n")
}

func TestWithStore(t *testing.T) {
	st := store.New()
	m := New(WithStore(st), WithMemoryTracking(false))
	assert.Same(t, st, m.Registry().Store())
	assert.NotSame(t, DefaultRegistry(), m.Registry())

	metric, err := m.RegisterMetric("custom_store_metric")
	require.NoError(t, err)
	metric.Update(3)

	family, ok := st.Get(store.KindGauge, "custom_store_metric")
	require.True(t, ok)
	v, ok := family.Get()
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	out, err := st.Metrics()
	require.NoError(t, err)
	assert.Contains(t, out, "custom_store_metric 3\n")
}

func TestGetMetricsAsMap(t *testing.T) {
	m := newTestMetrics(t)
	_, err := m.RegisterMetric("test_gauge", WithHelp("a gauge"),
		WithCalculate(func(context.Context) (float64, error) { return 9, nil }))
	require.NoError(t, err)
	counter, err := m.RegisterCounter("test_counter")
	require.NoError(t, err)
	counter.Increment()

	data, err := m.GetMetricsAsMap(context.Background())
	require.NoError(t, err)

	gauge := data["test_gauge"]
	assert.Equal(t, store.KindGauge, gauge.Type)
	assert.Equal(t, "a_gauge", gauge.Help)
	v, ok := gauge.Instance.Get()
	require.True(t, ok)
	assert.Equal(t, 9.0, v)

	assert.Equal(t, store.KindCounter, data["test_counter"].Type)
	assert.Equal(t, "test_counter", data["test_counter"].Help)
}

func TestHelpIsNormalised(t *testing.T) {
	m := newTestMetrics(t)
	_, err := m.RegisterMetricGroup("peer_dials", WithHelp("Dials per peer (outbound)"), WithLabel("peer"))
	require.NoError(t, err)
	_, err = m.RegisterCounter("dial_errors_total", WithHelp("dial errors"))
	require.NoError(t, err)

	data, err := m.GetMetricsAsMap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Dials_per_peer_outbound_", data["peer_dials"].Help)

	out := scrape(t, m)
	assert.Contains(t, out, "# HELP dial_errors_total dial_errors\n")
}

func TestMemoryMetric(t *testing.T) {
	sampler := MemorySamplerFunc(func(context.Context) (map[string]float64, error) {
		return map[string]float64{"rss": 1024, "heap_alloc": 512}, nil
	})
	m := New(WithRegistry(NewRegistry(nil)), WithMemorySampler(sampler))

	out := scrape(t, m)
	assert.Contains(t, out, "# TYPE "+MemoryMetricName+" gauge")
	assert.Contains(t, out, MemoryMetricName+`{memory="rss"} 1024`)
	assert.Contains(t, out, MemoryMetricName+`{memory="heap_alloc"} 512`)
}

func TestDefaultRegistryIsShared(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
	m := New(WithMemoryTracking(false))
	assert.Same(t, DefaultRegistry(), m.Registry())
}

func TestEndToEnd(t *testing.T) {
	m := newTestMetrics(t)

	foo, err := m.RegisterMetric("foo")
	require.NoError(t, err)
	foo.Update(5)

	bar, err := m.RegisterCounterGroup("bar", WithLabel("proto"))
	require.NoError(t, err)
	bar.IncrementKeys("http")

	_, err = m.RegisterMetric("calculated", WithCalculate(func(context.Context) (float64, error) {
		return 9, nil
	}))
	require.NoError(t, err)

	out := scrape(t, m)
	assert.Contains(t, out, "# TYPE foo gauge")
	assert.Contains(t, out, "foo 5\n")
	assert.Contains(t, out, "# TYPE bar counter")
	assert.Contains(t, out, `bar{proto="http"} 1`)
	assert.Contains(t, out, "calculated 9\n")
}

func TestWrongShapeCalculatorIgnored(t *testing.T) {
	m := newTestMetrics(t)
	metric, err := m.RegisterMetric("scalar", WithGroupCalculate(func(context.Context) (map[string]float64, error) {
		return map[string]float64{"a": 1}, nil
	}))
	require.NoError(t, err)
	assert.Zero(t, metric.calculators.len())

	group, err := m.RegisterMetricGroup("group", WithCalculate(func(context.Context) (float64, error) {
		return 1, nil
	}))
	require.NoError(t, err)
	assert.Zero(t, group.calculators.len())
}
