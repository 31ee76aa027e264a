package metrics

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CalculateMetric 标量指标的计算器，可阻塞
type CalculateMetric func(ctx context.Context) (float64, error)

// CalculateMetricGroup 分组指标的计算器，返回 key -> value
type CalculateMetricGroup func(ctx context.Context) (map[string]float64, error)

// calculators 计算器列表（组合进每种指标类型）
// 不去重；每次抓取全部并发调用
type calculators[T any] struct {
	mu  sync.Mutex
	fns []func(context.Context) (T, error)
}

func (c *calculators[T]) add(fn func(context.Context) (T, error)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fns = append(c.fns, fn)
}

func (c *calculators[T]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fns)
}

// run 并发执行全部计算器并等待结束
// 结果按注册顺序返回，ok[i] 表示第 i 个计算器成功；err 为第一个失败的错误
func (c *calculators[T]) run(ctx context.Context) (results []T, ok []bool, err error) {
	c.mu.Lock()
	fns := make([]func(context.Context) (T, error), len(c.fns))
	copy(fns, c.fns)
	c.mu.Unlock()

	results = make([]T, len(fns))
	ok = make([]bool, len(fns))

	// 不派生可取消的 ctx：一个计算器失败不影响其他计算器完成
	var g errgroup.Group
	for i, fn := range fns {
		g.Go(func() error {
			v, err := fn(ctx)
			if err != nil {
				return err
			}
			results[i] = v
			ok[i] = true
			return nil
		})
	}
	err = g.Wait()
	return results, ok, err
}

// sum 汇总成功的标量结果
func sum(results []float64, ok []bool) float64 {
	var total float64
	for i, v := range results {
		if ok[i] {
			total += v
		}
	}
	return total
}
