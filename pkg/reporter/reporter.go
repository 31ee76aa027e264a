package reporter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/prom-metrics/pkg/logger"
	"github.com/prom-metrics/pkg/metrics"
)

// Reporter 定时抓取指标门面并写入 Sink
type Reporter struct {
	metrics  *metrics.Metrics
	interval time.Duration
	sink     Sink

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// New 创建定时抓取器
func New(m *metrics.Metrics, interval time.Duration, sink Sink) *Reporter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reporter{
		metrics:  m,
		interval: interval,
		sink:     sink,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// ReportOnce 抓取一次并写出
func (r *Reporter) ReportOnce(ctx context.Context) error {
	start := time.Now()
	text, err := r.metrics.GetMetrics(ctx)
	if err != nil {
		return err
	}
	if err := r.sink.Write(text); err != nil {
		return err
	}
	logger.Debug("metrics reported", zap.Int("bytes", len(text)), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Start 启动抓取循环（非阻塞），重复调用无效
func (r *Reporter) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true

	ticker := time.NewTicker(r.interval)
	logger.Info("reporter started", zap.Duration("interval", r.interval))

	// 同时监听外部 ctx 和内部 ctx 的关闭信号
	go func() {
		defer close(r.done)
		defer ticker.Stop()

		// 首次抓取（失败仅警告）
		if err := r.ReportOnce(r.ctx); err != nil {
			logger.Warn("first report failed", zap.Error(err))
		}

		for {
			select {
			case <-ticker.C:
				if err := r.ReportOnce(r.ctx); err != nil {
					logger.Warn("report failed", zap.Error(err))
				}
			case <-ctx.Done():
				logger.Info("reporter stopped by external context", zap.Error(ctx.Err()))
				return
			case <-r.ctx.Done():
				logger.Info("reporter stopped by internal shutdown")
				return
			}
		}
	}()
}

// Shutdown 停止抓取循环并等待其退出
func (r *Reporter) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()

	r.cancel()
	if !running {
		return nil
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
