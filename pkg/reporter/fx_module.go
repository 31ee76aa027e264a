package reporter

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/prom-metrics/pkg/collector"
	"github.com/prom-metrics/pkg/config"
	"github.com/prom-metrics/pkg/logger"
	"github.com/prom-metrics/pkg/metrics"
)

// FXModule 提供指标门面、采集器与定时抓取器，并注册生命周期
//
//	app := fx.New(
//	    fx.Supply(cfg),
//	    reporter.FXModule,
//	)
//
// 需要容器中存在 *config.Config；*metrics.Registry 可选，缺省使用进程级共享注册表
var FXModule = fx.Module("reporter",
	fx.Provide(
		NewMetricsWithDI,
		NewCollectorsWithDI,
		NewReporterWithDI,
	),
	fx.Invoke(RegisterLifecycle),
)

type MetricsParams struct {
	fx.In

	Config   *config.Config
	Registry *metrics.Registry `optional:"true"`
}

// NewMetricsWithDI 按配置创建指标门面
func NewMetricsWithDI(p MetricsParams) *metrics.Metrics {
	opts := []metrics.Option{
		metrics.WithPreserveExistingMetrics(p.Config.Metrics.PreserveExisting),
		metrics.WithMemoryTracking(p.Config.Metrics.TrackMemory),
	}
	if p.Registry != nil {
		opts = append(opts, metrics.WithRegistry(p.Registry))
	}
	return metrics.New(opts...)
}

// NewCollectorsWithDI 注册已启用的采集器，停止时关闭
func NewCollectorsWithDI(lc fx.Lifecycle, cfg *config.Config, m *metrics.Metrics) ([]collector.Collector, error) {
	collectors, err := collector.RegisterCollectors(m, &cfg.Metrics)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return collector.CloseCollectors(collectors)
		},
	})
	return collectors, nil
}

// NewReporterWithDI 按配置创建定时抓取器
func NewReporterWithDI(cfg *config.Config, m *metrics.Metrics) *Reporter {
	return New(m, cfg.Reporter.Interval, NewSink(cfg.Reporter.Output))
}

// RegisterLifecycle 启动时开始抓取循环，停止时等待循环退出
// 依赖采集器列表，确保采集器先于首次抓取完成注册
func RegisterLifecycle(lc fx.Lifecycle, r *Reporter, collectors []collector.Collector) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting reporter", zap.Int("collectors", len(collectors)))
			// OnStart 的 ctx 在启动完成后失效，循环仅由 Shutdown 停止
			r.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down reporter")
			return r.Shutdown(ctx)
		},
	})
}
