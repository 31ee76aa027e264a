package collector

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/prom-metrics/pkg/config"
	"github.com/prom-metrics/pkg/logger"
	"github.com/prom-metrics/pkg/metrics"
)

// Collector 采集器接口：在门面上注册自己的指标与计算器
// 指标值在每次抓取时由计算器按需采集
type Collector interface {
	Name() string                      // 采集器名称（唯一标识）
	Init() error                       // 预检查资源
	Register(m *metrics.Metrics) error // 注册指标与计算器
	Close() error                      // 释放资源
}

// RegisterCollectors 采集器注册统一入口（扩展仅需修改此函数）
func RegisterCollectors(m *metrics.Metrics, cfg *config.MetricsConfig) ([]Collector, error) {
	var collectors []Collector
	if cfg.CPU.Enable {
		collectors = append(collectors, NewCPUCollector(cfg.CPU))
	}

	logger.Debug("collector enable status", zap.Bool("cpu_enable", cfg.CPU.Enable))

	var registered []Collector
	for _, c := range collectors {
		if err := c.Init(); err != nil {
			// 资源不可用的采集器跳过，不影响其他采集器
			logger.Warn("collector init failed, skipped", zap.String("name", c.Name()), zap.Error(err))
			continue
		}
		if err := c.Register(m); err != nil {
			return registered, fmt.Errorf("register collector %s: %w", c.Name(), err)
		}
		registered = append(registered, c)
		logger.Info("collector registered", zap.String("name", c.Name()))
	}
	return registered, nil
}

// CloseCollectors 依次关闭采集器，汇总错误
func CloseCollectors(collectors []Collector) error {
	var err error
	for _, c := range collectors {
		if cerr := c.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close collector %s: %w", c.Name(), cerr))
		}
	}
	return err
}
