package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	cload "github.com/shirou/gopsutil/v3/load"
	"go.uber.org/zap"

	"github.com/prom-metrics/pkg/config"
	"github.com/prom-metrics/pkg/logger"
	"github.com/prom-metrics/pkg/metrics"
)

const (
	CPUUsageMetricName     = "system_cpu_usage_ratio"
	CPULoadMetricName      = "system_cpu_load"
	CPUModeMetricName      = "system_cpu_mode_usage_percent"
	CollectErrorMetricName = "collector_errors_total"
)

// CPUTimes 存储CPU各模式的累计时间
type CPUTimes struct {
	User    float64
	Nice    float64
	System  float64
	Idle    float64
	Iowait  float64
	Irq     float64
	Softirq float64
	Steal   float64
}

// Total 各模式时间之和
func (t CPUTimes) Total() float64 {
	return t.User + t.Nice + t.System + t.Idle + t.Iowait + t.Irq + t.Softirq + t.Steal
}

// CPUCollector CPU采集器（实现Collector接口）
// 使用率、负载与各模式累计时间均经由 gopsutil 采集，各模式占比由两次采样的差值计算
type CPUCollector struct {
	name  string
	cfg   config.CPUConfig
	times func(ctx context.Context) ([]cpu.TimesStat, error)

	mu           sync.Mutex
	lastCPUTimes CPUTimes // 上一次的总览行，用于计算各模式占比
	hasLast      bool

	collectErrors *metrics.CounterGroup
}

// NewCPUCollector 创建CPU采集器
func NewCPUCollector(cfg config.CPUConfig) *CPUCollector {
	return &CPUCollector{
		name: "cpu-collector",
		cfg:  cfg,
		times: func(ctx context.Context) ([]cpu.TimesStat, error) {
			return cpu.TimesWithContext(ctx, false)
		},
	}
}

// Name 返回采集器名称
func (c *CPUCollector) Name() string { return c.name }

// Init 预检查CPU可用性
func (c *CPUCollector) Init() error {
	if _, err := cpu.Counts(false); err != nil {
		logger.Error("failed to get CPU counts", zap.Error(err))
		return err
	}
	return nil
}

// Register 注册 CPU 指标及其计算器
func (c *CPUCollector) Register(m *metrics.Metrics) error {
	var err error
	c.collectErrors, err = m.RegisterCounterGroup(CollectErrorMetricName,
		metrics.WithHelp("Collector failures by collector name"),
		metrics.WithLabel("collector"))
	if err != nil {
		return err
	}

	if _, err = m.RegisterMetricGroup(CPUUsageMetricName,
		metrics.WithHelp("CPU usage ratio (0-1)"),
		metrics.WithLabel("cpu"),
		metrics.WithGroupCalculate(c.usage)); err != nil {
		return err
	}

	if _, err = m.RegisterMetricGroup(CPULoadMetricName,
		metrics.WithHelp("System load average"),
		metrics.WithLabel("window"),
		metrics.WithGroupCalculate(c.load)); err != nil {
		return err
	}

	_, err = m.RegisterMetricGroup(CPUModeMetricName,
		metrics.WithHelp("CPU time share per mode since the previous scrape (percent)"),
		metrics.WithLabel("mode"),
		metrics.WithGroupCalculate(c.modes))
	return err
}

// Close 无资源需释放
func (c *CPUCollector) Close() error {
	return nil
}

// collectFailed 记录采集失败；采集器错误不中断整次抓取
func (c *CPUCollector) collectFailed(msg string, err error) {
	logger.Warn(msg, zap.String("name", c.name), zap.Error(err))
	if c.collectErrors != nil {
		c.collectErrors.IncrementKeys(c.name)
	}
}

// usage 整体/每核 CPU 使用率
func (c *CPUCollector) usage(ctx context.Context) (map[string]float64, error) {
	usageList, err := cpu.PercentWithContext(ctx, 0, c.cfg.CollectPerCore)
	if err != nil || len(usageList) == 0 {
		c.collectFailed("failed to get CPU usage", err)
		return nil, nil
	}

	values := make(map[string]float64, len(usageList))
	if c.cfg.CollectPerCore {
		for i, usage := range usageList {
			values[fmt.Sprintf("cpu%d", i)] = usage / 100
		}
	} else {
		values["total"] = usageList[0] / 100
	}
	return values, nil
}

// load 1/5/15 分钟负载
func (c *CPUCollector) load(ctx context.Context) (map[string]float64, error) {
	avg, err := cload.AvgWithContext(ctx)
	if err != nil {
		c.collectFailed("failed to get CPU load", err)
		return nil, nil
	}
	logger.Debug("collected CPU load",
		zap.Float64("load1", avg.Load1),
		zap.Float64("load5", avg.Load5),
		zap.Float64("load15", avg.Load15))
	return map[string]float64{
		"load1":  avg.Load1,
		"load5":  avg.Load5,
		"load15": avg.Load15,
	}, nil
}

var errNoCPUTimes = errors.New("no aggregate CPU times reported")

// modes 各模式占比；首次抓取只记录基准
func (c *CPUCollector) modes(ctx context.Context) (map[string]float64, error) {
	stats, err := c.times(ctx)
	if err == nil && len(stats) == 0 {
		err = errNoCPUTimes
	}
	if err != nil {
		c.collectFailed("failed to get CPU times", err)
		return nil, nil
	}
	current := fromTimesStat(stats[0])

	c.mu.Lock()
	last, hasLast := c.lastCPUTimes, c.hasLast
	c.lastCPUTimes, c.hasLast = current, true
	c.mu.Unlock()

	if !hasLast {
		logger.Debug("first collect CPU times (skip usage calc)", zap.Any("times", current))
		return nil, nil
	}
	values, ok := modeUsage(last, current)
	if !ok {
		logger.Debug("CPU total time not changed (skip usage calc)")
		return nil, nil
	}
	return values, nil
}

// fromTimesStat 取 gopsutil 汇总行中参与占比计算的字段
// Guest/GuestNice 已计入 User/Nice，不重复累加
func fromTimesStat(s cpu.TimesStat) CPUTimes {
	return CPUTimes{
		User: s.User, Nice: s.Nice, System: s.System, Idle: s.Idle,
		Iowait: s.Iowait, Irq: s.Irq, Softirq: s.Softirq, Steal: s.Steal,
	}
}

// modeUsage 两次采样之间各模式所占百分比，"busy" 为 100% 减空闲
// 总时间未变化时返回 false
func modeUsage(last, cur CPUTimes) (map[string]float64, bool) {
	deltaTotal := cur.Total() - last.Total()
	if deltaTotal <= 0 {
		return nil, false
	}
	deltas := map[string]float64{
		"user":    cur.User - last.User,
		"nice":    cur.Nice - last.Nice,
		"system":  cur.System - last.System,
		"idle":    cur.Idle - last.Idle,
		"iowait":  cur.Iowait - last.Iowait,
		"irq":     cur.Irq - last.Irq,
		"softirq": cur.Softirq - last.Softirq,
		"steal":   cur.Steal - last.Steal,
	}
	values := make(map[string]float64, len(deltas)+1)
	for mode, d := range deltas {
		values[mode] = d / deltaTotal * 100
	}
	values["busy"] = (deltaTotal - deltas["idle"]) / deltaTotal * 100
	return values, true
}
