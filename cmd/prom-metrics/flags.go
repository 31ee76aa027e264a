package main

import (
	"github.com/spf13/cobra"

	"github.com/prom-metrics/pkg/config"
)

var defaultCfg = config.NewDefaultConfig()

// flag 名与配置键一致，viper 按 "." 拆分为嵌套键
func initMetricsFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	prefix := "metrics."

	f.Bool(prefix+"preserve_existing", defaultCfg.Metrics.PreserveExisting,
		"-> Keep metrics registered before start | 保留已注册指标")
	f.Bool(prefix+"track_memory", defaultCfg.Metrics.TrackMemory,
		"-> Report process memory usage | 采集进程内存")
	f.Bool(prefix+"cpu.enable", defaultCfg.Metrics.CPU.Enable,
		"-> Register CPU calculators | 启用 CPU 采集")
	f.Bool(prefix+"cpu.collect_per_core", defaultCfg.Metrics.CPU.CollectPerCore,
		"-> Report usage per core | 按核心采集")
}

func initReporterFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	prefix := "reporter."

	f.Duration(prefix+"interval", defaultCfg.Reporter.Interval,
		"-> Scrape interval | 抓取间隔")
	f.String(prefix+"output", defaultCfg.Reporter.Output,
		"-> stdout or a file path | 输出位置")
}

func initLogFlags(root *cobra.Command) {
	f := root.PersistentFlags()
	prefix := "log."

	f.String(prefix+"level", defaultCfg.Log.Level,
		"-> Log level [debug,info,warn,error] | 日志级别")
	f.String(prefix+"format", defaultCfg.Log.Format,
		"-> Log format [console,json] | 日志格式")
	f.String(prefix+"path", defaultCfg.Log.Path,
		"-> Log file storage path | 日志路径")
	f.Int(prefix+"max_age", defaultCfg.Log.MaxAge,
		"-> Maximum retention days of log files | 保存天数")
	f.Duration(prefix+"rotation_time", defaultCfg.Log.RotationTime,
		"-> Log rotation period | 切割周期")
}
