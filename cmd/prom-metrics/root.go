package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/prom-metrics/pkg/config"
	"github.com/prom-metrics/pkg/logger"
	"github.com/prom-metrics/pkg/reporter"
	"github.com/prom-metrics/pkg/signal"
	"github.com/prom-metrics/pkg/util"
)

// version 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

const shutdownTimeout = 5 * time.Second

var rootCmd = &cobra.Command{
	Use:          "prom-metrics",
	Short:        "Prometheus-style metrics facade with periodic text exposition",
	Version:      version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithCli(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "请检查配置文件路径或使用 -c 参数指定\n")
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

// Execute 入口
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "配置文件路径")
	initMetricsFlags(rootCmd)
	initReporterFlags(rootCmd)
	initLogFlags(rootCmd)
}

func run(ctx context.Context, cfg *config.Config) error {
	util.PrintBanner(os.Stderr, "prom-metrics", "ColorBlue", version)

	l, err := logger.InitLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("日志初始化失败: %w", err)
	}
	defer logger.Sync()

	logger.Info("log initialization successful",
		zap.String("path", cfg.Log.Path),
		zap.String("level", cfg.Log.Level),
		zap.String("format", cfg.Log.Format))

	app := fx.New(
		fx.Supply(cfg),
		reporter.FXModule,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return fmt.Errorf("start application failed: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	return signal.WaitForShutdown(ctx, shutdownTimeout, app.Stop)
}
