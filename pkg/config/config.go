package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var valid = validator.New()

// Config 全局配置结构体（聚合所有核心模块）
type Config struct {
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics" comment:"指标门面配置"`
	Reporter ReporterConfig `yaml:"reporter" mapstructure:"reporter" comment:"定时抓取输出配置"`
	Log      ZapLogConfig   `yaml:"log" mapstructure:"log" comment:"日志配置"`
}

// MetricsConfig 指标门面配置
type MetricsConfig struct {
	PreserveExisting bool      `yaml:"preserve_existing" mapstructure:"preserve_existing" env:"METRICS_PRESERVE_EXISTING" comment:"构造时是否保留已有注册（默认清空）" default:"false"`
	TrackMemory      bool      `yaml:"track_memory" mapstructure:"track_memory" env:"METRICS_TRACK_MEMORY" comment:"是否采集进程内存" default:"true"`
	CPU              CPUConfig `yaml:"cpu" mapstructure:"cpu" comment:"CPU 计算器配置"`
}

// CPUConfig CPU 计算器配置
type CPUConfig struct {
	Enable         bool `yaml:"enable" mapstructure:"enable" env:"METRICS_CPU_ENABLE" comment:"是否注册 CPU 计算器" default:"true"`
	CollectPerCore bool `yaml:"collect_per_core" mapstructure:"collect_per_core" env:"METRICS_CPU_PER_CORE" comment:"是否按每核心采集CPU使用率" default:"false"`
}

// ReporterConfig 定时抓取配置
type ReporterConfig struct {
	Interval time.Duration `yaml:"interval" mapstructure:"interval" env:"REPORTER_INTERVAL" validate:"required,gt=0" comment:"抓取间隔（如10s）" default:"10s"`
	Output   string        `yaml:"output" mapstructure:"output" env:"REPORTER_OUTPUT" validate:"required" comment:"输出位置：stdout 或文件路径" default:"stdout"`
}

// ZapLogConfig 日志配置
type ZapLogConfig struct {
	Level        string        `yaml:"level" mapstructure:"level" env:"LOG_LEVEL" validate:"required,oneof=debug info warn error dpanic panic fatal" comment:"日志级别" default:"info"`
	Format       string        `yaml:"format" mapstructure:"format" env:"LOG_FORMAT" validate:"required,oneof=json console" comment:"控制台日志格式（json/console）" default:"console"`
	Path         string        `yaml:"path" mapstructure:"path" env:"LOG_PATH" validate:"required" comment:"日志存储路径" default:"./logs"`
	MaxAge       int           `yaml:"max_age" mapstructure:"max_age" env:"LOG_MAX_AGE" validate:"gte=0" comment:"日志文件最大保存天数" default:"7"`
	RotationTime time.Duration `yaml:"rotation_time" mapstructure:"rotation_time" env:"LOG_ROTATION_TIME" validate:"required,gt=0" comment:"切割周期" default:"24h"`
}

// NewDefaultConfig 创建默认配置（所有字段兜底，避免空指针/非法值）
func NewDefaultConfig() *Config {
	return &Config{
		Metrics: MetricsConfig{
			PreserveExisting: false,
			TrackMemory:      true,
			CPU: CPUConfig{
				Enable:         true,
				CollectPerCore: false,
			},
		},
		Reporter: ReporterConfig{
			Interval: 10 * time.Second,
			Output:   "stdout",
		},
		Log: ZapLogConfig{
			Level:        "info",
			Format:       "console",
			Path:         "./logs",
			MaxAge:       7,
			RotationTime: 24 * time.Hour,
		},
	}
}

// LoadConfigWithCli 支持 time.Duration，(Flags + YAML + ENV)
func LoadConfigWithCli(cmd *cobra.Command) (*Config, error) {
	v := viper.New()

	// 1. 绑定 Cobra Flags → Viper
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	// 2. 解析配置文件 (--config)
	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	// 3. 绑定环境变量 ENV -> Viper （REPORTER_INTERVAL -> reporter.interval）
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return decode(v)
}

// LoadFile 仅从配置文件加载（无命令行场景）
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return decode(v)
}

// decode 以默认配置为底，解码 viper 中的设置并校验
func decode(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()

	decoderConfig := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	}

	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return nil, fmt.Errorf("new decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate 配置校验
func (c *Config) Validate() error {
	if err := valid.Struct(c); err != nil {
		return err
	}
	// 	1，校验抓取配置
	if err := c.Reporter.Validate(); err != nil {
		return err
	}
	// 	2，校验日志配置
	if err := c.Log.Validate(); err != nil {
		return err
	}
	return nil
}
