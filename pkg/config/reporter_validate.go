package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Validate 抓取配置校验
// 抓取间隔限制在 1s ~ 1h，避免过频/过久
// 输出为 stdout 或可写的文件路径
func (r *ReporterConfig) Validate() error {
	if err := valid.Struct(r); err != nil {
		return err
	}
	if r.Interval < time.Second || r.Interval > 3600*time.Second {
		return fmt.Errorf("reporter.interval must be between 1s and 3600s, got %s", r.Interval)
	}

	out := strings.TrimSpace(r.Output)
	if out == "" {
		return fmt.Errorf("reporter.output cannot be empty")
	}
	if out == "stdout" {
		return nil
	}
	if strings.ContainsAny(out, "\t\r\n") {
		return fmt.Errorf("reporter.output: path %q contains whitespace", out)
	}
	abs, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("reporter.output failed to parse path %s: %w", out, err)
	}
	if err := ensureDir(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("reporter.output directory is not writable, got %s: %w", out, err)
	}
	return nil
}
