package metrics

import (
	"context"
	"regexp"
	"time"

	"github.com/prom-metrics/pkg/store"
)

var (
	invalidNameChars    = regexp.MustCompile(`[^a-zA-Z0-9_]`)
	repeatedUnderscores = regexp.MustCompile(`_+`)
)

// NormaliseString 将任意字符串转换为合法的指标/标签名
// 非 [a-zA-Z0-9_] 字符替换为 "_"，连续的 "_" 合并为一个
// 幂等：NormaliseString(NormaliseString(s)) == NormaliseString(s)
// 参见 https://prometheus.io/docs/concepts/data_model/#metric-names-and-labels
func NormaliseString(str string) string {
	return repeatedUnderscores.ReplaceAllString(invalidNameChars.ReplaceAllString(str, "_"), "_")
}

// StopTimer 停止计时并写入耗时（秒）
type StopTimer func()

// decrementGauge 与 prom-client 行为一致：未设置过的 gauge 视为从 0 开始递减
func decrementGauge(family *store.Family, dec float64, lvs ...string) {
	if _, ok := family.Get(lvs...); !ok {
		family.Set(-dec, lvs...)
		return
	}
	family.Sub(dec, lvs...)
}

// startTimer 返回一次性计时器，停止时以秒为单位覆盖写入
func startTimer(family *store.Family, lvs ...string) StopTimer {
	start := time.Now()
	return func() {
		family.Set(time.Since(start).Seconds(), lvs...)
	}
}

// unitValues 将一组 key 展开为 key -> 1
func unitValues(keys []string) map[string]float64 {
	values := make(map[string]float64, len(keys))
	for _, k := range keys {
		values[k] = 1
	}
	return values
}

// CalculatedMetric 可在抓取前重新计算的指标
type CalculatedMetric interface {
	Calculate(ctx context.Context) error
}
