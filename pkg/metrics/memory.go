package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// MemorySampler 采样内存占用，返回 维度 -> 字节数
type MemorySampler interface {
	SampleMemory(ctx context.Context) (map[string]float64, error)
}

// MemorySamplerFunc 函数适配器
type MemorySamplerFunc func(ctx context.Context) (map[string]float64, error)

func (f MemorySamplerFunc) SampleMemory(ctx context.Context) (map[string]float64, error) {
	return f(ctx)
}

// processMemorySampler 基于 gopsutil 与 Go runtime 的默认实现
type processMemorySampler struct {
	pid int32
}

// NewProcessMemorySampler 采样当前进程
func NewProcessMemorySampler() MemorySampler {
	return &processMemorySampler{pid: int32(os.Getpid())}
}

func (s *processMemorySampler) SampleMemory(ctx context.Context) (map[string]float64, error) {
	proc, err := process.NewProcessWithContext(ctx, s.pid)
	if err != nil {
		return nil, fmt.Errorf("open process %d: %w", s.pid, err)
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("process memory info: %w", err)
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return map[string]float64{
		"rss":              float64(info.RSS),
		"vms":              float64(info.VMS),
		"heap_alloc":       float64(ms.HeapAlloc),
		"heap_sys":         float64(ms.HeapSys),
		"system_total":     float64(vm.Total),
		"system_available": float64(vm.Available),
	}, nil
}
