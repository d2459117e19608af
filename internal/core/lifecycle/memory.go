package lifecycle

import (
	"context"
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/dep2p/go-mobiletun/pkg/types"
)

// MemoryReader 读取 OS 内存统计
type MemoryReader interface {
	// AvailableMemory 返回系统可用内存（字节）
	AvailableMemory(ctx context.Context) (uint64, error)

	// ProcessMemory 返回当前进程的常驻/虚拟内存
	ProcessMemory(ctx context.Context) (types.MemoryStats, error)
}

// NewSystemMemoryReader 返回基于 gopsutil 的内存读取器
func NewSystemMemoryReader() MemoryReader {
	return &systemMemoryReader{pid: int32(os.Getpid())}
}

type systemMemoryReader struct {
	pid int32
}

// AvailableMemory 优先使用 MemAvailable，未报告时回退到 MemFree
func (r *systemMemoryReader) AvailableMemory(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("read virtual memory: %w", err)
	}
	if vm.Available > 0 {
		return vm.Available, nil
	}
	return vm.Free, nil
}

func (r *systemMemoryReader) ProcessMemory(ctx context.Context) (types.MemoryStats, error) {
	proc, err := process.NewProcessWithContext(ctx, r.pid)
	if err != nil {
		return types.MemoryStats{}, fmt.Errorf("open process %d: %w", r.pid, err)
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return types.MemoryStats{}, fmt.Errorf("read process memory: %w", err)
	}
	return types.MemoryStats{RSSBytes: info.RSS, VMSBytes: info.VMS}, nil
}
