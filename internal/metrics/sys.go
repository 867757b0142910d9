package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// SysHealth represents real-time process and host metrics.
type SysHealth struct {
	AllocMB      uint64 `json:"allocMB"`
	TotalAllocMB uint64 `json:"totalAllocMB"`
	SysMB        uint64 `json:"sysMB"`
	NumGC        uint32 `json:"numGC"`
	Goroutines   int    `json:"goroutines"`
	DataDiskSize string `json:"dataDiskSize"`

	HostMemUsedPercent   float64 `json:"hostMemUsedPercent"`
	HostMemAvailableMB   uint64  `json:"hostMemAvailableMB"`
	DiskUsedPercent      float64 `json:"diskUsedPercent"`
	DiskFree             string  `json:"diskFree"`
	HostStatsUnavailable bool    `json:"hostStatsUnavailable,omitempty"`
}

// GetSysHealth collects real-time health data. Host figures come from
// gopsutil and are left zero when the platform cannot report them.
func GetSysHealth(ctx context.Context, dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h := SysHealth{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		DataDiskSize: humanBytes(dirSize(dataPath)),
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		h.HostMemUsedPercent = vm.UsedPercent
		h.HostMemAvailableMB = vm.Available / 1024 / 1024
	} else {
		h.HostStatsUnavailable = true
	}

	if usage, err := disk.UsageWithContext(ctx, existingDir(dataPath)); err == nil {
		h.DiskUsedPercent = usage.UsedPercent
		h.DiskFree = humanBytes(int64(usage.Free))
	} else {
		h.HostStatsUnavailable = true
	}
	return h
}

// existingDir walks up from path to the nearest directory that exists.
func existingDir(path string) string {
	dir := path
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

func dirSize(path string) int64 {
	var size int64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}

func humanBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
