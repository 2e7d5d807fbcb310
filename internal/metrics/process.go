package metrics

import (
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessStats is the point-in-time process snapshot exposed by the state
// endpoint.
type ProcessStats struct {
	PID           int32   `json:"pid"`
	CPUPercent    float64 `json:"cpuPercent"`
	MemoryRSS     uint64  `json:"memoryRss"`
	MemoryVMS     uint64  `json:"memoryVms"`
	NumGoroutines int     `json:"numGoroutines"`
	NumThreads    int32   `json:"numThreads"`
	UptimeSeconds int64   `json:"uptimeSeconds"`
}

var startTime = time.Now()

// CollectProcessStats samples the current process. Fields that cannot be
// read on the platform are left at zero rather than failing the call.
func CollectProcessStats(numGoroutines int) ProcessStats {
	stats := ProcessStats{
		PID:           int32(os.Getpid()),
		NumGoroutines: numGoroutines,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
	}
	p, err := process.NewProcess(stats.PID)
	if err != nil {
		return stats
	}
	if cpu, err := p.CPUPercent(); err == nil {
		stats.CPUPercent = cpu
	}
	if mi, err := p.MemoryInfo(); err == nil && mi != nil {
		stats.MemoryRSS = mi.RSS
		stats.MemoryVMS = mi.VMS
	}
	if threads, err := p.NumThreads(); err == nil {
		stats.NumThreads = threads
	}
	return stats
}
