package ffmpeg

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// ProcessStats contains resource usage statistics for an FFmpeg process.
type ProcessStats struct {
	PID            int           `json:"pid"`
	CPUPercent     float64       `json:"cpu_percent"` // per core, so may exceed 100
	CPUUser        time.Duration `json:"cpu_user"`
	CPUSystem      time.Duration `json:"cpu_system"`
	MemoryRSSBytes uint64        `json:"memory_rss_bytes"`
	MemoryVMSBytes uint64        `json:"memory_vms_bytes"`
	MemoryPercent  float64       `json:"memory_percent"`
	StartedAt      time.Time     `json:"started_at"`
	LastUpdated    time.Time     `json:"last_updated"`
}

// ProcessMonitor samples resource usage of an FFmpeg process.
type ProcessMonitor struct {
	pid       int
	startedAt time.Time
	interval  time.Duration

	mu      sync.RWMutex
	stats   ProcessStats
	proc    *process.Process
	running bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessMonitor creates a monitor for pid sampling every interval.
func NewProcessMonitor(pid int, interval time.Duration) *ProcessMonitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &ProcessMonitor{
		pid:       pid,
		startedAt: time.Now(),
		interval:  interval,
		stats:     ProcessStats{PID: pid},
	}
}

// Start begins monitoring the process.
func (pm *ProcessMonitor) Start() {
	pm.mu.Lock()
	if pm.running {
		pm.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	pm.cancel = cancel
	pm.running = true
	pm.mu.Unlock()

	pm.wg.Add(1)
	go pm.monitorLoop(ctx)
}

// Stop stops monitoring the process. It is safe to call more than once.
func (pm *ProcessMonitor) Stop() {
	pm.mu.Lock()
	cancel := pm.cancel
	pm.running = false
	pm.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	pm.wg.Wait()
}

// Stats returns the most recent sample.
func (pm *ProcessMonitor) Stats() ProcessStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.stats
}

func (pm *ProcessMonitor) monitorLoop(ctx context.Context) {
	defer pm.wg.Done()

	ticker := time.NewTicker(pm.interval)
	defer ticker.Stop()

	pm.sample(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.sample(ctx)
		}
	}
}

// sample takes a snapshot of process statistics. Errors are ignored since the
// process may exit between samples.
func (pm *ProcessMonitor) sample(ctx context.Context) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.proc == nil {
		p, err := process.NewProcessWithContext(ctx, int32(pm.pid))
		if err != nil {
			return
		}
		pm.proc = p
	}

	now := time.Now()
	pm.stats.StartedAt = pm.startedAt
	pm.stats.LastUpdated = now

	if pct, err := pm.proc.CPUPercentWithContext(ctx); err == nil {
		pm.stats.CPUPercent = pct
	}
	if times, err := pm.proc.TimesWithContext(ctx); err == nil {
		pm.stats.CPUUser = time.Duration(times.User * float64(time.Second))
		pm.stats.CPUSystem = time.Duration(times.System * float64(time.Second))
	}
	if mem, err := pm.proc.MemoryInfoWithContext(ctx); err == nil {
		pm.stats.MemoryRSSBytes = mem.RSS
		pm.stats.MemoryVMSBytes = mem.VMS
	}
	if pct, err := pm.proc.MemoryPercentWithContext(ctx); err == nil {
		pm.stats.MemoryPercent = float64(pct)
	}
}
