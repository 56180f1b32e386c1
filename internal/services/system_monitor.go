package services

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemSnapshot captures host resource usage at a point in time.
type SystemSnapshot struct {
	Timestamp   time.Time `json:"timestamp"`
	CPUUsage    float64   `json:"cpu_usage"`
	MemoryUsage float64   `json:"memory_usage"`
	Goroutines  int       `json:"goroutines"`
	CPUCores    int       `json:"cpu_cores"`
}

// SystemMonitor samples CPU and memory usage for the system health
// endpoint. Sampling CPU percent blocks for the sample interval, so the
// last snapshot is cached and refreshed at most once per refresh period.
type SystemMonitor struct {
	mu            sync.RWMutex
	last          SystemSnapshot
	refreshPeriod time.Duration
}

// NewSystemMonitor creates a monitor with the given cache period. Zero
// falls back to 10 seconds.
func NewSystemMonitor(refreshPeriod time.Duration) *SystemMonitor {
	if refreshPeriod <= 0 {
		refreshPeriod = 10 * time.Second
	}
	return &SystemMonitor{refreshPeriod: refreshPeriod}
}

// Snapshot returns current resource usage, refreshing the cached sample
// when it is stale.
func (m *SystemMonitor) Snapshot(ctx context.Context) (SystemSnapshot, error) {
	m.mu.RLock()
	last := m.last
	m.mu.RUnlock()

	if time.Since(last.Timestamp) < m.refreshPeriod {
		return last, nil
	}

	cpuPercent, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		return SystemSnapshot{}, fmt.Errorf("failed to get CPU usage: %w", err)
	}
	memInfo, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemSnapshot{}, fmt.Errorf("failed to get memory usage: %w", err)
	}

	snapshot := SystemSnapshot{
		Timestamp:   time.Now(),
		MemoryUsage: memInfo.UsedPercent,
		Goroutines:  runtime.NumGoroutine(),
		CPUCores:    runtime.NumCPU(),
	}
	if len(cpuPercent) > 0 {
		snapshot.CPUUsage = cpuPercent[0]
	}

	m.mu.Lock()
	m.last = snapshot
	m.mu.Unlock()

	return snapshot, nil
}
