// Package diagnostics collects host resource metrics for the doctor
// command and health reporting.
package diagnostics

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics holds system-wide resource usage.
type SystemMetrics struct {
	CPUModel   string  `json:"cpu_model"`
	CPUCores   int     `json:"cpu_cores"`
	CPUPercent float64 `json:"cpu_percent"`

	MemTotalMB float64 `json:"mem_total_mb"`
	MemUsedMB  float64 `json:"mem_used_mb"`
	MemPercent float64 `json:"mem_percent"`

	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskUsedGB  float64 `json:"disk_used_gb"`
	DiskPercent float64 `json:"disk_percent"`

	LoadAvg1  float64 `json:"load_avg_1"`
	LoadAvg5  float64 `json:"load_avg_5"`
	LoadAvg15 float64 `json:"load_avg_15"`

	Goroutines  int       `json:"goroutines"`
	CollectedAt time.Time `json:"collected_at"`
}

// Collector gathers system metrics with a short cache so repeated calls
// stay cheap.
type Collector struct {
	mu       sync.Mutex
	cached   SystemMetrics
	cachedAt time.Time
	ttl      time.Duration
}

// NewCollector creates a metrics collector.
func NewCollector() *Collector {
	return &Collector{ttl: 2 * time.Second}
}

// Collect returns current system metrics. Individual probes are
// best-effort: a failing probe leaves its fields zero.
func (c *Collector) Collect() SystemMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.cachedAt) < c.ttl {
		return c.cached
	}

	var m SystemMetrics
	m.CollectedAt = time.Now().UTC()
	m.Goroutines = runtime.NumGoroutine()

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		m.CPUModel = infos[0].ModelName
	}
	m.CPUCores = runtime.NumCPU()
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		m.CPUPercent = percents[0]
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		m.MemTotalMB = float64(vm.Total) / (1 << 20)
		m.MemUsedMB = float64(vm.Used) / (1 << 20)
		m.MemPercent = vm.UsedPercent
	}

	if du, err := disk.Usage("/"); err == nil {
		m.DiskTotalGB = float64(du.Total) / (1 << 30)
		m.DiskUsedGB = float64(du.Used) / (1 << 30)
		m.DiskPercent = du.UsedPercent
	}

	if avg, err := load.Avg(); err == nil {
		m.LoadAvg1 = avg.Load1
		m.LoadAvg5 = avg.Load5
		m.LoadAvg15 = avg.Load15
	}

	c.cached = m
	c.cachedAt = time.Now()
	return m
}
