package system

import (
	"runtime"
	"sync"
	"time"
)

// SystemInfo is a runtime snapshot reported next to the server counters.
type SystemInfo struct {
	OS           string       `json:"os"`
	Arch         string       `json:"arch"`
	NumCPU       int          `json:"num_cpu"`
	GoVersion    string       `json:"go_version"`
	MemoryStats  MemoryStats  `json:"memory_stats"`
	RuntimeStats RuntimeStats `json:"runtime_stats"`
	Uptime       string       `json:"uptime"`
	Timestamp    time.Time    `json:"timestamp"`
}

// MemoryStats contains memory usage statistics
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`       // bytes allocated and still in use
	TotalAlloc uint64 `json:"total_alloc"` // bytes allocated (even if freed)
	Sys        uint64 `json:"sys"`         // bytes obtained from system
	HeapInuse  uint64 `json:"heap_inuse"`  // bytes in non-idle span
	StackInuse uint64 `json:"stack_inuse"` // bytes used by stack allocator
}

// RuntimeStats contains Go runtime statistics
type RuntimeStats struct {
	NumGoroutine int     `json:"num_goroutine"`
	GCStats      GCStats `json:"gc_stats"`
}

// GCStats contains garbage collection statistics
type GCStats struct {
	NumGC         uint32          `json:"num_gc"`
	GCCPUFraction float64         `json:"gc_cpu_fraction"`
	TotalPause    time.Duration   `json:"total_pause"`
	LastPause     time.Duration   `json:"last_pause"`
	PauseHistory  []time.Duration `json:"pause_history"`
}

// SystemMonitor samples the Go runtime. It is safe for concurrent use since
// the stats endpoint may be hit by several clients at once.
type SystemMonitor struct {
	mu           sync.Mutex
	startTime    time.Time
	lastGCNum    uint32
	pauseHistory []time.Duration
	maxHistory   int
}

// NewSystemMonitor creates a new system monitor
func NewSystemMonitor() *SystemMonitor {
	return &SystemMonitor{
		startTime:    time.Now(),
		pauseHistory: make([]time.Duration, 0, 10),
		maxHistory:   10,
	}
}

// GetSystemInfo returns current system information
func (sm *SystemMonitor) GetSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	sm.mu.Lock()
	sm.updateGCHistory(&m)
	history := append([]time.Duration(nil), sm.pauseHistory...)
	sm.mu.Unlock()

	return SystemInfo{
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
		GoVersion: runtime.Version(),
		MemoryStats: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			HeapInuse:  m.HeapInuse,
			StackInuse: m.StackInuse,
		},
		RuntimeStats: RuntimeStats{
			NumGoroutine: runtime.NumGoroutine(),
			GCStats: GCStats{
				NumGC:         m.NumGC,
				GCCPUFraction: m.GCCPUFraction,
				TotalPause:    time.Duration(m.PauseTotalNs),
				LastPause:     lastPause(&m),
				PauseHistory:  history,
			},
		},
		Uptime:    sm.GetUptime().Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// updateGCHistory records pauses of GC cycles completed since the last call.
// The runtime keeps only the most recent 256.
func (sm *SystemMonitor) updateGCHistory(m *runtime.MemStats) {
	if m.NumGC <= sm.lastGCNum {
		return
	}
	from := sm.lastGCNum
	if m.NumGC-from > 256 {
		from = m.NumGC - 256
	}
	for i := from; i < m.NumGC; i++ {
		sm.pauseHistory = append(sm.pauseHistory, time.Duration(m.PauseNs[(i+255)%256]))
		if len(sm.pauseHistory) > sm.maxHistory {
			sm.pauseHistory = sm.pauseHistory[1:]
		}
	}
	sm.lastGCNum = m.NumGC
}

func lastPause(m *runtime.MemStats) time.Duration {
	if m.NumGC == 0 {
		return 0
	}
	return time.Duration(m.PauseNs[(m.NumGC+255)%256])
}

// GetUptime returns the uptime since monitor creation
func (sm *SystemMonitor) GetUptime() time.Duration {
	return time.Since(sm.startTime)
}
