package system

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSystemMonitor_GetSystemInfo(t *testing.T) {
	sm := NewSystemMonitor()
	runtime.GC()

	info := sm.GetSystemInfo()
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.NumCPU(), info.NumCPU)
	assert.Positive(t, info.RuntimeStats.NumGoroutine)
	assert.Positive(t, info.MemoryStats.Sys)
	assert.GreaterOrEqual(t, info.RuntimeStats.GCStats.NumGC, uint32(1))
	assert.NotEmpty(t, info.RuntimeStats.GCStats.PauseHistory)
}

func TestSystemMonitor_PauseHistoryIsBounded(t *testing.T) {
	sm := NewSystemMonitor()
	for i := 0; i < 15; i++ {
		runtime.GC()
		sm.GetSystemInfo()
	}
	info := sm.GetSystemInfo()
	assert.LessOrEqual(t, len(info.RuntimeStats.GCStats.PauseHistory), 10)
}
