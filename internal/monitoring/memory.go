package monitoring

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// MemorySnapshot is one point-in-time view of runtime memory usage.
type MemorySnapshot struct {
	Alloc        uint64    `json:"alloc_bytes"`
	TotalAlloc   uint64    `json:"total_alloc_bytes"`
	Sys          uint64    `json:"sys_bytes"`
	HeapAlloc    uint64    `json:"heap_alloc_bytes"`
	HeapSys      uint64    `json:"heap_sys_bytes"`
	HeapInuse    uint64    `json:"heap_inuse_bytes"`
	NumGC        uint32    `json:"num_gc"`
	NumGoroutine int       `json:"num_goroutine"`
	Timestamp    time.Time `json:"timestamp"`
}

// MemoryMonitor samples runtime memory usage on an interval. Large zip
// uploads are the main allocation source in this service, so the monitor
// forces a collection when the heap crosses the configured threshold.
type MemoryMonitor struct {
	current     MemorySnapshot
	history     []MemorySnapshot
	maxHistory  int
	interval    time.Duration
	gcThreshold uint64
	logger      *Logger
	stopChannel chan struct{}
	mutex       sync.RWMutex
}

// NewMemoryMonitor creates a memory monitor. gcThreshold is in bytes.
func NewMemoryMonitor(interval time.Duration, gcThreshold uint64, logger *Logger) *MemoryMonitor {
	return &MemoryMonitor{
		history:     make([]MemorySnapshot, 0),
		maxHistory:  100,
		interval:    interval,
		gcThreshold: gcThreshold,
		logger:      logger,
		stopChannel: make(chan struct{}),
	}
}

// Start begins sampling in a goroutine.
func (mm *MemoryMonitor) Start() {
	go func() {
		ticker := time.NewTicker(mm.interval)
		defer ticker.Stop()

		slog.Info("Starting memory monitoring", "interval_ms", mm.interval.Milliseconds())

		for {
			select {
			case <-ticker.C:
				mm.sample()
			case <-mm.stopChannel:
				slog.Info("Memory monitoring stopped")
				return
			}
		}
	}()
}

// Stop stops sampling.
func (mm *MemoryMonitor) Stop() {
	close(mm.stopChannel)
}

func (mm *MemoryMonitor) sample() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snap := MemorySnapshot{
		Alloc:        memStats.Alloc,
		TotalAlloc:   memStats.TotalAlloc,
		Sys:          memStats.Sys,
		HeapAlloc:    memStats.HeapAlloc,
		HeapSys:      memStats.HeapSys,
		HeapInuse:    memStats.HeapInuse,
		NumGC:        memStats.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
		Timestamp:    time.Now(),
	}

	mm.mutex.Lock()
	mm.current = snap
	mm.history = append(mm.history, snap)
	if len(mm.history) > mm.maxHistory {
		mm.history = mm.history[1:]
	}
	mm.mutex.Unlock()

	if memStats.HeapAlloc > mm.gcThreshold {
		slog.Info("Triggering manual garbage collection",
			"heap_alloc_mb", memStats.HeapAlloc/(1024*1024),
			"gc_threshold_mb", mm.gcThreshold/(1024*1024))

		start := time.Now()
		runtime.GC()
		mm.logger.PerformanceLogger("manual_gc", float64(time.Since(start).Milliseconds()), "ms")
	}
}

// GetStats returns the latest snapshot plus derived figures.
func (mm *MemoryMonitor) GetStats() map[string]interface{} {
	mm.mutex.RLock()
	defer mm.mutex.RUnlock()

	heapUtilization := float64(0)
	if mm.current.HeapSys > 0 {
		heapUtilization = float64(mm.current.HeapInuse) / float64(mm.current.HeapSys)
	}

	return map[string]interface{}{
		"current": mm.current,
		"derived": map[string]interface{}{
			"heap_utilization": fmt.Sprintf("%.2f", heapUtilization),
		},
		"history_count":   len(mm.history),
		"gc_threshold_mb": mm.gcThreshold / (1024 * 1024),
	}
}
