package utils

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Tracks performance metrics across the system. Latencies are recorded in
// nanoseconds into one histogram per operation name.
type MetricsCollector struct {
	mu           sync.RWMutex
	requestCount uint64
	errorCount   uint64

	operationTimes map[string]*hdrhistogram.Histogram

	systemStartTime time.Time
}

// OperationStats is a read-only snapshot of one operation's latency histogram.
type OperationStats struct {
	Count  int64         `json:"count"`
	Mean   time.Duration `json:"mean"`
	P50    time.Duration `json:"p50"`
	P99    time.Duration `json:"p99"`
	Max    time.Duration `json:"max"`
	Errors uint64        `json:"-"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		operationTimes:  make(map[string]*hdrhistogram.Histogram),
		systemStartTime: time.Now(),
	}
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.requestCount++
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.errorCount++
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	hist, exists := mc.operationTimes[operationName]
	if !exists {
		// 1ns..100s range, 3 significant figures
		hist = hdrhistogram.New(1, 100_000_000_000, 3)
		mc.operationTimes[operationName] = hist
	}
	_ = hist.RecordValue(duration.Nanoseconds())
}

// Snapshot returns per-operation latency statistics plus overall counters.
func (mc *MetricsCollector) Snapshot() (map[string]OperationStats, uint64, uint64, time.Duration) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	stats := make(map[string]OperationStats, len(mc.operationTimes))
	for name, hist := range mc.operationTimes {
		stats[name] = OperationStats{
			Count: hist.TotalCount(),
			Mean:  time.Duration(int64(hist.Mean())),
			P50:   time.Duration(hist.ValueAtQuantile(50)),
			P99:   time.Duration(hist.ValueAtQuantile(99)),
			Max:   time.Duration(hist.Max()),
		}
	}
	return stats, mc.requestCount, mc.errorCount, time.Since(mc.systemStartTime)
}
