package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a point-in-time view of the Go runtime, also served by
// the health endpoint.
type RuntimeStats struct {
	Goroutines    int     `json:"goroutines"`
	HeapAlloc     uint64  `json:"heap_alloc_bytes"`
	SysMemory     uint64  `json:"sys_memory_bytes"`
	NumGC         uint32  `json:"gc_count"`
	NumCPU        int     `json:"cpu_count"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// RuntimeMetrics exposes runtime stats as observable gauges, sampled at
// collection time.
type RuntimeMetrics struct {
	startTime    time.Time
	registration metric.Registration
}

// ReadRuntimeStats samples the runtime
func ReadRuntimeStats(startTime time.Time) RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RuntimeStats{
		Goroutines:    runtime.NumGoroutine(),
		HeapAlloc:     mem.HeapAlloc,
		SysMemory:     mem.Sys,
		NumGC:         mem.NumGC,
		NumCPU:        runtime.NumCPU(),
		UptimeSeconds: time.Since(startTime).Seconds(),
	}
}

// NewRuntimeMetrics registers the runtime gauges on meter
func NewRuntimeMetrics(meter metric.Meter, startTime time.Time) (*RuntimeMetrics, error) {
	goroutines, err := meter.Int64ObservableGauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}
	heap, err := meter.Int64ObservableGauge(
		"system_memory_allocated_bytes",
		metric.WithDescription("Heap memory allocated by the Go runtime"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	gcCount, err := meter.Int64ObservableCounter(
		"system_gc_count",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}
	uptime, err := meter.Float64ObservableGauge(
		"system_process_uptime_seconds",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rm := &RuntimeMetrics{startTime: startTime}
	rm.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stats := ReadRuntimeStats(rm.startTime)
		o.ObserveInt64(goroutines, int64(stats.Goroutines))
		o.ObserveInt64(heap, int64(stats.HeapAlloc))
		o.ObserveInt64(gcCount, int64(stats.NumGC))
		o.ObserveFloat64(uptime, stats.UptimeSeconds)
		return nil
	}, goroutines, heap, gcCount, uptime)
	if err != nil {
		return nil, err
	}
	return rm, nil
}

// Stop unregisters the callback
func (rm *RuntimeMetrics) Stop() error {
	if rm == nil || rm.registration == nil {
		return nil
	}
	return rm.registration.Unregister()
}
