package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/djangbahevans/RainflowCycleCounting/internal/infrastructure"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts"
)

// Health statuses
const (
	StatusOK       = "ok"
	StatusAlive    = "alive"
	StatusReady    = "ready"
	StatusNotReady = "not_ready"
)

// EventHub is the part of the websocket hub health checks need
type EventHub interface {
	ClientCount() int
	Done() <-chan struct{}
}

// HealthService provides health check functionality
type HealthService struct {
	reportsDir string
	hub        EventHub
	startTime  time.Time
	logger     *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                       `json:"status"`
	Timestamp time.Time                    `json:"timestamp"`
	Version   string                       `json:"version"`
	Runtime   *infrastructure.RuntimeStats `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth     `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. hub may be nil when the
// event stream is not served.
func NewHealthService(reportsDir string, hub EventHub, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		reportsDir: reportsDir,
		hub:        hub,
		startTime:  time.Now(),
		logger:     logger.With(slog.String("service", "health")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	stats := infrastructure.ReadRuntimeStats(hs.startTime)
	status := HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime:   &stats,
	}
	hs.logger.DebugContext(ctx, "health check",
		slog.Int("goroutines", stats.Goroutines),
		slog.Float64("uptime_seconds", stats.UptimeSeconds))
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    StatusAlive,
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// ReadinessCheck reports not_ready when a dependency is unavailable
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    StatusReady,
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"reports": hs.checkReportsDir(),
		},
	}
	if hs.hub != nil {
		status.Services["websocket"] = hs.checkHub()
	}

	for name, svc := range status.Services {
		if svc.Status != StatusReady {
			status.Status = StatusNotReady
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("dependency", name),
				slog.String("message", svc.Message))
		}
	}
	return status
}

// Version returns version information
func (hs *HealthService) Version() contracts.VersionInfo {
	return contracts.GetVersionInfo()
}

func (hs *HealthService) checkReportsDir() ServiceHealth {
	if hs.reportsDir == "" {
		return ServiceHealth{Status: StatusReady, Message: "report export disabled"}
	}
	info, err := os.Stat(hs.reportsDir)
	switch {
	case os.IsNotExist(err):
		// created on first export
		return ServiceHealth{Status: StatusReady, Message: "not yet created"}
	case err != nil:
		return ServiceHealth{Status: StatusNotReady, Message: err.Error()}
	case !info.IsDir():
		return ServiceHealth{Status: StatusNotReady, Message: fmt.Sprintf("%s is not a directory", hs.reportsDir)}
	}
	return ServiceHealth{Status: StatusReady}
}

func (hs *HealthService) checkHub() ServiceHealth {
	select {
	case <-hs.hub.Done():
		return ServiceHealth{Status: StatusNotReady, Message: "event hub stopped"}
	default:
	}
	return ServiceHealth{Status: StatusReady, Message: fmt.Sprintf("%d clients", hs.hub.ClientCount())}
}
