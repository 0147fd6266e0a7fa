package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/djangbahevans/RainflowCycleCounting/internal/services"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts"
)

// HealthChecker is the part of services.HealthService the handler needs.
type HealthChecker interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	Version() contracts.VersionInfo
}

var _ HealthChecker = (*services.HealthService)(nil)

// HealthHandler serves the probe and version endpoints.
type HealthHandler struct {
	checker HealthChecker
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker HealthChecker, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		checker: checker,
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// Register adds the health routes to r.
func (h *HealthHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/health", h.HealthCheck)
		r.Get("/health/live", h.LivenessCheck)
		r.Get("/health/ready", h.ReadinessCheck)
		r.Get("/version", h.Version)
	})
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r, h.checker.HealthCheck(r.Context()), false)
}

// LivenessCheck handles GET /api/health/live
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r, h.checker.LivenessCheck(r.Context()), false)
}

// ReadinessCheck answers 503 until every dependency reports ready.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r, h.checker.ReadinessCheck(r.Context()), true)
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.checker.Version())
}

func (h *HealthHandler) writeStatus(w http.ResponseWriter, r *http.Request, status services.HealthStatus, gate bool) {
	if gate && status.Status != services.StatusReady {
		h.logger.WarnContext(r.Context(), "readiness check failed",
			slog.Any("services", status.Services))
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}
