package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "github.com/djangbahevans/RainflowCycleCounting/internal/errors"
	"github.com/djangbahevans/RainflowCycleCounting/internal/jobs"
	"github.com/djangbahevans/RainflowCycleCounting/internal/middleware"
	"github.com/djangbahevans/RainflowCycleCounting/internal/services"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts/domain"
)

const maxJobList = 500

// JobQueue is the part of *jobs.Queue the handler uses
type JobQueue interface {
	Enqueue(ctx context.Context, in services.AnalysisInput) (*jobs.Job, error)
	Get(id string) (*jobs.Job, error)
	List(filter jobs.Filter) ([]*jobs.Job, error)
	Cancel(id string) error
}

var _ JobQueue = (*jobs.Queue)(nil)

// JobsHandler handles asynchronous analysis jobs
type JobsHandler struct {
	queue        JobQueue
	validator    *middleware.Validator
	forms        *middleware.FormValueParser
	errorHandler *apierrors.ErrorHandler
	maxBody      int64
	logger       *slog.Logger
}

// NewJobsHandler creates a jobs handler
func NewJobsHandler(queue JobQueue, errorHandler *apierrors.ErrorHandler, maxBody int64, logger *slog.Logger) *JobsHandler {
	if queue == nil {
		panic("queue cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobsHandler{
		queue:        queue,
		validator:    middleware.NewValidator(),
		forms:        middleware.NewFormValueParser(errorHandler),
		errorHandler: errorHandler,
		maxBody:      maxBody,
		logger:       logger.With(slog.String("handler", "jobs")),
	}
}

// Routes sets up the job routes
func (h *JobsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.ContentTypeValidator(h.errorHandler, "application/json")).Post("/", h.Submit)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Cancel)
	return r
}

// Submit handles POST /api/v1/jobs. It answers 202 with the pending job.
func (h *JobsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeAnalysisRequest(w, r, h.maxBody, h.validator, h.errorHandler)
	if !ok {
		return
	}

	job, err := h.queue.Enqueue(r.Context(), services.AnalysisInput{
		Name:     req.Name,
		Source:   domain.SourceJSON,
		Values:   req.Values,
		BinWidth: req.BinWidth,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, queueError(err))
		return
	}

	w.Header().Set("Location", r.URL.Path+"/"+job.ID)
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, job)
}

// List handles GET /api/v1/jobs?status=&limit=
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.forms.Int(w, r, "limit", 1, maxJobList, 50)
	if !ok {
		return
	}

	status := jobs.Status(r.URL.Query().Get("status"))
	switch status {
	case "", jobs.StatusPending, jobs.StatusRunning, jobs.StatusCompleted, jobs.StatusFailed, jobs.StatusCancelled:
	default:
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("status", "status must be pending, running, completed, failed or cancelled"))
		return
	}

	list, err := h.queue.List(jobs.Filter{Status: status, Limit: limit})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	// results stay behind GET /{id}
	for _, job := range list {
		job.Result = nil
	}
	render.JSON(w, r, list)
}

// Get handles GET /api/v1/jobs/{id}
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errorHandler.HandleError(w, r, queueError(err))
		return
	}
	render.JSON(w, r, job)
}

// Cancel handles DELETE /api/v1/jobs/{id}
func (h *JobsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.queue.Cancel(id); err != nil {
		h.errorHandler.HandleError(w, r, queueError(err))
		return
	}
	h.logger.InfoContext(r.Context(), "job cancel requested", slog.String("job_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func queueError(err error) error {
	switch {
	case errors.Is(err, jobs.ErrJobNotFound):
		return apierrors.NotFoundError("job")
	case errors.Is(err, jobs.ErrJobFinished):
		return apierrors.Conflict("job already finished")
	case errors.Is(err, jobs.ErrQueueFull), errors.Is(err, jobs.ErrQueueStopped):
		return apierrors.ErrServiceUnavailable
	default:
		return err
	}
}
