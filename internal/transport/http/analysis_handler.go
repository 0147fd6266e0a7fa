package http

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/djangbahevans/RainflowCycleCounting/internal/chart"
	apierrors "github.com/djangbahevans/RainflowCycleCounting/internal/errors"
	"github.com/djangbahevans/RainflowCycleCounting/internal/loader"
	"github.com/djangbahevans/RainflowCycleCounting/internal/middleware"
	"github.com/djangbahevans/RainflowCycleCounting/internal/services"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts/domain"
)

const (
	// multipartMemory is held in memory before parts spill to temp files
	multipartMemory = 8 << 20

	maxColumn   = 16384 // last workbook column, XFD
	maxSkipRows = 1 << 20
)

// UploadForm holds the validated text fields of an upload
type UploadForm struct {
	Name     string `json:"name" validate:"omitempty,max=200"`
	FileName string `json:"file" validate:"required,filename"`
	Sheet    string `json:"sheet" validate:"omitempty,sheetname"`
}

// AnalysisHandler handles analysis requests
type AnalysisHandler struct {
	service      AnalysisServiceInterface
	validator    *middleware.Validator
	forms        *middleware.FormValueParser
	errorHandler *apierrors.ErrorHandler
	maxBody      int64
	logger       *slog.Logger
}

// NewAnalysisHandler creates an analysis handler. maxBody bounds JSON
// bodies and uploads alike.
func NewAnalysisHandler(service AnalysisServiceInterface, errorHandler *apierrors.ErrorHandler, maxBody int64, logger *slog.Logger) *AnalysisHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{
		service:      service,
		validator:    middleware.NewValidator(),
		forms:        middleware.NewFormValueParser(errorHandler),
		errorHandler: errorHandler,
		maxBody:      maxBody,
		logger:       logger.With(slog.String("handler", "analysis")),
	}
}

// Routes sets up the analysis routes
func (h *AnalysisHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.ContentTypeValidator(h.errorHandler, "application/json")).Post("/", h.Create)
	r.With(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data")).Post("/upload", h.Upload)
	r.With(middleware.ContentTypeValidator(h.errorHandler, "application/json")).Post("/chart", h.Chart)
	return r
}

// Create handles POST /api/v1/analyses
func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Analyze(r.Context(), services.AnalysisInput{
		Name:     req.Name,
		Source:   domain.SourceJSON,
		Values:   req.Values,
		BinWidth: req.BinWidth,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// Upload handles POST /api/v1/analyses/upload. The multipart form
// carries the file plus optional name, sheet, column, skip_rows and
// bin_width fields.
func (h *AnalysisHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.errorHandler.HandleError(w, r, bodyError(err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("file", "file is required"))
		return
	}
	defer file.Close()

	form := UploadForm{
		Name:     r.FormValue("name"),
		FileName: header.Filename,
		Sheet:    r.FormValue("sheet"),
	}
	if err := h.validator.ValidateStruct(&form); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	column, ok := h.forms.Int(w, r, "column", 0, maxColumn, 0)
	if !ok {
		return
	}
	skipRows, ok := h.forms.Int(w, r, "skip_rows", 0, maxSkipRows, 0)
	if !ok {
		return
	}
	binWidth, ok := h.forms.PositiveFloat(w, r, "bin_width", 0)
	if !ok {
		return
	}

	h.logger.DebugContext(r.Context(), "upload received",
		slog.String("file_name", form.FileName),
		slog.Int64("size", header.Size))

	resp, err := h.service.AnalyzeUpload(r.Context(), services.UploadInput{
		Name:     form.Name,
		FileName: form.FileName,
		Reader:   file,
		Options: loader.Options{
			Sheet:    form.Sheet,
			Column:   column,
			SkipRows: skipRows,
		},
		BinWidth: binWidth,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// Chart handles POST /api/v1/analyses/chart, answering with an HTML
// page of the signal, its closed loops and the range spectrum.
func (h *AnalysisHandler) Chart(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	maxPaths, ok := h.forms.Int(w, r, "max_paths", 1, chart.MaxLoopSeries, chart.MaxLoopSeries)
	if !ok {
		return
	}

	a, err := h.service.Run(r.Context(), services.AnalysisInput{
		Name:     req.Name,
		Source:   domain.SourceJSON,
		Values:   req.Values,
		BinWidth: req.BinWidth,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	// render to a buffer so a failure can still become a problem response
	var buf bytes.Buffer
	if err := chart.Render(&buf, a.Result, a.Bins, chart.Options{Title: req.Name, MaxPaths: maxPaths}); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *AnalysisHandler) decode(w http.ResponseWriter, r *http.Request) (*domain.AnalysisRequest, bool) {
	return decodeAnalysisRequest(w, r, h.maxBody, h.validator, h.errorHandler)
}

// decodeAnalysisRequest reads and validates a JSON analysis body of at
// most maxBody bytes, answering with a problem response on failure.
func decodeAnalysisRequest(w http.ResponseWriter, r *http.Request, maxBody int64, v *middleware.Validator, eh *apierrors.ErrorHandler) (*domain.AnalysisRequest, bool) {
	if maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	}

	var req domain.AnalysisRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		eh.HandleError(w, r, bodyError(err))
		return nil, false
	}
	if err := v.ValidateStruct(&req); err != nil {
		eh.HandleError(w, r, err)
		return nil, false
	}
	return &req, true
}

// bodyError keeps size violations intact so they map to 413
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return apierrors.InvalidRequestWithError(err)
}
