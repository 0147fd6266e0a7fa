package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/djangbahevans/RainflowCycleCounting/internal/config"
	apierrors "github.com/djangbahevans/RainflowCycleCounting/internal/errors"
	"github.com/djangbahevans/RainflowCycleCounting/internal/infrastructure"
	"github.com/djangbahevans/RainflowCycleCounting/internal/jobs"
	customMiddleware "github.com/djangbahevans/RainflowCycleCounting/internal/middleware"
	"github.com/djangbahevans/RainflowCycleCounting/internal/services"
	handlers "github.com/djangbahevans/RainflowCycleCounting/internal/transport/http"
	ws "github.com/djangbahevans/RainflowCycleCounting/internal/websocket"
	"github.com/djangbahevans/RainflowCycleCounting/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config         *config.Config
	Paths          *config.Paths
	Router         *chi.Mux
	Server         *http.Server
	Logger         *slog.Logger
	OTelProviders  *infrastructure.OTelProviders
	Metrics        *infrastructure.AppMetrics
	RuntimeMetrics *infrastructure.RuntimeMetrics
	Hub            *ws.Hub
	Jobs           *jobs.Queue
	ErrorHandler   *apierrors.ErrorHandler
	Services       *ServiceContainer

	startTime time.Time
	bgCancel  context.CancelFunc
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Analysis *services.AnalysisService
	Health   *services.HealthService
}

// NewApplication loads configuration and initializes the process logger
// before building the application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	paths, err := config.GetPaths(cfg.Paths)
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	paths.LogPathResolution(logger)

	return New(cfg, paths, logger)
}

// New builds the application from an already loaded configuration. The
// event hub starts immediately; Stop releases it.
func New(cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	providers, err := infrastructure.InitializeOTel(
		infrastructure.NewOTelConfig(cfg.Telemetry, contracts.Version), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateAppMetrics(providers.Meter)
	if err != nil {
		_ = providers.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to create application metrics: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: providers,
		Metrics:       metrics,
		ErrorHandler:  apierrors.NewErrorHandler(logger, cfg.Logging.Development),
		startTime:     time.Now(),
	}

	if a.RuntimeMetrics, err = infrastructure.NewRuntimeMetrics(providers.Meter, a.startTime); err != nil {
		_ = providers.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to register runtime metrics: %w", err)
	}

	a.initializeServices()
	a.setupRouter()
	a.createServer()
	return a, nil
}

// initializeServices starts the event hub and the job workers, then
// builds the services
func (a *Application) initializeServices() {
	bgCtx, cancel := context.WithCancel(context.Background())
	a.bgCancel = cancel
	a.Hub = ws.NewHub(a.Logger, a.Metrics)
	go a.Hub.Run(bgCtx)

	analysis := services.NewAnalysisService(a.Config.Analysis, a.Logger,
		services.WithTracer(a.OTelProviders.Tracer),
		services.WithMetrics(a.Metrics),
		services.WithPublisher(a.Hub),
	)

	reportsDir := ""
	if a.Paths != nil {
		reportsDir = a.Paths.ReportsDir
	}
	health := services.NewHealthService(reportsDir, a.Hub, a.Logger)

	a.Jobs = jobs.NewQueue(
		a.Config.Jobs.Workers,
		a.Config.Jobs.QueueSize,
		jobs.NewMemoryStore(a.Config.Jobs.Retention),
		analysis,
		a.Logger,
	)
	a.Jobs.Start(bgCtx)

	a.Services = &ServiceContainer{
		Analysis: analysis,
		Health:   health,
	}
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These don't wrap the ResponseWriter, so they are safe for websocket upgrades
	r.Use(customMiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	otelMiddleware := customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger)

	// Event stream: no timeout or body limits on a long-lived connection
	r.With(otelMiddleware.Handler).Get("/ws/analyses", ws.Handler(a.Hub, a.Config.WebSocket, a.Logger))

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(a.getCORSConfig()))

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
				a.ErrorHandler,
			).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.ErrorHandler))

		a.setupAPIRoutes(r)
	})

	// Prometheus scrape endpoint, outside the middleware group
	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		handlers.NewHealthHandler(a.Services.Health, a.Logger).Register(r)

		analysisHandler := handlers.NewAnalysisHandler(
			a.Services.Analysis,
			a.ErrorHandler,
			a.Config.Analysis.MaxUploadBytes,
			a.Logger,
		)
		r.Mount("/v1/analyses", analysisHandler.Routes())

		jobsHandler := handlers.NewJobsHandler(a.Jobs, a.ErrorHandler, a.Config.Analysis.MaxUploadBytes, a.Logger)
		r.Mount("/v1/jobs", jobsHandler.Routes())
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	origin := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	return customMiddleware.CORSConfig{
		AllowedOrigins: []string{origin, fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port)},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{customMiddleware.RequestIDHeader},
		MaxAge:         300,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.Server.Addr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start listens on the configured address and serves in the background.
// A serve failure after startup calls cancel.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	listener, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, listener, cancel)
}

// Serve serves on listener in the background
func (a *Application) Serve(ctx context.Context, listener net.Listener, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("address", listener.Addr().String()),
		slog.String("level", a.Config.Logging.Level),
		slog.Int("max_samples", a.Config.Analysis.MaxSamples))

	go func() {
		if err := a.Server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if err := a.Jobs.Stop(a.Config.Server.ShutdownTimeout); err != nil {
		errs = append(errs, fmt.Errorf("job queue: %w", err))
	}

	// closes every event stream
	a.bgCancel()
	select {
	case <-a.Hub.Done():
	case <-shutdownCtx.Done():
		errs = append(errs, fmt.Errorf("event hub shutdown: %w", shutdownCtx.Err()))
	}

	if err := a.RuntimeMetrics.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("runtime metrics: %w", err))
	}
	if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		a.Logger.ErrorContext(ctx, "Shutdown finished with errors", slog.String("error", err.Error()))
		return err
	}
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		a.Logger.WarnContext(ctx, "Server stopped unexpectedly")
	}

	// Stop gets a fresh context; ctx may already be cancelled
	return a.Stop(context.Background())
}
