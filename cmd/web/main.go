package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"digisale-dash/internal/config"
	"digisale-dash/internal/errlog"
	"digisale-dash/internal/filter"
	"digisale-dash/internal/handlers"
	"digisale-dash/internal/kpi"
	"digisale-dash/internal/loader"
	"digisale-dash/internal/middleware"
	"digisale-dash/internal/models"
	"digisale-dash/internal/observability"
	"digisale-dash/internal/server"
	"digisale-dash/internal/services"
	"digisale-dash/internal/ui/templates"
)

const (
	appTitle       = "Digisale Dash"
	renderTimeout  = 10 * time.Second
	preloadTimeout = 60 * time.Second
)

// dashboardHandler renders the page for the current snapshot, or the
// empty state before the first successful load.
func dashboardHandler(session *services.Session, dimension string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		data := templates.DashboardData{
			Title:      appTitle,
			Dimensions: filter.Dimensions,
			Dimension:  dimension,
		}
		if snap, err := session.Current(); err == nil {
			data.Loaded = true
			data.KPIs = snap.Baseline
			data.Values = filter.Values(snap.Records, dimension)
			data.Revenue = kpi.RevenueBy(snap.Records, dimension)
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := templates.Dashboard(data).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func statusMap(cfg config.PipelineConfig) *loader.StatusMap {
	m := loader.DefaultStatusMap()
	for _, lit := range cfg.CompletedStatus {
		m.Add(lit, models.StatusCompleted)
	}
	for _, lit := range cfg.CancelledStatus {
		m.Add(lit, models.StatusCancelled)
	}
	return m
}

// preload builds the first snapshot from the configured files. A failure is
// logged and recorded; the server still starts and waits for an upload.
func preload(ctx context.Context, session *services.Session, cfg config.PipelineConfig, logger *slog.Logger) {
	in, closeAll, err := services.OpenInputs(cfg.OrdersFile, cfg.CustomersFile, cfg.ProductsFile)
	if err != nil {
		logger.Error("failed to open input files", "error", err)
		session.ReportError("startup", err)
		return
	}
	defer closeAll()

	ctx, cancel := context.WithTimeout(ctx, preloadTimeout)
	defer cancel()

	start := time.Now()
	snap, err := session.Refresh(ctx, in)
	if err != nil {
		logger.Error("initial load failed", "stage", services.Stage(err, "pipeline"), "error", err)
		return
	}
	logger.Info("initial snapshot loaded",
		"run_id", snap.RunID,
		"orders", len(snap.Records),
		"duration", time.Since(start),
	)
}

func newHandler(cfg *config.Config, session *services.Session, recorder *observability.Recorder, limiter *middleware.RateLimiter, logger *slog.Logger) http.Handler {
	opts := handlers.Options{
		MaxUploadBytes:   cfg.Pipeline.MaxUploadBytes,
		DefaultDimension: cfg.Pipeline.DefaultDimension,
		Recorder:         recorder,
	}
	srv := server.NewServer(session, logger, opts, &server.TemplateHandlers{
		Dashboard: dashboardHandler(session, cfg.Pipeline.DefaultDimension),
	})

	chain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(recorder),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(limiter, logger),
		middleware.BodyLimit(cfg.Pipeline.MaxUploadBytes),
	)
	return chain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"addr", cfg.Address(),
		"error_log", cfg.Pipeline.ErrorLogFile,
		"default_dimension", cfg.Pipeline.DefaultDimension,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recorder := observability.NewRecorder()
	pipeline := services.NewPipeline(nil, statusMap(cfg.Pipeline), logger)
	session := services.NewSession(pipeline, errlog.New(cfg.Pipeline.ErrorLogFile), logger)

	if cfg.Pipeline.Preload() {
		preload(observability.WithRecorder(ctx, recorder), session, cfg.Pipeline, logger)
	}

	limiter := middleware.NewRateLimiter(cfg.Security)
	go limiter.Run(ctx)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, session, recorder, limiter, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("final session stats", "stats", session.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
