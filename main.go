package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carousel-studio/aifill"
	"carousel-studio/config"
	"carousel-studio/editor"
	"carousel-studio/export"
	"carousel-studio/handlers/api/carousels"
	"carousel-studio/handlers/api/exports"
	"carousel-studio/handlers/api/generate"
	apitemplates "carousel-studio/handlers/api/templates"
	"carousel-studio/handlers/auth"
	"carousel-studio/handlers/realtime"
	"carousel-studio/metrics"
	appMiddleware "carousel-studio/middleware"
	"carousel-studio/stores"
	"carousel-studio/templates"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Per-client budget for /generate, on top of the upstream rate limit.
const (
	generateRate  = 0.2
	generateBurst = 5
)

type app struct {
	cfg       *config.Config
	store     stores.Store
	registry  *templates.Registry
	filler    editor.Filler
	jobs      *export.Jobs
	hub       *realtime.Hub
	metrics   *metrics.Metrics
	monitor   *appMiddleware.Monitor
	limiter   *appMiddleware.RateLimiter
	gatherer  prometheus.Gatherer
	startedAt time.Time
}

func setupRouter(a *app) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(a.monitor.Handler)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.cfg.Server.Origins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "X-CSRF-Token", "Origin", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]any{
			"status":     "ok",
			"generation": a.filler != nil,
			"uptime":     time.Since(a.startedAt).Round(time.Second).String(),
		})
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))

	exportHandler := &exports.Handler{
		Jobs:      a.jobs,
		Carousels: a.store,
		OnStart:   func(export.JobStatus) { a.metrics.ExportStarted() },
	}
	generateHandler := &generate.Handler{
		Registry:  a.registry,
		Filler:    a.filler,
		Carousels: a.store,
		Log:       logrus.StandardLogger(),
	}

	r.Route("/api/v2", func(r chi.Router) {
		r.Use(appMiddleware.AuthJWT(a.cfg.Auth.JWTSecret))

		r.Route("/carousels", func(r chi.Router) { carousels.Routes(r, a.store) })
		r.Route("/templates", func(r chi.Router) { apitemplates.Routes(r, a.registry) })
		r.With(a.limiter.Handler).Method(http.MethodPost, "/generate", generateHandler)
		r.Route("/exports", exportHandler.Routes)
	})

	r.Mount("/socket.io/", a.hub.Handler())
	return r
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := stores.GetStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &app{
		cfg:       cfg,
		store:     store,
		registry:  templates.NewRegistry(store, logrus.StandardLogger()),
		metrics:   metrics.New(reg),
		monitor:   appMiddleware.NewMonitor(reg),
		limiter:   appMiddleware.NewRateLimiter(generateRate, generateBurst),
		gatherer:  reg,
		startedAt: time.Now(),
	}

	if cfg.GenerationEnabled() {
		gen, err := aifill.NewOpenAIGenerator(aifill.OpenAIConfig{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			Timeout:    cfg.OpenAI.Timeout,
			RateLimit:  cfg.OpenAI.RateLimit,
			Burst:      cfg.OpenAI.Burst,
			MaxRetries: cfg.OpenAI.MaxRetries,
		}, logrus.StandardLogger())
		if err != nil {
			return nil, fmt.Errorf("init content generator: %w", err)
		}
		a.filler = a.metrics.InstrumentFiller(aifill.NewFiller(gen, logrus.StandardLogger()))
		logrus.WithFields(logrus.Fields{
			"model":    cfg.OpenAI.Model,
			"base_url": cfg.OpenAI.BaseURL,
		}).Info("Content generation enabled")
	} else {
		logrus.Warn("No OpenAI API key configured. Content generation is disabled.")
	}

	rasterizer := export.NewCanvasRasterizer(export.DefaultResolver(cfg.Export.AssetDir, cfg.Export.Hosts()))
	exporter := export.NewExporter(rasterizer, logrus.StandardLogger())
	a.jobs = export.NewJobs(exporter, logrus.StandardLogger(), func(st export.JobStatus) {
		a.metrics.ObserveExport(st)
		a.hub.Notify(st)
	})
	a.jobs.Retention = cfg.Export.Retention
	a.hub = realtime.NewHub(a.jobs.Status, logrus.StandardLogger())
	return a, nil
}

func (a *app) close() {
	a.jobs.Close()
	a.hub.Close()
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close store")
		}
	}
}

func main() {
	listenAddress := flag.String("listen", "", "The address to listen on. Overrides CAROUSEL_SERVER_LISTEN.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	issueToken := flag.String("issue-token", "", "Print a bearer token for the given user id and exit.")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if *listenAddress != "" {
		cfg.Server.Listen = *listenAddress
	}

	if *issueToken != "" {
		token, err := auth.CreateJWT([]byte(cfg.Auth.JWTSecret), *issueToken, "", auth.DefaultTTL)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to issue token")
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to start")
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.limiter.Cleanup(3 * time.Minute)
			case <-ctx.Done():
				return
			}
		}
	}()

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           setupRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logrus.WithField("addr", cfg.Server.Listen).Info("starting server")
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Server did not shut down cleanly")
	}
	a.close()
}
