package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"luminaria-extractor/config"
	"luminaria-extractor/internal/api/handlers"
	"luminaria-extractor/internal/api/middleware"
	"luminaria-extractor/internal/core/imaging"
	"luminaria-extractor/internal/core/processor"
	"luminaria-extractor/internal/db"
	"luminaria-extractor/internal/db/repository"
	"luminaria-extractor/internal/integrations/mqtt"
	"luminaria-extractor/internal/integrations/roboflow"
	"luminaria-extractor/internal/integrations/urlfetch"
	"luminaria-extractor/internal/observability/metrics"
	"luminaria-extractor/internal/server/sse"
	"luminaria-extractor/internal/services/cleanup"
	"luminaria-extractor/internal/storage/blob"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func serveCommand(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg())
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Info("Initializing database...")
	if err := db.Initialize(cfg); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	conn, err := db.GetDB()
	if err != nil {
		return err
	}
	repo := repository.NewSQLiteRepository(conn)

	blobs, err := blob.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize image storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	hub := sse.NewHub()
	go hub.Run(ctx)

	mqttClient := mqtt.NewClient(cfg.MQTT)
	if err := mqttClient.Start(); err != nil {
		log.Warnf("Failed to start MQTT client: %v. Continuing without MQTT.", err)
	}
	defer mqttClient.Stop()

	proc := processor.NewImageProcessor(cfg, repo, blobs,
		roboflow.NewClient(cfg.Inference, m),
		imaging.NewCompressor(cfg.Imaging),
		hub, mqttClient, m)
	defer proc.Shutdown()

	go cleanup.NewCleanupService(repo, blobs, proc, cfg.Cleanup).Start(ctx)

	router, err := newRouter(cfg, registry)
	if err != nil {
		return err
	}
	handlers.NewAPIHandler(cfg, repo, blobs, proc, urlfetch.NewFetcher(cfg.URLFetch, m), hub).
		RegisterRoutes(router.Group("/api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnf("Server shutdown incomplete: %v", err)
	}
	log.Info("Server stopped.")
	return nil
}

func newRouter(cfg *config.Config, registry *prometheus.Registry) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	corsCfg := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) == 0 || slices.Contains(cfg.Server.CORSOrigins, "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.Server.CORSOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsCfg.ExposeHeaders = []string{"Content-Disposition"}
	router.Use(cors.New(corsCfg))

	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	router.Use(sessions.Sessions("luminaria_session", store))

	translator, err := middleware.NewTranslator(middleware.I18nConfig{DefaultLanguage: cfg.Server.DefaultLanguage})
	if err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}
	router.Use(middleware.I18n(translator))

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
		log.Infof("Serving metrics under %s", cfg.Metrics.Path)
	}

	return router, nil
}
