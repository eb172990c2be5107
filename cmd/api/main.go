package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/ingestdesk/internal/api"
	"github.com/timmy/ingestdesk/internal/api/middleware"
	"github.com/timmy/ingestdesk/internal/archive"
	"github.com/timmy/ingestdesk/internal/clock"
	"github.com/timmy/ingestdesk/internal/config"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/logger"
	"github.com/timmy/ingestdesk/internal/repository"
	"github.com/timmy/ingestdesk/internal/secret"
	"github.com/timmy/ingestdesk/internal/service"
	"github.com/timmy/ingestdesk/internal/source"
	archivesource "github.com/timmy/ingestdesk/internal/source/archive"
	"github.com/timmy/ingestdesk/internal/source/fixture"
	"github.com/timmy/ingestdesk/internal/storage"
)

func main() {
	appLogger := logger.NewFromEnv(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	defer repository.Close(db)
	sqlDB, err := db.DB()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to get database handle")
	}

	clk := clock.Real{}
	ids := clock.UUIDGenerator{}

	// Upstream sources: local fixtures for development, the archive API otherwise
	var sources []source.Source
	if cfg.Archive.FixtureDir != "" {
		appLogger.WithField("dir", cfg.Archive.FixtureDir).Warn("Serving upstream resources from fixtures")
		for _, kind := range domain.ResourceKinds {
			sources = append(sources, fixture.NewAdapter(cfg.Archive.FixtureDir, kind))
		}
	} else {
		client := archive.NewClient(archive.Config{
			BaseURL:    cfg.Archive.BaseURL,
			Timeout:    cfg.Archive.Timeout,
			RetryCount: cfg.Archive.RetryCount,
		})
		for _, kind := range domain.ResourceKinds {
			sources = append(sources, archivesource.NewAdapter(client, kind))
		}
	}

	snapshots := repository.NewSnapshotRepository(db, clk, ids)
	ttls := map[domain.ResourceKind]time.Duration{
		domain.KindIngestionPoints: cfg.Cache.IngestionPointsTTL,
		domain.KindImportJobs:      cfg.Cache.ImportJobsTTL,
	}
	var caches []*service.CacheManager
	for _, kind := range domain.ResourceKinds {
		caches = append(caches, service.NewCacheManager(kind, ttls[kind], snapshots, clk))
	}
	resources, err := service.NewResourceService(caches, sources, cfg.Cache.PageSize)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize resource service")
	}

	sealer, err := newSealer(cfg.Secrets.AgeIdentity)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize secret sealer")
	}
	clients := storage.NewClientCache(cfg.Storage.ClientTTL, cfg.Storage.MaxClients, cfg.Storage.DefaultRegion, storage.NewStorage, clk)

	router := api.SetupRouter(api.Services{
		Resources: resources,
		Batches:   service.NewBatchService(repository.NewBatchRepository(db), clk, ids),
		Attempts:  service.NewAttemptService(repository.NewAttemptRepository(db), clk, ids),
		Files:     service.NewFileService(repository.NewFileRepository(db), clk, ids),
		Storage:   service.NewStorageService(repository.NewCredentialRepository(db), sealer, clients, clk, cfg.Storage.ListLimit),
		DB:        sqlDB,
	}, api.RouterConfig{
		Mode: cfg.Server.Mode,
		CORS: middleware.CORSConfig{
			AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
			AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
		},
		Log: appLogger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}

// newSealer loads the configured age identity. Without one, secrets are
// sealed with a throwaway key and stored credentials do not survive a restart.
func newSealer(identity string) (*secret.Sealer, error) {
	if identity != "" {
		return secret.NewSealer(identity)
	}
	logger.Warn("No age identity configured, using an ephemeral key; stored storage credentials will be unreadable after restart")
	return secret.NewEphemeralSealer()
}
