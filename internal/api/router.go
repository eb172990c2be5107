package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/timmy/ingestdesk/internal/api/handler"
	"github.com/timmy/ingestdesk/internal/api/middleware"
	"github.com/timmy/ingestdesk/internal/domain"
	"github.com/timmy/ingestdesk/internal/logger"
	"github.com/timmy/ingestdesk/internal/service"
)

// Services bundles what the router serves.
type Services struct {
	Resources *service.ResourceService
	Batches   *service.BatchService
	Attempts  *service.AttemptService
	Files     *service.FileService
	Storage   *service.StorageService
	DB        handler.Pinger
}

// RouterConfig holds router-level settings.
type RouterConfig struct {
	Mode string
	CORS middleware.CORSConfig
	Log  *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc Services, cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	log := cfg.Log
	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(svc.DB)
	ingestionPoints := handler.NewResourceHandler(svc.Resources, domain.KindIngestionPoints)
	importJobs := handler.NewResourceHandler(svc.Resources, domain.KindImportJobs)
	cacheHandler := handler.NewCacheHandler(svc.Resources)
	batchHandler := handler.NewBatchHandler(svc.Batches)
	attemptHandler := handler.NewAttemptHandler(svc.Attempts)
	fileHandler := handler.NewFileHandler(svc.Files)
	storageHandler := handler.NewStorageHandler(svc.Storage)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(middleware.CurrentUser())
	{
		// Cached upstream resources
		v1.GET("/ingestion-points", ingestionPoints.List)
		v1.GET("/ingestion-points/:id", ingestionPoints.Get)
		v1.GET("/import-jobs", importJobs.List)
		v1.GET("/import-jobs/:id", importJobs.Get)

		// Cache maintenance
		v1.DELETE("/cache/:kind", cacheHandler.Invalidate)
		v1.GET("/cache/:kind/health", cacheHandler.Health)

		// Batches
		v1.POST("/batches", batchHandler.Create)
		v1.GET("/batches", batchHandler.List)
		v1.GET("/batches/:id", batchHandler.Get)
		v1.DELETE("/batches/:id", batchHandler.Delete)
		v1.PATCH("/batches/:id/status", batchHandler.UpdateStatus)
		v1.PATCH("/batches/:id/counts", batchHandler.UpdateCounts)

		// Attempts
		v1.POST("/imports/:importId/attempts", attemptHandler.Start)
		v1.GET("/imports/:importId/attempts", attemptHandler.List)
		v1.GET("/attempts/:id", attemptHandler.Get)
		v1.POST("/attempts/:id/running", attemptHandler.MarkRunning)
		v1.POST("/attempts/:id/finish", attemptHandler.Finish)

		// Files
		v1.POST("/imports/:importId/files", fileHandler.Add)
		v1.GET("/imports/:importId/files", fileHandler.List)
		v1.GET("/imports/:importId/stats", fileHandler.Stats)
		v1.GET("/files", fileHandler.FindByHash)
		v1.GET("/files/:id", fileHandler.Get)
		v1.POST("/files/:id/queued", fileHandler.MarkQueued())
		v1.POST("/files/:id/processing", fileHandler.MarkProcessing())
		v1.POST("/files/:id/ingested", fileHandler.MarkIngested())
		v1.POST("/files/:id/failed", fileHandler.MarkFailed())
		v1.POST("/files/:id/skipped", fileHandler.MarkSkippedDedup())
		v1.POST("/files/:id/quarantined", fileHandler.MarkQuarantined())

		// Object storage
		v1.PUT("/storage/credentials", storageHandler.SaveCredentials)
		v1.GET("/storage/objects", storageHandler.ListObjects)
		v1.GET("/storage/ping", storageHandler.Ping)
	}

	return r
}
