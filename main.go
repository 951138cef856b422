package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"scholarlens/config"
	"scholarlens/providers"
	"scholarlens/providers/arxiv"
	"scholarlens/providers/europepmc"
	"scholarlens/providers/pubmed"
	"scholarlens/providers/unpaywall"
	"scholarlens/services"
	"scholarlens/storage"
)

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// requestIDMiddleware übernimmt X-Request-ID oder vergibt eine neue UUID.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// app bündelt alles, was die HTTP-Handler brauchen.
type app struct {
	cfg     *config.Config
	store   *services.Store
	chunker *services.Chunker
	ingest  *services.IngestService
	graph   *services.GraphSync
	log     *zap.Logger
}

func buildProviders(cfg *config.Config, logging *zap.Logger) []providers.Provider {
	var enabled []providers.Provider
	for _, name := range cfg.Providers() {
		switch name {
		case "arxiv":
			enabled = append(enabled, arxiv.NewFetcher(cfg, logging))
		case "pubmed":
			enabled = append(enabled, pubmed.NewFetcher(cfg, logging))
		case "europepmc":
			enabled = append(enabled, europepmc.NewFetcher(cfg, logging))
		default:
			logging.Warn("Unknown provider in config", zap.String("provider_name", name))
		}
	}
	return enabled
}

func newRouter(a *app) *gin.Engine {
	router := gin.Default()
	router.Use(requestIDMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-API-KEY", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := a.store.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/", apiKeyAuthMiddleware(a.cfg))
	setupPaperRoutes(api, a)
	setupAuthorRoutes(api, a)
	setupCatalogRoutes(api, a)
	setupWorkspaceRoutes(api, a)
	setupViewRoutes(api, a)
	setupJobRoutes(api, a)
	return router
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load error: %v", err)
	}

	logging, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenDatabase(cfg)
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.", zap.String("driver", cfg.DBDriver))

	logging.Info("Running database auto-migration...")
	if err := storage.Migrate(db); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	store := services.NewStore(db, logging)
	store.MaxPageSize = cfg.MaxPageSize
	chunker := services.NewChunker(logging, services.ChunkOptions{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap})

	enabledProviders := buildProviders(cfg, logging)
	if len(enabledProviders) == 0 {
		logging.Fatal("No valid providers enabled. Check ENABLED_PROVIDERS in .env")
	}
	logging.Info("Active providers loaded", zap.Strings("providers", cfg.Providers()))

	var archiver *services.PDFArchiver
	if cfg.S3Enabled() {
		s3Client, err := storage.NewS3Client(ctx, cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		var resolver services.LinkResolver
		if cfg.UnpaywallEmail != "" {
			resolver = unpaywall.NewResolver(cfg, logging)
		}
		archiver = services.NewPDFArchiver(s3Client, cfg.S3URL, cfg.S3Bucket, resolver, logging)
		logging.Info("PDF archive enabled", zap.String("bucket", cfg.S3Bucket))
	}
	ingest := services.NewIngestService(store, logging, enabledProviders, cfg.IngestQueries, cfg.IngestMaxResults, cfg.IngestWorkers, archiver)

	neo, err := storage.NewNeo4jClient(ctx, cfg, logging)
	if err != nil {
		logging.Fatal("Neo4j connection failed", zap.Error(err))
	}
	defer neo.Close(context.Background())
	graph := services.NewGraphSync(store, neo, logging)

	cronScheduler := cron.New()
	if _, err := cronScheduler.AddFunc(cfg.CronSchedule, func() {
		logging.Info("Running scheduled ingest job...")
		report, err := ingest.Run(ctx)
		if err != nil {
			logging.Error("Ingest job failed", zap.Error(err))
			return
		}
		logging.Info("Ingest job completed", zap.Int("new_papers", report.Created))
	}); err != nil {
		logging.Fatal("Invalid CRON_SCHEDULE", zap.Error(err))
	}
	if _, err := cronScheduler.AddFunc(cfg.ReconcileSchedule, func() {
		if _, err := store.ReconcileCitationCounts(ctx); err != nil {
			logging.Error("Reconcile job failed", zap.Error(err))
		}
	}); err != nil {
		logging.Fatal("Invalid RECONCILE_SCHEDULE", zap.Error(err))
	}
	if cfg.GraphSyncSchedule != "" {
		if _, err := cronScheduler.AddFunc(cfg.GraphSyncSchedule, func() {
			if err := graph.Sync(ctx); err != nil {
				logging.Error("Graph sync failed", zap.Error(err))
			}
		}); err != nil {
			logging.Fatal("Invalid GRAPH_SYNC_SCHEDULE", zap.Error(err))
		}
	}
	cronScheduler.Start()
	defer cronScheduler.Stop()

	router := newRouter(&app{cfg: cfg, store: store, chunker: chunker, ingest: ingest, graph: graph, log: logging})

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logging.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown failed", zap.Error(err))
	}
}
