package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_catalog/internal/cache"
	"github.com/GTDGit/gtd_catalog/internal/combination"
	"github.com/GTDGit/gtd_catalog/internal/config"
	"github.com/GTDGit/gtd_catalog/internal/database"
	"github.com/GTDGit/gtd_catalog/internal/docstore"
	"github.com/GTDGit/gtd_catalog/internal/handler"
	"github.com/GTDGit/gtd_catalog/internal/middleware"
	"github.com/GTDGit/gtd_catalog/internal/repository"
	"github.com/GTDGit/gtd_catalog/internal/service"
	"github.com/GTDGit/gtd_catalog/internal/worker"
)

// main is the application entrypoint for the catalog variant service.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("store", cfg.Store.Driver).Msg("starting gtd catalog")

	// 3. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Connect document store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("document store connection failed")
		fmt.Fprintf(os.Stderr, "document store connection failed: %v\n", err)
		os.Exit(1)
	}
	defer closeStore()
	store = docstore.WithTimeout(store, cfg.Catalog.StoreCallTimeout)

	// 4a. File storage
	files, err := openFileStorage(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("file storage initialization failed")
		fmt.Fprintf(os.Stderr, "file storage initialization failed: %v\n", err)
		os.Exit(1)
	}

	// 5. Initialize repositories
	repos := repository.NewRepositories(store)

	// 6. Initialize services
	generator := combination.NewGenerator(cfg.Catalog.MaxCombinations, cfg.Catalog.AutoSKU)
	templateSvc := service.NewTemplateService(repos)
	filterSvc := service.NewProductFilterService(repos, cfg.Catalog.AttributeQueryCap, cfg.Catalog.OperationTimeout)
	virtualSvc := service.NewVirtualProductService(repos)

	// 6a. Redis-backed guard, counters and cache; in-process fallbacks without Redis
	var (
		guard       service.WriteGuard
		usage       service.UsageCounter
		redisPinger handler.Pinger
	)
	var usageCounter *cache.UsageCounter
	var filterCache *cache.FilterCache
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Error().Err(err).Msg("redis connection failed")
			fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected successfully")

		guard = cache.NewRedisWriteGuard(redisClient, cfg.Catalog.WriteLockTTL, cfg.Catalog.IdempotencyTTL)
		usageCounter = cache.NewUsageCounter(redisClient)
		usage = usageCounter
		filterCache = cache.NewFilterCache(redisClient, cfg.Catalog.FilterCacheTTL)
		redisPinger = redisClient
	} else {
		log.Warn().Msg("redis disabled - using in-process write guard and query-based usage counts")
		guard = cache.NewMemoryWriteGuard(cfg.Catalog.WriteLockTTL, cfg.Catalog.IdempotencyTTL)
		usage = service.NewQueryUsageCounter(repos.Variants)
	}

	productSvc := service.NewProductService(repos, files, generator, guard, service.ProductServiceConfig{
		OperationTimeout: cfg.Catalog.OperationTimeout,
		RollbackTimeout:  cfg.Catalog.RollbackTimeout,
	})
	indexSvc := service.NewFilterIndexService(repos, usage, nil, cfg.Catalog.OperationTimeout)
	if usageCounter != nil {
		productSvc.SetUsageRecorder(usageCounter)
	}
	if filterCache != nil {
		productSvc.SetFilterCache(filterCache)
		templateSvc.SetFilterCache(filterCache)
		indexSvc.SetCache(filterCache)
	}

	// 6b. Seed the built-in templates
	if cfg.SeedTemplates {
		created, err := templateSvc.SeedTemplates(ctx)
		if err != nil {
			log.Error().Err(err).Msg("template seeding failed")
		} else {
			log.Info().Int("created", created).Msg("templates seeded")
		}
	}

	// 7. Initialize handlers
	handlers := &handler.Handlers{
		Health:         handler.NewHealthHandler(store, cfg.Store.Driver, redisPinger),
		Catalog:        handler.NewCatalogHandler(templateSvc),
		Product:        handler.NewProductHandler(productSvc, filterSvc, indexSvc),
		VirtualProduct: handler.NewVirtualProductHandler(virtualSvc),
	}

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware(cfg.JWTSecret, middleware.NewInvalidAuthRateLimiter(ctx, 5, time.Minute))

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	handler.RegisterRoutes(router, handlers, jwtMw)

	// 10. Start workers
	if usageCounter != nil {
		go worker.NewUsageSyncWorker(repos.Variants, usageCounter, cfg.Worker.UsageSyncInterval, 0).Start(ctx)
	}
	go worker.NewOrphanReaperWorker(repos, cfg.Worker.OrphanReapInterval, cfg.Worker.OrphanGracePeriod, cfg.Worker.OrphanReapBatchSize).Start(ctx)

	// 11. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 12. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 13. Cancel context to stop workers
	cancel()

	// 14. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// openStore connects the configured document store and returns a func that
// releases it.
func openStore(ctx context.Context, cfg *config.Config) (docstore.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := database.OpenDocumentStore(ctx, &cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Msg("migrations completed successfully")
		return docstore.NewPostgresStore(db), func() { db.Close() }, nil

	case config.DriverMongo:
		db, err := database.ConnectMongo(&cfg.Mongo)
		if err != nil {
			return nil, nil, err
		}
		if err := database.EnsureMongoIndexes(ctx, db); err != nil {
			log.Warn().Err(err).Msg("failed to ensure mongo indexes")
		}
		closeFn := func() {
			dctx, dcancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer dcancel()
			if err := db.Client().Disconnect(dctx); err != nil {
				log.Warn().Err(err).Msg("mongo disconnect failed")
			}
		}
		return docstore.NewMongoStore(db), closeFn, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory document store - data is lost on restart")
		return docstore.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func openFileStorage(ctx context.Context, cfg *config.Config) (docstore.FileStorage, error) {
	if cfg.Store.FileStorage == "memory" {
		log.Warn().Msg("using in-memory file storage")
		return docstore.NewMemoryFileStorage(), nil
	}
	return service.NewS3Service(ctx, &cfg.S3)
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
