package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/cloo-solutions/movewise/internal/api/handlers"
	"github.com/cloo-solutions/movewise/internal/cache"
	"github.com/cloo-solutions/movewise/internal/config"
	"github.com/cloo-solutions/movewise/internal/database"
	"github.com/cloo-solutions/movewise/internal/events"
	"github.com/cloo-solutions/movewise/internal/exa"
	"github.com/cloo-solutions/movewise/internal/jobs"
	"github.com/cloo-solutions/movewise/internal/openai"
	"github.com/cloo-solutions/movewise/internal/repository"
	"github.com/cloo-solutions/movewise/internal/retry"
	"github.com/cloo-solutions/movewise/internal/server"
	"github.com/cloo-solutions/movewise/internal/service"
	"github.com/cloo-solutions/movewise/internal/storage"
	"github.com/cloo-solutions/movewise/internal/telemetry"
	"github.com/cloo-solutions/movewise/internal/voice"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the movewise API server, the search job worker and the maintenance scheduler",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Do not claim pending jobs in this process")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasExa() {
		return errors.New("MOVEWISE_EXA_API_KEY is required")
	}

	if cfg.SentryDSN != "" {
		// 10% sampling in production, everything in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	var (
		jobRepo service.SearchJobRepository
		caches  service.Cache
		pruners []service.Pruner
	)

	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, cfg.DatabaseURL, database.PoolConfig{})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()
		log.Println("connected to database")

		noMigrate, _ := cmd.Flags().GetBool("no-migrate")
		if !noMigrate {
			if err := runMigrations(cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		jobRepo = repository.NewSearchJobRepository(pool)
		cacheRepo := repository.NewSearchCacheRepository(pool)
		caches = cacheRepo
		pruners = append(pruners, cacheRepo)
	} else {
		log.Println("no database configured, keeping jobs in memory")
		jobRepo = repository.NewMemorySearchJobRepository()
	}

	var (
		publisher  service.Publisher
		subscriber service.Subscriber
	)
	if cfg.HasRedis() {
		rdb, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer closeRedis(rdb)
		log.Println("connected to redis")

		broker := events.NewRedisBroker(rdb)
		publisher, subscriber = broker, broker
		caches = cache.NewRedisCache(rdb)
	} else {
		broker := events.NewBroker()
		publisher, subscriber = broker, broker
	}
	if caches == nil {
		memCache := cache.NewMemoryCache()
		caches = memCache
		pruners = append(pruners, memCache)
	}

	policy := retry.Policy{MaxRetries: cfg.RetryMax, InitialInterval: cfg.RetryInitialInterval}
	searchClient := exa.NewClient(exa.Config{
		APIKey:  cfg.ExaAPIKey,
		BaseURL: cfg.ExaBaseURL,
		Timeout: cfg.SearchTimeout,
		Retry:   policy,
	})

	var llm service.LLM
	if cfg.HasOpenAI() {
		llm = openai.NewClientWithConfig(openai.Config{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.LLMTimeout,
			Retry:   policy,
		})
	} else {
		log.Println("no OpenAI key configured, narratives and timelines are disabled")
	}

	var store service.ObjectStore
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		store = s3Client
	}

	jobSvc := service.NewSearchJobService(jobRepo, searchClient, publisher)
	watcher := service.NewJobWatcher(jobRepo, subscriber)
	structured := service.NewStructuredSearchService(searchClient, service.NewAnalyzer(llm))
	narratives := service.NewNarrativeService(llm, structured)
	timelines := service.NewTimelineService(llm)
	reports := service.NewReportService(store, jobRepo)
	maintenance := service.NewMaintenanceService(jobRepo, cfg.StaleJobAfter, pruners...)
	tools := voice.NewTools(searchClient, llm, caches).WithCacheTTL(cfg.CacheTTL)

	var worker *jobs.Worker
	if noWorker, _ := cmd.Flags().GetBool("no-worker"); !noWorker {
		worker = jobs.NewWorker(jobs.NewSearchJobWorker(jobSvc, cfg.WorkerConcurrency), cfg.WorkerPollInterval)
		go worker.Start(ctx)
		log.Printf("search job worker started (concurrency %d)", cfg.WorkerConcurrency)
	}

	scheduler := jobs.NewScheduler()
	if err := scheduler.Add(ctx, "sweep stale jobs", cfg.SweepSpec, maintenance.SweepStaleJobs); err != nil {
		return err
	}
	if err := scheduler.Add(ctx, "prune cache", cfg.CachePruneSpec, maintenance.PruneCache); err != nil {
		return err
	}
	scheduler.Start()

	jobHandler := handlers.NewJobHandler(jobSvc, watcher)
	router := server.NewRouter(server.RouterConfig{
		APIKey:            cfg.APIKey,
		JobHandler:        jobHandler,
		SearchHandler:     handlers.NewSearchHandler(structured),
		SimulationHandler: handlers.NewSimulationHandler(narratives, timelines),
		ReportHandler:     handlers.NewReportHandler(reports),
		ToolHandler:       handlers.NewToolHandler(tools),
	})
	if !cfg.HasAuth() {
		log.Println("MOVEWISE_API_KEY not set, API is unauthenticated")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if worker != nil {
		worker.Stop()
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		log.Printf("scheduler stop: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	jobHandler.Wait()

	log.Println("server exited")
	return nil
}

func closeRedis(rdb *redis.Client) {
	if err := rdb.Close(); err != nil {
		log.Printf("redis close: %v", err)
	}
}

func runMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	switch {
	case err == migrate.ErrNilVersion:
		log.Println("migrations: no migrations applied")
	case dirty:
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	default:
		log.Printf("migrations: database at version %d", version)
	}

	return nil
}
