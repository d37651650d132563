package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/stemsi/sat-explorer/internal/config"
	"github.com/stemsi/sat-explorer/internal/database"
	"github.com/stemsi/sat-explorer/internal/dataset"
	"github.com/stemsi/sat-explorer/internal/handler"
	"github.com/stemsi/sat-explorer/internal/logger"
	"github.com/stemsi/sat-explorer/internal/metrics"
	"github.com/stemsi/sat-explorer/internal/middleware"
	"github.com/stemsi/sat-explorer/internal/model"
	"github.com/stemsi/sat-explorer/internal/repository"
	"github.com/stemsi/sat-explorer/internal/router"
	"github.com/stemsi/sat-explorer/internal/service"
	"github.com/stemsi/sat-explorer/internal/validator"
	"github.com/stemsi/sat-explorer/internal/worker"
)

const (
	limiterSweepInterval = time.Minute
	limiterIdle          = 10 * time.Minute
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("data_source", cfg.DataSource).
		Msg("Starting SAT Explorer")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL (optional) ──────────────────────────────
	var pool *pgxpool.Pool
	if cfg.NeedsPostgres() {
		var err error
		pool, err = database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
	}

	// ─── Load Dataset ──────────────────────────────────────────────────
	ds, err := loadDataset(ctx, cfg, pool)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.DataSource).Msg("Failed to load dataset")
	}
	log.Info().
		Int("rows", ds.Len()).
		Int("majors", len(ds.Majors)-1).
		Str("fingerprint", ds.Fingerprint).
		Msg("Dataset loaded")

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Metrics ───────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(reg)

	// ─── Initialize Services ──────────────────────────────────────────
	explorerService := service.NewExplorerService(ds, service.NewRedisChartCache(rdb), cfg.ChartCacheTTL, log)
	shareService := service.NewShareService(cfg.ShareSecret, cfg.ShareExpiry)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	var recorder handler.InteractionRecorder
	if cfg.InteractionLog && rdb != nil {
		queue := worker.NewRedisQueue(rdb)
		recorder = worker.NewInteractionQueue(queue, log)
		interactionWorker := worker.NewInteractionWorker(repository.NewInteractionRepository(pool), queue, log)
		go interactionWorker.Start(workerCtx)
	} else if cfg.InteractionLog {
		log.Warn().Msg("INTERACTION_LOG needs REDIS_URL; interaction log disabled")
	}

	limiter := middleware.NewRateLimiter(cfg.RenderRatePerMinute)
	go func() {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				limiter.Cleanup(limiterIdle)
			}
		}
	}()

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Explorer: handler.NewExplorerHandler(explorerService, shareService, log),
		Session:  handler.NewSessionHandler(explorerService, recorder, log, cfg.AllowedOrigins),
		Page:     handler.NewPageHandler(explorerService),
		System:   handler.NewSystemHandler(ds, cfg.DataSource),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, shareService, limiter, reg, cfg, log)

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	workerCancel()
	if recorder != nil {
		time.Sleep(2 * time.Second) // Allow the interaction worker to flush.
	}

	log.Info().Msg("Shutdown complete")
}

// loadDataset reads the dataset once from the configured source.
func loadDataset(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (*model.Dataset, error) {
	if !cfg.UsesPostgres() {
		return dataset.LoadFile(cfg.DataFile)
	}
	records, err := repository.NewScoreRepository(pool).List(ctx)
	if err != nil {
		return nil, err
	}
	return dataset.New(records), nil
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
