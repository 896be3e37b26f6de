// Package app wires the CHoCH detection engine's collaborators —
// config, persistence, fetcher, sink, orchestrator, scheduler, worker
// pool and ops HTTP surface — into one runnable process.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"choch_detector/cmd/choch/transport/rest"
	"choch_detector/internal/config"
	"choch_detector/internal/exchange"
	"choch_detector/internal/orchestrator"
	"choch_detector/internal/pattern"
	"choch_detector/internal/repository"
	mysqlrepo "choch_detector/internal/repository/mysql"
	"choch_detector/internal/scheduler"
	"choch_detector/internal/sink"
	"choch_detector/pkg/apperrors"
	"choch_detector/pkg/cache"
	"choch_detector/pkg/database"
	"choch_detector/pkg/log"
)

// App represents the running engine process.
type App struct {
	config     *config.Config
	httpServer *http.Server
	workerPool *orchestrator.WorkerPool
	scheduler  *scheduler.Scheduler
	orch       *orchestrator.Orchestrator
	keys       []scheduler.Key
	dbCleanup  func()
	stopTick   chan struct{}
	fatal      chan error
}

// NewApp loads configuration and wires every collaborator. It exits the
// process on any unrecoverable startup failure.
func NewApp() *App {
	ctx := context.Background()

	env := os.Getenv("CHOCH_ENV")
	if env == "" {
		env = "development"
	}

	cfg, err := config.Load(env)
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	log.Info("Application configuration loaded for env=%s", env)
	log.Info(cfg.Features.LogConfiguration())

	dbConfig := database.Config{
		DataSource: database.DataSource{
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Host:     fmt.Sprintf("%s:%s", cfg.Database.Host, cfg.Database.Port),
			DBName:   cfg.Database.Name,
		},
		MaxIdleConnections:    cfg.Database.MaxIdleConnections,
		MaxOpenConnections:    cfg.Database.MaxOpenConnections,
		MaxConnectionLifeTime: cfg.Database.MaxConnectionLifeTime,
		MaxConnectionIdleTime: cfg.Database.MaxConnectionIdleTime,
		DisableTLS:            cfg.Database.DisableTLS,
		Debug:                 cfg.Database.Debug,
	}

	conn, dbCleanup, err := database.Open(ctx, dbConfig)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}

	migrationHandler := database.NewMigrationHandler(conn, dbConfig)
	log.Info("####### STARTING SCHEMA MIGRATION #######")
	if err := migrationHandler.ApplyMigrations(); err != nil {
		log.Fatalf("failed to apply database migrations: %v", err)
	}
	log.Info("####### SCHEMA MIGRATION DONE #######")

	var alertRepo repository.AlertRepository = mysqlrepo.NewAlertRepository(conn.DB)

	var cacheManager cache.API
	if !cfg.Redis.Disable {
		cacheManager = cache.NewCacheManager(
			cache.NewInMemoryCache(cache.InMemConfig{TTL: cfg.Redis.TTL, CleanUpTTL: 2 * cfg.Redis.TTL}),
			cache.NewRedisStore(cache.RedisConfig{
				Host:                  cfg.Redis.Host,
				Port:                  cfg.Redis.Port,
				Database:              cfg.Redis.Database,
				IdleConnectionTimeout: cfg.Redis.IdleConnectionTimeout,
				ConnectTimeout:        cfg.Redis.ConnectTimeout,
				ReadTimeout:           cfg.Redis.ReadTimeout,
				WriteTimeout:          cfg.Redis.WriteTimeout,
				PoolSize:              cfg.Redis.PoolSize,
				MaxRetry:              cfg.Redis.MaxRetry,
				MinIdleConns:          cfg.Redis.MinIdleConns,
				TTL:                   cfg.Redis.TTL,
			}),
		)
	}

	fetcher := exchange.NewRESTFetcher(cfg.Exchange, cacheManager)
	signalSink := sink.NewPersistentSink(alertRepo)

	variantFilter := cfg.Engine.VariantFilter()
	variantFilter.Enabled = variantFilter.Enabled && cfg.Features.UseVariantFilter

	detectorCfg := pattern.DetectorConfig{
		Left:            cfg.Engine.PivotLeft,
		Right:           cfg.Engine.PivotRight,
		KeepPivots:      cfg.Engine.KeepPivots,
		Filter:          variantFilter,
		InsertSynthetic: cfg.Features.InsertSyntheticPivots,
	}

	orch := orchestrator.New(fetcher, signalSink, detectorCfg)

	pool := orchestrator.NewWorkerPool(orchestrator.WorkerPoolConfig{
		MaxWorkers: cfg.Engine.MaxWorkers,
	})

	sched := scheduler.NewScheduler(cfg.Engine.ScanGrace())

	keys := make([]scheduler.Key, 0, len(cfg.Engine.Symbols)*len(cfg.Engine.Timeframes))
	for _, symbol := range cfg.Engine.Symbols {
		for _, timeframe := range cfg.Engine.Timeframes {
			keys = append(keys, scheduler.Key{Symbol: symbol, Timeframe: timeframe})
		}
	}

	server := rest.NewServer(orch, alertRepo)

	return &App{
		config: cfg,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      server.Router(),
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		},
		workerPool: pool,
		scheduler:  sched,
		orch:       orch,
		keys:       keys,
		dbCleanup:  dbCleanup,
		stopTick:   make(chan struct{}),
		fatal:      make(chan error, 1),
	}
}

// Run starts the worker pool, the scan-scheduling loop, the result
// drain, and the ops HTTP server, and blocks until an interrupt or an
// unrecoverable error.
func (a *App) Run() error {
	a.workerPool.Start()
	go a.scanLoop()
	go a.drainResults()

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Starting ops HTTP server on port %s", a.config.Server.Port)
		serverErrors <- a.httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.shutdown()
		return fmt.Errorf("server error: %w", err)

	case err := <-a.fatal:
		log.Error("fatal engine error, stopping: %v", err)
		a.shutdown()
		return fmt.Errorf("fatal engine error: %w", err)

	case <-shutdown:
		log.Info("Shutting down gracefully...")
		a.shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.httpServer.Shutdown(ctx); err != nil {
			a.httpServer.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// drainResults watches every completed scan task's result. A
// FetcherFatal or SinkFatal error is surfaced to Run via a.fatal, which
// stops the process; any other error (including the Transient kinds,
// which are retried on the key's next scheduled close) is only logged.
func (a *App) drainResults() {
	for {
		select {
		case result, ok := <-a.workerPool.Results():
			if !ok {
				return
			}
			if result.Error == nil {
				continue
			}
			var appErr *apperrors.AppError
			if errors.As(result.Error, &appErr) &&
				(appErr.Kind == apperrors.KindFetcherFatal || appErr.Kind == apperrors.KindSinkFatal) {
				select {
				case a.fatal <- result.Error:
				default:
				}
				return
			}
			log.SchedulerError(result.Key.Symbol, result.Key.Timeframe, "scan task error: %v", result.Error)
		case <-a.stopTick:
			return
		}
	}
}

// scanLoop polls the scheduler once per second and submits a ScanTask
// for every key that has a newly closed, grace-cleared candle.
func (a *App) scanLoop() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			ready := a.scheduler.GetScannable(a.keys, now)
			for _, key := range ready {
				task := a.orch.NewScanTask(key.Symbol, key.Timeframe, nil)
				if err := a.workerPool.Submit(context.Background(), task); err != nil {
					log.SchedulerError(key.Symbol, key.Timeframe, "failed to submit scan task: %v", err)
				}
			}
		case <-a.stopTick:
			return
		}
	}
}

func (a *App) shutdown() {
	close(a.stopTick)
	if err := a.workerPool.Shutdown(); err != nil {
		log.Error("worker pool shutdown error: %v", err)
	}
	a.dbCleanup()
}
