// Package main runs the analytics service:
// - HTTP API (fiber): demand and price analytics
// - Ops server (net/http): health, metrics, status, websocket alert feed
// - Alert scheduler: broadcasts significant price changes on an interval
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"agrimarket/internal/alerts"
	"agrimarket/internal/api"
	"agrimarket/internal/config"
	"agrimarket/internal/demand"
	"agrimarket/internal/fallback"
	"agrimarket/internal/fixtures"
	"agrimarket/internal/observability"
	"agrimarket/internal/pricechange"
	"agrimarket/internal/storage"
	chstore "agrimarket/internal/storage/clickhouse"
	"agrimarket/internal/storage/memory"
	"agrimarket/internal/storage/migrations"
	pgstore "agrimarket/internal/storage/postgres"
	"agrimarket/internal/storage/sqlite"
)

// Server holds all components of the service.
type Server struct {
	cfg    *config.Config
	stores *allStores
	hub    *alerts.Hub
	sched  *alerts.Scheduler
	logger *log.Logger

	// State
	mu        sync.Mutex
	startedAt time.Time
}

// allStores holds all storage implementations.
type allStores struct {
	records      storage.RecordSource
	rawStore     storage.RawRecordStore // nil when records come from SQLite
	priceChanges storage.PriceChangeStore
	alertLedger  storage.AlertLedger
	backend      string
}

func main() {
	cfg := config.Load()

	// Parse flags (env vars as defaults)
	httpAddr := flag.String("http-addr", cfg.HTTPAddr, "API listen address")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "Ops HTTP address (health, metrics, status, alerts)")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string")
	sqlitePath := flag.String("records-sqlite", cfg.RecordsSQLitePath, "SQLite database to sample raw records from")
	sqliteTable := flag.String("records-table", cfg.RecordsSQLiteTable, "SQLite table (default: first user table)")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use in-memory storage")
	seed := flag.Bool("seed-fixtures", false, "Load demo data into in-memory stores")
	runMigrations := flag.Bool("migrate", cfg.RunMigrations, "Apply embedded migrations on startup")
	sampleLimit := flag.Int("sample-limit", cfg.SampleLimit, "Max raw records per demand analysis")
	requestTimeout := flag.Duration("request-timeout", cfg.RequestTimeout, "Per-request timeout")
	alertInterval := flag.Duration("alert-interval", cfg.AlertInterval, "Significant change scan interval")

	flag.Parse()

	cfg.HTTPAddr = *httpAddr
	cfg.MetricsAddr = *metricsAddr
	cfg.PostgresDSN = *postgresDSN
	cfg.ClickhouseDSN = *clickhouseDSN
	cfg.RecordsSQLitePath = *sqlitePath
	cfg.RecordsSQLiteTable = *sqliteTable
	cfg.UseMemory = *useMemory
	cfg.RunMigrations = *runMigrations
	cfg.SampleLimit = *sampleLimit
	cfg.RequestTimeout = *requestTimeout
	cfg.AlertInterval = *alertInterval

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !cfg.UseMemory && !cfg.HasDatabase() {
		logger.Fatal("--postgres-dsn or --clickhouse-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	if *seed {
		if !cfg.UseMemory {
			logger.Fatal("--seed-fixtures requires --use-memory")
		}
		if err := fixtures.Seed(ctx, stores.rawStore, stores.priceChanges); err != nil {
			logger.Fatalf("Failed to seed fixtures: %v", err)
		}
		logger.Println("Loaded demo fixtures")
	}

	hub := alerts.NewHub(nil, log.New(os.Stdout, "[alerts] ", log.LstdFlags|log.Lshortfile))
	server := &Server{
		cfg:    cfg,
		stores: stores,
		hub:    hub,
		sched: alerts.NewScheduler(alerts.SchedulerOptions{
			Store:       stores.priceChanges,
			Ledger:      stores.alertLedger,
			Broadcaster: hub,
			Interval:    cfg.AlertInterval,
			Logger:      log.New(os.Stdout, "[alerts] ", log.LstdFlags|log.Lshortfile),
		}),
		logger:    logger,
		startedAt: time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores wires storage backends from configuration.
// Postgres holds raw records and the alert ledger; price changes live in
// ClickHouse when configured, else Postgres. A SQLite path overrides the
// raw record source.
func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*allStores, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	stores := &allStores{}

	switch {
	case cfg.UseMemory:
		raw := memory.NewRawRecordStore()
		stores.records = raw
		stores.rawStore = raw
		stores.priceChanges = memory.NewPriceChangeStore()
		stores.alertLedger = memory.NewAlertLedger()
		stores.backend = "memory"

	default:
		stores.alertLedger = memory.NewAlertLedger()

		if cfg.PostgresDSN != "" {
			pool, err := pgstore.NewPoolWithOptions(ctx, cfg.PostgresDSN, pgstore.PoolOptions{
				MaxConns:        int32(cfg.PostgresMaxConns),
				MaxConnLifetime: cfg.PostgresConnLifetime,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("connect to postgres: %w", err)
			}
			closers = append(closers, pool.Close)

			if cfg.RunMigrations {
				applied, err := migrations.RunPostgresMigrations(ctx, pool)
				if err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("postgres migrations: %w", err)
				}
				logger.Printf("Applied %d postgres migrations", len(applied))
			}

			raw := pgstore.NewRawRecordStore(pool)
			stores.records = raw
			stores.rawStore = raw
			stores.priceChanges = pgstore.NewPriceChangeStore(pool)
			stores.alertLedger = pgstore.NewAlertLedger(pool)
			stores.backend = "postgres"
		}

		if cfg.ClickhouseDSN != "" {
			var (
				conn *chstore.Conn
				err  error
			)
			if cfg.RunMigrations {
				conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
			} else {
				conn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
			}
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
			}
			closers = append(closers, func() { conn.Close() })

			stores.priceChanges = chstore.NewPriceChangeStore(conn)
			if stores.backend == "" {
				stores.backend = "clickhouse"
			} else {
				stores.backend += "+clickhouse"
			}
		}
	}

	if cfg.RecordsSQLitePath != "" {
		src, err := sqlite.Open(ctx, cfg.RecordsSQLitePath, cfg.RecordsSQLiteTable)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("open sqlite records: %w", err)
		}
		closers = append(closers, func() { src.Close() })
		logger.Printf("Sampling raw records from sqlite table %q", src.Table())
		stores.records = src
		stores.rawStore = nil
	}

	return stores, cleanup, nil
}

// Run starts the API, the ops server and the alert scheduler.
// It blocks until context is cancelled or a component fails.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Printf("Starting server (storage: %s)...", s.stores.backend)

	gen := fallback.NewRandomGenerator()
	analyzer := demand.NewAnalyzer(
		s.stores.records,
		gen,
		log.New(os.Stdout, "[demand] ", log.LstdFlags|log.Lshortfile),
		demand.AnalyzerConfig{
			SampleLimit: s.cfg.SampleLimit,
			SourceName:  s.stores.backend,
			Thresholds:  demand.DefaultThresholds(),
		},
	)
	prices := pricechange.NewService(
		s.stores.priceChanges,
		gen,
		log.New(os.Stdout, "[prices] ", log.LstdFlags|log.Lshortfile),
	)

	app := api.NewApp(api.NewHandler(analyzer, prices, s.cfg.RequestTimeout, s.logger))
	ops := &http.Server{Addr: s.cfg.MetricsAddr, Handler: s.opsMux()}

	errCh := make(chan error, 3)

	go func() {
		s.logger.Printf("Starting API on %s", s.cfg.HTTPAddr)
		if err := app.Listen(s.cfg.HTTPAddr); err != nil {
			errCh <- fmt.Errorf("api: %w", err)
		}
	}()

	go func() {
		s.logger.Printf("Starting ops server on %s", s.cfg.MetricsAddr)
		if err := ops.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()

	go func() {
		if err := s.sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("alert scheduler: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		s.logger.Printf("API shutdown: %v", err)
	}
	s.hub.Close()
	if err := ops.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("Ops server shutdown: %v", err)
	}

	return runErr
}

// opsMux serves health, metrics, status and the alert feed.
func (s *Server) opsMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	// Significant change feed
	mux.Handle("/alerts", s.hub)

	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	Storage          string `json:"storage"`
	AlertSubscribers int    `json:"alert_subscribers"`
	AlertInterval    string `json:"alert_interval"`
	SampleLimit      int    `json:"sample_limit"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	started := s.startedAt
	s.mu.Unlock()

	resp := StatusResponse{
		Status:           "running",
		Uptime:           time.Since(started).Round(time.Second).String(),
		Storage:          s.stores.backend,
		AlertSubscribers: s.hub.Subscribers(),
		AlertInterval:    s.cfg.AlertInterval.String(),
		SampleLimit:      s.cfg.SampleLimit,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
