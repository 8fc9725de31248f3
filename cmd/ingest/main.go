// Package main loads market data into storage:
// - daily prices (CSV), converted to day-over-day price change records
// - raw market records (JSON lines) for demand analysis
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"agrimarket/internal/config"
	"agrimarket/internal/domain"
	"agrimarket/internal/observability"
	"agrimarket/internal/pricechange"
	"agrimarket/internal/storage"
	chstore "agrimarket/internal/storage/clickhouse"
	"agrimarket/internal/storage/memory"
	pgstore "agrimarket/internal/storage/postgres"
)

// batchSize bounds the records written per InsertBulk call.
const batchSize = 500

func main() {
	cfg := config.Load()

	// Parse flags
	pricesPath := flag.String("prices", "", "CSV of daily prices (commodity,category,market,market_type,location,date,price)")
	recordsPath := flag.String("records", "", "JSON lines file of raw market records")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickhouseDSN, "ClickHouse connection string (price changes)")
	dryRun := flag.Bool("dry-run", false, "Parse and derive into memory without writing to a database")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *pricesPath == "" && *recordsPath == "" {
		logger.Fatal("Nothing to ingest. Use --prices and/or --records")
	}
	if !*dryRun && *postgresDSN == "" && *clickhouseDSN == "" {
		logger.Fatal("--postgres-dsn or --clickhouse-dsn is required (use --dry-run to validate input only)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolOpts := pgstore.PoolOptions{
		MaxConns:        int32(cfg.PostgresMaxConns),
		MaxConnLifetime: cfg.PostgresConnLifetime,
	}
	records, changes, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, poolOpts, *dryRun)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	if *pricesPath != "" {
		if err := ingestPrices(ctx, logger, *pricesPath, changes); err != nil {
			logger.Fatalf("Price ingestion failed: %v", err)
		}
	}
	if *recordsPath != "" {
		if err := ingestRecords(ctx, logger, *recordsPath, records); err != nil {
			logger.Fatalf("Record ingestion failed: %v", err)
		}
	}

	logger.Println("Ingestion complete")
}

// createStores returns the write targets for price changes and raw records.
// Either may be nil when no backend for it is configured.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, poolOpts pgstore.PoolOptions, dryRun bool) (
	storage.RawRecordStore,
	storage.PriceChangeStore,
	func(),
	error,
) {
	if dryRun {
		return memory.NewRawRecordStore(), memory.NewPriceChangeStore(), func() {}, nil
	}

	var (
		records storage.RawRecordStore
		changes storage.PriceChangeStore
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if postgresDSN != "" {
		pool, err := pgstore.NewPoolWithOptions(ctx, postgresDSN, poolOpts)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		records = pgstore.NewRawRecordStore(pool)
		changes = pgstore.NewPriceChangeStore(pool)
	}

	if clickhouseDSN != "" {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		changes = chstore.NewPriceChangeStore(conn)
	}

	return records, changes, cleanup, nil
}

func ingestPrices(ctx context.Context, logger *log.Logger, path string, store storage.PriceChangeStore) error {
	if store == nil {
		return errors.New("no price change store configured")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open prices: %w", err)
	}
	defer f.Close()

	prices, err := parsePricesCSV(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	changes := pricechange.Derive(prices)
	logger.Printf("Parsed %d daily prices into %d price changes", len(prices), len(changes))

	stored, skipped := 0, 0
	for start := 0; start < len(changes); start += batchSize {
		end := min(start+batchSize, len(changes))
		batch := changes[start:end]

		err := store.InsertBulk(ctx, batch)
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Batch overlaps earlier loads; retry one by one so new rows still land.
			n, err := insertChangesOneByOne(ctx, store, batch)
			if err != nil {
				return err
			}
			stored += n
			skipped += len(batch) - n
			continue
		}
		if err != nil {
			return fmt.Errorf("store price changes: %w", err)
		}
		stored += len(batch)
	}

	observability.RecordStored("price_changes", stored)
	logger.Printf("Stored %d price changes (%d already present)", stored, skipped)
	return nil
}

func insertChangesOneByOne(ctx context.Context, store storage.PriceChangeStore, batch []*domain.PriceChangeRecord) (int, error) {
	n := 0
	for _, c := range batch {
		err := store.InsertBulk(ctx, []*domain.PriceChangeRecord{c})
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("store price change %s: %w", c.ID, err)
		}
		n++
	}
	return n, nil
}

func ingestRecords(ctx context.Context, logger *log.Logger, path string, store storage.RawRecordStore) error {
	if store == nil {
		return errors.New("raw records require --postgres-dsn")
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	recs, err := parseRecordsJSONL(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for start := 0; start < len(recs); start += batchSize {
		end := min(start+batchSize, len(recs))
		if err := store.InsertBulk(ctx, recs[start:end]); err != nil {
			return fmt.Errorf("store records %d-%d: %w", start, end, err)
		}
	}

	observability.RecordStored("raw_records", len(recs))
	logger.Printf("Stored %d raw records", len(recs))
	return nil
}
