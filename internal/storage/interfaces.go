package storage

import (
	"context"
	"time"

	"agrimarket/internal/domain"
)

// RecordSource supplies bounded samples of raw market records.
type RecordSource interface {
	// FetchSample returns at most limit records, the most recent ones,
	// in insertion order (oldest first).
	FetchSample(ctx context.Context, limit int) ([]domain.RawRecord, error)
}

// RawRecordStore provides access to market_records storage.
type RawRecordStore interface {
	RecordSource

	// Insert adds a raw record. Returns ErrInvalidInput for an empty record.
	Insert(ctx context.Context, rec domain.RawRecord) error

	// InsertBulk adds multiple records atomically.
	InsertBulk(ctx context.Context, recs []domain.RawRecord) error
}

// PriceChangeFilter selects price change records.
// Zero fields do not filter.
type PriceChangeFilter struct {
	Date       time.Time // UTC day
	Category   string
	MarketType string
}

// PriceChangeStore provides access to price_changes storage.
type PriceChangeStore interface {
	// InsertBulk adds multiple records atomically. Fails entire batch on any duplicate ID.
	InsertBulk(ctx context.Context, records []*domain.PriceChangeRecord) error

	// GetByFilter retrieves matching records ordered by date DESC, commodity ASC, market ASC.
	GetByFilter(ctx context.Context, filter PriceChangeFilter) ([]*domain.PriceChangeRecord, error)

	// LatestDate returns the most recent record date. Returns ErrNotFound if the store is empty.
	LatestDate(ctx context.Context) (time.Time, error)

	// DistinctDates returns up to limit distinct record dates, most recent first.
	DistinctDates(ctx context.Context, limit int) ([]time.Time, error)

	// DistinctCategories returns distinct non-blank categories in ascending order.
	DistinctCategories(ctx context.Context) ([]string, error)
}

// AlertLedger remembers which price change records have already been alerted.
// This enables resumption after restarts without re-broadcasting alerts.
type AlertLedger interface {
	// IsAlerted checks if a record ID has been broadcast.
	IsAlerted(ctx context.Context, id string) (bool, error)

	// MarkAlerted records that a record ID has been broadcast.
	MarkAlerted(ctx context.Context, id string, at time.Time) error

	// LoadAlerted returns all alerted IDs (for warming the in-memory cache).
	LoadAlerted(ctx context.Context) ([]string, error)
}
