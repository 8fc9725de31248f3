package postgres

import (
	"context"
	"fmt"
	"time"

	"agrimarket/internal/storage"
)

// AlertLedger is a PostgreSQL implementation of storage.AlertLedger
// backed by the alert_ledger table.
type AlertLedger struct {
	pool *Pool
}

// NewAlertLedger creates a new PostgreSQL alert ledger.
func NewAlertLedger(pool *Pool) *AlertLedger {
	return &AlertLedger{pool: pool}
}

// Compile-time interface check.
var _ storage.AlertLedger = (*AlertLedger)(nil)

// IsAlerted checks if a record ID has been broadcast.
func (s *AlertLedger) IsAlerted(ctx context.Context, id string) (bool, error) {
	if id == "" {
		return false, storage.ErrInvalidInput
	}

	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM alert_ledger WHERE record_id = $1)
	`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check alert ledger: %w", err)
	}

	return exists, nil
}

// MarkAlerted records that a record ID has been broadcast.
// Idempotent: marking twice keeps the first timestamp.
func (s *AlertLedger) MarkAlerted(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO alert_ledger (record_id, alerted_at)
		VALUES ($1, $2)
		ON CONFLICT (record_id) DO NOTHING
	`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("mark alerted: %w", err)
	}
	return nil
}

// LoadAlerted returns all alerted IDs.
func (s *AlertLedger) LoadAlerted(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT record_id FROM alert_ledger ORDER BY record_id`)
	if err != nil {
		return nil, fmt.Errorf("query alert ledger: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan alert ledger: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alert ledger: %w", err)
	}
	return ids, nil
}
