package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"agrimarket/internal/domain"
	"agrimarket/internal/idhash"
	"agrimarket/internal/storage"
)

// RawRecordStore implements storage.RawRecordStore on a JSONB column.
type RawRecordStore struct {
	pool *Pool
}

// NewRawRecordStore creates a new RawRecordStore.
func NewRawRecordStore(pool *Pool) *RawRecordStore {
	return &RawRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RawRecordStore = (*RawRecordStore)(nil)

const insertRawRecordSQL = `
	INSERT INTO market_records (record_hash, doc)
	VALUES ($1, $2::jsonb)
`

// Insert adds a raw record.
func (s *RawRecordStore) Insert(ctx context.Context, rec domain.RawRecord) error {
	hash, doc, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx, insertRawRecordSQL, hash, doc); err != nil {
		return fmt.Errorf("insert market record: %w", err)
	}
	return nil
}

// InsertBulk adds multiple records atomically.
func (s *RawRecordStore) InsertBulk(ctx context.Context, recs []domain.RawRecord) error {
	if len(recs) == 0 {
		return nil
	}

	type encoded struct{ hash, doc string }
	rows := make([]encoded, 0, len(recs))
	for _, rec := range recs {
		hash, doc, err := encodeRecord(rec)
		if err != nil {
			return err
		}
		rows = append(rows, encoded{hash, doc})
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range rows {
		if _, err := tx.Exec(ctx, insertRawRecordSQL, r.hash, r.doc); err != nil {
			return fmt.Errorf("insert market record in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// FetchSample returns the last limit records in insertion order.
func (s *RawRecordStore) FetchSample(ctx context.Context, limit int) ([]domain.RawRecord, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT doc FROM (
			SELECT id, doc FROM market_records
			ORDER BY id DESC
			LIMIT $1
		) recent
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query market records: %w", err)
	}
	defer rows.Close()

	var result []domain.RawRecord
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan market record: %w", err)
		}
		var rec domain.RawRecord
		if err := json.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("decode market record: %w", err)
		}
		result = append(result, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market records: %w", err)
	}

	return result, nil
}

// encodeRecord returns the content hash and JSON document of a record.
// json.Marshal sorts map keys, so equal records hash equally.
func encodeRecord(rec domain.RawRecord) (string, string, error) {
	if len(rec) == 0 {
		return "", "", storage.ErrInvalidInput
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return "", "", fmt.Errorf("encode market record: %w", err)
	}
	return idhash.ComputeRecordID(doc), string(doc), nil
}
