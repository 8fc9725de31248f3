package memory

import (
	"context"
	"sync"

	"agrimarket/internal/domain"
	"agrimarket/internal/storage"
)

// RawRecordStore is an in-memory implementation of storage.RawRecordStore.
// Records keep insertion order.
type RawRecordStore struct {
	mu      sync.RWMutex
	records []domain.RawRecord
}

// NewRawRecordStore creates a new in-memory raw record store.
func NewRawRecordStore() *RawRecordStore {
	return &RawRecordStore{}
}

// Insert adds a raw record.
func (s *RawRecordStore) Insert(_ context.Context, rec domain.RawRecord) error {
	if len(rec) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, copyRecord(rec))
	return nil
}

// InsertBulk adds multiple records. Fails entire batch on an empty record.
func (s *RawRecordStore) InsertBulk(_ context.Context, recs []domain.RawRecord) error {
	for _, rec := range recs {
		if len(rec) == 0 {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range recs {
		s.records = append(s.records, copyRecord(rec))
	}
	return nil
}

// FetchSample returns the last limit records in insertion order.
func (s *RawRecordStore) FetchSample(ctx context.Context, limit int) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := 0
	if len(s.records) > limit {
		start = len(s.records) - limit
	}

	result := make([]domain.RawRecord, 0, len(s.records)-start)
	for _, rec := range s.records[start:] {
		result = append(result, copyRecord(rec))
	}
	return result, nil
}

func copyRecord(rec domain.RawRecord) domain.RawRecord {
	out := make(domain.RawRecord, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

var _ storage.RawRecordStore = (*RawRecordStore)(nil)
