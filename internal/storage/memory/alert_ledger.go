package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"agrimarket/internal/storage"
)

// AlertLedger is an in-memory implementation of storage.AlertLedger.
type AlertLedger struct {
	mu      sync.RWMutex
	alerted map[string]time.Time
}

// NewAlertLedger creates a new in-memory alert ledger.
func NewAlertLedger() *AlertLedger {
	return &AlertLedger{
		alerted: make(map[string]time.Time),
	}
}

// IsAlerted checks if a record ID has been broadcast.
func (s *AlertLedger) IsAlerted(_ context.Context, id string) (bool, error) {
	if id == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.alerted[id]
	return ok, nil
}

// MarkAlerted records that a record ID has been broadcast.
// Marking an ID twice keeps the first timestamp.
func (s *AlertLedger) MarkAlerted(_ context.Context, id string, at time.Time) error {
	if id == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.alerted[id]; !ok {
		s.alerted[id] = at
	}
	return nil
}

// LoadAlerted returns all alerted IDs.
func (s *AlertLedger) LoadAlerted(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.alerted))
	for id := range s.alerted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var _ storage.AlertLedger = (*AlertLedger)(nil)
