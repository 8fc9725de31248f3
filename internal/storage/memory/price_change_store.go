package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"agrimarket/internal/domain"
	"agrimarket/internal/storage"
)

// PriceChangeStore is an in-memory implementation of storage.PriceChangeStore.
type PriceChangeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceChangeRecord // keyed by record ID
}

// NewPriceChangeStore creates a new in-memory price change store.
func NewPriceChangeStore() *PriceChangeStore {
	return &PriceChangeStore{
		data: make(map[string]*domain.PriceChangeRecord),
	}
}

// InsertBulk adds multiple records. Fails entire batch on duplicate.
func (s *PriceChangeStore) InsertBulk(_ context.Context, records []*domain.PriceChangeRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(records))

	// First pass: validate and check for duplicates (existing + intra-batch)
	for _, r := range records {
		if r == nil || r.ID == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[r.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[r.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[r.ID] = struct{}{}
	}

	// Second pass: insert all
	for _, r := range records {
		recordCopy := *r
		recordCopy.Date = domain.TruncateDay(r.Date)
		s.data[r.ID] = &recordCopy
	}

	return nil
}

// GetByFilter retrieves matching records ordered by date DESC, commodity ASC, market ASC.
func (s *PriceChangeStore) GetByFilter(_ context.Context, filter storage.PriceChangeFilter) ([]*domain.PriceChangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var day time.Time
	if !filter.Date.IsZero() {
		day = domain.TruncateDay(filter.Date)
	}

	var result []*domain.PriceChangeRecord
	for _, r := range s.data {
		if !day.IsZero() && !r.Date.Equal(day) {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(r.Category, filter.Category) {
			continue
		}
		if filter.MarketType != "" && !strings.EqualFold(r.MarketType, filter.MarketType) {
			continue
		}
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.Commodity != b.Commodity {
			return a.Commodity < b.Commodity
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		return a.ID < b.ID
	})

	return result, nil
}

// LatestDate returns the most recent record date.
func (s *PriceChangeStore) LatestDate(_ context.Context) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return time.Time{}, storage.ErrNotFound
	}

	var latest time.Time
	for _, r := range s.data {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	return latest, nil
}

// DistinctDates returns up to limit distinct dates, most recent first.
func (s *PriceChangeStore) DistinctDates(_ context.Context, limit int) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, r := range s.data {
		if _, ok := seen[r.Date]; ok {
			continue
		}
		seen[r.Date] = struct{}{}
		dates = append(dates, r.Date)
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	if limit > 0 && len(dates) > limit {
		dates = dates[:limit]
	}
	return dates, nil
}

// DistinctCategories returns distinct non-blank categories in ascending order.
func (s *PriceChangeStore) DistinctCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	cats := []string{}
	for _, r := range s.data {
		c := strings.TrimSpace(r.Category)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats, nil
}

var _ storage.PriceChangeStore = (*PriceChangeStore)(nil)
