package alerts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"agrimarket/internal/domain"
	"agrimarket/internal/observability"
	"agrimarket/internal/storage"
)

// Broadcaster delivers alerts for records. It returns n such that
// records[:n] were delivered; the rest are retried on a later scan.
type Broadcaster interface {
	Broadcast(records []*domain.PriceChangeRecord, at time.Time) (int, error)
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Date        time.Time
	Significant int
	Broadcast   int
}

// SchedulerOptions contains configuration for creating a Scheduler.
type SchedulerOptions struct {
	Store       storage.PriceChangeStore
	Ledger      storage.AlertLedger
	Broadcaster Broadcaster
	Interval    time.Duration // Default: 5m
	Logger      *log.Logger
	Now         func() time.Time
}

// Scheduler periodically scans the latest day for significant price changes
// and broadcasts those not alerted before.
type Scheduler struct {
	store       storage.PriceChangeStore
	ledger      storage.AlertLedger
	broadcaster Broadcaster
	interval    time.Duration
	logger      *log.Logger
	now         func() time.Time

	// mu serializes scans; a tick arriving mid-scan is skipped.
	mu      sync.Mutex
	running bool

	warmed  bool
	alerted map[string]struct{}
}

// NewScheduler creates a new Scheduler.
func NewScheduler(opts SchedulerOptions) *Scheduler {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		store:       opts.Store,
		ledger:      opts.Ledger,
		broadcaster: opts.Broadcaster,
		interval:    interval,
		logger:      logger,
		now:         now,
		alerted:     make(map[string]struct{}),
	}
}

// Run scans immediately and then on every interval.
// It blocks until context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Printf("Alert scheduler started, interval: %v", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Println("Alert scheduler stopping...")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	res, err := s.Scan(ctx)
	switch {
	case errors.Is(err, errScanInProgress):
		s.logger.Println("previous alert scan still running, skipping tick")
	case err != nil:
		s.logger.Printf("alert scan failed: %v", err)
	case res.Broadcast > 0:
		s.logger.Printf("broadcast %d alerts for %s (%d significant)",
			res.Broadcast, res.Date.Format(domain.DateLayout), res.Significant)
	}
}

var errScanInProgress = errors.New("alert scan in progress")

// Scan loads the latest day's records, keeps significant changes and
// broadcasts each record at most once across scans and restarts.
func (s *Scheduler) Scan(ctx context.Context) (ScanResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ScanResult{}, errScanInProgress
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	res, err := s.scan(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.RecordAlertScan(status, s.now().Unix())
	return res, err
}

func (s *Scheduler) scan(ctx context.Context) (ScanResult, error) {
	if err := s.warm(ctx); err != nil {
		return ScanResult{}, err
	}

	latest, err := s.store.LatestDate(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ScanResult{}, nil
		}
		return ScanResult{}, fmt.Errorf("latest date: %w", err)
	}
	res := ScanResult{Date: latest}

	records, err := s.store.GetByFilter(ctx, storage.PriceChangeFilter{Date: latest})
	if err != nil {
		return res, fmt.Errorf("load price changes: %w", err)
	}

	var pending []*domain.PriceChangeRecord
	for _, r := range records {
		if !r.SignificantChange {
			continue
		}
		res.Significant++
		if _, done := s.alerted[r.ID]; done {
			continue
		}
		pending = append(pending, r)
	}
	if len(pending) == 0 {
		return res, nil
	}

	at := s.now()
	n, err := s.broadcaster.Broadcast(pending, at)
	res.Broadcast = n
	// Only delivered records are marked; the remainder stays pending.
	for _, r := range pending[:n] {
		if markErr := s.ledger.MarkAlerted(ctx, r.ID, at); markErr != nil {
			return res, fmt.Errorf("mark alerted %s: %w", r.ID, markErr)
		}
		s.alerted[r.ID] = struct{}{}
	}
	if err == nil && n < len(pending) {
		s.logger.Printf("%d alerts for %s not delivered, will retry", len(pending)-n, latest.Format(domain.DateLayout))
	}
	if err != nil {
		return res, fmt.Errorf("broadcast: %w", err)
	}
	return res, nil
}

// warm loads previously alerted IDs once.
func (s *Scheduler) warm(ctx context.Context) error {
	if s.warmed {
		return nil
	}
	ids, err := s.ledger.LoadAlerted(ctx)
	if err != nil {
		return fmt.Errorf("load alert ledger: %w", err)
	}
	for _, id := range ids {
		s.alerted[id] = struct{}{}
	}
	s.warmed = true
	return nil
}
