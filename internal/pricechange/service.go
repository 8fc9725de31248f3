package pricechange

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"agrimarket/internal/domain"
	"agrimarket/internal/fallback"
	"agrimarket/internal/observability"
	"agrimarket/internal/storage"
)

// Request validation errors.
var (
	ErrInvalidMode      = errors.New("invalid analytics type")
	ErrCategoryRequired = errors.New("category is required for category-comparison")
	ErrInvalidDate      = errors.New("invalid date: expected YYYY-MM-DD")
)

// Modes lists the supported analytics modes.
var Modes = []string{
	domain.ModeCategoryComparison,
	domain.ModeCommodityChanges,
	domain.ModeMarketSummary,
	domain.ModeAvailableDates,
	domain.ModeAvailableCategories,
}

// Request selects a price analytics view.
type Request struct {
	Mode       string
	Date       string // YYYY-MM-DD; empty selects the latest date in the dataset
	Category   string
	MarketType string
}

// Validate checks the request and returns the parsed date (zero when absent).
func (r Request) Validate() (time.Time, error) {
	valid := false
	for _, m := range Modes {
		if r.Mode == m {
			valid = true
			break
		}
	}
	if !valid {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMode, r.Mode)
	}

	if r.Mode == domain.ModeCategoryComparison && strings.TrimSpace(r.Category) == "" {
		return time.Time{}, ErrCategoryRequired
	}

	date := strings.TrimSpace(r.Date)
	if date == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, r.Date)
	}
	return day, nil
}

// Service runs price analytics against a PriceChangeStore.
type Service struct {
	store      storage.PriceChangeStore
	fallback   *fallback.Generator
	logger     *log.Logger
	sourceName string
}

// NewService creates a new Service. A nil logger discards output.
func NewService(store storage.PriceChangeStore, gen *fallback.Generator, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{
		store:      store,
		fallback:   gen,
		logger:     logger,
		sourceName: "price_changes",
	}
}

// Run validates the request and computes the view for its mode.
// Only validation failures are returned as errors; store failures and empty
// data produce a mock payload with status error_with_mock_data.
func (s *Service) Run(ctx context.Context, req Request) (*domain.PriceAnalytics, error) {
	day, err := req.Validate()
	if err != nil {
		observability.RecordPriceValidationError(validationReason(err))
		return nil, err
	}
	req.Category = strings.TrimSpace(req.Category)
	req.MarketType = strings.TrimSpace(req.MarketType)

	var out *domain.PriceAnalytics
	switch req.Mode {
	case domain.ModeAvailableDates:
		out = s.availableDates(ctx)
	case domain.ModeAvailableCategories:
		out = s.availableCategories(ctx)
	default:
		out = s.view(ctx, req, day)
	}

	observability.RecordPriceRequest(req.Mode, out.Status)
	return out, nil
}

func (s *Service) view(ctx context.Context, req Request, day time.Time) *domain.PriceAnalytics {
	if s.store == nil {
		return s.mock(req, day, "no price change store configured")
	}

	if day.IsZero() {
		_, err := s.timed("latest_date", func() (int, error) {
			d, err := s.store.LatestDate(ctx)
			day = d
			return 0, err
		})
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return s.mock(req, day, "no price change data available")
			}
			s.logger.Printf("latest date lookup failed: %v", err)
			return s.mock(req, day, fmt.Sprintf("latest date: %v", err))
		}
	}

	filter := storage.PriceChangeFilter{
		Date:       domain.TruncateDay(day),
		Category:   req.Category,
		MarketType: req.MarketType,
	}

	var records []*domain.PriceChangeRecord
	_, err := s.timed("get_by_filter", func() (int, error) {
		var err error
		records, err = s.store.GetByFilter(ctx, filter)
		return len(records), err
	})
	if err != nil {
		s.logger.Printf("price change query failed (date=%s category=%q): %v",
			filter.Date.Format(domain.DateLayout), req.Category, err)
		return s.mock(req, day, fmt.Sprintf("query price changes: %v", err))
	}
	if len(records) == 0 {
		return s.mock(req, day, fmt.Sprintf("no price changes for %s", filter.Date.Format(domain.DateLayout)))
	}

	return &domain.PriceAnalytics{
		Status: domain.StatusSuccess,
		Mode:   req.Mode,
		Date:   filter.Date.Format(domain.DateLayout),
		Data:   compute(req, records),
	}
}

func (s *Service) availableDates(ctx context.Context) *domain.PriceAnalytics {
	req := Request{Mode: domain.ModeAvailableDates}
	if s.store == nil {
		return s.mock(req, time.Time{}, "no price change store configured")
	}

	var dates []time.Time
	_, err := s.timed("distinct_dates", func() (int, error) {
		var err error
		dates, err = s.store.DistinctDates(ctx, MaxAvailableDates)
		return len(dates), err
	})
	if err != nil {
		s.logger.Printf("distinct dates failed: %v", err)
		return s.mock(req, time.Time{}, fmt.Sprintf("distinct dates: %v", err))
	}
	if len(dates) == 0 {
		return s.mock(req, time.Time{}, "no price change data available")
	}

	return &domain.PriceAnalytics{
		Status: domain.StatusSuccess,
		Mode:   req.Mode,
		Data:   AvailableDates(dates),
	}
}

func (s *Service) availableCategories(ctx context.Context) *domain.PriceAnalytics {
	req := Request{Mode: domain.ModeAvailableCategories}
	if s.store == nil {
		return s.mock(req, time.Time{}, "no price change store configured")
	}

	var cats []string
	_, err := s.timed("distinct_categories", func() (int, error) {
		var err error
		cats, err = s.store.DistinctCategories(ctx)
		return len(cats), err
	})
	if err != nil {
		s.logger.Printf("distinct categories failed: %v", err)
		return s.mock(req, time.Time{}, fmt.Sprintf("distinct categories: %v", err))
	}

	out := AvailableCategories(cats)
	if len(out) == 0 {
		return s.mock(req, time.Time{}, "no price change data available")
	}

	return &domain.PriceAnalytics{
		Status: domain.StatusSuccess,
		Mode:   req.Mode,
		Data:   out,
	}
}

// mock runs the pipeline over synthetic records so the payload has the same
// shape as a real one.
func (s *Service) mock(req Request, day time.Time, reason string) *domain.PriceAnalytics {
	records := s.fallback.MockPriceChanges(day, req.Category)

	out := &domain.PriceAnalytics{
		Status: domain.StatusErrorWithMockData,
		Mode:   req.Mode,
		Error:  reason,
	}

	switch req.Mode {
	case domain.ModeAvailableDates:
		out.Data = AvailableDates(datesOf(records))
		return out
	case domain.ModeAvailableCategories:
		out.Data = AvailableCategories(categoriesOf(records))
		return out
	}

	latest := records[0].Date
	for _, r := range records {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	var latestDay, window []*domain.PriceChangeRecord
	for _, r := range records {
		if !r.Date.Equal(latest) {
			continue
		}
		latestDay = append(latestDay, r)
		if req.MarketType != "" && !strings.EqualFold(r.MarketType, req.MarketType) {
			continue
		}
		window = append(window, r)
	}
	// Mock markets are relabeled when the requested type is not in the catalog.
	if len(window) == 0 {
		for _, r := range latestDay {
			r.MarketType = req.MarketType
		}
		window = latestDay
	}

	out.Date = latest.Format(domain.DateLayout)
	out.Data = compute(req, window)
	return out
}

// timed runs a store call and records its latency.
func (s *Service) timed(op string, fn func() (int, error)) (int, error) {
	start := time.Now()
	n, err := fn()
	observability.RecordSourceFetch(s.sourceName, op, time.Since(start).Seconds(), n, err)
	return n, err
}

func compute(req Request, records []*domain.PriceChangeRecord) any {
	switch req.Mode {
	case domain.ModeCategoryComparison:
		return CategoryComparison(records, req.Category)
	case domain.ModeCommodityChanges:
		return CommodityChanges(records, req.Category)
	default:
		return MarketSummary(records)
	}
}

func validationReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidMode):
		return "invalid_mode"
	case errors.Is(err, ErrCategoryRequired):
		return "category_required"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	default:
		return "other"
	}
}
