package pricechange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/internal/domain"
	"agrimarket/internal/fallback"
	"agrimarket/internal/storage"
	"agrimarket/internal/storage/memory"
)

// failingStore is a PriceChangeStore whose reads always fail.
type failingStore struct {
	err error
}

func (s *failingStore) InsertBulk(context.Context, []*domain.PriceChangeRecord) error { return s.err }
func (s *failingStore) GetByFilter(context.Context, storage.PriceChangeFilter) ([]*domain.PriceChangeRecord, error) {
	return nil, s.err
}
func (s *failingStore) LatestDate(context.Context) (time.Time, error)           { return time.Time{}, s.err }
func (s *failingStore) DistinctDates(context.Context, int) ([]time.Time, error) { return nil, s.err }
func (s *failingStore) DistinctCategories(context.Context) ([]string, error)    { return nil, s.err }

func seededStore(t *testing.T) *memory.PriceChangeStore {
	t.Helper()

	prev := testDay.AddDate(0, 0, -1)
	records := []*domain.PriceChangeRecord{
		rec("Onion", "Vegetables", "Azadpur", "wholesale", 30, 10),
		rec("Tomato", "Vegetables", "Azadpur", "wholesale", 20, -6),
		rec("Onion", "Vegetables", "Koyambedu", "retail", 36, 0),
		rec("Banana", "Fruits", "Azadpur", "wholesale", 40, 2),
		{ID: "old", Commodity: "Onion", Category: "Vegetables", Market: "Azadpur", MarketType: "wholesale", TodayPrice: 28, Date: prev},
	}

	store := memory.NewPriceChangeStore()
	require.NoError(t, store.InsertBulk(context.Background(), records))
	return store
}

func newService(store storage.PriceChangeStore) *Service {
	gen := fallback.NewGenerator(5).WithClock(func() time.Time { return testDay })
	return NewService(store, gen, nil)
}

func TestRequestValidate(t *testing.T) {
	_, err := Request{Mode: "pie"}.Validate()
	assert.ErrorIs(t, err, ErrInvalidMode)

	_, err = Request{Mode: domain.ModeCategoryComparison, Category: "  "}.Validate()
	assert.ErrorIs(t, err, ErrCategoryRequired)

	_, err = Request{Mode: domain.ModeMarketSummary, Date: "10/06/2024"}.Validate()
	assert.ErrorIs(t, err, ErrInvalidDate)

	day, err := Request{Mode: domain.ModeMarketSummary, Date: "2024-06-10"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, testDay, day)

	day, err = Request{Mode: domain.ModeCommodityChanges}.Validate()
	require.NoError(t, err)
	assert.True(t, day.IsZero())
}

func TestService_ValidationErrorsSurface(t *testing.T) {
	svc := newService(seededStore(t))

	out, err := svc.Run(context.Background(), Request{Mode: domain.ModeCategoryComparison})

	assert.Nil(t, out)
	assert.True(t, errors.Is(err, ErrCategoryRequired))
}

func TestService_DefaultsToLatestDate(t *testing.T) {
	svc := newService(seededStore(t))

	out, err := svc.Run(context.Background(), Request{Mode: domain.ModeCategoryComparison, Category: "Vegetables"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, out.Status)
	assert.Equal(t, "2024-06-10", out.Date)
	rows, ok := out.Data.([]domain.CategoryComparisonRow)
	require.True(t, ok)
	require.Len(t, rows, 2)
	assert.Equal(t, "Onion", rows[0].Commodity)
	assert.Equal(t, 2, rows[0].Count)
	assert.Equal(t, 33.0, rows[0].AveragePrice)
}

func TestService_ExplicitDate(t *testing.T) {
	svc := newService(seededStore(t))

	out, err := svc.Run(context.Background(), Request{Mode: domain.ModeCommodityChanges, Date: "2024-06-09"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, out.Status)
	changes := out.Data.([]*domain.PriceChangeRecord)
	require.Len(t, changes, 1)
	assert.Equal(t, "old", changes[0].ID)
}

func TestService_MarketTypeFilter(t *testing.T) {
	svc := newService(seededStore(t))

	out, err := svc.Run(context.Background(), Request{Mode: domain.ModeMarketSummary, MarketType: "retail"})
	require.NoError(t, err)

	rows := out.Data.([]domain.MarketSummaryRow)
	require.Len(t, rows, 1)
	assert.Equal(t, "Koyambedu", rows[0].Market)
	assert.Equal(t, 100, rows[0].StabilityScore)
}

func TestService_Listings(t *testing.T) {
	svc := newService(seededStore(t))
	ctx := context.Background()

	out, err := svc.Run(ctx, Request{Mode: domain.ModeAvailableDates})
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-06-10", "2024-06-09"}, out.Data)

	out, err = svc.Run(ctx, Request{Mode: domain.ModeAvailableCategories})
	require.NoError(t, err)
	assert.Equal(t, []string{"Fruits", "Vegetables"}, out.Data)
}

func TestService_EmptyStoreFallsBack(t *testing.T) {
	svc := newService(memory.NewPriceChangeStore())

	for _, mode := range Modes {
		req := Request{Mode: mode, Category: "Vegetables"}
		out, err := svc.Run(context.Background(), req)
		require.NoError(t, err, mode)

		assert.Equal(t, domain.StatusErrorWithMockData, out.Status, mode)
		assert.NotEmpty(t, out.Error, mode)
		assert.NotNil(t, out.Data, mode)
	}
}

func TestService_NoDataForDateFallsBack(t *testing.T) {
	svc := newService(seededStore(t))

	out, err := svc.Run(context.Background(), Request{Mode: domain.ModeMarketSummary, Date: "2023-01-01"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusErrorWithMockData, out.Status)
	assert.Equal(t, "2023-01-01", out.Date)
	rows := out.Data.([]domain.MarketSummaryRow)
	assert.NotEmpty(t, rows)
}

func TestService_StoreErrorFallsBackWithSameShape(t *testing.T) {
	svc := newService(&failingStore{err: errors.New("connection reset")})

	out, err := svc.Run(context.Background(), Request{Mode: domain.ModeCategoryComparison, Category: "Fruits"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusErrorWithMockData, out.Status)
	assert.Contains(t, out.Error, "connection reset")
	rows, ok := out.Data.([]domain.CategoryComparisonRow)
	require.True(t, ok, "mock data must have the real payload type")
	assert.NotEmpty(t, rows)

	out, err = svc.Run(context.Background(), Request{Mode: domain.ModeAvailableDates})
	require.NoError(t, err)
	dates, ok := out.Data.([]string)
	require.True(t, ok)
	assert.Len(t, dates, fallback.MockHistoryDays)
	assert.Equal(t, "2024-06-10", dates[0])
}

func TestService_FallbackUnknownMarketType(t *testing.T) {
	svc := newService(memory.NewPriceChangeStore())

	out, err := svc.Run(context.Background(), Request{Mode: domain.ModeMarketSummary, MarketType: "farmgate"})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusErrorWithMockData, out.Status)
	rows := out.Data.([]domain.MarketSummaryRow)
	require.NotEmpty(t, rows)
	for _, r := range rows {
		assert.Equal(t, "farmgate", r.MarketType)
	}

	out, err = svc.Run(context.Background(), Request{Mode: domain.ModeMarketSummary, MarketType: "retail"})
	require.NoError(t, err)
	for _, r := range out.Data.([]domain.MarketSummaryRow) {
		assert.Equal(t, "retail", r.MarketType)
	}
}
