package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/internal/domain"
	"agrimarket/internal/idhash"
	"agrimarket/internal/storage"
)

func day(d int) time.Time {
	return time.Date(2024, 6, d, 0, 0, 0, 0, time.UTC)
}

func change(commodity, category, market, marketType string, date time.Time, today, pct float64) *domain.PriceChangeRecord {
	trend := domain.PriceTrendStable
	if pct > 0 {
		trend = domain.PriceTrendIncrease
	} else if pct < 0 {
		trend = domain.PriceTrendDecrease
	}
	return &domain.PriceChangeRecord{
		ID:                idhash.ComputePriceChangeID(commodity, market, marketType, date),
		Commodity:         commodity,
		Category:          category,
		Market:            market,
		MarketType:        marketType,
		Location:          "Delhi",
		YesterdayPrice:    today - 1,
		TodayPrice:        today,
		ChangeAmount:      1,
		ChangePercentage:  pct,
		Trend:             trend,
		SignificantChange: pct >= domain.SignificantChangeThreshold || pct <= -domain.SignificantChangeThreshold,
		Date:              date,
	}
}

func TestPriceChangeStore_InsertBulkAndFilter(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceChangeStore(pool)
	ctx := context.Background()

	records := []*domain.PriceChangeRecord{
		change("Onion", "Vegetables", "Azadpur", "wholesale", day(1), 30, 2),
		change("Tomato", "Vegetables", "Azadpur", "wholesale", day(2), 20, -6),
		change("Onion", "Vegetables", "Koyambedu", "retail", day(2), 35, 0),
		change("Banana", "Fruits", "Azadpur", "wholesale", day(2), 40, 1),
	}

	err := store.InsertBulk(ctx, records)
	require.NoError(t, err)

	result, err := store.GetByFilter(ctx, storage.PriceChangeFilter{Date: day(2)})
	require.NoError(t, err)
	require.Len(t, result, 3)
	assert.Equal(t, "Banana", result[0].Commodity)
	assert.Equal(t, "Onion", result[1].Commodity)
	assert.Equal(t, "Tomato", result[2].Commodity)

	tomato := result[2]
	assert.Equal(t, records[1].ID, tomato.ID)
	assert.Equal(t, domain.PriceTrendDecrease, tomato.Trend)
	assert.True(t, tomato.SignificantChange)
	assert.Equal(t, -6.0, tomato.ChangePercentage)
	assert.Equal(t, day(2), tomato.Date)

	result, err = store.GetByFilter(ctx, storage.PriceChangeFilter{Date: day(2), Category: "vegetables", MarketType: "WHOLESALE"})
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Tomato", result[0].Commodity)

	// No filter returns everything, newest day first.
	result, err = store.GetByFilter(ctx, storage.PriceChangeFilter{})
	require.NoError(t, err)
	require.Len(t, result, 4)
	assert.Equal(t, day(1), result[3].Date)
}

func TestPriceChangeStore_InsertBulkDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceChangeStore(pool)
	ctx := context.Background()

	first := change("Onion", "Vegetables", "Azadpur", "wholesale", day(1), 30, 2)
	require.NoError(t, store.InsertBulk(ctx, []*domain.PriceChangeRecord{first}))

	// Batch containing an existing ID should fail as a whole
	second := change("Tomato", "Vegetables", "Azadpur", "wholesale", day(1), 20, 1)
	err := store.InsertBulk(ctx, []*domain.PriceChangeRecord{second, first})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	result, err := store.GetByFilter(ctx, storage.PriceChangeFilter{})
	require.NoError(t, err)
	assert.Len(t, result, 1, "failed batch must not leave partial rows")
}

func TestPriceChangeStore_LatestDateEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceChangeStore(pool)

	_, err := store.LatestDate(context.Background())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPriceChangeStore_DatesAndCategories(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPriceChangeStore(pool)
	ctx := context.Background()

	records := []*domain.PriceChangeRecord{
		change("Onion", "Vegetables", "Azadpur", "wholesale", day(1), 30, 2),
		change("Onion", "Vegetables", "Azadpur", "wholesale", day(3), 31, 3),
		change("Banana", "Fruits", "Azadpur", "wholesale", day(3), 40, 1),
		change("Rice", " ", "Azadpur", "wholesale", day(2), 50, 0),
	}
	require.NoError(t, store.InsertBulk(ctx, records))

	latest, err := store.LatestDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, day(3), latest)

	dates, err := store.DistinctDates(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day(3), day(2)}, dates)

	_, err = store.DistinctDates(ctx, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)

	cats, err := store.DistinctCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fruits", "Vegetables"}, cats)
}
