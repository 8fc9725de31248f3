package fixtures

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/internal/demand"
	"agrimarket/internal/domain"
	"agrimarket/internal/fallback"
	"agrimarket/internal/storage"
	"agrimarket/internal/storage/memory"
)

func TestPriceChanges(t *testing.T) {
	changes := PriceChanges()

	require.Len(t, changes, len(demoSeries)*len(demoMarkets)*(DemoDays-1))

	var significant int
	ids := make(map[string]struct{})
	for _, c := range changes {
		ids[c.ID] = struct{}{}
		if c.SignificantChange {
			significant++
		}
	}
	assert.Len(t, ids, len(changes), "IDs are unique")
	assert.Greater(t, significant, 0)

	latest := changes[len(changes)-1].Date
	assert.Equal(t, DemoDay, latest)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	records := memory.NewRawRecordStore()
	changes := memory.NewPriceChangeStore()

	require.NoError(t, Seed(ctx, records, changes))

	latest, err := changes.LatestDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, DemoDay, latest)

	got, err := changes.GetByFilter(ctx, storage.PriceChangeFilter{Date: DemoDay})
	require.NoError(t, err)
	assert.Len(t, got, len(demoSeries)*len(demoMarkets))

	sample, err := records.FetchSample(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, sample, len(RawRecords()))
}

func TestRawRecords_DemandTrends(t *testing.T) {
	store := memory.NewRawRecordStore()
	require.NoError(t, Seed(context.Background(), store, nil))

	a := demand.NewAnalyzer(store, fallback.NewGenerator(1), nil, demand.DefaultAnalyzerConfig())
	out := a.Analyze(context.Background())

	require.Equal(t, domain.StatusSuccess, out.Status)
	byName := out.ItemsAnalysis

	assert.Equal(t, domain.TrendIncreasing, byName["Onion"].DemandTrend)
	assert.Equal(t, domain.TrendDecreasing, byName["Tomato"].DemandTrend)
	assert.Equal(t, domain.TrendStable, byName["Potato"].DemandTrend)
	assert.Equal(t, 24.5, byName["Tomato"].AveragePrice)
	assert.True(t, byName["Garlic"].IsEstimated)
	assert.Equal(t, 4, out.Summary.TotalItemsAnalyzed)
}
