package fallback

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrimarket/internal/domain"
)

func assertTrendBounds(t *testing.T, tr domain.TrendResult) {
	t.Helper()

	switch tr.Trend {
	case domain.TrendIncreasing:
		assert.GreaterOrEqual(t, tr.ChangePercentage, IncreasingMinChange)
		assert.LessOrEqual(t, tr.ChangePercentage, IncreasingMaxChange)
	case domain.TrendDecreasing:
		assert.GreaterOrEqual(t, tr.ChangePercentage, DecreasingMinChange)
		assert.LessOrEqual(t, tr.ChangePercentage, DecreasingMaxChange)
	case domain.TrendStable:
		assert.Less(t, math.Abs(tr.ChangePercentage), 5.0)
	default:
		t.Fatalf("unexpected placeholder trend %q", tr.Trend)
	}
}

func TestMockDemand_CountsConsistent(t *testing.T) {
	for seed := uint64(0); seed < 200; seed++ {
		g := NewGenerator(seed)
		out := g.MockDemand("source unavailable")

		require.Equal(t, domain.StatusErrorWithMockData, out.Status)
		assert.Equal(t, "source unavailable", out.Error)

		s := out.Summary
		assert.Equal(t, len(out.ItemsAnalysis), s.TotalItemsAnalyzed)
		assert.GreaterOrEqual(t, s.TotalItemsAnalyzed, MinMockItems)
		assert.LessOrEqual(t, s.TotalItemsAnalyzed, MaxMockItems)
		assert.Equal(t, s.TotalItemsAnalyzed,
			s.ItemsWithIncreasingDemand+s.ItemsWithDecreasingDemand+s.ItemsWithStableDemand)

		sum := s.IncreasingDemandPercentage + s.DecreasingDemandPercentage + s.StableDemandPercentage
		assert.InDelta(t, 100, sum, 0.02, "seed %d", seed)

		inc := 0
		for _, item := range out.ItemsAnalysis {
			if item.DemandTrend == domain.TrendIncreasing {
				inc++
			}
		}
		assert.Equal(t, s.ItemsWithIncreasingDemand, inc)
	}
}

func TestMockDemand_ItemBounds(t *testing.T) {
	g := NewGenerator(42)

	for i := 0; i < 50; i++ {
		out := g.MockDemand("")
		for name, item := range out.ItemsAnalysis {
			assert.NotEmpty(t, name)
			assert.True(t, item.IsEstimated)
			assert.GreaterOrEqual(t, item.AveragePrice, MinMockPrice)
			assert.LessOrEqual(t, item.AveragePrice, MaxMockPrice)
			assert.GreaterOrEqual(t, item.DataPoints, MinMockDataPoints)
			assert.LessOrEqual(t, item.DataPoints, MaxMockDataPoints)
			assertTrendBounds(t, domain.TrendResult{Trend: item.DemandTrend, ChangePercentage: item.DemandChangePercentage})
		}
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(7).MockDemand("x")
	b := NewGenerator(7).MockDemand("x")
	assert.Equal(t, a, b)
}

func TestPlaceholderTrend_Bounds(t *testing.T) {
	g := NewGenerator(1)
	seen := map[domain.Trend]bool{}
	for i := 0; i < 500; i++ {
		tr := g.PlaceholderTrend()
		assertTrendBounds(t, tr)
		seen[tr.Trend] = true
	}
	assert.Len(t, seen, 3, "all three trend labels should appear")
}

func TestPlaceholderPrice_Bounds(t *testing.T) {
	g := NewGenerator(3)
	for i := 0; i < 500; i++ {
		p := g.PlaceholderPrice()
		assert.GreaterOrEqual(t, p, MinMockPrice)
		assert.LessOrEqual(t, p, MaxMockPrice)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]domain.Trend{
		domain.TrendIncreasing, domain.TrendIncreasing, domain.TrendDecreasing,
	})
	assert.Equal(t, 3, s.TotalItemsAnalyzed)
	assert.Equal(t, 2, s.ItemsWithIncreasingDemand)
	assert.Equal(t, 1, s.ItemsWithDecreasingDemand)
	assert.Equal(t, 0, s.ItemsWithStableDemand)
	assert.Equal(t, 66.67, s.IncreasingDemandPercentage)
	assert.Equal(t, 33.33, s.DecreasingDemandPercentage)
	assert.Equal(t, 0.0, s.StableDemandPercentage)

	empty := Summarize(nil)
	assert.Equal(t, domain.DemandSummary{}, empty)
}

func TestSummarize_IgnoresUnclassifiedTrends(t *testing.T) {
	s := Summarize([]domain.Trend{
		domain.TrendStable, domain.TrendInsufficientData, domain.TrendIncreasing,
	})

	assert.Equal(t, 2, s.TotalItemsAnalyzed)
	assert.Equal(t, s.TotalItemsAnalyzed,
		s.ItemsWithIncreasingDemand+s.ItemsWithDecreasingDemand+s.ItemsWithStableDemand)
	assert.Equal(t, 50.0, s.IncreasingDemandPercentage)
	assert.Equal(t, 50.0, s.StableDemandPercentage)
}

func TestMockPriceChanges(t *testing.T) {
	day := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	g := NewGenerator(9)

	records := g.MockPriceChanges(day, "Vegetables")
	require.NotEmpty(t, records)

	dates := map[time.Time]bool{}
	ids := map[string]bool{}
	for _, r := range records {
		assert.Equal(t, "Vegetables", r.Category)
		assert.Greater(t, r.YesterdayPrice, 0.0)
		assert.InDelta(t, r.TodayPrice-r.YesterdayPrice, r.ChangeAmount, 0.011)
		assert.Equal(t, math.Abs(r.ChangePercentage) >= 5, r.SignificantChange)
		assert.False(t, ids[r.ID], "duplicate id")
		ids[r.ID] = true
		dates[r.Date] = true
	}
	assert.Len(t, dates, MockHistoryDays)
	assert.True(t, dates[time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)])
}

func TestMockPriceChanges_ZeroDayUsesClock(t *testing.T) {
	fixed := time.Date(2023, 1, 5, 8, 0, 0, 0, time.UTC)
	g := NewGenerator(2).WithClock(func() time.Time { return fixed })

	records := g.MockPriceChanges(time.Time{}, "")

	latest := records[0].Date
	for _, r := range records {
		if r.Date.After(latest) {
			latest = r.Date
		}
	}
	assert.Equal(t, time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), latest)
}

func TestNewGeneratorWithRand_Deterministic(t *testing.T) {
	a := NewGeneratorWithRand(rand.New(rand.NewPCG(7, 11)))
	b := NewGeneratorWithRand(rand.New(rand.NewPCG(7, 11)))

	assert.Equal(t, a.MockDemand("down"), b.MockDemand("down"))
	assert.Equal(t, a.PlaceholderPrice(), b.PlaceholderPrice())
}
