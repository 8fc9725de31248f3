// Package fallback produces structurally valid synthetic analytics used when
// no usable market data is available.
//
// Every mock payload has exactly the field set of a real one. Randomized values
// stay inside the bounds below so callers can assert on ranges.
package fallback

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"agrimarket/internal/domain"
	"agrimarket/internal/idhash"
)

// Mock bounds.
const (
	MinMockItems = 5
	MaxMockItems = 12

	IncreasingMinChange = 5.0
	IncreasingMaxChange = 50.0
	DecreasingMinChange = -50.0
	DecreasingMaxChange = -5.0
	StableMaxAbsChange  = 4.99 // stable changes lie in [-4.99, 4.99]

	MinMockPrice = 10.0
	MaxMockPrice = 200.0

	MinMockDataPoints = 5
	MaxMockDataPoints = 50

	MockHistoryDays = 7
)

var mockCommodities = []struct {
	name     string
	category string
}{
	{"Tomato", "Vegetables"},
	{"Onion", "Vegetables"},
	{"Potato", "Vegetables"},
	{"Cabbage", "Vegetables"},
	{"Brinjal", "Vegetables"},
	{"Banana", "Fruits"},
	{"Apple", "Fruits"},
	{"Mango", "Fruits"},
	{"Wheat", "Grains"},
	{"Rice", "Grains"},
	{"Maize", "Grains"},
	{"Tur Dal", "Pulses"},
	{"Chana", "Pulses"},
	{"Turmeric", "Spices"},
}

var mockMarkets = []struct {
	name       string
	marketType string
	location   string
}{
	{"Azadpur Mandi", "wholesale", "Delhi"},
	{"Vashi APMC", "wholesale", "Navi Mumbai"},
	{"Koyambedu", "retail", "Chennai"},
	{"Yeshwanthpur", "retail", "Bengaluru"},
}

// Generator produces mock analytics. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a Generator with a fixed seed. Equal seeds produce equal output.
func NewGenerator(seed uint64) *Generator {
	return NewGeneratorWithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewRandomGenerator creates a Generator seeded from the clock.
func NewRandomGenerator() *Generator {
	return NewGenerator(uint64(time.Now().UnixNano()))
}

// NewGeneratorWithRand creates a Generator around a caller-owned source.
func NewGeneratorWithRand(rng *rand.Rand) *Generator {
	return &Generator{rng: rng, now: time.Now}
}

// WithClock overrides the clock used to date mock price records.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// MockDemand returns a complete demand payload with status error_with_mock_data.
func (g *Generator) MockDemand(reason string) *domain.DemandAnalytics {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := MinMockItems + g.rng.IntN(MaxMockItems-MinMockItems+1)
	order := g.rng.Perm(len(mockCommodities))

	items := make(map[string]domain.ItemAnalysis, n)
	trends := make([]domain.Trend, 0, n)
	for i := 0; i < n; i++ {
		name := mockCommodities[order[i]].name
		tr := g.trendLocked()
		points := g.dataPointsLocked()
		items[name] = domain.ItemAnalysis{
			AveragePrice:           g.priceLocked(),
			DemandTrend:            tr.Trend,
			DemandChangePercentage: tr.ChangePercentage,
			DataPoints:             points,
			PriceDataPoints:        points,
			DemandDataPoints:       points,
			IsEstimated:            true,
		}
		trends = append(trends, tr.Trend)
	}

	return &domain.DemandAnalytics{
		ItemsAnalysis: items,
		Summary:       Summarize(trends),
		Status:        domain.StatusErrorWithMockData,
		Error:         reason,
	}
}

// PlaceholderTrend returns a random increasing, decreasing or stable result
// within the documented bounds.
func (g *Generator) PlaceholderTrend() domain.TrendResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.trendLocked()
}

// PlaceholderPrice returns a random price within [MinMockPrice, MaxMockPrice].
func (g *Generator) PlaceholderPrice() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.priceLocked()
}

// MockPriceChanges returns MockHistoryDays days of synthetic change records ending on day.
// When category is non-empty every record belongs to it.
// A zero day means the current UTC day.
func (g *Generator) MockPriceChanges(day time.Time, category string) []*domain.PriceChangeRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	if day.IsZero() {
		day = g.now()
	}
	day = domain.TruncateDay(day)

	var records []*domain.PriceChangeRecord
	for offset := 0; offset < MockHistoryDays; offset++ {
		d := day.AddDate(0, 0, -offset)
		for _, c := range mockCommodities {
			cat := c.category
			if category != "" {
				cat = category
			}
			for _, m := range mockMarkets {
				yesterday := g.priceLocked()
				pct := g.trendLocked().ChangePercentage
				today := round2(yesterday * (1 + pct/100))
				amount := round2(today - yesterday)
				change := 0.0
				if yesterday != 0 {
					change = round2(amount / yesterday * 100)
				}
				records = append(records, &domain.PriceChangeRecord{
					ID:                idhash.ComputePriceChangeID(c.name, m.name, m.marketType, d),
					Commodity:         c.name,
					Category:          cat,
					Market:            m.name,
					MarketType:        m.marketType,
					Location:          m.location,
					YesterdayPrice:    yesterday,
					TodayPrice:        today,
					ChangeAmount:      amount,
					ChangePercentage:  change,
					Trend:             trendOf(amount),
					SignificantChange: math.Abs(change) >= domain.SignificantChangeThreshold,
					Date:              d,
				})
			}
		}
	}
	return records
}

// Summarize builds a DemandSummary whose percentages derive from the counts.
// Only increasing, decreasing and stable trends are counted, so the three
// counts always sum to TotalItemsAnalyzed. Callers replace InsufficientData
// with a placeholder trend before summarizing.
func Summarize(trends []domain.Trend) domain.DemandSummary {
	var s domain.DemandSummary
	for _, t := range trends {
		switch t {
		case domain.TrendIncreasing:
			s.ItemsWithIncreasingDemand++
		case domain.TrendDecreasing:
			s.ItemsWithDecreasingDemand++
		case domain.TrendStable:
			s.ItemsWithStableDemand++
		default:
			continue
		}
		s.TotalItemsAnalyzed++
	}
	if s.TotalItemsAnalyzed > 0 {
		total := float64(s.TotalItemsAnalyzed)
		s.IncreasingDemandPercentage = round2(float64(s.ItemsWithIncreasingDemand) / total * 100)
		s.DecreasingDemandPercentage = round2(float64(s.ItemsWithDecreasingDemand) / total * 100)
		s.StableDemandPercentage = round2(float64(s.ItemsWithStableDemand) / total * 100)
	}
	return s
}

func (g *Generator) trendLocked() domain.TrendResult {
	switch g.rng.IntN(3) {
	case 0:
		return domain.TrendResult{
			Trend:            domain.TrendIncreasing,
			ChangePercentage: round2(IncreasingMinChange + g.rng.Float64()*(IncreasingMaxChange-IncreasingMinChange)),
		}
	case 1:
		return domain.TrendResult{
			Trend:            domain.TrendDecreasing,
			ChangePercentage: round2(DecreasingMinChange + g.rng.Float64()*(DecreasingMaxChange-DecreasingMinChange)),
		}
	default:
		return domain.TrendResult{
			Trend:            domain.TrendStable,
			ChangePercentage: round2((g.rng.Float64()*2 - 1) * StableMaxAbsChange),
		}
	}
}

func (g *Generator) priceLocked() float64 {
	return round2(MinMockPrice + g.rng.Float64()*(MaxMockPrice-MinMockPrice))
}

func (g *Generator) dataPointsLocked() int {
	return MinMockDataPoints + g.rng.IntN(MaxMockDataPoints-MinMockDataPoints+1)
}

func trendOf(amount float64) domain.PriceTrend {
	switch {
	case amount > 0:
		return domain.PriceTrendIncrease
	case amount < 0:
		return domain.PriceTrendDecrease
	default:
		return domain.PriceTrendStable
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
