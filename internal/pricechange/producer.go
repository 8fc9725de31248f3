package pricechange

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"agrimarket/internal/domain"
	"agrimarket/internal/idhash"
)

var hundred = decimal.NewFromInt(100)

// Derive turns daily prices into day-over-day change records.
//
// Prices are grouped by (commodity, market, marketType) and ordered by day.
// Each day after the first yields one record comparing it with the previous
// observed day. When a day has several observations the last one in input
// order wins. Non-positive prices are ignored.
// Output is ordered by date, commodity, market, marketType.
func Derive(prices []domain.DailyPrice) []*domain.PriceChangeRecord {
	type seriesKey struct{ commodity, market, marketType string }

	series := make(map[seriesKey]map[int64]domain.DailyPrice)
	for _, p := range prices {
		if p.Price <= 0 || strings.TrimSpace(p.Commodity) == "" || p.Date.IsZero() {
			continue
		}
		k := seriesKey{
			strings.ToLower(strings.TrimSpace(p.Commodity)),
			strings.ToLower(strings.TrimSpace(p.Market)),
			strings.ToLower(strings.TrimSpace(p.MarketType)),
		}
		days, ok := series[k]
		if !ok {
			days = make(map[int64]domain.DailyPrice)
			series[k] = days
		}
		p.Date = domain.TruncateDay(p.Date)
		days[p.Date.Unix()] = p
	}

	var out []*domain.PriceChangeRecord
	for _, days := range series {
		ordered := make([]domain.DailyPrice, 0, len(days))
		for _, p := range days {
			ordered = append(ordered, p)
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

		for i := 1; i < len(ordered); i++ {
			out = append(out, NewChange(ordered[i-1], ordered[i]))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Commodity != b.Commodity {
			return a.Commodity < b.Commodity
		}
		if a.Market != b.Market {
			return a.Market < b.Market
		}
		return a.MarketType < b.MarketType
	})
	return out
}

// NewChange builds the change record from yesterday to today.
// Descriptive fields come from today. Amounts are rounded to 2 decimals.
func NewChange(yesterday, today domain.DailyPrice) *domain.PriceChangeRecord {
	y := decimal.NewFromFloat(yesterday.Price)
	t := decimal.NewFromFloat(today.Price)
	amount := t.Sub(y)

	pct := decimal.Zero
	if !y.IsZero() {
		pct = amount.Mul(hundred).DivRound(y, 2)
	}

	trend := domain.PriceTrendStable
	switch amount.Sign() {
	case 1:
		trend = domain.PriceTrendIncrease
	case -1:
		trend = domain.PriceTrendDecrease
	}

	day := domain.TruncateDay(today.Date)
	commodity := strings.TrimSpace(today.Commodity)
	market := strings.TrimSpace(today.Market)
	marketType := strings.TrimSpace(today.MarketType)

	return &domain.PriceChangeRecord{
		ID:                idhash.ComputePriceChangeID(commodity, market, marketType, day),
		Commodity:         commodity,
		Category:          strings.TrimSpace(today.Category),
		Market:            market,
		MarketType:        marketType,
		Location:          strings.TrimSpace(today.Location),
		YesterdayPrice:    y.Round(2).InexactFloat64(),
		TodayPrice:        t.Round(2).InexactFloat64(),
		ChangeAmount:      amount.Round(2).InexactFloat64(),
		ChangePercentage:  pct.InexactFloat64(),
		Trend:             trend,
		SignificantChange: pct.Abs().GreaterThanOrEqual(decimal.NewFromFloat(domain.SignificantChangeThreshold)),
		Date:              day,
	}
}
