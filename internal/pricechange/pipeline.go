// Package pricechange aggregates day-over-day price change records into
// category, commodity and market views, and derives those records from daily
// prices.
package pricechange

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"agrimarket/internal/domain"
)

// Listing limits.
const (
	MaxCommodityChanges = 20
	MaxAvailableDates   = 30
)

// CategoryComparison groups records of one category by commodity.
// Rows are sorted by total value descending, then commodity name.
func CategoryComparison(records []*domain.PriceChangeRecord, category string) []domain.CategoryComparisonRow {
	type acc struct {
		name  string
		sum   decimal.Decimal
		count int64
	}
	groups := make(map[string]*acc)
	var order []string

	for _, r := range records {
		if r == nil || !strings.EqualFold(strings.TrimSpace(r.Category), strings.TrimSpace(category)) {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(r.Commodity))
		g, ok := groups[key]
		if !ok {
			g = &acc{name: strings.TrimSpace(r.Commodity)}
			groups[key] = g
			order = append(order, key)
		}
		g.sum = g.sum.Add(decimal.NewFromFloat(r.TodayPrice))
		g.count++
	}

	rows := make([]domain.CategoryComparisonRow, 0, len(groups))
	for _, key := range order {
		g := groups[key]
		avg := g.sum.DivRound(decimal.NewFromInt(g.count), 2).InexactFloat64()
		rows = append(rows, domain.CategoryComparisonRow{
			Commodity:    g.name,
			AveragePrice: avg,
			Count:        int(g.count),
			TotalValue:   g.sum.Round(2).InexactFloat64(),
			Value:        avg,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TotalValue != rows[j].TotalValue {
			return rows[i].TotalValue > rows[j].TotalValue
		}
		return rows[i].Commodity < rows[j].Commodity
	})
	return rows
}

// CommodityChanges returns up to MaxCommodityChanges records sorted by change
// percentage descending. An empty category keeps every record.
// Returned records are copies.
func CommodityChanges(records []*domain.PriceChangeRecord, category string) []*domain.PriceChangeRecord {
	out := make([]*domain.PriceChangeRecord, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		if category != "" && !strings.EqualFold(strings.TrimSpace(r.Category), strings.TrimSpace(category)) {
			continue
		}
		rc := *r
		out = append(out, &rc)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ChangePercentage != out[j].ChangePercentage {
			return out[i].ChangePercentage > out[j].ChangePercentage
		}
		if out[i].Commodity != out[j].Commodity {
			return out[i].Commodity < out[j].Commodity
		}
		if out[i].Market != out[j].Market {
			return out[i].Market < out[j].Market
		}
		return out[i].MarketType < out[j].MarketType
	})

	if len(out) > MaxCommodityChanges {
		out = out[:MaxCommodityChanges]
	}
	return out
}

// MarketSummary groups records by (market, marketType).
// StabilityScore is the rounded percentage of records that moved in neither
// direction. Rows are sorted by average price descending.
func MarketSummary(records []*domain.PriceChangeRecord) []domain.MarketSummaryRow {
	type key struct{ market, marketType string }
	type acc struct {
		sum                    decimal.Decimal
		total, increases, decs int
	}
	groups := make(map[key]*acc)
	var order []key

	for _, r := range records {
		if r == nil {
			continue
		}
		k := key{strings.TrimSpace(r.Market), strings.TrimSpace(r.MarketType)}
		g, ok := groups[k]
		if !ok {
			g = &acc{}
			groups[k] = g
			order = append(order, k)
		}
		g.sum = g.sum.Add(decimal.NewFromFloat(r.TodayPrice))
		g.total++
		switch {
		case r.ChangePercentage > 0:
			g.increases++
		case r.ChangePercentage < 0:
			g.decs++
		}
	}

	rows := make([]domain.MarketSummaryRow, 0, len(groups))
	for _, k := range order {
		g := groups[k]
		rows = append(rows, domain.MarketSummaryRow{
			Market:         k.market,
			MarketType:     k.marketType,
			AveragePrice:   g.sum.DivRound(decimal.NewFromInt(int64(g.total)), 2).InexactFloat64(),
			Increases:      g.increases,
			Decreases:      g.decs,
			TotalRecords:   g.total,
			StabilityScore: StabilityScore(g.total, g.increases, g.decs),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AveragePrice != rows[j].AveragePrice {
			return rows[i].AveragePrice > rows[j].AveragePrice
		}
		if rows[i].Market != rows[j].Market {
			return rows[i].Market < rows[j].Market
		}
		return rows[i].MarketType < rows[j].MarketType
	})
	return rows
}

// StabilityScore returns round((total - increases - decreases) / total * 100),
// clamped to [0, 100]. A zero total scores 0.
func StabilityScore(total, increases, decreases int) int {
	if total <= 0 {
		return 0
	}
	score := int(math.Round(float64(total-increases-decreases) / float64(total) * 100))
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

// AvailableDates returns up to MaxAvailableDates distinct days, most recent first,
// formatted as YYYY-MM-DD.
func AvailableDates(dates []time.Time) []string {
	seen := make(map[time.Time]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		day := domain.TruncateDay(d)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	if len(days) > MaxAvailableDates {
		days = days[:MaxAvailableDates]
	}

	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Format(domain.DateLayout)
	}
	return out
}

// AvailableCategories returns distinct non-blank categories in ascending order.
func AvailableCategories(categories []string) []string {
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// datesOf returns the dates carried by records.
func datesOf(records []*domain.PriceChangeRecord) []time.Time {
	out := make([]time.Time, 0, len(records))
	for _, r := range records {
		out = append(out, r.Date)
	}
	return out
}

// categoriesOf returns the categories carried by records.
func categoriesOf(records []*domain.PriceChangeRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Category)
	}
	return out
}
