package domain

import "time"

// PriceTrend is the direction of a day-over-day price move.
type PriceTrend string

// PriceTrend values.
const (
	PriceTrendIncrease PriceTrend = "increase"
	PriceTrendDecrease PriceTrend = "decrease"
	PriceTrendStable   PriceTrend = "stable"
)

// SignificantChangeThreshold is the absolute percentage move at or above which
// a price change is flagged as significant.
const SignificantChangeThreshold = 5.0

// DailyPrice is one observed price for a commodity in a market on a day.
type DailyPrice struct {
	Commodity  string    `json:"commodity"`
	Category   string    `json:"category"`
	Market     string    `json:"market"`
	MarketType string    `json:"marketType"`
	Location   string    `json:"location"`
	Date       time.Time `json:"date"`
	Price      float64   `json:"price"`
}

// PriceChangeRecord is a day-over-day price delta for one commodity in one market.
type PriceChangeRecord struct {
	ID                string     `json:"id"`
	Commodity         string     `json:"commodity"`
	Category          string     `json:"category"`
	Market            string     `json:"market"`
	MarketType        string     `json:"marketType"`
	Location          string     `json:"location"`
	YesterdayPrice    float64    `json:"yesterdayPrice"`
	TodayPrice        float64    `json:"todayPrice"`
	ChangeAmount      float64    `json:"changeAmount"`
	ChangePercentage  float64    `json:"changePercentage"`
	Trend             PriceTrend `json:"trend"`
	SignificantChange bool       `json:"significantChange"`
	Date              time.Time  `json:"date"` // UTC day
}

// DateLayout is the wire format of analytics dates.
const DateLayout = "2006-01-02"

// TruncateDay returns the UTC calendar day containing t.
func TruncateDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Price analytics modes.
const (
	ModeCategoryComparison  = "category-comparison"
	ModeCommodityChanges    = "commodity-changes"
	ModeMarketSummary       = "market-summary"
	ModeAvailableDates      = "available-dates"
	ModeAvailableCategories = "available-categories"
)

// CategoryComparisonRow is one commodity within a category comparison.
// Value repeats AveragePrice for use as a chart weight.
type CategoryComparisonRow struct {
	Commodity    string  `json:"commodity"`
	AveragePrice float64 `json:"averagePrice"`
	Count        int     `json:"count"`
	TotalValue   float64 `json:"totalValue"`
	Value        float64 `json:"value"`
}

// MarketSummaryRow aggregates records for one (market, marketType) pair.
type MarketSummaryRow struct {
	Market         string  `json:"market"`
	MarketType     string  `json:"marketType"`
	AveragePrice   float64 `json:"averagePrice"`
	Increases      int     `json:"increases"`
	Decreases      int     `json:"decreases"`
	TotalRecords   int     `json:"totalRecords"`
	StabilityScore int     `json:"stabilityScore"`
}

// PriceAnalytics is the price analytics payload for one mode.
// Data holds []CategoryComparisonRow, []*PriceChangeRecord, []MarketSummaryRow or []string.
type PriceAnalytics struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
	Date   string `json:"date,omitempty"`
	Data   any    `json:"data"`
	Error  string `json:"error,omitempty"`
}
