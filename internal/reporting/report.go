package reporting

import (
	"time"

	"agrimarket/internal/domain"
)

// Report is the market analytics report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Date        string // price data day, YYYY-MM-DD
	Estimated   bool   // true when any section fell back to mock data
	Notes       []string

	Demand DemandSection

	// Price sections, all for Date
	MarketSummary      []domain.MarketSummaryRow
	TopMovers          []*domain.PriceChangeRecord
	CategoryComparison []CategorySection
}

// DemandSection summarizes the demand forecast.
type DemandSection struct {
	Status  string
	Summary domain.DemandSummary
	Items   []DemandItemRow // sorted by item name
}

// DemandItemRow is one analyzed item.
type DemandItemRow struct {
	ItemName string
	domain.ItemAnalysis
}

// CategorySection is the commodity comparison for one category.
type CategorySection struct {
	Category string
	Rows     []domain.CategoryComparisonRow
}
