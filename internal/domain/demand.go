package domain

// SyntheticItemField is the item key used when no identifier field is found.
const SyntheticItemField = "_item_id"

// InferredSchema names the fields that carry the item identifier, price and demand.
// ItemField is never empty; PriceField and DemandField are nil when not detected.
type InferredSchema struct {
	ItemField   string  `json:"item_field"`
	PriceField  *string `json:"price_field"`
	DemandField *string `json:"demand_field"`
	Synthetic   bool    `json:"synthetic"`
}

// ItemAggregate collects validated price and demand series for one item.
type ItemAggregate struct {
	ItemName        string
	Prices          []float64 // every entry finite and > 0
	Demands         []float64 // every entry finite and >= 0
	TotalDataPoints int       // records seen for the item, valid or not
}

// Trend is a demand trend classification.
type Trend string

// Trend labels.
const (
	TrendIncreasing       Trend = "increasing"
	TrendDecreasing       Trend = "decreasing"
	TrendStable           Trend = "stable"
	TrendInsufficientData Trend = "insufficient_data"
)

// TrendResult is the classification of one numeric series.
type TrendResult struct {
	Trend            Trend   `json:"trend"`
	ChangePercentage float64 `json:"change_percentage"`
}

// Analysis statuses.
const (
	StatusSuccess           = "success"
	StatusErrorWithMockData = "error_with_mock_data"
)

// ItemAnalysis is the per-item entry of a demand analysis.
type ItemAnalysis struct {
	AveragePrice           float64 `json:"average_price"`
	DemandTrend            Trend   `json:"demand_trend"`
	DemandChangePercentage float64 `json:"demand_change_percentage"`
	DataPoints             int     `json:"data_points"`
	PriceDataPoints        int     `json:"price_data_points"`
	DemandDataPoints       int     `json:"demand_data_points"`
	IsEstimated            bool    `json:"is_estimated"`
}

// DemandSummary aggregates trend counts across analyzed items.
type DemandSummary struct {
	TotalItemsAnalyzed         int     `json:"total_items_analyzed"`
	ItemsWithIncreasingDemand  int     `json:"items_with_increasing_demand"`
	ItemsWithDecreasingDemand  int     `json:"items_with_decreasing_demand"`
	ItemsWithStableDemand      int     `json:"items_with_stable_demand"`
	IncreasingDemandPercentage float64 `json:"increasing_demand_percentage"`
	DecreasingDemandPercentage float64 `json:"decreasing_demand_percentage"`
	StableDemandPercentage     float64 `json:"stable_demand_percentage"`
}

// DemandAnalytics is the demand forecast payload returned to callers.
type DemandAnalytics struct {
	ItemsAnalysis map[string]ItemAnalysis `json:"items_analysis"`
	Summary       DemandSummary           `json:"summary"`
	Status        string                  `json:"status"`
	Error         string                  `json:"error,omitempty"`
}
