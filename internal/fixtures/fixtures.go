// Package fixtures provides deterministic demo market data.
package fixtures

import (
	"context"
	"fmt"
	"time"

	"agrimarket/internal/domain"
	"agrimarket/internal/pricechange"
	"agrimarket/internal/storage"
)

// DemoDay is the last day covered by the demo price series.
var DemoDay = time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

// DemoDays is the number of daily observations per price series.
const DemoDays = 5

type series struct {
	commodity, category string
	base                float64
	// steps are the day-over-day percentage moves, one per day after the first.
	steps []float64
}

var demoSeries = []series{
	{"Onion", "Vegetables", 32, []float64{2, 6, 8, -1}},
	{"Tomato", "Vegetables", 24, []float64{-3, -7, 1, -6}},
	{"Potato", "Vegetables", 18, []float64{0, 1, 0, -1}},
	{"Banana", "Fruits", 45, []float64{1, 0, 5, 2}},
	{"Apple", "Fruits", 120, []float64{-1, -2, 0, -9}},
	{"Wheat", "Grains", 27, []float64{0, 0, 1, 0}},
}

var demoMarkets = []struct {
	name, marketType, location string
	markup                     float64
}{
	{"Azadpur Mandi", "wholesale", "Delhi", 1.0},
	{"Vashi APMC", "wholesale", "Navi Mumbai", 1.04},
	{"Koyambedu", "retail", "Chennai", 1.3},
}

// DailyPrices returns DemoDays of prices for every demo commodity and market,
// ending at DemoDay.
func DailyPrices() []domain.DailyPrice {
	start := DemoDay.AddDate(0, 0, -(DemoDays - 1))

	var out []domain.DailyPrice
	for _, s := range demoSeries {
		for _, m := range demoMarkets {
			price := s.base * m.markup
			for d := 0; d < DemoDays; d++ {
				if d > 0 {
					price *= 1 + s.steps[d-1]/100
				}
				out = append(out, domain.DailyPrice{
					Commodity:  s.commodity,
					Category:   s.category,
					Market:     m.name,
					MarketType: m.marketType,
					Location:   m.location,
					Date:       start.AddDate(0, 0, d),
					Price:      price,
				})
			}
		}
	}
	return out
}

// PriceChanges returns the change records derived from DailyPrices.
func PriceChanges() []*domain.PriceChangeRecord {
	return pricechange.Derive(DailyPrices())
}

// RawRecords returns schema-less arrival records in the shape of a mandi feed.
// Onion arrivals rise, Tomato arrivals fall, Potato is flat and Garlic has a
// single observation.
func RawRecords() []domain.RawRecord {
	arrivals := map[string][]float64{
		"Onion":  {100, 120, 150, 170, 200},
		"Tomato": {300, 260, 210, 180, 150},
		"Potato": {500, 505, 498, 502, 500},
	}
	prices := map[string]string{
		"Onion":  "₹32",
		"Tomato": "₹24.50",
		"Potato": "18",
	}

	var out []domain.RawRecord
	for day := 0; day < DemoDays; day++ {
		for _, name := range []string{"Onion", "Tomato", "Potato"} {
			out = append(out, domain.RawRecord{
				"commodity":    domain.String(name),
				"modal_price":  domain.String(prices[name]),
				"arrivals":     domain.Number(arrivals[name][day]),
				"market":       domain.String("Azadpur Mandi"),
				"arrival_date": domain.Time(DemoDay.AddDate(0, 0, day-(DemoDays-1))),
			})
		}
	}
	out = append(out, domain.RawRecord{
		"commodity":    domain.String("Garlic"),
		"modal_price":  domain.String("n/a"),
		"arrivals":     domain.Number(40),
		"market":       domain.String("Azadpur Mandi"),
		"arrival_date": domain.Time(DemoDay),
	})
	return out
}

// Seed loads the demo data into the given stores. Nil stores are skipped.
func Seed(ctx context.Context, records storage.RawRecordStore, changes storage.PriceChangeStore) error {
	if records != nil {
		if err := records.InsertBulk(ctx, RawRecords()); err != nil {
			return fmt.Errorf("seed raw records: %w", err)
		}
	}
	if changes != nil {
		if err := changes.InsertBulk(ctx, PriceChanges()); err != nil {
			return fmt.Errorf("seed price changes: %w", err)
		}
	}
	return nil
}
