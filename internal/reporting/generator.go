package reporting

import (
	"context"
	"fmt"
	"sort"
	"time"

	"agrimarket/internal/domain"
	"agrimarket/internal/pricechange"
)

// DemandAnalyzer produces the demand forecast payload.
type DemandAnalyzer interface {
	Analyze(ctx context.Context) *domain.DemandAnalytics
}

// PriceService computes price analytics views.
type PriceService interface {
	Run(ctx context.Context, req pricechange.Request) (*domain.PriceAnalytics, error)
}

// Generator produces reports from the analytics services.
type Generator struct {
	demand DemandAnalyzer
	prices PriceService
	now    func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(demand DemandAnalyzer, prices PriceService) *Generator {
	return &Generator{
		demand: demand,
		prices: prices,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report. date selects the price day; empty
// uses the latest day in the dataset.
func (g *Generator) Generate(ctx context.Context, date string) (*Report, error) {
	r := &Report{GeneratedAt: g.now()}

	g.generateDemand(ctx, r)

	summary, err := g.run(ctx, r, pricechange.Request{Mode: domain.ModeMarketSummary, Date: date})
	if err != nil {
		return nil, err
	}
	r.Date = summary.Date
	r.MarketSummary, _ = summary.Data.([]domain.MarketSummaryRow)

	// Pin the remaining sections to the day the summary resolved to.
	day := r.Date

	movers, err := g.run(ctx, r, pricechange.Request{Mode: domain.ModeCommodityChanges, Date: day})
	if err != nil {
		return nil, err
	}
	r.TopMovers, _ = movers.Data.([]*domain.PriceChangeRecord)

	cats, err := g.run(ctx, r, pricechange.Request{Mode: domain.ModeAvailableCategories})
	if err != nil {
		return nil, err
	}
	categories, _ := cats.Data.([]string)

	for _, cat := range categories {
		out, err := g.run(ctx, r, pricechange.Request{Mode: domain.ModeCategoryComparison, Date: day, Category: cat})
		if err != nil {
			return nil, err
		}
		rows, _ := out.Data.([]domain.CategoryComparisonRow)
		if len(rows) == 0 {
			continue
		}
		r.CategoryComparison = append(r.CategoryComparison, CategorySection{Category: cat, Rows: rows})
	}

	return r, nil
}

// generateDemand fills the demand section.
func (g *Generator) generateDemand(ctx context.Context, r *Report) {
	out := g.demand.Analyze(ctx)

	r.Demand = DemandSection{Status: out.Status, Summary: out.Summary}
	if out.Status != domain.StatusSuccess {
		r.Estimated = true
		r.Notes = append(r.Notes, fmt.Sprintf("demand: %s", out.Error))
	}

	names := make([]string, 0, len(out.ItemsAnalysis))
	for name := range out.ItemsAnalysis {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		r.Demand.Items = append(r.Demand.Items, DemandItemRow{ItemName: name, ItemAnalysis: out.ItemsAnalysis[name]})
	}
}

// run executes a price request and records fallback notes on the report.
func (g *Generator) run(ctx context.Context, r *Report, req pricechange.Request) (*domain.PriceAnalytics, error) {
	out, err := g.prices.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Mode, err)
	}
	if out.Status != domain.StatusSuccess {
		r.Estimated = true
		r.Notes = append(r.Notes, fmt.Sprintf("%s: %s", req.Mode, out.Error))
	}
	return out, nil
}
