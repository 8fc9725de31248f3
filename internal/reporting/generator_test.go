package reporting

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"agrimarket/internal/demand"
	"agrimarket/internal/domain"
	"agrimarket/internal/fallback"
	"agrimarket/internal/fixtures"
	"agrimarket/internal/pricechange"
	"agrimarket/internal/storage/memory"
)

var fixedTime = time.Date(2024, 6, 11, 6, 0, 0, 0, time.UTC)

func setupGenerator(t *testing.T, seed bool) *Generator {
	t.Helper()

	ctx := context.Background()
	records := memory.NewRawRecordStore()
	changes := memory.NewPriceChangeStore()
	if seed {
		if err := fixtures.Seed(ctx, records, changes); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
	}

	logger := log.New(io.Discard, "", 0)
	gen := fallback.NewGenerator(11).WithClock(func() time.Time { return fixtures.DemoDay })
	analyzer := demand.NewAnalyzer(records, gen, logger, demand.DefaultAnalyzerConfig())
	svc := pricechange.NewService(changes, gen, logger)

	return NewGenerator(analyzer, svc).WithClock(func() time.Time { return fixedTime })
}

func TestGenerate_FromFixtures(t *testing.T) {
	report, err := setupGenerator(t, true).Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedTime) {
		t.Errorf("Expected GeneratedAt %v, got %v", fixedTime, report.GeneratedAt)
	}
	if report.Date != "2024-06-10" {
		t.Errorf("Expected date 2024-06-10, got %s", report.Date)
	}
	if report.Estimated {
		t.Errorf("Expected real data, got notes: %v", report.Notes)
	}
	if report.Demand.Status != domain.StatusSuccess {
		t.Errorf("Expected demand success, got %s", report.Demand.Status)
	}
	if len(report.Demand.Items) != 4 || report.Demand.Items[0].ItemName != "Garlic" {
		t.Errorf("Expected 4 demand items sorted by name, got %+v", report.Demand.Items)
	}
	if len(report.MarketSummary) != 3 {
		t.Errorf("Expected 3 market summary rows, got %d", len(report.MarketSummary))
	}
	if len(report.TopMovers) == 0 {
		t.Fatal("Expected top movers")
	}
	for i := 1; i < len(report.TopMovers); i++ {
		if report.TopMovers[i-1].ChangePercentage < report.TopMovers[i].ChangePercentage {
			t.Errorf("Top movers not sorted at %d", i)
		}
	}
	if len(report.CategoryComparison) != 3 {
		t.Fatalf("Expected 3 category sections, got %d", len(report.CategoryComparison))
	}
	if report.CategoryComparison[0].Category != "Fruits" {
		t.Errorf("Expected Fruits first, got %s", report.CategoryComparison[0].Category)
	}
}

func TestGenerate_ExplicitDate(t *testing.T) {
	report, err := setupGenerator(t, true).Generate(context.Background(), "2024-06-08")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.Date != "2024-06-08" {
		t.Errorf("Expected date 2024-06-08, got %s", report.Date)
	}
	for _, c := range report.TopMovers {
		if c.Date.Format(domain.DateLayout) != "2024-06-08" {
			t.Errorf("Top mover from wrong day: %s", c.Date)
		}
	}
}

func TestGenerate_EmptyStoresAreEstimated(t *testing.T) {
	report, err := setupGenerator(t, false).Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.Estimated {
		t.Error("Expected estimated report")
	}
	if len(report.Notes) == 0 {
		t.Error("Expected fallback notes")
	}
	if report.Demand.Status != domain.StatusErrorWithMockData {
		t.Errorf("Expected mock demand status, got %s", report.Demand.Status)
	}
	if len(report.MarketSummary) == 0 {
		t.Error("Expected mock market summary")
	}
}

func TestGenerate_InvalidDate(t *testing.T) {
	_, err := setupGenerator(t, true).Generate(context.Background(), "10-06-2024")
	if err == nil {
		t.Fatal("Expected error for invalid date")
	}
}

func TestRenderMarkdown_ContainsSections(t *testing.T) {
	report, err := setupGenerator(t, true).Generate(context.Background(), "")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)

	for _, section := range []string{
		"# Market Analytics Report",
		"## Demand Forecast",
		"## Market Summary",
		"## Top Movers",
		"## Category Comparison",
		"### Vegetables",
		"| Azadpur Mandi | wholesale |",
	} {
		if !strings.Contains(md, section) {
			t.Errorf("Markdown missing %q", section)
		}
	}
	if strings.Contains(md, "estimated data") {
		t.Error("Real report should not be flagged as estimated")
	}
}

func TestRenderMarkdown_Deterministic(t *testing.T) {
	first := ""
	for run := 0; run < 3; run++ {
		report, err := setupGenerator(t, true).Generate(context.Background(), "")
		if err != nil {
			t.Fatalf("Run %d: Generate failed: %v", run, err)
		}
		md := RenderMarkdown(report)
		if run == 0 {
			first = md
			continue
		}
		if md != first {
			t.Errorf("Run %d: markdown differs", run)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	rows := []domain.MarketSummaryRow{
		{Market: "Azadpur, Delhi", MarketType: "wholesale", AveragePrice: 31.456, Increases: 3, Decreases: 1, TotalRecords: 6, StabilityScore: 33},
	}

	out, err := RenderMarketSummaryCSV(rows)
	if err != nil {
		t.Fatalf("RenderMarketSummaryCSV failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "market,market_type,average_price,increases,decreases,total_records,stability_score" {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	if lines[1] != `"Azadpur, Delhi",wholesale,31.46,3,1,6,33` {
		t.Errorf("Unexpected row: %s", lines[1])
	}

	changes, err := RenderPriceChangesCSV(fixtures.PriceChanges())
	if err != nil {
		t.Fatalf("RenderPriceChangesCSV failed: %v", err)
	}
	if got := strings.Count(changes, "\n"); got != len(fixtures.PriceChanges())+1 {
		t.Errorf("Expected %d lines, got %d", len(fixtures.PriceChanges())+1, got)
	}
}
