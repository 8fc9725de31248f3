package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Market Analytics Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Price data date: %s\n\n", r.Date))
	if r.Estimated {
		sb.WriteString("**Some sections contain estimated data.**\n\n")
		for _, n := range r.Notes {
			sb.WriteString(fmt.Sprintf("- %s\n", n))
		}
		sb.WriteString("\n")
	}

	// Demand
	sb.WriteString("## Demand Forecast\n\n")
	s := r.Demand.Summary
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Items Analyzed | %d |\n", s.TotalItemsAnalyzed))
	sb.WriteString(fmt.Sprintf("| Increasing | %d (%.2f%%) |\n", s.ItemsWithIncreasingDemand, s.IncreasingDemandPercentage))
	sb.WriteString(fmt.Sprintf("| Decreasing | %d (%.2f%%) |\n", s.ItemsWithDecreasingDemand, s.DecreasingDemandPercentage))
	sb.WriteString(fmt.Sprintf("| Stable | %d (%.2f%%) |\n", s.ItemsWithStableDemand, s.StableDemandPercentage))
	sb.WriteString("\n")

	if len(r.Demand.Items) > 0 {
		sb.WriteString("| Item | Avg Price | Trend | Change% | Points | Estimated |\n")
		sb.WriteString("|------|-----------|-------|---------|--------|-----------|\n")
		for _, it := range r.Demand.Items {
			est := ""
			if it.IsEstimated {
				est = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %s | %.2f | %d | %s |\n",
				escape(it.ItemName), it.AveragePrice, it.DemandTrend, it.DemandChangePercentage, it.DataPoints, est))
		}
	} else {
		sb.WriteString("No demand data available.\n")
	}
	sb.WriteString("\n")

	// Market Summary
	sb.WriteString("## Market Summary\n\n")
	if len(r.MarketSummary) > 0 {
		sb.WriteString("| Market | Type | Avg Price | Increases | Decreases | Records | Stability |\n")
		sb.WriteString("|--------|------|-----------|-----------|-----------|---------|-----------|\n")
		for _, m := range r.MarketSummary {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %d | %d | %d | %d |\n",
				escape(m.Market), escape(m.MarketType), m.AveragePrice,
				m.Increases, m.Decreases, m.TotalRecords, m.StabilityScore))
		}
	} else {
		sb.WriteString("No market summary available.\n")
	}
	sb.WriteString("\n")

	// Top Movers
	sb.WriteString("## Top Movers\n\n")
	if len(r.TopMovers) > 0 {
		sb.WriteString("| Commodity | Market | Type | Yesterday | Today | Change% | Significant |\n")
		sb.WriteString("|-----------|--------|------|-----------|-------|---------|-------------|\n")
		for _, c := range r.TopMovers {
			sig := ""
			if c.SignificantChange {
				sig = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.2f | %.2f | %+.2f | %s |\n",
				escape(c.Commodity), escape(c.Market), escape(c.MarketType),
				c.YesterdayPrice, c.TodayPrice, c.ChangePercentage, sig))
		}
	} else {
		sb.WriteString("No price changes available.\n")
	}
	sb.WriteString("\n")

	// Category Comparison
	sb.WriteString("## Category Comparison\n\n")
	if len(r.CategoryComparison) == 0 {
		sb.WriteString("No category data available.\n\n")
	}
	for _, sec := range r.CategoryComparison {
		sb.WriteString(fmt.Sprintf("### %s\n\n", escape(sec.Category)))
		sb.WriteString("| Commodity | Avg Price | Count | Total |\n")
		sb.WriteString("|-----------|-----------|-------|-------|\n")
		for _, row := range sec.Rows {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %d | %.2f |\n",
				escape(row.Commodity), row.AveragePrice, row.Count, row.TotalValue))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// escape keeps free-text values from breaking table cells.
func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
