package reporting

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"agrimarket/internal/domain"
)

// RenderMarketSummaryCSV renders market summary rows as CSV string.
func RenderMarketSummaryCSV(rows []domain.MarketSummaryRow) (string, error) {
	records := [][]string{{
		"market", "market_type", "average_price", "increases", "decreases", "total_records", "stability_score",
	}}
	for _, m := range rows {
		records = append(records, []string{
			m.Market,
			m.MarketType,
			formatFloat(m.AveragePrice),
			strconv.Itoa(m.Increases),
			strconv.Itoa(m.Decreases),
			strconv.Itoa(m.TotalRecords),
			strconv.Itoa(m.StabilityScore),
		})
	}
	return writeCSV(records)
}

// RenderPriceChangesCSV renders change records as CSV string.
func RenderPriceChangesCSV(changes []*domain.PriceChangeRecord) (string, error) {
	records := [][]string{{
		"date", "commodity", "category", "market", "market_type", "location",
		"yesterday_price", "today_price", "change_amount", "change_percentage", "trend", "significant_change",
	}}
	for _, c := range changes {
		records = append(records, []string{
			c.Date.Format(domain.DateLayout),
			c.Commodity,
			c.Category,
			c.Market,
			c.MarketType,
			c.Location,
			formatFloat(c.YesterdayPrice),
			formatFloat(c.TodayPrice),
			formatFloat(c.ChangeAmount),
			formatFloat(c.ChangePercentage),
			string(c.Trend),
			strconv.FormatBool(c.SignificantChange),
		})
	}
	return writeCSV(records)
}

func writeCSV(records [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
