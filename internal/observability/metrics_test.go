package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T) string {
	t.Helper()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestNewMetrics_DefaultNamespace(t *testing.T) {
	RecordTrend("stable")
	RecordDemandRun("success", 4, 1, 0.01)

	body := scrape(t)
	assert.Contains(t, body, `agrimarket_demand_trend_classifications_total{trend="stable"}`)
	assert.Contains(t, body, `agrimarket_demand_runs_total{status="success"}`)
	assert.Contains(t, body, "agrimarket_demand_items_analyzed_total")
}

func TestRecordSourceFetch(t *testing.T) {
	RecordSourceFetch("unit", "fetch_sample", 0.1, 0, errors.New("boom"))
	RecordSourceFetch("unit", "fetch_sample", 0.1, 3, nil)

	body := scrape(t)
	assert.Contains(t, body, `agrimarket_source_fetch_errors_total{operation="fetch_sample",source="unit"} 1`)
	assert.Contains(t, body, `agrimarket_source_records_fetched_total{source="unit"} 3`)
}

func TestRecordPriceRequest(t *testing.T) {
	RecordPriceRequest("market-summary", "success")
	RecordPriceValidationError("category_required")

	body := scrape(t)
	assert.Contains(t, body, `agrimarket_prices_requests_total{mode="market-summary",status="success"}`)
	assert.Contains(t, body, `agrimarket_prices_validation_errors_total{reason="category_required"}`)
}
