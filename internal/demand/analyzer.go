// Package demand turns samples of ad-hoc market records into per-item demand
// trend analytics.
package demand

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"agrimarket/internal/domain"
	"agrimarket/internal/fallback"
	"agrimarket/internal/observability"
	"agrimarket/internal/schema"
	"agrimarket/internal/storage"
)

// DefaultSampleLimit caps the number of records read per analysis run.
const DefaultSampleLimit = 5000

// AnalyzerConfig configures an Analyzer.
type AnalyzerConfig struct {
	SampleLimit int
	SourceName  string // label for metrics, e.g. "postgres"
	Thresholds  Thresholds
}

// DefaultAnalyzerConfig returns the default analyzer configuration.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		SampleLimit: DefaultSampleLimit,
		SourceName:  "records",
		Thresholds:  DefaultThresholds(),
	}
}

// Analyzer runs schema inference, aggregation and classification over a
// record sample. It holds no per-run state and is safe for concurrent use.
type Analyzer struct {
	source     storage.RecordSource
	inferencer *schema.Inferencer
	classifier *Classifier
	fallback   *fallback.Generator
	logger     *log.Logger
	cfg        AnalyzerConfig
}

// NewAnalyzer creates a new Analyzer. A nil logger discards output.
func NewAnalyzer(source storage.RecordSource, gen *fallback.Generator, logger *log.Logger, cfg AnalyzerConfig) *Analyzer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = DefaultSampleLimit
	}
	if cfg.SourceName == "" {
		cfg.SourceName = "records"
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	return &Analyzer{
		source:     source,
		inferencer: schema.NewInferencer(),
		classifier: NewClassifier(cfg.Thresholds),
		fallback:   gen,
		logger:     logger,
		cfg:        cfg,
	}
}

// WithInferencer replaces the schema inferencer.
func (a *Analyzer) WithInferencer(inf *schema.Inferencer) *Analyzer {
	a.inferencer = inf
	return a
}

// Analyze produces demand analytics. It never fails: read errors and empty
// samples yield the mock payload with status error_with_mock_data.
func (a *Analyzer) Analyze(ctx context.Context) *domain.DemandAnalytics {
	runID := uuid.NewString()
	start := time.Now()

	records, err := a.fetch(ctx)
	if err != nil {
		a.logger.Printf("run %s: fetch sample failed: %v", runID, err)
		return a.mock(fmt.Sprintf("fetch sample: %v", err), start)
	}
	if len(records) == 0 {
		a.logger.Printf("run %s: no records available", runID)
		return a.mock("no records available", start)
	}

	s := a.inferencer.Infer(records)
	a.logger.Printf("run %s: %d records, item field %q, price field %s, demand field %s",
		runID, len(records), s.ItemField, fieldName(s.PriceField), fieldName(s.DemandField))

	items := Aggregate(records, s)
	if len(items) == 0 {
		a.logger.Printf("run %s: no identifiable items in sample", runID)
		return a.mock("no identifiable items in sample", start)
	}

	out := a.Build(items)

	estimated := 0
	for _, item := range out.ItemsAnalysis {
		if item.IsEstimated {
			estimated++
		}
	}
	observability.RecordDemandRun(out.Status, len(out.ItemsAnalysis), estimated, time.Since(start).Seconds())
	observability.MarkDemandSuccess(time.Now().Unix())
	a.logger.Printf("run %s: analyzed %d items (%d estimated) in %s",
		runID, len(out.ItemsAnalysis), estimated, time.Since(start).Round(time.Millisecond))

	return out
}

// Build classifies aggregated items and assembles the payload.
// Items with fewer than two demand values or no valid price receive
// placeholder statistics and are marked IsEstimated.
func (a *Analyzer) Build(items map[string]*domain.ItemAggregate) *domain.DemandAnalytics {
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)

	analysis := make(map[string]domain.ItemAnalysis, len(items))
	trends := make([]domain.Trend, 0, len(items))

	for _, name := range names {
		agg := items[name]
		estimated := false

		var tr domain.TrendResult
		if len(agg.Demands) >= 2 {
			tr = a.classifier.Classify(agg.Demands)
		} else {
			tr = a.fallback.PlaceholderTrend()
			estimated = true
		}

		var price float64
		if len(agg.Prices) > 0 {
			price = computeMean(agg.Prices)
		} else {
			price = a.fallback.PlaceholderPrice()
			estimated = true
		}

		analysis[name] = domain.ItemAnalysis{
			AveragePrice:           round2(price),
			DemandTrend:            tr.Trend,
			DemandChangePercentage: round2(tr.ChangePercentage),
			DataPoints:             agg.TotalDataPoints,
			PriceDataPoints:        len(agg.Prices),
			DemandDataPoints:       len(agg.Demands),
			IsEstimated:            estimated,
		}
		trends = append(trends, tr.Trend)
		observability.RecordTrend(string(tr.Trend))
	}

	return &domain.DemandAnalytics{
		ItemsAnalysis: analysis,
		Summary:       fallback.Summarize(trends),
		Status:        domain.StatusSuccess,
	}
}

func (a *Analyzer) fetch(ctx context.Context) ([]domain.RawRecord, error) {
	if a.source == nil {
		return nil, fmt.Errorf("no record source configured")
	}
	start := time.Now()
	records, err := a.source.FetchSample(ctx, a.cfg.SampleLimit)
	observability.RecordSourceFetch(a.cfg.SourceName, "fetch_sample", time.Since(start).Seconds(), len(records), err)
	if err != nil {
		return nil, err
	}
	if len(records) > a.cfg.SampleLimit {
		records = records[:a.cfg.SampleLimit]
	}
	return records, nil
}

func (a *Analyzer) mock(reason string, start time.Time) *domain.DemandAnalytics {
	out := a.fallback.MockDemand(reason)
	observability.RecordDemandRun(out.Status, len(out.ItemsAnalysis), len(out.ItemsAnalysis), time.Since(start).Seconds())
	return out
}

func fieldName(f *string) string {
	if f == nil {
		return "<none>"
	}
	return fmt.Sprintf("%q", *f)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
