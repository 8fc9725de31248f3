package demand

import (
	"math"

	"agrimarket/internal/domain"
)

// Default classification thresholds, in percent. They are empirical and kept
// configurable through Thresholds.
const (
	DefaultTwoPointThreshold    = 20.0
	DefaultSlopeThreshold       = 5.0
	DefaultTotalChangeThreshold = 15.0
)

// Thresholds tunes the trend classifier.
type Thresholds struct {
	// TwoPoint is the absolute change below which a two-value series is stable.
	TwoPoint float64
	// Slope is the absolute slope percentage below which a longer series may be stable.
	Slope float64
	// TotalChange is the absolute first-to-last change below which a longer series may be stable.
	TotalChange float64
}

// DefaultThresholds returns the default classification thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TwoPoint:    DefaultTwoPointThreshold,
		Slope:       DefaultSlopeThreshold,
		TotalChange: DefaultTotalChangeThreshold,
	}
}

// Classifier turns an ordered numeric series into a trend label.
type Classifier struct {
	th Thresholds
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th}
}

// Classify labels a series using the default thresholds.
func Classify(values []float64) domain.TrendResult {
	return NewClassifier(DefaultThresholds()).Classify(values)
}

// Classify labels a series.
//
// Zero or one value is insufficient data. Two values compare the relative
// change against the two-point threshold. Three or more values fit a
// least-squares line over the indices and are stable only when both the slope
// percentage and the total change are small.
func (c *Classifier) Classify(values []float64) domain.TrendResult {
	n := len(values)
	switch {
	case n < 2:
		return domain.TrendResult{Trend: domain.TrendInsufficientData}
	case n == 2:
		return c.classifyTwoPoint(values[0], values[1])
	}

	totalChange := relativeChange(values[0], values[n-1])

	mean := computeMean(values)
	slopePct := 0.0
	if mean != 0 {
		slopePct = computeSlope(values) / mean * 100
	}

	if math.Abs(slopePct) < c.th.Slope && math.Abs(totalChange) < c.th.TotalChange {
		return domain.TrendResult{Trend: domain.TrendStable, ChangePercentage: totalChange}
	}
	if slopePct > 0 || totalChange > 0 {
		return domain.TrendResult{Trend: domain.TrendIncreasing, ChangePercentage: math.Abs(totalChange)}
	}
	return domain.TrendResult{Trend: domain.TrendDecreasing, ChangePercentage: -math.Abs(totalChange)}
}

// classifyTwoPoint compares two values. A zero base has no defined relative
// change; the direction still decides the label and the change is reported as 0.
func (c *Classifier) classifyTwoPoint(v0, v1 float64) domain.TrendResult {
	if v0 == 0 {
		switch {
		case v1 > 0:
			return domain.TrendResult{Trend: domain.TrendIncreasing}
		case v1 < 0:
			return domain.TrendResult{Trend: domain.TrendDecreasing}
		default:
			return domain.TrendResult{Trend: domain.TrendStable}
		}
	}

	change := relativeChange(v0, v1)
	if math.Abs(change) < c.th.TwoPoint {
		return domain.TrendResult{Trend: domain.TrendStable, ChangePercentage: change}
	}
	if change > 0 {
		return domain.TrendResult{Trend: domain.TrendIncreasing, ChangePercentage: change}
	}
	return domain.TrendResult{Trend: domain.TrendDecreasing, ChangePercentage: change}
}

// relativeChange returns (to - from) / from * 100, or 0 when from is 0.
func relativeChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) * 100 / from
}

// computeSlope returns the ordinary least-squares slope of values against
// their indices 0..n-1.
func computeSlope(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}

	xMean := float64(n-1) / 2
	yMean := computeMean(values)

	var num, den float64
	for i, y := range values {
		dx := float64(i) - xMean
		num += dx * (y - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
