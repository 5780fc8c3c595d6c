package services

import (
	"math"
	"sort"

	"github.com/fenilmodi00/ipo-agent/models"
)

// GMPAggregator condenses per-source grey market premium readings into a
// single consensus view. Aggregates are ephemeral: they are computed for
// the cycle in hand and never persisted.
type GMPAggregator struct{}

func NewGMPAggregator() *GMPAggregator {
	return &GMPAggregator{}
}

// Aggregate computes the consensus for one IPO from its readings.
// Returns nil when there are no readings, so callers can tell "no data"
// apart from "consensus of zero".
func (a *GMPAggregator) Aggregate(readings []models.GMPReading) *models.GMPAggregate {
	if len(readings) == 0 {
		return nil
	}

	values := make([]float64, len(readings))
	for i, reading := range readings {
		values[i] = reading.Value
	}

	median := medianOf(values)
	spread := 0.0
	if len(values) > 1 {
		spread = populationStdev(values)
	}

	confidence := 0.0
	if median != 0 {
		confidence = math.Max(0.0, 1.0-spread/(math.Abs(median)+1.0))
	}

	sources := make([]models.GMPReading, len(readings))
	copy(sources, readings)

	return &models.GMPAggregate{
		Median:     median,
		Spread:     spread,
		Confidence: confidence,
		Sources:    sources,
	}
}

func medianOf(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func populationStdev(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values))

	return math.Sqrt(variance)
}
