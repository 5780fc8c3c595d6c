package services

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/fenilmodi00/ipo-agent/models"
)

func readingsFromValues(values []float64) []models.GMPReading {
	now := time.Now().UTC()
	readings := make([]models.GMPReading, len(values))
	for i, value := range values {
		readings[i] = models.GMPReading{
			Source:    "https://gmp.example.com",
			Provider:  "example",
			Value:     value,
			Timestamp: now,
		}
	}
	return readings
}

func TestAggregateConsensusValues(t *testing.T) {
	aggregator := NewGMPAggregator()

	aggregate := aggregator.Aggregate(readingsFromValues([]float64{48, 50, 52}))
	if aggregate == nil {
		t.Fatal("expected an aggregate for three readings")
	}

	if aggregate.Median != 50 {
		t.Errorf("median = %v, want 50", aggregate.Median)
	}

	wantSpread := math.Sqrt(8.0 / 3.0)
	if math.Abs(aggregate.Spread-wantSpread) > 1e-9 {
		t.Errorf("spread = %v, want %v", aggregate.Spread, wantSpread)
	}

	wantConfidence := 1.0 - wantSpread/51.0
	if math.Abs(aggregate.Confidence-wantConfidence) > 1e-9 {
		t.Errorf("confidence = %v, want %v", aggregate.Confidence, wantConfidence)
	}
}

func TestAggregateSingleReading(t *testing.T) {
	aggregator := NewGMPAggregator()

	aggregate := aggregator.Aggregate(readingsFromValues([]float64{42}))
	if aggregate == nil {
		t.Fatal("expected an aggregate for one reading")
	}

	if aggregate.Median != 42 {
		t.Errorf("median = %v, want 42", aggregate.Median)
	}
	if aggregate.Spread != 0 {
		t.Errorf("spread = %v, want 0 for a single reading", aggregate.Spread)
	}
	if aggregate.Confidence != 1 {
		t.Errorf("confidence = %v, want 1 for a single nonzero reading", aggregate.Confidence)
	}
}

func TestAggregateEvenCountTakesMiddleMean(t *testing.T) {
	aggregator := NewGMPAggregator()

	aggregate := aggregator.Aggregate(readingsFromValues([]float64{30, 10}))
	if aggregate == nil {
		t.Fatal("expected an aggregate for two readings")
	}
	if aggregate.Median != 20 {
		t.Errorf("median = %v, want 20", aggregate.Median)
	}
}

func TestAggregateZeroMedianHasZeroConfidence(t *testing.T) {
	aggregator := NewGMPAggregator()

	aggregate := aggregator.Aggregate(readingsFromValues([]float64{-5, 0, 5}))
	if aggregate == nil {
		t.Fatal("expected an aggregate")
	}
	if aggregate.Median != 0 {
		t.Fatalf("median = %v, want 0", aggregate.Median)
	}
	if aggregate.Confidence != 0 {
		t.Errorf("confidence = %v, want 0 when the median is zero", aggregate.Confidence)
	}
}

func TestAggregateNoReadingsMeansNoAggregate(t *testing.T) {
	aggregator := NewGMPAggregator()

	if aggregate := aggregator.Aggregate(nil); aggregate != nil {
		t.Errorf("Aggregate(nil) = %+v, want nil", aggregate)
	}
	if aggregate := aggregator.Aggregate([]models.GMPReading{}); aggregate != nil {
		t.Errorf("Aggregate(empty) = %+v, want nil", aggregate)
	}
}

func TestAggregateRetainsProvenance(t *testing.T) {
	aggregator := NewGMPAggregator()

	readings := []models.GMPReading{
		{Source: "https://a.example.com", Provider: "a", Value: 60},
		{Source: "https://b.example.com", Value: 64},
	}

	aggregate := aggregator.Aggregate(readings)
	if aggregate == nil {
		t.Fatal("expected an aggregate")
	}
	if len(aggregate.Sources) != 2 {
		t.Fatalf("retained %d sources, want 2", len(aggregate.Sources))
	}

	// The aggregate must hold its own copy of the readings.
	readings[0].Value = -999
	if aggregate.Sources[0].Value != 60 {
		t.Errorf("aggregate sources alias the caller's slice")
	}

	names := aggregate.SourceNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "https://b.example.com" {
		t.Errorf("SourceNames() = %v, want provider label with URL fallback", names)
	}
}

func TestAggregateConfidenceBoundsProperty(t *testing.T) {
	aggregator := NewGMPAggregator()

	properties := gopter.NewProperties(nil)

	properties.Property("For any set of readings the consensus stays inside its bounds", prop.ForAll(
		func(values []float64) bool {
			aggregate := aggregator.Aggregate(readingsFromValues(values))

			if len(values) == 0 {
				return aggregate == nil
			}
			if aggregate == nil {
				return false
			}

			low, high := values[0], values[0]
			for _, value := range values {
				low = math.Min(low, value)
				high = math.Max(high, value)
			}

			return aggregate.Confidence >= 0 && aggregate.Confidence <= 1 &&
				aggregate.Spread >= 0 &&
				aggregate.Median >= low && aggregate.Median <= high &&
				len(aggregate.Sources) == len(values)
		},
		gen.SliceOf(gen.Float64Range(-500, 500)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
