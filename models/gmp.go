package models

import "time"

// GMPReading is one raw grey-market-premium observation from one source for
// one IPO key. Readings are ephemeral: produced fresh each cycle, consumed
// by the aggregator, never persisted.
type GMPReading struct {
	Source    string    `json:"source"`
	Provider  string    `json:"provider,omitempty"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// GMPAggregate is the consensus over all of a cycle's readings for one IPO.
// Confidence is in [0,1]; zero readings yield no aggregate at all rather
// than a zero-confidence one.
type GMPAggregate struct {
	Median     float64      `json:"median"`
	Spread     float64      `json:"spread"`
	Confidence float64      `json:"confidence"`
	Sources    []GMPReading `json:"sources"`
}

// SourceNames lists the contributing providers for message rendering.
func (a *GMPAggregate) SourceNames() []string {
	names := make([]string, 0, len(a.Sources))
	for _, reading := range a.Sources {
		if reading.Provider != "" {
			names = append(names, reading.Provider)
			continue
		}
		names = append(names, reading.Source)
	}
	return names
}
