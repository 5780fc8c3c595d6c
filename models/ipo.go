package models

import (
	"time"
)

// Status is the lifecycle label an upstream source reports for an IPO
// ("open", "upcoming", "closed", ...). Sources are free to introduce new
// values at any time, so it is carried and compared as an opaque token,
// never matched against a closed set.
type Status string

// IPORecord is one offering tracked across polling cycles. Records are
// created on first sighting, mutated in place on status changes and GMP
// alert firings, and never deleted.
type IPORecord struct {
	// Identity
	Key         string  `json:"key"`
	CompanyName string  `json:"company_name,omitempty"`
	Symbol      *string `json:"symbol,omitempty"`
	Exchange    string  `json:"exchange,omitempty"`

	// Pricing
	PriceBandLow  *float64 `json:"price_band_low,omitempty"`
	PriceBandHigh *float64 `json:"price_band_high,omitempty"`

	// Issue window, kept as the source's own strings (never parsed here)
	IssueOpenDate  string `json:"issue_open_date,omitempty"`
	IssueCloseDate string `json:"issue_close_date,omitempty"`

	Status Status `json:"status"`

	// Alert bookkeeping: the consensus GMP at which the last alert fired.
	// Nil means no GMP alert has ever fired for this record; zero is a
	// real previous value.
	LastNotifiedGMP *float64 `json:"last_notified_gmp,omitempty"`

	// Audit fields
	SeenAt    time.Time  `json:"seen_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// PriceBandMidpoint returns (low + high) / 2. The midpoint is unavailable
// when both bounds are missing or zero.
func (r *IPORecord) PriceBandMidpoint() (float64, bool) {
	var low, high float64
	if r.PriceBandLow != nil {
		low = *r.PriceBandLow
	}
	if r.PriceBandHigh != nil {
		high = *r.PriceBandHigh
	}
	if low == 0 && high == 0 {
		return 0, false
	}
	return (low + high) / 2, true
}

// DisplaySymbol returns the symbol for message rendering, or a dash when the
// source did not provide one.
func (r *IPORecord) DisplaySymbol() string {
	if r.Symbol != nil && *r.Symbol != "" {
		return *r.Symbol
	}
	return "—"
}

// Clone returns a deep copy so stored state never aliases fetcher-owned
// pointer values.
func (r *IPORecord) Clone() *IPORecord {
	clone := *r
	clone.Symbol = copyStringPointer(r.Symbol)
	clone.PriceBandLow = copyFloatPointer(r.PriceBandLow)
	clone.PriceBandHigh = copyFloatPointer(r.PriceBandHigh)
	clone.LastNotifiedGMP = copyFloatPointer(r.LastNotifiedGMP)
	clone.UpdatedAt = copyTimePointer(r.UpdatedAt)
	return &clone
}

func copyStringPointer(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func copyFloatPointer(value *float64) *float64 {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func copyTimePointer(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
