package models

import "time"

// Fundamentals holds supplemental issue facts captured from the calendar
// feed (lot size, issue size, prospectus link). They are stored under their
// own document kind and never influence alert decisions.
type Fundamentals struct {
	Key           string    `json:"key"`
	LotSize       *int      `json:"lot_size,omitempty"`
	IssueSize     *string   `json:"issue_size,omitempty"`
	ProspectusURL *string   `json:"prospectus_url,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
