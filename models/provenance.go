package models

import "time"

// PageCall records the HTTP outcome of one calendar API page request.
type PageCall struct {
	Page       int `json:"page"`
	StatusCode int `json:"status_code"`
}

// FetchRun is the raw provenance of one calendar fetch: which pages were
// called, with what result, and how many records came back.
type FetchRun struct {
	ID          string     `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	Source      string     `json:"source"`
	PagesCalled []PageCall `json:"pages_called"`
	Collected   int        `json:"collected"`
}

// FetchLog is the persisted document of recent fetch runs, newest last.
type FetchLog struct {
	Runs []FetchRun `json:"runs"`
}
