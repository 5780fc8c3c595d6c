package store

import "context"

// Kind names one persisted document. Each kind maps to a single JSON
// document holding the whole collection; writes replace the document.
type Kind string

const (
	KindIPOs         Kind = "ipos"
	KindFundamentals Kind = "fundamentals"
	KindFetchRuns    Kind = "fetch_runs"
)

// DocumentStore persists whole documents keyed by kind.
//
// Load decodes the stored document into v. When the document is absent
// or unreadable the implementation logs a warning and leaves v
// untouched, so callers start from their zero value instead of failing.
// Save replaces the stored document atomically.
type DocumentStore interface {
	Load(ctx context.Context, kind Kind, v interface{}) error
	Save(ctx context.Context, kind Kind, v interface{}) error
}
