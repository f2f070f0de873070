// Package store defines the persistence contract for extraction audit
// data: one row per extraction run and one row per extracted memory
// record. Backends implement RecordStore over plain SQL.
package store

import (
	"context"
	"time"
)

// Run records one completed extraction run for freshness checks and
// audit.
type Run struct {
	// ID is the run identifier assigned by the orchestrator.
	ID int64

	// UserID identifies the user the run processed.
	UserID string

	// Source is the origin kind of the processed content.
	Source string

	// SourceID is the opaque identifier of the source.
	SourceID string

	// SourceUpdatedAt is when the source content last changed, as seen
	// by the run.
	SourceUpdatedAt time.Time

	// Processed, Succeeded and Failed are the run's layer counts.
	Processed int
	Succeeded int
	Failed    int

	// CreatedAt is when the run row was written.
	CreatedAt time.Time
}

// Record is one extracted memory persisted for later retrieval.
type Record struct {
	// ID is the record identifier.
	ID int64

	// RunID is the run that produced this record.
	RunID int64

	// UserID identifies the owning user.
	UserID string

	// SourceID is the source the record was extracted from.
	SourceID string

	// Layer is the memory layer the record belongs to.
	Layer string

	// Content is the record's prompt-ready text fragment.
	Content string

	// Payload is the full extraction payload as JSON.
	Payload string

	// CreatedAt is when the record row was written.
	CreatedAt time.Time
}

// RecordStore is the persistence contract shared by all backends.
type RecordStore interface {
	// SaveRun persists one run row.
	SaveRun(ctx context.Context, run *Run) error

	// LastRun returns the most recent run for the user/source pair, or
	// nil when no run has been recorded.
	LastRun(ctx context.Context, userID, sourceID string) (*Run, error)

	// SaveRecords persists the given records in one transaction.
	SaveRecords(ctx context.Context, records []*Record) error

	// RecentByLayer returns up to limit records of one layer for the
	// user, newest first.
	RecentByLayer(ctx context.Context, userID, layer string, limit int) ([]*Record, error)

	// Close closes the store and releases resources.
	Close() error
}
