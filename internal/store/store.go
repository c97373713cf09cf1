// Package store provides append-only persistence for feature vectors
// and analysis results. Writes are atomic per run: either every feature
// row and every result row of a run is durably written, or none are.
// Rows are never updated after being written.
package store

import (
	"context"
	"fmt"

	"github.com/cvalentine99/flowlens/internal/models"
)

// Store is the persistence boundary of the pipeline.
type Store interface {
	// SaveRun appends all feature and result rows of one run in a
	// single transaction.
	SaveRun(ctx context.Context, features []models.FeatureRow, results []models.ResultRow) error
	// Features returns all persisted feature rows in insertion order.
	Features(ctx context.Context) ([]models.FeatureRow, error)
	// Results returns all persisted result rows in insertion order.
	Results(ctx context.Context) ([]models.ResultRow, error)
	// Close releases the underlying resources.
	Close() error
}

// PersistenceError wraps a store failure. It is fatal to the run and
// never swallowed by callers.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
