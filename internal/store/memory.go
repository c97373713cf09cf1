package store

import (
	"context"
	"sync"

	"github.com/cvalentine99/flowlens/internal/models"
)

// Memory is a slice-backed Store used by tests and as the fallback when
// no database is configured. It honors the same append-only,
// all-or-nothing contract as the Postgres store.
type Memory struct {
	mu       sync.Mutex
	features []models.FeatureRow
	results  []models.ResultRow
	nextID   int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1}
}

// SaveRun appends all rows of one run atomically.
func (m *Memory) SaveRun(ctx context.Context, features []models.FeatureRow, results []models.ResultRow) error {
	if err := ctx.Err(); err != nil {
		return &PersistenceError{Op: "save run", Err: err}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range features {
		f.ID = m.nextID
		m.nextID++
		m.features = append(m.features, f)
	}
	for _, r := range results {
		r.ID = m.nextID
		m.nextID++
		m.results = append(m.results, r)
	}
	return nil
}

// Features returns a copy of all persisted feature rows.
func (m *Memory) Features(ctx context.Context) ([]models.FeatureRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.FeatureRow, len(m.features))
	copy(out, m.features)
	return out, nil
}

// Results returns a copy of all persisted result rows.
func (m *Memory) Results(ctx context.Context) ([]models.ResultRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ResultRow, len(m.results))
	copy(out, m.results)
	return out, nil
}

// Close is a no-op for the in-memory store.
func (m *Memory) Close() error {
	return nil
}
