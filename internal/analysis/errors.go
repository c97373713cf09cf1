// Package analysis implements the numeric stages of the flowlens
// pipeline: normalization, manifold embedding, the clustering ensemble,
// semi-supervised label propagation, and reconstruction-based anomaly
// scoring. All randomized stages take an explicit seed.
package analysis

import (
	"errors"
	"fmt"
)

// ErrEmptyMatrix is returned when a stage receives a matrix with no rows.
// Callers are expected to check emptiness upstream.
var ErrEmptyMatrix = errors.New("analysis: empty input matrix")

// ErrNoSeedLabels is returned when every entry of a seed-label vector is
// the unknown sentinel, leaving nothing to propagate from.
var ErrNoSeedLabels = errors.New("analysis: no seed labels to propagate")

// InsufficientSamplesError reports that a stage's minimum sample
// requirement was not met. It is fatal to the run and surfaces before
// any persistence happens.
type InsufficientSamplesError struct {
	Stage string
	Need  int
	Got   int
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("analysis: %s requires at least %d samples, got %d", e.Stage, e.Need, e.Got)
}
