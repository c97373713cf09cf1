package analysis

import (
	"errors"
	"math"
	"testing"
)

func TestStandardize_ZeroMeanUnitVariance(t *testing.T) {
	X := [][]float64{
		{1, 10, 5},
		{2, 20, 5},
		{3, 30, 5},
		{4, 40, 5},
	}
	norm, err := Standardize(X)
	if err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}

	for j := 0; j < 2; j++ {
		var mean, variance float64
		for i := range norm {
			mean += norm[i][j]
		}
		mean /= float64(len(norm))
		for i := range norm {
			diff := norm[i][j] - mean
			variance += diff * diff
		}
		variance /= float64(len(norm))

		if math.Abs(mean) > 1e-9 {
			t.Errorf("Column %d: expected mean 0, got %v", j, mean)
		}
		if math.Abs(variance-1) > 1e-9 {
			t.Errorf("Column %d: expected variance 1, got %v", j, variance)
		}
	}

	// Constant column maps to zero.
	for i := range norm {
		if norm[i][2] != 0 {
			t.Errorf("Expected constant column to normalize to 0, got %v", norm[i][2])
		}
	}
}

func TestStandardize_EmptyMatrix(t *testing.T) {
	if _, err := Standardize(nil); !errors.Is(err, ErrEmptyMatrix) {
		t.Errorf("Expected ErrEmptyMatrix, got %v", err)
	}
}

func TestDBSCAN_ClustersAndNoise(t *testing.T) {
	X := [][]float64{
		{0, 0}, {0, 0.1}, {0.1, 0},
		{5, 5}, {5, 5.1}, {5.1, 5},
		{100, 100},
	}
	labels, err := DBSCAN(X, 0.5, 2)
	if err != nil {
		t.Fatalf("DBSCAN failed: %v", err)
	}
	if len(labels) != len(X) {
		t.Fatalf("Expected %d labels, got %d", len(X), len(labels))
	}

	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("Expected first three samples in one cluster, got %v", labels[:3])
	}
	if labels[3] != labels[4] || labels[4] != labels[5] {
		t.Errorf("Expected middle three samples in one cluster, got %v", labels[3:6])
	}
	if labels[0] == labels[3] {
		t.Errorf("Expected two distinct clusters, got %v", labels)
	}
	if labels[6] != NoiseLabel {
		t.Errorf("Expected far point to be noise, got %d", labels[6])
	}
}

func TestDBSCAN_LabelCountBound(t *testing.T) {
	X := [][]float64{{0}, {10}, {20}, {30}}
	labels, err := DBSCAN(X, 1, 1)
	if err != nil {
		t.Fatalf("DBSCAN failed: %v", err)
	}

	distinct := make(map[int]struct{})
	for _, l := range labels {
		distinct[l] = struct{}{}
	}
	if len(distinct) > len(X) {
		t.Errorf("Expected at most %d distinct labels, got %d", len(X), len(distinct))
	}
}

func TestSpectralCluster_LabelRange(t *testing.T) {
	X := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}
	labels, err := SpectralCluster(X, 2, 7)
	if err != nil {
		t.Fatalf("SpectralCluster failed: %v", err)
	}
	for i, l := range labels {
		if l < 0 || l >= 2 {
			t.Errorf("Sample %d: label %d out of range [0,2)", i, l)
		}
	}

	// The two tight groups should not be merged.
	if labels[0] != labels[1] || labels[1] != labels[2] {
		t.Errorf("Expected first group in one cluster, got %v", labels[:3])
	}
	if labels[0] == labels[3] {
		t.Errorf("Expected the two groups separated, got %v", labels)
	}
}

func TestSpectralCluster_InsufficientSamples(t *testing.T) {
	X := [][]float64{{0, 0}, {1, 1}}
	_, err := SpectralCluster(X, 5, 1)

	var insufficient *InsufficientSamplesError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientSamplesError, got %v", err)
	}
	if insufficient.Need != 5 || insufficient.Got != 2 {
		t.Errorf("Expected need=5 got=2, got need=%d got=%d", insufficient.Need, insufficient.Got)
	}
}

func TestSpectralCluster_Deterministic(t *testing.T) {
	X := [][]float64{
		{0, 0}, {0.2, 0}, {5, 5}, {5.2, 5}, {2.5, 2.5},
	}
	a, err := SpectralCluster(X, 2, 99)
	if err != nil {
		t.Fatalf("SpectralCluster failed: %v", err)
	}
	b, err := SpectralCluster(X, 2, 99)
	if err != nil {
		t.Fatalf("SpectralCluster failed: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Expected identical labels for identical seed, got %v vs %v", a, b)
		}
	}
}

func TestPropagate_AlphaZeroPreservesSeeds(t *testing.T) {
	X := [][]float64{
		{0, 0}, {0.1, 0}, {10, 10}, {10.1, 10},
	}
	seeds := []int{0, UnknownLabel, 1, UnknownLabel}

	out, err := Propagate(X, seeds, 2, 0)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	if out[0] != 0 {
		t.Errorf("Expected seed 0 preserved under alpha=0, got %d", out[0])
	}
	if out[2] != 1 {
		t.Errorf("Expected seed 1 preserved under alpha=0, got %d", out[2])
	}
}

func TestPropagate_AssignsByProximity(t *testing.T) {
	// One seeded sample, one unlabeled: the unlabeled sample takes the
	// label of its feature-space neighbor.
	X := [][]float64{
		{0, 0}, {0.5, 0},
	}
	seeds := []int{0, UnknownLabel}

	out, err := Propagate(X, seeds, 1, 0)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	if out[0] != 0 {
		t.Errorf("Expected first sample to keep label 0, got %d", out[0])
	}
	if out[1] != 0 {
		t.Errorf("Expected second sample assigned label 0 by proximity, got %d", out[1])
	}
}

func TestPropagate_SpreadsAcrossGraph(t *testing.T) {
	X := [][]float64{
		{0, 0}, {0.2, 0}, {0.4, 0},
		{10, 0}, {10.2, 0}, {10.4, 0},
	}
	seeds := []int{5, UnknownLabel, UnknownLabel, 9, UnknownLabel, UnknownLabel}

	out, err := Propagate(X, seeds, 2, 0.9)
	if err != nil {
		t.Fatalf("Propagate failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if out[i] != 5 {
			t.Errorf("Sample %d: expected label 5, got %d", i, out[i])
		}
	}
	for i := 3; i < 6; i++ {
		if out[i] != 9 {
			t.Errorf("Sample %d: expected label 9, got %d", i, out[i])
		}
	}
}

func TestPropagate_AllUnknown(t *testing.T) {
	X := [][]float64{{0}, {1}}
	seeds := []int{UnknownLabel, UnknownLabel}

	if _, err := Propagate(X, seeds, 1, 0.5); !errors.Is(err, ErrNoSeedLabels) {
		t.Errorf("Expected ErrNoSeedLabels, got %v", err)
	}
}

func TestEmbed_TooSmall(t *testing.T) {
	emb := Embed([][]float64{{1, 2}}, 5, 0.1, 1)
	if emb.Available {
		t.Error("Expected embedding unavailable for a single sample")
	}
}

func TestEmbed_ClampsNeighbors(t *testing.T) {
	// neighbors larger than n-1 must not panic; it is clamped.
	X := [][]float64{{0, 0}, {1, 1}, {2, 2}}
	emb := Embed(X, 50, 0.1, 1)
	if !emb.Available {
		t.Fatal("Expected embedding available for 3 samples")
	}
	if len(emb.Coords) != 3 {
		t.Errorf("Expected 3 coordinate pairs, got %d", len(emb.Coords))
	}
}

func TestEmbed_Deterministic(t *testing.T) {
	X := [][]float64{
		{0, 0}, {0.1, 0}, {5, 5}, {5.1, 5}, {2, 2},
	}
	a := Embed(X, 2, 0.1, 11)
	b := Embed(X, 2, 0.1, 11)
	for i := range a.Coords {
		if a.Coords[i] != b.Coords[i] {
			t.Fatalf("Expected identical coordinates for identical seed at %d: %v vs %v",
				i, a.Coords[i], b.Coords[i])
		}
	}
}
