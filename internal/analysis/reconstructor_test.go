package analysis

import (
	"errors"
	"math"
	"testing"
)

func TestThreshold_ExactProperty(t *testing.T) {
	// A sample is flagged iff error > mean + k*std, verified against an
	// independent computation on a synthetic error array.
	errs := []float64{1, 2, 3, 4, 100}
	k := 1.0

	var mean float64
	for _, e := range errs {
		mean += e
	}
	mean /= float64(len(errs))
	var variance float64
	for _, e := range errs {
		diff := e - mean
		variance += diff * diff
	}
	variance /= float64(len(errs))
	want := mean + k*math.Sqrt(variance)

	if got := Threshold(errs, k); math.Abs(got-want) > 1e-12 {
		t.Fatalf("Expected threshold %v, got %v", want, got)
	}

	flags := FlagAnomalies(errs, k)
	for i, e := range errs {
		if flags[i] != (e > want) {
			t.Errorf("Sample %d: flag %v inconsistent with error %v vs threshold %v",
				i, flags[i], e, want)
		}
	}
}

func TestThreshold_SingleSample(t *testing.T) {
	// One sample has zero error spread; the threshold equals the error
	// itself and the strict comparison never flags it.
	errs := []float64{3.5}

	if flags := FlagAnomalies(errs, 2); flags[0] {
		t.Error("Expected no flag for a single sample")
	}
	if flags := FlagAnomalies(errs, 0); flags[0] {
		t.Error("Expected no flag for a single sample even with k=0")
	}
}

func TestAutoencoder_FitEmpty(t *testing.T) {
	ae := NewAutoencoder(3, AutoencoderConfig{Seed: 1})
	if err := ae.Fit(nil); !errors.Is(err, ErrEmptyMatrix) {
		t.Errorf("Expected ErrEmptyMatrix, got %v", err)
	}
}

func TestAutoencoder_Deterministic(t *testing.T) {
	X := [][]float64{
		{0.1, 0.2, 0.3},
		{0.2, 0.1, 0.4},
		{0.3, 0.3, 0.1},
	}
	cfg := AutoencoderConfig{HiddenSize: 2, Epochs: 50, LearningRate: 0.01, Momentum: 0.9, Seed: 5}

	a := NewAutoencoder(3, cfg)
	if err := a.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	b := NewAutoencoder(3, cfg)
	if err := b.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	ea, eb := a.ReconstructionErrors(X), b.ReconstructionErrors(X)
	for i := range ea {
		if ea[i] != eb[i] {
			t.Fatalf("Expected identical errors for identical seed, got %v vs %v", ea, eb)
		}
	}
}

func TestAutoencoder_ReconstructionShape(t *testing.T) {
	X := [][]float64{{0.5, -0.5, 0.25, 0}}
	ae := NewAutoencoder(4, AutoencoderConfig{HiddenSize: 2, Epochs: 10, LearningRate: 0.01, Seed: 1})
	if err := ae.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	out := ae.Reconstruct(X[0])
	if len(out) != 4 {
		t.Fatalf("Expected reconstruction of length 4, got %d", len(out))
	}
	if len(ae.Encode(X[0])) != 2 {
		t.Fatalf("Expected bottleneck of width 2")
	}

	errs := ae.ReconstructionErrors(X)
	if len(errs) != 1 || errs[0] < 0 {
		t.Fatalf("Expected one non-negative error, got %v", errs)
	}
}

func TestAutoencoder_OutlierScoresHighest(t *testing.T) {
	// Ten near-identical vectors plus one with a wildly larger second
	// component: after training, only the outlier's error exceeds the
	// adaptive threshold for k=2.
	raw := make([][]float64, 11)
	for i := 0; i < 10; i++ {
		raw[i] = []float64{1, 0.001 * float64(i), 2, 0.5}
	}
	raw[10] = []float64{1, 1000, 2, 0.5}

	X, err := Standardize(raw)
	if err != nil {
		t.Fatalf("Standardize failed: %v", err)
	}

	ae := NewAutoencoder(4, AutoencoderConfig{HiddenSize: 2, Epochs: 300, LearningRate: 0.01, Momentum: 0.9, Seed: 42})
	if err := ae.Fit(X); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	errs := ae.ReconstructionErrors(X)
	maxIdx := 0
	for i, e := range errs {
		if e > errs[maxIdx] {
			maxIdx = i
		}
	}
	if maxIdx != 10 {
		t.Fatalf("Expected outlier to have the largest error, got index %d (%v)", maxIdx, errs)
	}

	flags := FlagAnomalies(errs, 2)
	count := 0
	for _, f := range flags {
		if f {
			count++
		}
	}
	if count != 1 || !flags[10] {
		t.Errorf("Expected exactly the outlier flagged at k=2, flags=%v errors=%v", flags, errs)
	}
}
