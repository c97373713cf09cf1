// Package features turns one vantage point's batch of flow records into
// a fixed-schema feature vector. Extraction is a pure function: missing
// or partial record fields degrade the affected statistic to zero, they
// never produce an error.
package features

import (
	"math"
	"sort"
	"strconv"

	"github.com/cvalentine99/flowlens/internal/models"
)

// Extractor computes feature vectors from flow record batches.
type Extractor struct{}

// NewExtractor creates a feature extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract computes the feature vector for one batch of records. The
// returned vector always has the full schema, regardless of how many
// records (including zero) were supplied.
func (e *Extractor) Extract(records []models.FlowRecord) models.FeatureVector {
	var fv models.FeatureVector

	fv.IntervalMean, fv.IntervalVar = intervalStats(records)
	fv.SizeMean, fv.SizeStd = sizeStats(records)

	sizes := make([]string, 0, len(records))
	for _, r := range records {
		sizes = append(sizes, sizeKey(r.Length))
	}
	fv.SizeEntropy = Entropy(sizes)

	fv.UniqueSrcCount = float64(uniqueCount(records, func(r models.FlowRecord) *string { return r.SrcAddr }))
	fv.UniqueDstCount = float64(uniqueCount(records, func(r models.FlowRecord) *string { return r.DstAddr }))

	protos := make([]string, 0, len(records))
	for _, r := range records {
		if r.Protocol != nil {
			protos = append(protos, *r.Protocol)
		}
	}
	fv.ProtocolEntropy = Entropy(protos)
	fv.TransitionComplexity = float64(transitionComplexity(protos))

	return fv
}

// intervalStats sorts timestamps and returns the mean and population
// variance of the inter-arrival gaps. Fewer than 2 timestamps yields
// zeros.
func intervalStats(records []models.FlowRecord) (mean, variance float64) {
	if len(records) < 2 {
		return 0, 0
	}

	ts := make([]float64, len(records))
	for i, r := range records {
		ts[i] = r.Timestamp
	}
	sort.Float64s(ts)

	gaps := make([]float64, len(ts)-1)
	var sum float64
	for i := 1; i < len(ts); i++ {
		gaps[i-1] = ts[i] - ts[i-1]
		sum += gaps[i-1]
	}

	mean = sum / float64(len(gaps))
	for _, g := range gaps {
		diff := g - mean
		variance += diff * diff
	}
	variance /= float64(len(gaps))
	return mean, variance
}

// sizeStats returns the mean and population standard deviation of the
// byte lengths. Fewer than 2 sizes yields zeros.
func sizeStats(records []models.FlowRecord) (mean, std float64) {
	if len(records) < 2 {
		return 0, 0
	}

	var sum float64
	for _, r := range records {
		sum += float64(r.Length)
	}
	mean = sum / float64(len(records))

	var variance float64
	for _, r := range records {
		diff := float64(r.Length) - mean
		variance += diff * diff
	}
	variance /= float64(len(records))
	return mean, math.Sqrt(variance)
}

// Entropy returns the Shannon entropy in bits of a categorical
// multiset's empirical distribution. An empty multiset has entropy 0.
func Entropy(categories []string) float64 {
	if len(categories) == 0 {
		return 0
	}

	freq := make(map[string]int)
	for _, c := range categories {
		freq[c]++
	}

	var entropy float64
	total := float64(len(categories))
	for _, count := range freq {
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// transitionComplexity counts the distinct ordered pairs of consecutive
// protocol values, a coarse proxy for a full transition model.
func transitionComplexity(protos []string) int {
	if len(protos) < 2 {
		return 0
	}

	seen := make(map[[2]string]struct{})
	for i := 1; i < len(protos); i++ {
		seen[[2]string{protos[i-1], protos[i]}] = struct{}{}
	}
	return len(seen)
}

func uniqueCount(records []models.FlowRecord, field func(models.FlowRecord) *string) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		if v := field(r); v != nil {
			seen[*v] = struct{}{}
		}
	}
	return len(seen)
}

// sizeKey treats each exact byte length as its own category for the
// size-distribution entropy estimate.
func sizeKey(length uint32) string {
	return strconv.FormatUint(uint64(length), 10)
}
