// Package models defines the core data structures for flowlens.
// FlowRecord fields that raw capture parsing may fail to recover are
// pointers; a nil field shrinks the sample used for the affected
// statistic and never aborts extraction.
package models

import (
	"time"
)

// FlowRecord is one parsed packet/flow's metadata as delivered by the
// capture collaborator. Timestamp is seconds since epoch.
type FlowRecord struct {
	Timestamp float64 `json:"timestamp"`
	SrcAddr   *string `json:"src_addr,omitempty"`
	DstAddr   *string `json:"dst_addr,omitempty"`
	SrcPort   *int    `json:"src_port,omitempty"`
	DstPort   *int    `json:"dst_port,omitempty"`
	Protocol  *string `json:"protocol,omitempty"`
	Length    uint32  `json:"length"`
}

// FeatureVector is the fixed-schema numeric summary of one vantage
// point's record batch. Field order is the wire/storage order.
type FeatureVector struct {
	IntervalMean         float64 `json:"interval_mean"`
	IntervalVar          float64 `json:"interval_var"`
	SizeMean             float64 `json:"size_mean"`
	SizeStd              float64 `json:"size_std"`
	SizeEntropy          float64 `json:"size_entropy"`
	UniqueSrcCount       float64 `json:"unique_src_count"`
	UniqueDstCount       float64 `json:"unique_dst_count"`
	ProtocolEntropy      float64 `json:"protocol_entropy"`
	TransitionComplexity float64 `json:"transition_complexity"`
}

// ToSlice converts the feature vector to a float64 slice in schema order.
func (f *FeatureVector) ToSlice() []float64 {
	return []float64{
		f.IntervalMean,
		f.IntervalVar,
		f.SizeMean,
		f.SizeStd,
		f.SizeEntropy,
		f.UniqueSrcCount,
		f.UniqueDstCount,
		f.ProtocolEntropy,
		f.TransitionComplexity,
	}
}

// FeatureCount returns the fixed dimensionality of a feature vector.
func FeatureCount() int {
	return 9
}

// FeatureNames returns the schema-order feature names.
func FeatureNames() []string {
	return []string{
		"interval_mean", "interval_var",
		"size_mean", "size_std", "size_entropy",
		"unique_src_count", "unique_dst_count",
		"protocol_entropy", "transition_complexity",
	}
}

// FeatureRow is one persisted flow_features row.
type FeatureRow struct {
	ID           int64         `json:"id"`
	Vector       FeatureVector `json:"vector"`
	VantagePoint string        `json:"vantage_point"`
	Timestamp    time.Time     `json:"timestamp"`
}

// Result is one per-sample analysis outcome: one label per clustering
// algorithm, the refiner's transduction, and the anomaly signal.
// Results are immutable once written.
type Result struct {
	DBSCANLabel   int     `json:"dbscan_label"`
	SpectralLabel int     `json:"spectral_label"`
	RefinedLabel  int     `json:"refined_label"`
	Anomaly       bool    `json:"anomaly"`
	ReconError    float64 `json:"recon_error"`
}

// ResultRow is one persisted results row.
type ResultRow struct {
	ID           int64     `json:"id"`
	Result       Result    `json:"result"`
	VantagePoint string    `json:"vantage_point"`
	Timestamp    time.Time `json:"timestamp"`
}
