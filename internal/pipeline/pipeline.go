// Package pipeline sequences the flowlens analysis stages over one
// run's record batches: feature extraction, normalization, manifold
// embedding, the clustering ensemble, label propagation, anomaly
// scoring, and a single atomic persistence step. Stages execute
// strictly sequentially; each consumes the full output of the previous
// one.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/cvalentine99/flowlens/internal/analysis"
	"github.com/cvalentine99/flowlens/internal/config"
	"github.com/cvalentine99/flowlens/internal/features"
	"github.com/cvalentine99/flowlens/internal/logging"
	"github.com/cvalentine99/flowlens/internal/metrics"
	"github.com/cvalentine99/flowlens/internal/models"
	"github.com/cvalentine99/flowlens/internal/store"
)

// Runner orchestrates one analysis run at a time. It owns the in-memory
// feature matrix for the duration of a run; persisted rows are owned by
// the store.
type Runner struct {
	cfg       *config.Config
	store     store.Store
	extractor *features.Extractor
	log       *logging.Logger
}

// NewRunner creates a runner over the given configuration and store.
func NewRunner(cfg *config.Config, st store.Store) *Runner {
	return &Runner{
		cfg:       cfg,
		store:     st,
		extractor: features.NewExtractor(),
		log:       logging.PipelineLogger(),
	}
}

// Run executes the full pipeline over the supplied batches, keyed by
// vantage point. A run that extracts zero feature vectors completes
// cleanly without touching the store. Precondition failures
// (InsufficientSamplesError) abort before any write; persistence
// failures abort with everything rolled back.
func (r *Runner) Run(ctx context.Context, batches map[string][]models.FlowRecord) (*RunOutput, error) {
	start := time.Now()
	out := &RunOutput{
		RunID:     uuid.NewString(),
		Timestamp: start,
	}

	// Extraction order follows the configured vantage list; batches for
	// unconfigured vantage points are taken in sorted order after it.
	for _, vp := range r.vantageOrder(batches) {
		records := batches[vp]
		if len(records) == 0 {
			r.log.Debug("empty batch", "vantage_point", vp)
			continue
		}
		vec := r.extractor.Extract(records)
		out.VantagePoints = append(out.VantagePoints, vp)
		out.Vectors = append(out.Vectors, vec)
		metrics.FeatureVectors.Inc()
	}

	if len(out.Vectors) == 0 {
		out.Empty = true
		r.log.Info("no features extracted", "run_id", out.RunID)
		metrics.RunsTotal.WithLabelValues("empty").Inc()
		return out, nil
	}

	matrix := make([][]float64, len(out.Vectors))
	for i := range out.Vectors {
		matrix[i] = out.Vectors[i].ToSlice()
	}

	normalized, err := analysis.Standardize(matrix)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("pipeline: normalize: %w", err)
	}

	out.Embedding = analysis.Embed(normalized, r.cfg.Embedding.Neighbors, r.cfg.Embedding.MinDist, r.cfg.Seed)
	if !out.Embedding.Available {
		r.log.Info("embedding unavailable", "samples", len(normalized))
	}

	out.DBSCANLabels, err = analysis.DBSCAN(normalized, r.cfg.Clustering.Epsilon, r.cfg.Clustering.MinSamples)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("pipeline: density clustering: %w", err)
	}

	out.SpectralLabels, err = analysis.SpectralCluster(normalized, r.cfg.Clustering.KClusters, r.cfg.Seed)
	if err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("pipeline: spectral clustering: %w", err)
	}

	if err := r.refine(normalized, out); err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := r.score(normalized, out); err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if err := r.persist(ctx, out); err != nil {
		metrics.RunsTotal.WithLabelValues("error").Inc()
		metrics.StoreWriteFailures.Inc()
		return nil, err
	}

	elapsed := time.Since(start)
	metrics.RunsTotal.WithLabelValues("ok").Inc()
	metrics.RunDuration.Observe(elapsed.Seconds())
	r.log.Info("run complete",
		logging.Run(out.RunID, len(out.Vectors)),
		"anomalies", countFlags(out.AnomalyFlags),
		logging.Duration("elapsed", elapsed),
	)
	return out, nil
}

// refine runs semi-supervised label propagation from the configured
// seed labels. A run with no configured seeds skips refinement and
// reports the all-unknown seed vector.
func (r *Runner) refine(normalized [][]float64, out *RunOutput) error {
	seeds := make([]int, len(out.VantagePoints))
	seeded := false
	for i, vp := range out.VantagePoints {
		if label, ok := r.cfg.SeedLabels[vp]; ok {
			seeds[i] = label
			seeded = true
		} else {
			seeds[i] = analysis.UnknownLabel
		}
	}

	if !seeded {
		out.RefinedLabels = seeds
		out.RefinementSkipped = true
		r.log.Debug("no seed labels configured, refinement skipped")
		return nil
	}

	refined, err := analysis.Propagate(normalized, seeds, r.cfg.Refiner.KNeighbors, r.cfg.Refiner.Alpha)
	if err != nil {
		return fmt.Errorf("pipeline: label propagation: %w", err)
	}
	out.RefinedLabels = refined
	return nil
}

// score trains a fresh reconstruction model on the normalized matrix
// and flags samples whose error exceeds the adaptive threshold. A new
// model is constructed every run; no model state is persisted.
func (r *Runner) score(normalized [][]float64, out *RunOutput) error {
	ae := analysis.NewAutoencoder(models.FeatureCount(), analysis.AutoencoderConfig{
		HiddenSize:   r.cfg.Training.HiddenSize,
		Epochs:       r.cfg.Training.Epochs,
		LearningRate: r.cfg.Training.LearningRate,
		Momentum:     0.9,
		Seed:         r.cfg.Seed,
	})
	if err := ae.Fit(normalized); err != nil {
		return fmt.Errorf("pipeline: train reconstructor: %w", err)
	}

	out.ReconErrors = ae.ReconstructionErrors(normalized)
	out.AnomalyFlags = analysis.FlagAnomalies(out.ReconErrors, r.cfg.Anomaly.Multiplier)
	for _, flagged := range out.AnomalyFlags {
		if flagged {
			metrics.AnomaliesFlagged.Inc()
		}
	}
	return nil
}

// persist writes the run's feature and result rows in one transaction.
func (r *Runner) persist(ctx context.Context, out *RunOutput) error {
	featureRows := make([]models.FeatureRow, len(out.Vectors))
	resultRows := make([]models.ResultRow, len(out.Vectors))
	for i := range out.Vectors {
		featureRows[i] = models.FeatureRow{
			Vector:       out.Vectors[i],
			VantagePoint: out.VantagePoints[i],
			Timestamp:    out.Timestamp,
		}
		resultRows[i] = models.ResultRow{
			Result: models.Result{
				DBSCANLabel:   out.DBSCANLabels[i],
				SpectralLabel: out.SpectralLabels[i],
				RefinedLabel:  out.RefinedLabels[i],
				Anomaly:       out.AnomalyFlags[i],
				ReconError:    out.ReconErrors[i],
			},
			VantagePoint: out.VantagePoints[i],
			Timestamp:    out.Timestamp,
		}
	}

	if err := r.store.SaveRun(ctx, featureRows, resultRows); err != nil {
		return fmt.Errorf("pipeline: persist run: %w", err)
	}
	return nil
}

// vantageOrder returns the configured vantage points first, then any
// extra batch keys in sorted order, for deterministic extraction.
func (r *Runner) vantageOrder(batches map[string][]models.FlowRecord) []string {
	order := make([]string, 0, len(batches))
	seen := make(map[string]struct{})
	for _, vp := range r.cfg.VantagePoints {
		if _, ok := batches[vp]; ok {
			order = append(order, vp)
			seen[vp] = struct{}{}
		}
	}
	var extra []string
	for vp := range batches {
		if _, ok := seen[vp]; !ok {
			extra = append(extra, vp)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

func countFlags(flags []bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
