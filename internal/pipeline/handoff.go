package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cvalentine99/flowlens/internal/analysis"
	"github.com/cvalentine99/flowlens/internal/models"
)

// RunOutput is the sole interface toward the visualization collaborator:
// every array is aligned by sample index with VantagePoints.
type RunOutput struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`

	// Empty marks a run that extracted zero feature vectors; all other
	// fields are unset and nothing was persisted.
	Empty bool `json:"empty"`

	VantagePoints []string               `json:"vantage_points"`
	Vectors       []models.FeatureVector `json:"vectors"`

	Embedding analysis.Embedding `json:"embedding"`

	DBSCANLabels   []int `json:"dbscan_labels"`
	SpectralLabels []int `json:"spectral_labels"`
	RefinedLabels  []int `json:"refined_labels"`

	// RefinementSkipped is set when no seed labels were configured, in
	// which case RefinedLabels carries the all-unknown seed vector.
	RefinementSkipped bool `json:"refinement_skipped"`

	AnomalyFlags []bool    `json:"anomaly_flags"`
	ReconErrors  []float64 `json:"recon_errors"`
}

// Publisher pushes the latest run output to Redis for the external
// visualization frontend. Publishing is best-effort: a failure is
// surfaced to the caller for logging but never fails the run.
type Publisher struct {
	client *redis.Client
	key    string
}

// NewPublisher connects a handoff publisher from a Redis URL.
func NewPublisher(redisURL, key string) (*Publisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("pipeline: parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pipeline: redis ping: %w", err)
	}
	return &Publisher{client: client, key: key}, nil
}

// Publish JSON-encodes the run output under the configured key.
func (p *Publisher) Publish(ctx context.Context, out *RunOutput) error {
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("pipeline: encode handoff: %w", err)
	}
	if err := p.client.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("pipeline: publish handoff: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
