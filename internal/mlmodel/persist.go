package mlmodel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ludarr/ludarr/internal/agent"
)

// SnapshotVersion is bumped when the on-disk model format changes.
const SnapshotVersion = 1

// Snapshot is the persisted form of a trained ensemble.
type Snapshot struct {
	Version     int       `json:"version"`
	TrainedAt   time.Time `json:"trainedAt"`
	SampleCount int       `json:"sampleCount"`
	Metrics     Metrics   `json:"metrics"`
	Ensemble    *Ensemble `json:"ensemble"`
}

// SaveSnapshot writes the snapshot as JSON via a temp file + rename so a
// crash mid-write never leaves a truncated model behind.
func SaveSnapshot(path string, snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace model: %w", err)
	}
	return nil
}

// LoadSnapshot reads and validates a persisted model.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode model: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported model version %d", snap.Version)
	}
	if snap.Ensemble == nil || snap.Ensemble.Logistic == nil || snap.Ensemble.GBT == nil {
		return nil, fmt.Errorf("model snapshot is incomplete")
	}
	if len(snap.Ensemble.Features) == 0 {
		return nil, fmt.Errorf("model snapshot has no feature list")
	}
	return &snap, nil
}

// LoadSamples reads a JSON array of labeled training samples.
func LoadSamples(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("failed to decode samples: %w", err)
	}
	return samples, nil
}

// Holder keeps the active ensemble behind a lock so searches can predict
// while a retrain swaps the model in.
type Holder struct {
	mu        sync.RWMutex
	ensemble  *Ensemble
	extractor *Extractor
	path      string
	logger    zerolog.Logger
}

// NewHolder creates a holder bound to a model file. The model is not loaded
// until Reload is called.
func NewHolder(path string, logger zerolog.Logger) *Holder {
	return &Holder{
		path:   path,
		logger: logger.With().Str("component", "mlmodel").Logger(),
	}
}

// Reload reads the model file and swaps it in. A missing or unreadable file
// leaves the holder empty; scoring then falls back to heuristics only.
func (h *Holder) Reload() error {
	snap, err := LoadSnapshot(h.path)
	if err != nil {
		h.logger.Warn().Err(err).Str("path", h.path).Msg("Model unavailable, scoring falls back to heuristics")
		return err
	}

	h.mu.Lock()
	h.ensemble = snap.Ensemble
	h.extractor = NewExtractorWithNames(snap.Ensemble.Features)
	h.mu.Unlock()

	h.logger.Info().
		Time("trainedAt", snap.TrainedAt).
		Int("samples", snap.SampleCount).
		Float64("threshold", snap.Ensemble.Threshold).
		Float64("weight", snap.Ensemble.Weight).
		Msg("Match model loaded")
	return nil
}

// Swap replaces the active ensemble in memory, used right after training.
func (h *Holder) Swap(ensemble *Ensemble) {
	h.mu.Lock()
	h.ensemble = ensemble
	h.extractor = NewExtractorWithNames(ensemble.Features)
	h.mu.Unlock()
}

// Ready reports whether a model is loaded.
func (h *Holder) Ready() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ensemble != nil
}

// Predict returns the blended probability and accept decision for a scored
// candidate. ok is false when no model is loaded.
func (h *Holder) Predict(c *agent.Candidate) (prob float64, accept, ok bool) {
	h.mu.RLock()
	ensemble := h.ensemble
	extractor := h.extractor
	h.mu.RUnlock()

	if ensemble == nil {
		return 0, false, false
	}
	prob, accept = ensemble.Accept(extractor.ExtractCandidate(c))
	return prob, accept, true
}
