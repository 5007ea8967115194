package mlmodel

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// syntheticSamples builds a separable training set: positives carry the
// exact-match reason and a high heuristic score, negatives carry wrong-type
// reasons and a low score, with a few noisy rows mixed in.
func syntheticSamples() []Sample {
	var samples []Sample
	for i := 0; i < 40; i++ {
		samples = append(samples, Sample{
			Reasons:        []string{"exact name match", "trusted source", "well seeded"},
			HeuristicScore: 110 + i%20,
			Label:          1,
		})
		samples = append(samples, Sample{
			Reasons:        []string{"name contained in release title", "soundtrack, not a game"},
			HeuristicScore: 15 + i%10,
			Label:          0,
		})
	}
	// Noise: a handful of mislabeled rows so metrics are not trivially 1.0.
	for i := 0; i < 4; i++ {
		samples = append(samples, Sample{
			Reasons:        []string{"name contained in release title"},
			HeuristicScore: 60,
			Label:          i % 2,
		})
	}
	return samples
}

func TestExtractor_Extract(t *testing.T) {
	e := NewExtractor()

	vec := e.Extract([]string{"exact name match", "no seeders", "not a known reason"}, 75)

	if got := vecAt(t, e, vec, "exact_name_match"); got != 1 {
		t.Errorf("exact_name_match = %v, want 1", got)
	}
	if got := vecAt(t, e, vec, "zero_seeders"); got != 1 {
		t.Errorf("zero_seeders = %v, want 1", got)
	}
	if got := vecAt(t, e, vec, "repack_release"); got != 0 {
		t.Errorf("repack_release = %v, want 0", got)
	}
	if got := vecAt(t, e, vec, HeuristicFeature); got != 0.5 {
		t.Errorf("heuristic = %v, want 0.5", got)
	}
}

func TestExtractor_HeuristicClamped(t *testing.T) {
	e := NewExtractor()

	if got := vecAt(t, e, e.Extract(nil, 400), HeuristicFeature); got != 1 {
		t.Errorf("heuristic for 400 = %v, want 1", got)
	}
	if got := vecAt(t, e, e.Extract(nil, -10), HeuristicFeature); got != 0 {
		t.Errorf("heuristic for -10 = %v, want 0", got)
	}
}

func vecAt(t *testing.T, e *Extractor, vec []float64, name string) float64 {
	t.Helper()
	for i, n := range e.Names() {
		if n == name {
			return vec[i]
		}
	}
	t.Fatalf("feature %q not found", name)
	return 0
}

func TestBestThreshold_TiesFavorLowest(t *testing.T) {
	// Perfectly separated: every threshold between 0.3 and 0.7 gives F1=1,
	// so the scan must return the lowest qualifying threshold.
	probs := []float64{0.1, 0.2, 0.8, 0.9}
	labels := []float64{0, 0, 1, 1}

	threshold, m := BestThreshold(probs, labels, DefaultThresholds(), 0)
	if m.F1 != 1 {
		t.Fatalf("F1 = %v, want 1", m.F1)
	}
	if math.Abs(threshold-0.25) > 1e-9 {
		t.Errorf("threshold = %v, want 0.25", threshold)
	}
}

func TestBestThreshold_PrecisionFloor(t *testing.T) {
	// At low thresholds one negative leaks through; the floor forces a
	// higher threshold even though F1 is lower there.
	probs := []float64{0.4, 0.6, 0.7, 0.9}
	labels := []float64{0, 1, 0, 1}

	unconstrained, _ := BestThreshold(probs, labels, DefaultThresholds(), 0)
	constrained, m := BestThreshold(probs, labels, DefaultThresholds(), 1.0)

	if constrained <= unconstrained {
		t.Errorf("constrained threshold %v not above unconstrained %v", constrained, unconstrained)
	}
	if m.Precision < 1.0 {
		t.Errorf("precision = %v, want 1.0", m.Precision)
	}
}

func TestBestThreshold_FloorFallback(t *testing.T) {
	// No threshold can reach precision 1 here; scan must fall back to the
	// unconstrained best instead of returning an empty result.
	probs := []float64{0.9, 0.9}
	labels := []float64{1, 0}

	threshold, m := BestThreshold(probs, labels, DefaultThresholds(), 1.0)
	want, wantM := BestThreshold(probs, labels, DefaultThresholds(), 0)
	if threshold != want || m.F1 != wantM.F1 {
		t.Errorf("fallback = (%v, %v), want (%v, %v)", threshold, m.F1, want, wantM.F1)
	}
}

func TestTrainLogistic_SeparatesData(t *testing.T) {
	e := NewExtractor()
	samples := syntheticSamples()
	features, labels := e.BuildMatrix(samples)

	m := TrainLogistic(features, labels, e.Len(), DefaultLogisticOptions())

	pPos := m.PredictProb(e.Extract([]string{"exact name match", "trusted source"}, 120))
	pNeg := m.PredictProb(e.Extract([]string{"soundtrack, not a game"}, 10))
	if pPos <= pNeg {
		t.Errorf("positive prob %v not above negative prob %v", pPos, pNeg)
	}
	if pPos < 0.6 {
		t.Errorf("positive prob = %v, want >= 0.6", pPos)
	}
}

func TestTrainGBT_SeparatesData(t *testing.T) {
	e := NewExtractor()
	samples := syntheticSamples()
	features, labels := e.BuildMatrix(samples)

	m := TrainGBT(features, labels, e.Len(), DefaultGBTOptions())

	pPos := m.PredictProb(e.Extract([]string{"exact name match", "trusted source"}, 120))
	pNeg := m.PredictProb(e.Extract([]string{"soundtrack, not a game"}, 10))
	if pPos <= pNeg {
		t.Errorf("positive prob %v not above negative prob %v", pPos, pNeg)
	}

	importance := m.FeatureImportance(e.Len())
	total := 0
	for _, c := range importance {
		total += c
	}
	if total == 0 {
		t.Error("no splits recorded across any tree")
	}
}

func TestTrainEnsemble_Deterministic(t *testing.T) {
	e := NewExtractor()
	samples := syntheticSamples()
	opts := DefaultTrainOptions()

	a, metricsA := TrainEnsemble(e, samples, opts)
	b, metricsB := TrainEnsemble(e, samples, opts)

	if a.Weight != b.Weight {
		t.Errorf("weight differs: %v vs %v", a.Weight, b.Weight)
	}
	if a.Threshold != b.Threshold {
		t.Errorf("threshold differs: %v vs %v", a.Threshold, b.Threshold)
	}
	if metricsA != metricsB {
		t.Errorf("metrics differ: %+v vs %+v", metricsA, metricsB)
	}

	probe := e.Extract([]string{"exact name match", "repack release"}, 100)
	if pa, pb := a.PredictProb(probe), b.PredictProb(probe); pa != pb {
		t.Errorf("prediction differs: %v vs %v", pa, pb)
	}
}

func TestTrainEnsemble_AcceptsCleanMatch(t *testing.T) {
	e := NewExtractor()
	ensemble, metrics := TrainEnsemble(e, syntheticSamples(), DefaultTrainOptions())

	if metrics.F1 < 0.8 {
		t.Fatalf("holdout F1 = %v, want >= 0.8", metrics.F1)
	}

	_, accept := ensemble.Accept(e.Extract([]string{"exact name match", "trusted source", "well seeded"}, 125))
	if !accept {
		t.Error("clean match not accepted")
	}
	_, accept = ensemble.Accept(e.Extract([]string{"soundtrack, not a game"}, 10))
	if accept {
		t.Error("soundtrack-only candidate accepted")
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	e := NewExtractor()
	ensemble, metrics := TrainEnsemble(e, syntheticSamples(), DefaultTrainOptions())

	path := filepath.Join(t.TempDir(), "model.json")
	snap := &Snapshot{
		Version:     SnapshotVersion,
		TrainedAt:   time.Now().UTC(),
		SampleCount: 84,
		Metrics:     metrics,
		Ensemble:    ensemble,
	}
	if err := SaveSnapshot(path, snap); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if loaded.Ensemble.Weight != ensemble.Weight || loaded.Ensemble.Threshold != ensemble.Threshold {
		t.Errorf("loaded blend (%v, %v), want (%v, %v)",
			loaded.Ensemble.Weight, loaded.Ensemble.Threshold, ensemble.Weight, ensemble.Threshold)
	}

	probe := e.Extract([]string{"exact name match"}, 90)
	restored := NewExtractorWithNames(loaded.Ensemble.Features)
	if got, want := loaded.Ensemble.PredictProb(restored.Extract([]string{"exact name match"}, 90)), ensemble.PredictProb(probe); got != want {
		t.Errorf("loaded prediction = %v, want %v", got, want)
	}
}

func TestLoadSnapshot_RejectsBadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(`{"version": 99}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSnapshot(path); err == nil {
		t.Error("LoadSnapshot() accepted unsupported version")
	}
}
