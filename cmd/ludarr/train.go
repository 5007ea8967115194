package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/ludarr/ludarr/internal/config"
	"github.com/ludarr/ludarr/internal/mlmodel"
)

var (
	trainSamplesPath string
	trainOutputPath  string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the match model from labeled samples",
	Long: `Train reads a JSON file of labeled match samples, trains the
logistic + boosted-tree ensemble, and writes a model snapshot the server
loads at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTrain()
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainSamplesPath, "samples", "", "path to labeled samples JSON (required)")
	trainCmd.Flags().StringVar(&trainOutputPath, "output", "", "snapshot output path (default: model path from config)")
	_ = trainCmd.MarkFlagRequired("samples")
}

func runTrain() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	output := trainOutputPath
	if output == "" {
		output = cfg.Model.Path
	}

	samples, err := mlmodel.LoadSamples(trainSamplesPath)
	if err != nil {
		return fmt.Errorf("failed to load samples: %w", err)
	}
	if len(samples) < 10 {
		return fmt.Errorf("need at least 10 samples to train, got %d", len(samples))
	}

	positives := 0
	for _, s := range samples {
		if s.Label == 1 {
			positives++
		}
	}
	fmt.Printf("Training on %d samples (%d positive, %d negative)\n",
		len(samples), positives, len(samples)-positives)

	extractor := mlmodel.NewExtractor()
	opts := mlmodel.DefaultTrainOptions()
	opts.MinPrecision = cfg.Model.MinPrecision

	ensemble, metrics := mlmodel.TrainEnsemble(extractor, samples, opts)

	snap := &mlmodel.Snapshot{
		Version:     mlmodel.SnapshotVersion,
		TrainedAt:   time.Now().UTC(),
		SampleCount: len(samples),
		Metrics:     metrics,
		Ensemble:    ensemble,
	}
	if err := mlmodel.SaveSnapshot(output, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	fmt.Printf("\nHoldout metrics: precision=%.3f recall=%.3f f1=%.3f accuracy=%.3f\n",
		metrics.Precision, metrics.Recall, metrics.F1, metrics.Accuracy)
	fmt.Printf("Blend: weight=%.1f threshold=%.2f\n\n", ensemble.Weight, ensemble.Threshold)

	printFeatureImportance(extractor, ensemble)

	fmt.Printf("\nModel written to %s\n", output)
	return nil
}

// printFeatureImportance renders the boosted-tree split counts per feature.
// The logistic half has no comparable per-feature measure, so the table
// covers the GBT side only.
func printFeatureImportance(extractor *mlmodel.Extractor, ensemble *mlmodel.Ensemble) {
	names := extractor.Names()
	counts := ensemble.GBT.FeatureImportance(len(names))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Feature", "Splits"})
	for i, name := range names {
		t.AppendRow(table.Row{name, counts[i]})
	}
	t.Render()
}
