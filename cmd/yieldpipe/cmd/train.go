package cmd

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/agriml/yieldpipe/ingest"
	"github.com/agriml/yieldpipe/store"
	"github.com/agriml/yieldpipe/train"
)

var (
	trainFeatures      []string
	trainTarget        string
	trainTestSize      float64
	trainSeed          int64
	trainEstimators    int
	trainAllowMissing  bool
	trainDropNA        bool
	trainCSV           string
	trainModelPath     string
	trainPredictBatch  bool
	trainPredictOutput string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the yield model from the feature store or the snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		modelPath := trainModelPath
		if modelPath == "" {
			modelPath = cfg.Paths.Model
		}
		snapshot := trainCSV
		if snapshot == "" {
			snapshot = cfg.Paths.Snapshot
		}

		var st *store.Store
		if cfg.Store.DSN != "" {
			var err error
			if st, err = store.Open(cfg.Store.DSN, logger); err != nil {
				logger.Warn().Err(err).Msg("store unreachable, training from snapshot")
				st = nil
			}
		}
		resolver := train.NewResolver(st, snapshot, logger)

		pipeline := train.NewPipeline(resolver, modelPath, logger)
		res, err := pipeline.Run(cmd.Context(), train.Request{
			FeatureColumns:       trainFeatures,
			TargetColumn:         trainTarget,
			TestFraction:         trainTestSize,
			Seed:                 trainSeed,
			NumEstimators:        trainEstimators,
			AllowMissingFeatures: trainAllowMissing,
			DropNA:               trainDropNA,
		})
		if err != nil {
			return err
		}

		fmt.Printf("trained on %d samples (%d train / %d test) from %s\n",
			res.Samples, res.TrainSamples, res.TestSamples, res.Source)
		printSplit("train", res.Train)
		printSplit("test", res.Test)
		fmt.Printf("model saved to %s\n", res.ModelPath)

		if !trainPredictBatch {
			return nil
		}
		predictor, err := train.NewPredictor(modelPath, logger)
		if err != nil {
			return err
		}
		out, err := predictor.BatchPredict(cmd.Context(), resolver, trainPredictOutput)
		if err != nil {
			return err
		}
		fmt.Printf("batch predictions for %d rows", out.NumRows())
		if trainPredictOutput != "" {
			fmt.Printf(" written to %s", trainPredictOutput)
		}
		fmt.Println()
		return nil
	},
}

func printSplit(name string, m train.SplitMetrics) {
	r2 := "n/a"
	if !math.IsNaN(m.R2) {
		r2 = fmt.Sprintf("%.4f", m.R2)
	}
	fmt.Printf("%s: r2=%s mae=%.4f mse=%.4f rmse=%.4f\n", name, r2, m.MAE, m.MSE, m.RMSE)
	if m.Diagnostics != nil {
		fmt.Printf("%s above-median: accuracy=%.4f precision=%.4f recall=%.4f\n",
			name, m.Diagnostics.Accuracy, m.Diagnostics.Precision, m.Diagnostics.Recall)
	}
}

func init() {
	trainCmd.Flags().StringSliceVar(&trainFeatures, "features", []string{
		ingest.ColYear, ingest.ColRainfall, ingest.ColTemperature,
		ingest.ColPesticides, ingest.ColArea, ingest.ColCropType,
	}, "feature columns")
	trainCmd.Flags().StringVar(&trainTarget, "target", ingest.ColCropYield, "target column")
	trainCmd.Flags().Float64Var(&trainTestSize, "test-size", 0.2, "held-out fraction")
	trainCmd.Flags().Int64Var(&trainSeed, "seed", 42, "random seed")
	trainCmd.Flags().IntVar(&trainEstimators, "n-estimators", 200, "boosting rounds")
	trainCmd.Flags().BoolVar(&trainAllowMissing, "allow-missing", false, "drop unresolvable feature columns instead of failing")
	trainCmd.Flags().BoolVar(&trainDropNA, "drop-na", false, "drop incomplete rows instead of imputing")
	trainCmd.Flags().StringVar(&trainCSV, "train-csv", "", "snapshot CSV override")
	trainCmd.Flags().StringVar(&trainModelPath, "model-path", "", "bundle output path")
	trainCmd.Flags().BoolVar(&trainPredictBatch, "predict-batch", false, "score the training data with the fresh model")
	trainCmd.Flags().StringVar(&trainPredictOutput, "predict-output", "", "batch prediction CSV path")
	rootCmd.AddCommand(trainCmd)
}
