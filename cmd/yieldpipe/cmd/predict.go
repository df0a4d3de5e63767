package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agriml/yieldpipe/pkg/errors"
	"github.com/agriml/yieldpipe/train"
)

var (
	predictInput     string
	predictModelPath string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Score a single record with the saved model",
	Example: `  yieldpipe predict --input '{"year":2020,"rainfall":900,"temperature":18.5,"crop_type_Maize":1}'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		modelPath := predictModelPath
		if modelPath == "" {
			modelPath = cfg.Paths.Model
		}

		var record map[string]interface{}
		if err := json.Unmarshal([]byte(predictInput), &record); err != nil {
			return errors.Wrap(err, "predict: parse --input")
		}

		predictor, err := train.NewPredictor(modelPath, logger)
		if err != nil {
			return err
		}
		value, err := predictor.PredictOne(record)
		if err != nil {
			return err
		}

		out, err := json.Marshal(map[string]interface{}{
			"target":     predictor.TargetColumn(),
			"prediction": value,
		})
		if err != nil {
			return errors.Wrap(err, "predict: encode result")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	predictCmd.Flags().StringVar(&predictInput, "input", "", "JSON record to score")
	predictCmd.Flags().StringVar(&predictModelPath, "model-path", "", "bundle path override")
	_ = predictCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(predictCmd)
}
