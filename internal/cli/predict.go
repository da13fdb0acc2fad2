package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/linreg/internal/model"
	"github.com/ppiankov/linreg/internal/pipeline"
	"github.com/ppiankov/linreg/internal/regress"
)

var modelPath string

// predictCmd represents the predict command
var predictCmd = &cobra.Command{
	Use:   "predict --model PATH VALUE...",
	Short: "Predict y for new x values with a saved model",
	Long: `Predict applies a model saved with 'linreg analyze --save-model' to
new x values. Each value is checked on its own; one bad value does not stop
the others.

Example:
  linreg analyze grades.csv --save-model grades.model.json
  linreg predict --model grades.model.json 20 21.5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPredict,
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVarP(&modelPath, "model", "m", "", "fitted model file (required)")
	_ = predictCmd.MarkFlagRequired("model")
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	m, err := pipeline.LoadModel(modelPath)
	if err != nil {
		return describeError(err)
	}

	inputs := make([]any, len(args))
	for i, a := range args {
		inputs[i] = a
	}

	out := cmd.OutOrStdout()
	var firstErr error
	failed := 0
	for _, o := range regress.PredictMany(m, inputs) {
		if o.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = o.Err
			}
			fmt.Fprintf(out, "%v\terror: %s\n", o.Input, model.ErrorKind(o.Err))
			continue
		}
		fmt.Fprintf(out, "%v\t%.*f\n", o.Input, cfg.Output.Precision, o.Value)
	}

	if failed > 0 {
		return &AnalysisError{
			Kind: model.ErrorKind(firstErr),
			Err:  fmt.Errorf("%d of %d predictions failed: %w", failed, len(args), firstErr),
		}
	}
	return nil
}
