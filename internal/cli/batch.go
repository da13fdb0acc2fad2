package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/linreg/internal/logging"
	"github.com/ppiankov/linreg/internal/pipeline"
	"github.com/ppiankov/linreg/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	chartFormat  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <manifest>",
	Short: "Analyze many data sources in parallel",
	Long: `Batch analyzes every source listed in a manifest file, one per line:

  LOCATION [x=COLUMN] [y=COLUMN] [table=N] [format=csv|html]

LOCATION is a file path or an http(s) URL. Blank lines and lines starting
with # are ignored; duplicate lines are analyzed once. Remote sources are
rate limited per host. Each source gets a JSON report, a Markdown report and
a chart in the output directory.

Example:
  linreg batch sources.txt
  linreg batch sources.txt --x-col hours --y-col score --concurrency 8 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./linreg-reports", "output directory for reports")
	batchCmd.Flags().StringVar(&chartFormat, "chart-format", "png", "chart format (png, svg, none)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	batchCmd.Flags().StringVar(&xColumn, "x-col", "", "default x column for sources that name none")
	batchCmd.Flags().StringVar(&yColumn, "y-col", "", "default y column for sources that name none")
	batchCmd.Flags().StringSliceVar(&predictArgs, "predict", nil, "x values to predict for every source")
	batchCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the fetch cache")

	addLLMFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	manifest := args[0]

	switch chartFormat {
	case "png", "svg", "none":
	default:
		return fmt.Errorf("invalid chart format %q (want png, svg or none)", chartFormat)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if cmd.Flags().Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	errOut := cmd.ErrOrStderr()
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "  linreg batch\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "  Manifest:     %s\n", manifest)
	fmt.Fprintf(errOut, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(errOut, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(errOut, "  Timeout:      %v\n", batchTimeout)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(errOut, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	}
	fmt.Fprintf(errOut, "\n")

	sources, err := worker.ReadSourcesFromFile(manifest)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p := pipeline.NewPipeline(ctx, cfg)
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize).
		WithRequest(pipeline.Request{Predict: predictArgs, NoCache: noCache, NoLLM: noLLM}).
		WithDefaultColumns(xColumn, yColumn)

	results := processor.ProcessSources(ctx, sources)

	successCount := 0
	for i, result := range results {
		if result.Error != nil {
			fmt.Fprintf(errOut, "✗ %s: %v\n", result.Source.Label(), describeError(result.Error))
			continue
		}

		base := filepath.Join(outputDir, fmt.Sprintf("%02d-%s", i+1, sanitizeFilename(result.Report.Subject)))
		out := pipeline.Outputs{
			JSONPath:     base + ".json",
			MarkdownPath: base + ".md",
		}
		if chartFormat != "none" {
			out.ChartPath = base + "." + chartFormat
		}

		if err := p.RenderReport(ctx, result.Report, out); err != nil {
			logger.Warnw("render failed", "source", result.Source.Label(), "error", err)
			fmt.Fprintf(errOut, "✗ %s: %v\n", result.Source.Label(), err)
			continue
		}

		successCount++
		fmt.Fprintf(errOut, "✓ %s  %s  R² = %.*f\n",
			result.Report.Subject,
			result.Report.Model.Equation(cfg.Output.Precision),
			cfg.Output.Precision, result.Report.Model.RSquared)
	}

	failureCount := len(results) - successCount

	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "  Batch Complete\n")
	fmt.Fprintf(errOut, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(errOut, "\n")
	fmt.Fprintf(errOut, "  Total:     %d sources\n", len(results))
	fmt.Fprintf(errOut, "  Success:   %d\n", successCount)
	fmt.Fprintf(errOut, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(errOut, "  Output:    %s\n", outputDir)
	fmt.Fprintf(errOut, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d sources failed", failureCount, len(results))
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename turns a report subject into a safe file name
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".-_")

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "report"
	}

	return s
}
