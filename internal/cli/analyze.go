package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ppiankov/linreg/internal/logging"
	"github.com/ppiankov/linreg/internal/model"
	"github.com/ppiankov/linreg/internal/pipeline"
)

var (
	xList       string
	yList       string
	filePath    string
	sourceURL   string
	xColumn     string
	yColumn     string
	tableIndex  int
	format      string
	predictArgs []string
	outJSON     string
	outMD       string
	outChart    string
	saveModel   string
	timeout     time.Duration
	noCache     bool
	insecureTLS bool
	llmProvider string
	llmModel    string
	noLLM       bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [FILE|URL [x=COL] [y=COL] [table=N] [format=csv|html]]",
	Short: "Fit a regression line and report fit statistics",
	Long: `Analyze validates two numeric series, fits y = mx + b by ordinary
least squares, and reports slope, intercept, R² and Pearson r.

Data sources (exactly one):
  --x and --y       comma, semicolon or newline separated lists
  FILE or --file    CSV (delimiter auto-detected) or HTML table
  URL or --url      remote CSV or HTML page (cached, robots.txt aware)

Example:
  linreg analyze --x 15,14,17,16,15 --y 2,0,3,4,3 --predict 20
  linreg analyze grades.csv --x-col hours --y-col score --chart fit.png
  linreg analyze stats.html x=hours y=score table=2
  linreg analyze https://example.com/stats.html --table 1 --json report.json`,
	Args: cobra.ArbitraryArgs,
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Source flags
	analyzeCmd.Flags().StringVar(&xList, "x", "", "independent values (inline list)")
	analyzeCmd.Flags().StringVar(&yList, "y", "", "dependent values (inline list)")
	analyzeCmd.Flags().StringVar(&filePath, "file", "", "CSV or HTML file")
	analyzeCmd.Flags().StringVar(&sourceURL, "url", "", "URL of a CSV file or HTML page")
	analyzeCmd.Flags().StringVar(&xColumn, "x-col", "", "x column name (default: first column)")
	analyzeCmd.Flags().StringVar(&yColumn, "y-col", "", "y column name (default: next column)")
	analyzeCmd.Flags().IntVar(&tableIndex, "table", 0, "HTML table index (0-based, layout tables skipped)")
	analyzeCmd.Flags().StringVar(&format, "format", "", "force source format (csv, html)")

	// Output flags
	analyzeCmd.Flags().StringSliceVar(&predictArgs, "predict", nil, "x values to predict (repeatable or comma separated)")
	analyzeCmd.Flags().StringVar(&outJSON, "json", "", "output JSON report path")
	analyzeCmd.Flags().StringVar(&outMD, "md", "", "output Markdown report path")
	analyzeCmd.Flags().StringVar(&outChart, "chart", "", "output chart path (.png or .svg)")
	analyzeCmd.Flags().StringVar(&saveModel, "save-model", "", "save the fitted model for 'linreg predict'")

	// HTTP flags
	analyzeCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the fetch cache")
	analyzeCmd.Flags().BoolVar(&insecureTLS, "insecure", false, "skip TLS certificate verification")

	// LLM flags
	addLLMFlags(analyzeCmd)
}

func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&llmProvider, "llm", "", "LLM provider for a narrative summary (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "disable the LLM summary even if configured")
}

// applyFlags overlays explicitly set flags on the loaded config
func applyFlags(cmd *cobra.Command, cfg *model.Config) {
	if cmd.Flags().Changed("insecure") {
		cfg.HTTP.InsecureTLS = insecureTLS
	}
	if cmd.Flags().Changed("no-cache") && noCache {
		cfg.Cache.Enabled = false
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if noLLM {
		cfg.LLM.Provider = ""
	}
}

// sourceFromFlags picks the single data source named on the command line.
// Options given with the positional source (x=, y=, table=, format=) are
// kept unless the matching flag is set explicitly.
func sourceFromFlags(flags *pflag.FlagSet, args []string) (pipeline.Source, error) {
	var candidates []pipeline.Source

	if xList != "" || yList != "" {
		candidates = append(candidates, pipeline.Source{Kind: pipeline.SourceInline, XList: xList, YList: yList})
	}
	if filePath != "" {
		candidates = append(candidates, pipeline.Source{Kind: pipeline.SourceFile, Location: filePath})
	}
	if sourceURL != "" {
		candidates = append(candidates, pipeline.Source{Kind: pipeline.SourceURL, Location: sourceURL})
	}
	if len(args) > 0 {
		src, err := pipeline.ParseSource(strings.Join(args, " "))
		if err != nil {
			return pipeline.Source{}, err
		}
		candidates = append(candidates, src)
	}

	switch len(candidates) {
	case 0:
		return pipeline.Source{}, fmt.Errorf("no data: use --x/--y, a file or a URL")
	case 1:
	default:
		return pipeline.Source{}, fmt.Errorf("more than one data source given")
	}

	src := candidates[0]
	if flags.Changed("x-col") {
		src.XColumn = xColumn
	}
	if flags.Changed("y-col") {
		src.YColumn = yColumn
	}
	if flags.Changed("table") {
		if tableIndex < 0 {
			return pipeline.Source{}, fmt.Errorf("invalid table index %d", tableIndex)
		}
		src.TableIndex = tableIndex
	}
	if flags.Changed("format") {
		switch f := pipeline.Format(strings.ToLower(format)); f {
		case pipeline.FormatAuto, pipeline.FormatCSV, pipeline.FormatHTML:
			src.Format = f
		default:
			return pipeline.Source{}, fmt.Errorf("invalid format %q (want csv or html)", format)
		}
	}
	if src.Kind == pipeline.SourceInline && (src.XColumn != "" || src.YColumn != "") {
		return pipeline.Source{}, fmt.Errorf("--x-col/--y-col apply to files and URLs only")
	}

	return src, nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	src, err := sourceFromFlags(cmd.Flags(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()
	logger := logging.FromContext(ctx)
	logger.Debugw("analyzing", "source", src.Label(), "cache", cfg.Cache.Enabled, "llm", cfg.LLM.Provider)

	p := pipeline.NewPipeline(ctx, cfg)

	result, err := p.Analyze(ctx, pipeline.Request{
		Source:  src,
		Predict: predictArgs,
		NoCache: noCache,
		NoLLM:   noLLM,
	})
	if err != nil {
		return describeError(err)
	}

	p.Renderer().Summary(cmd.OutOrStdout(), result.Report)

	if err := p.RenderReport(ctx, result.Report, pipeline.Outputs{
		JSONPath:     outJSON,
		MarkdownPath: outMD,
		ChartPath:    outChart,
		ModelPath:    saveModel,
	}); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if result.Report.LLM != nil {
		for _, w := range result.Report.LLM.Warnings {
			logger.Debugw("llm", "note", w)
		}
		if result.Report.LLM.Enabled && outMD == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", result.Report.LLM.SummaryMD)
		}
	}

	return nil
}

// errorHints explains taxonomy errors in user terms
var errorHints = map[string]string{
	"EmptyInput":           "both series need at least one value",
	"LengthMismatch":       "x and y must have the same number of values",
	"NonNumericValue":      "every value must be a finite number",
	"InsufficientPoints":   "at least two points are needed to fit a line",
	"UndefinedCorrelation": "one series has no variance, so correlation is undefined",
	"DegenerateInput":      "all x values are identical (no variance), so no line can be fitted",
	"NonFiniteResult":      "the computation overflowed; the values are too large",
	"ModelUnavailable":     "no usable fitted model",
	"NonNumericInput":      "the value to predict must be a finite number",
}

// AnalysisError is a failed analysis with its taxonomy kind
type AnalysisError struct {
	Kind string
	Err  error
}

func (e *AnalysisError) Error() string {
	if hint, ok := errorHints[e.Kind]; ok {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, hint, e.Err)
	}
	return e.Err.Error()
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// describeError attaches the taxonomy kind and a hint to err
func describeError(err error) error {
	if err == nil {
		return nil
	}
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return err
	}
	return &AnalysisError{Kind: model.ErrorKind(err), Err: err}
}

// exitCode maps an error to the process exit status
func exitCode(err error) int {
	var ae *AnalysisError
	if errors.As(err, &ae) && ae.Kind != "" {
		return 2
	}
	return 1
}

// Main runs the CLI and returns the process exit status
func Main() int {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}
