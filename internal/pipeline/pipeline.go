package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/linreg/internal/llm"
	"github.com/ppiankov/linreg/internal/logging"
	"github.com/ppiankov/linreg/internal/model"
	"github.com/ppiankov/linreg/internal/regress"
	"github.com/ppiankov/linreg/internal/score"
	"github.com/ppiankov/linreg/internal/validate"
)

// Pipeline orchestrates one analysis: load, validate, fit, interpret
type Pipeline struct {
	loader     *Loader
	scorer     *score.Scorer
	renderer   *Renderer
	summarizer *llm.Summarizer // Optional LLM summarizer (nil if disabled)
	config     *model.Config
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(ctx context.Context, cfg *model.Config) *Pipeline {
	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg))
		if err != nil {
			logging.FromContext(ctx).Warnw("failed to initialize LLM provider", "provider", cfg.LLM.Provider, "error", err)
		} else {
			summarizer = s
		}
	}

	return &Pipeline{
		loader:     NewLoader(NewFetcherFromConfig(cfg)),
		scorer:     score.NewScorer(),
		renderer:   NewRenderer(cfg.Output.Precision, cfg.Chart.Width, cfg.Chart.Height),
		summarizer: summarizer,
		config:     cfg,
	}
}

// Request is one analysis to run
type Request struct {
	Source  Source
	Predict []string // Raw x values to predict, checked one by one
	NoCache bool
	NoLLM   bool
}

// AnalysisResult contains the complete analysis result
type AnalysisResult struct {
	Report *model.Report
}

// Analyze runs the full analysis for req. Input and fit errors are returned
// unchanged in kind (see model.ErrorKind); an undefined correlation is
// recorded on the report instead, since the line can still be fitted.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*AnalysisResult, error) {
	logger := logging.FromContext(ctx).With("source", req.Source.Label())

	// 1. Load raw columns
	loaded, err := p.loader.Load(ctx, req.Source, req.NoCache)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	logger.Debugw("source loaded", "x_column", loaded.Columns.XName, "y_column", loaded.Columns.YName, "rows", len(loaded.Columns.X))

	// 2. Validate
	ds, err := validate.ValidateStrings(loaded.Columns.X, loaded.Columns.Y)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	report, err := p.analyzeDataset(ds)
	if err != nil {
		return nil, err
	}
	report.Subject = loaded.Subject
	report.Source = loaded.Location
	report.FetchMeta = loaded.Meta

	// 6. Predictions requested with the analysis
	if len(req.Predict) > 0 {
		inputs := make([]any, len(req.Predict))
		for i, v := range req.Predict {
			inputs[i] = v
		}
		report.Predictions = regress.ToPredictions(regress.PredictMany(&report.Model, inputs))
	}

	// 7. Narrative (AFTER all numbers are final, never affects them)
	if !req.NoLLM && p.summarizer.IsEnabled() {
		summary, err := p.summarizer.GenerateSummary(ctx, *report)
		if err != nil {
			logger.Warnw("LLM summary generation failed", "error", err)
		} else if summary != nil {
			report.LLM = summary
		}
	}

	logger.Infow("analysis complete",
		"points", report.Model.N,
		"slope", report.Model.Slope,
		"intercept", report.Model.Intercept,
		"r_squared", report.Model.RSquared)

	return &AnalysisResult{Report: report}, nil
}

// analyzeDataset computes every statistic of the report from a validated dataset
func (p *Pipeline) analyzeDataset(ds model.Dataset) (*model.Report, error) {
	report := &model.Report{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Points:    ds.Points(),
	}

	// 3. Correlation
	r, err := regress.Pearson(ds)
	switch {
	case err == nil:
		report.Pearson = &r
	case errors.Is(err, model.ErrUndefinedCorrelation):
		report.PearsonError = err.Error()
	default:
		return nil, fmt.Errorf("correlation: %w", err)
	}

	// 4. Fit
	fitted, values, err := regress.Fit(ds)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	residuals, err := regress.Residuals(ds, values)
	if err != nil {
		return nil, fmt.Errorf("residuals: %w", err)
	}
	report.Model = fitted
	report.Fitted = values
	report.Residuals = residuals

	// 5. Interpretation
	report.Score = p.scorer.Calculate(ds, fitted, values, report.Pearson)

	return report, nil
}

// RenderReport writes the report to the requested outputs
func (p *Pipeline) RenderReport(ctx context.Context, report *model.Report, out Outputs) error {
	return p.renderer.RenderAll(ctx, report, out)
}

// Renderer returns the pipeline's renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}
