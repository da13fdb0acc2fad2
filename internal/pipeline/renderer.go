package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/linreg/internal/chart"
	"github.com/ppiankov/linreg/internal/llm"
	"github.com/ppiankov/linreg/internal/logging"
	"github.com/ppiankov/linreg/internal/model"
)

// maxMarkdownRows caps the data table in Markdown reports
const maxMarkdownRows = 200

// Outputs lists where a report should be written. Empty paths are skipped.
type Outputs struct {
	JSONPath     string
	MarkdownPath string
	ChartPath    string
	ModelPath    string
}

// Renderer writes reports in human and machine-readable forms
type Renderer struct {
	precision int
	width     int
	height    int
}

// NewRenderer creates a renderer. Non-positive sizes use the chart defaults.
func NewRenderer(precision, width, height int) *Renderer {
	if precision < 0 {
		precision = 2
	}
	if width <= 0 {
		width = chart.DefaultWidth
	}
	if height <= 0 {
		height = chart.DefaultHeight
	}
	return &Renderer{precision: precision, width: width, height: height}
}

// RenderAll writes every requested output
func (r *Renderer) RenderAll(ctx context.Context, report *model.Report, out Outputs) error {
	logger := logging.FromContext(ctx)

	if out.JSONPath != "" {
		if err := r.RenderJSON(report, out.JSONPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		logger.Infow("wrote JSON report", "path", out.JSONPath)
	}

	if out.MarkdownPath != "" {
		if err := r.RenderMarkdown(report, out.MarkdownPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		logger.Infow("wrote Markdown report", "path", out.MarkdownPath)

		// LLM narrative goes to a separate file so it is never mistaken for computed output
		if report.LLM != nil && report.LLM.Enabled {
			llmPath := strings.TrimSuffix(out.MarkdownPath, filepath.Ext(out.MarkdownPath)) + ".llm.md"
			if err := writeFile(llmPath, []byte(llm.RenderSeparateMarkdown(report.LLM))); err != nil {
				logger.Warnw("failed to write LLM summary", "path", llmPath, "error", err)
			} else {
				logger.Infow("wrote LLM summary", "path", llmPath)
			}
		}
	}

	if out.ChartPath != "" {
		if err := r.RenderChart(report, out.ChartPath); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
		logger.Infow("wrote chart", "path", out.ChartPath)
	}

	if out.ModelPath != "" {
		if err := SaveModel(out.ModelPath, report.Model); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
		logger.Infow("saved model", "path", out.ModelPath)
	}

	return nil
}

// RenderJSON writes the full report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderChart draws the scatter and fitted line; the format follows the extension
func (r *Renderer) RenderChart(report *model.Report, path string) error {
	c, err := chart.Build(report.Dataset(), report.Fitted, report.Model.RSquared)
	if err != nil {
		return err
	}
	c.Width = r.width
	c.Height = r.height

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := chart.Render(f, c, chart.FormatFromPath(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// RenderMarkdown writes the report as Markdown
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// Markdown renders the report as a Markdown document
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	p := r.precision

	subject := report.Subject
	if subject == "" {
		subject = "untitled"
	}
	fmt.Fprintf(&b, "# Linear regression: %s\n\n", subject)
	if report.Source != "" {
		fmt.Fprintf(&b, "- **Source:** %s\n", report.Source)
	}
	fmt.Fprintf(&b, "- **Report ID:** %s\n", report.ID)
	fmt.Fprintf(&b, "- **Created:** %s\n\n", report.CreatedAt.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("## Equation\n\n")
	fmt.Fprintf(&b, "`%s`\n\n", report.Model.Equation(p))

	b.WriteString("## Statistics\n\n")
	b.WriteString("| Statistic | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Slope (m) | %.*f |\n", p, report.Model.Slope)
	fmt.Fprintf(&b, "| Intercept (b) | %.*f |\n", p, report.Model.Intercept)
	fmt.Fprintf(&b, "| R² | %.*f |\n", p, report.Model.RSquared)
	fmt.Fprintf(&b, "| Pearson r | %s |\n", r.pearson(report))
	fmt.Fprintf(&b, "| Points | %d |\n", report.Model.N)
	fmt.Fprintf(&b, "| RMSE | %.*f |\n", p, report.Score.RMSE)
	fmt.Fprintf(&b, "| Strength | %s (%s) |\n", report.Score.Strength, report.Score.Direction)
	fmt.Fprintf(&b, "| Confidence | %s |\n\n", report.Score.Confidence)

	if len(report.Score.Signals) > 0 {
		b.WriteString("## Signals\n\n")
		for _, s := range report.Score.Signals {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", s.Type, s.Severity, s.Description)
		}
		b.WriteString("\n")
	}

	if len(report.Predictions) > 0 {
		b.WriteString("## Predictions\n\n")
		b.WriteString("| x | Predicted y |\n|---|---|\n")
		for _, pr := range report.Predictions {
			if pr.Error != "" {
				fmt.Fprintf(&b, "| %s | error: %s |\n", pr.Input, pr.Error)
				continue
			}
			fmt.Fprintf(&b, "| %g | %.*f |\n", pr.X, p, pr.Y)
		}
		b.WriteString("\n")
	}

	if n := len(report.Points); n > 0 {
		b.WriteString("## Data\n\n")
		b.WriteString("| # | x | y | Fitted | Residual |\n|---|---|---|---|---|\n")
		for i, pt := range report.Points {
			if i >= maxMarkdownRows {
				fmt.Fprintf(&b, "\n_%d more rows in the JSON report._\n", n-maxMarkdownRows)
				break
			}
			fitted, residual := "", ""
			if i < len(report.Fitted) {
				fitted = fmt.Sprintf("%.*f", p, report.Fitted[i])
			}
			if i < len(report.Residuals) {
				residual = fmt.Sprintf("%.*f", p, report.Residuals[i])
			}
			fmt.Fprintf(&b, "| %d | %g | %g | %s | %s |\n", i+1, pt.X, pt.Y, fitted, residual)
		}
	}

	return b.String()
}

// Summary prints a short human-readable result
func (r *Renderer) Summary(w io.Writer, report *model.Report) {
	p := r.precision

	fmt.Fprintf(w, "Subject:     %s\n", report.Subject)
	fmt.Fprintf(w, "Equation:    %s\n", report.Model.Equation(p))
	fmt.Fprintf(w, "Slope:       %.*f\n", p, report.Model.Slope)
	fmt.Fprintf(w, "Intercept:   %.*f\n", p, report.Model.Intercept)
	fmt.Fprintf(w, "R²:          %.*f\n", p, report.Model.RSquared)
	fmt.Fprintf(w, "Pearson r:   %s\n", r.pearson(report))
	fmt.Fprintf(w, "Points:      %d\n", report.Model.N)
	fmt.Fprintf(w, "Strength:    %s (%s), confidence %s\n", report.Score.Strength, report.Score.Direction, report.Score.Confidence)

	for _, s := range report.Score.Signals {
		if s.Severity != model.SeverityInfo {
			fmt.Fprintf(w, "  ! %s\n", s.Description)
		}
	}

	for _, pr := range report.Predictions {
		if pr.Error != "" {
			fmt.Fprintf(w, "Predict %s: error: %s\n", pr.Input, pr.Error)
			continue
		}
		fmt.Fprintf(w, "Predict x = %g: y = %.*f\n", pr.X, p, pr.Y)
	}
}

func (r *Renderer) pearson(report *model.Report) string {
	if report.Pearson == nil {
		return "undefined (no variance)"
	}
	return fmt.Sprintf("%.*f", r.precision, *report.Pearson)
}

// writeFile writes data, creating parent directories as needed
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}
