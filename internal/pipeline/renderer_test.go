package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/linreg/internal/model"
)

func sampleReport(t *testing.T) *model.Report {
	t.Helper()
	p := NewPipeline(context.Background(), testConfig())
	result, err := p.Analyze(context.Background(), Request{
		Source:  Source{Kind: SourceInline, XList: sampleX, YList: sampleY},
		Predict: []string{"20"},
	})
	if err != nil {
		t.Fatalf("Analyze() error: %v", err)
	}
	return result.Report
}

func TestRenderAll(t *testing.T) {
	report := sampleReport(t)
	report.LLM = &model.LLMSummary{Enabled: true, Provider: "ollama", Strict: true, SummaryMD: "A clear upward trend."}

	dir := t.TempDir()
	out := Outputs{
		JSONPath:     filepath.Join(dir, "report.json"),
		MarkdownPath: filepath.Join(dir, "report.md"),
		ChartPath:    filepath.Join(dir, "charts", "fit.svg"),
		ModelPath:    filepath.Join(dir, "model.json"),
	}

	r := NewRenderer(2, 400, 300)
	if err := r.RenderAll(context.Background(), report, out); err != nil {
		t.Fatalf("RenderAll() error: %v", err)
	}

	data, err := os.ReadFile(out.JSONPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded model.Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("invalid JSON report: %v", err)
	}
	if decoded.Model != report.Model {
		t.Errorf("JSON model = %+v, want %+v", decoded.Model, report.Model)
	}

	md, err := os.ReadFile(out.MarkdownPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"## Equation", "y = 0.91x - 11.21", "| R² | 0.59 |", "## Predictions", "| 20 | 7.06 |"} {
		if !strings.Contains(string(md), want) {
			t.Errorf("markdown missing %q", want)
		}
	}

	llmMD, err := os.ReadFile(filepath.Join(dir, "report.llm.md"))
	if err != nil {
		t.Fatalf("expected separate LLM file: %v", err)
	}
	if !strings.Contains(string(llmMD), "A clear upward trend.") {
		t.Errorf("unexpected LLM file: %s", llmMD)
	}

	svg, err := os.ReadFile(out.ChartPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("chart file is not SVG")
	}

	if _, err := LoadModel(out.ModelPath); err != nil {
		t.Errorf("saved model does not load: %v", err)
	}
}

func TestRenderAll_SkipsEmptyPaths(t *testing.T) {
	report := sampleReport(t)
	if err := NewRenderer(2, 0, 0).RenderAll(context.Background(), report, Outputs{}); err != nil {
		t.Fatalf("RenderAll() error: %v", err)
	}
}

func TestRenderMarkdown_UndefinedPearson(t *testing.T) {
	report := sampleReport(t)
	report.Pearson = nil

	md := NewRenderer(3, 0, 0).Markdown(report)
	if !strings.Contains(md, "| Pearson r | undefined (no variance) |") {
		t.Errorf("expected undefined Pearson row:\n%s", md)
	}
	if !strings.Contains(md, "| Slope (m) | 0.914 |") {
		t.Errorf("expected precision 3:\n%s", md)
	}
}

func TestSummary(t *testing.T) {
	report := sampleReport(t)
	report.Predictions = append(report.Predictions, model.Prediction{Input: "abc", Error: "not a number"})

	var buf bytes.Buffer
	NewRenderer(2, 0, 0).Summary(&buf, report)
	out := buf.String()

	for _, want := range []string{"Equation:    y = 0.91x - 11.21", "R²:          0.59", "Pearson r:   0.77", "Points:      11", "Predict x = 20: y = 7.06", "Predict abc: error: not a number"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestNewRenderer_Defaults(t *testing.T) {
	r := NewRenderer(-1, 0, -5)
	if r.precision != 2 || r.width <= 0 || r.height <= 0 {
		t.Errorf("unexpected defaults: %+v", r)
	}
}
