package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ppiankov/linreg/internal/model"
	"github.com/ppiankov/linreg/internal/pipeline"
)

const (
	sampleX = "15,14,17,16,15,16,15,13,17,16,16"
	sampleY = "2,0,3,4,3,4,3,1,4,3,5"
)

// resetFlags restores every flag to its default between runs
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the CLI with an isolated HOME and returns stdout
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LINREG_CACHE_ENABLED", "false")
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := Execute()
	return stdout.String(), err
}

func TestAnalyze_Inline(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "report.json")
	modelFile := filepath.Join(dir, "model.json")

	out, err := run(t, "analyze", "--x", sampleX, "--y", sampleY, "--predict", "20", "--json", jsonPath, "--save-model", modelFile)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	for _, want := range []string{"y = 0.91x - 11.21", "R²:          0.59", "Predict x = 20: y = 7.06"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("invalid JSON report: %v", err)
	}
	if report.Model.N != 11 {
		t.Errorf("N = %d, want 11", report.Model.N)
	}

	if _, err := pipeline.LoadModel(modelFile); err != nil {
		t.Errorf("saved model does not load: %v", err)
	}
}

func TestAnalyze_File(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "grades.csv")
	content := "student;hours;score\n"
	xs := strings.Split(sampleX, ",")
	ys := strings.Split(sampleY, ",")
	for i := range xs {
		content += "s;" + xs[i] + ";" + ys[i] + "\n"
	}
	if err := os.WriteFile(csvPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "analyze", csvPath, "--x-col", "hours", "--y-col", "score")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(out, "Subject:     grades") || !strings.Contains(out, "y = 0.91x - 11.21") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestAnalyze_ErrorKind(t *testing.T) {
	_, err := run(t, "analyze", "--x", "5,5,5", "--y", "1,2,3")
	if err == nil {
		t.Fatal("expected error")
	}

	var ae *AnalysisError
	if !errors.As(err, &ae) || ae.Kind != "DegenerateInput" {
		t.Fatalf("expected DegenerateInput analysis error, got %v", err)
	}
	if !strings.Contains(err.Error(), "no variance") {
		t.Errorf("error should explain the cause: %v", err)
	}
	if exitCode(err) != 2 {
		t.Errorf("exitCode() = %d, want 2", exitCode(err))
	}
}

func TestAnalyze_SourceSelection(t *testing.T) {
	if _, err := run(t, "analyze"); err == nil {
		t.Error("expected error without a data source")
	}
	if _, err := run(t, "analyze", "data.csv", "--x", "1,2", "--y", "3,4"); err == nil {
		t.Error("expected error with two data sources")
	}
	if _, err := run(t, "analyze", "--x", "1,2", "--y", "3,4", "--x-col", "a"); err == nil {
		t.Error("expected error for columns on inline data")
	}
	if _, err := run(t, "analyze", "data.csv", "--format", "xlsx"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSourceFromFlags_PositionalOptions(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		flags map[string]string
		want  pipeline.Source
	}{
		{
			name: "options in one argument",
			args: []string{"data.html x=hours y=score table=2 format=html"},
			want: pipeline.Source{Kind: pipeline.SourceFile, Location: "data.html", XColumn: "hours", YColumn: "score", TableIndex: 2, Format: pipeline.FormatHTML},
		},
		{
			name: "options as separate arguments",
			args: []string{"https://example.com/grades.csv", "x=hours", "y=score"},
			want: pipeline.Source{Kind: pipeline.SourceURL, Location: "https://example.com/grades.csv", XColumn: "hours", YColumn: "score"},
		},
		{
			name:  "explicit flags override",
			args:  []string{"data.html x=hours y=score table=2"},
			flags: map[string]string{"y-col": "grade", "table": "0"},
			want:  pipeline.Source{Kind: pipeline.SourceFile, Location: "data.html", XColumn: "hours", YColumn: "grade", TableIndex: 0},
		},
		{
			name:  "flags apply to a bare location",
			args:  []string{"data.csv"},
			flags: map[string]string{"x-col": "hours", "format": "CSV"},
			want:  pipeline.Source{Kind: pipeline.SourceFile, Location: "data.csv", XColumn: "hours", Format: pipeline.FormatCSV},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(rootCmd)
			flags := analyzeCmd.Flags()
			for name, value := range tt.flags {
				if err := flags.Set(name, value); err != nil {
					t.Fatalf("set --%s: %v", name, err)
				}
			}

			got, err := sourceFromFlags(flags, tt.args)
			if err != nil {
				t.Fatalf("sourceFromFlags() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("sourceFromFlags() = %+v, want %+v", got, tt.want)
			}
		})
	}
	resetFlags(rootCmd)
}

func TestPredict(t *testing.T) {
	modelFile := filepath.Join(t.TempDir(), "model.json")
	m := model.FittedModel{Slope: 74.0 / 81.0, Intercept: -908.0 / 81.0, RSquared: 5476.0 / 9315.0, N: 11}
	if err := pipeline.SaveModel(modelFile, m); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "predict", "--model", modelFile, "20", "15")
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if !strings.Contains(out, "20\t7.06") || !strings.Contains(out, "15\t2.49") {
		t.Errorf("unexpected output:\n%s", out)
	}

	out, err = run(t, "predict", "--model", modelFile, "20", "abc")
	if err == nil {
		t.Fatal("expected error for non-numeric value")
	}
	if !strings.Contains(out, "20\t7.06") || !strings.Contains(out, "abc\terror: NonNumericInput") {
		t.Errorf("each value should be reported:\n%s", out)
	}
	if !errors.Is(err, model.ErrNonNumericInput) {
		t.Errorf("expected ErrNonNumericInput, got %v", err)
	}
}

func TestPredict_MissingModel(t *testing.T) {
	_, err := run(t, "predict", "--model", filepath.Join(t.TempDir(), "none.json"), "1")
	if err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.csv")
	bad := filepath.Join(dir, "flat.csv")
	if err := os.WriteFile(good, []byte("h,s\n1,2\n2,4\n3,7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("h,s\n5,2\n5,4\n5,7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	manifest := filepath.Join(dir, "sources.txt")
	if err := os.WriteFile(manifest, []byte("# sources\n"+good+"\n"+bad+"\n"+good+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "reports")

	_, err := run(t, "batch", manifest, "--output-dir", outDir, "--chart-format", "svg", "--concurrency", "2")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 sources failed") {
		t.Fatalf("expected one failure, got %v", err)
	}

	for _, name := range []string{"01-good.json", "01-good.md", "01-good.svg"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(outDir, "02-flat.json")); err == nil {
		t.Error("failed source should not produce a report")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linreg.yaml")

	if _, err := run(t, "config", "init", "--config", path); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if _, err := run(t, "config", "init", "--config", path); err == nil {
		t.Error("expected error when config already exists")
	}

	out, err := run(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"http:", "timeout: 30s", "precision: 2"} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "linreg ") {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"exam scores", "exam-scores"},
		{"a/b:c?", "a_b_c"},
		{"  ..hidden", "hidden"},
		{"", "report"},
		{strings.Repeat("x", 150), strings.Repeat("x", 100)},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDescribeError(t *testing.T) {
	if describeError(nil) != nil {
		t.Error("describeError(nil) should be nil")
	}

	err := describeError(model.ErrEmptyInput)
	var ae *AnalysisError
	if !errors.As(err, &ae) || ae.Kind != "EmptyInput" {
		t.Fatalf("unexpected error %v", err)
	}
	if describeError(err) != err {
		t.Error("describeError should not wrap twice")
	}

	plain := describeError(errors.New("network down"))
	if plain.Error() != "network down" {
		t.Errorf("unknown errors keep their message, got %q", plain.Error())
	}
	if exitCode(plain) != 1 {
		t.Errorf("exitCode() = %d, want 1", exitCode(plain))
	}
}
