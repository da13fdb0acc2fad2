package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/linreg/internal/model"
	"github.com/ppiankov/linreg/internal/pipeline"
)

// mockAnalyzer implements Analyzer
type mockAnalyzer struct {
	mu       sync.Mutex
	fail     map[string]bool
	requests []pipeline.Request
}

func (m *mockAnalyzer) Analyze(ctx context.Context, req pipeline.Request) (*pipeline.AnalysisResult, error) {
	time.Sleep(5 * time.Millisecond)

	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.fail[req.Source.Location] {
		return nil, model.ErrDegenerateInput
	}
	return &pipeline.AnalysisResult{
		Report: &model.Report{Subject: "Test Subject", Source: req.Source.Location},
	}, nil
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.txt")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func fileSources(locations ...string) []pipeline.Source {
	sources := make([]pipeline.Source, len(locations))
	for i, loc := range locations {
		sources[i] = pipeline.Source{Kind: pipeline.SourceFile, Location: loc}
	}
	return sources
}

func TestBatchProcessor_ProcessSources(t *testing.T) {
	analyzer := &mockAnalyzer{}
	processor := NewBatchProcessor(analyzer, 2, 0, 0)

	sources := fileSources("a.csv", "b.csv", "c.csv", "d.csv")
	results := processor.ProcessSources(context.Background(), sources)

	if len(results) != len(sources) {
		t.Fatalf("expected %d results, got %d", len(sources), len(results))
	}
	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Source.Location, res.Error)
		}
		if res.Source.Location != sources[i].Location {
			t.Errorf("result %d is for %s, want %s", i, res.Source.Location, sources[i].Location)
		}
		if res.Report == nil || res.Report.Source != sources[i].Location {
			t.Errorf("result %d has wrong report: %+v", i, res.Report)
		}
	}
}

func TestBatchProcessor_ProcessSources_Error(t *testing.T) {
	analyzer := &mockAnalyzer{fail: map[string]bool{"bad.csv": true}}
	processor := NewBatchProcessor(analyzer, 2, 0, 0)

	results := processor.ProcessSources(context.Background(), fileSources("good.csv", "bad.csv"))

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("unexpected error: %v", results[0].Error)
	}
	if !errors.Is(results[1].Error, model.ErrDegenerateInput) {
		t.Errorf("expected degenerate input error, got %v", results[1].Error)
	}
	if results[1].Report != nil {
		t.Error("expected nil report on error")
	}
	if CountFailed(results) != 1 {
		t.Errorf("CountFailed() = %d, want 1", CountFailed(results))
	}
}

func TestBatchProcessor_ProcessSources_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 2, 0, 0)

	results := processor.ProcessSources(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_RequestDefaults(t *testing.T) {
	analyzer := &mockAnalyzer{}
	processor := NewBatchProcessor(analyzer, 1, 0, 0).
		WithRequest(pipeline.Request{Predict: []string{"20"}, NoLLM: true}).
		WithDefaultColumns("hours", "score")

	sources := fileSources("a.csv", "b.csv")
	sources[1].XColumn = "minutes"
	processor.ProcessSources(context.Background(), sources)

	if len(analyzer.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(analyzer.requests))
	}
	byLocation := map[string]pipeline.Request{}
	for _, req := range analyzer.requests {
		byLocation[req.Source.Location] = req
	}

	a := byLocation["a.csv"]
	if a.Source.XColumn != "hours" || a.Source.YColumn != "score" {
		t.Errorf("defaults not applied: %+v", a.Source)
	}
	if len(a.Predict) != 1 || a.Predict[0] != "20" || !a.NoLLM {
		t.Errorf("request template not applied: %+v", a)
	}
	if b := byLocation["b.csv"]; b.Source.XColumn != "minutes" || b.Source.YColumn != "score" {
		t.Errorf("explicit column overridden: %+v", b.Source)
	}
}

func TestBatchProcessor_RateLimitCancelled(t *testing.T) {
	processor := NewBatchProcessor(&mockAnalyzer{}, 1, 0.01, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	sources := []pipeline.Source{
		{Kind: pipeline.SourceURL, Location: "http://example.com/a.csv"},
		{Kind: pipeline.SourceURL, Location: "http://example.com/b.csv"},
	}
	results := processor.ProcessSources(ctx, sources)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Error != nil {
		t.Errorf("first source should pass the limiter: %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("second source to the same host should hit the limiter deadline")
	}
}

func TestReadSourcesFromFile(t *testing.T) {
	path := writeManifest(t, `data/a.csv x=hours y=score
# comment
https://example.com/grades.html table=1

data/a.csv   x=hours   y=score
data/b.csv   `)

	sources, err := ReadSourcesFromFile(path)
	if err != nil {
		t.Fatalf("ReadSourcesFromFile failed: %v", err)
	}

	if len(sources) != 3 {
		t.Fatalf("expected 3 sources after deduplication, got %d: %+v", len(sources), sources)
	}
	if sources[0].XColumn != "hours" || sources[0].YColumn != "score" {
		t.Errorf("unexpected first source: %+v", sources[0])
	}
	if sources[1].Kind != pipeline.SourceURL || sources[1].TableIndex != 1 {
		t.Errorf("unexpected second source: %+v", sources[1])
	}
	if sources[2].Location != "data/b.csv" {
		t.Errorf("unexpected third source: %+v", sources[2])
	}
}

func TestReadSourcesFromFile_InvalidLine(t *testing.T) {
	path := writeManifest(t, "a.csv\nb.csv table=x\n")

	_, err := ReadSourcesFromFile(path)
	if err == nil {
		t.Fatal("expected error for invalid line")
	}
	if want := path + ":2:"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q should name %q", err, want)
	}
}

func TestReadSourcesFromFile_NonExistent(t *testing.T) {
	if _, err := ReadSourcesFromFile(filepath.Join(t.TempDir(), "none.txt")); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeManifest(t, "a.csv\nb.csv\n# comment\n\nc.csv\n")

	processor := NewBatchProcessor(&mockAnalyzer{}, 2, 0, 0)
	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_Empty(t *testing.T) {
	path := writeManifest(t, "")

	processor := NewBatchProcessor(&mockAnalyzer{}, 2, 0, 0)
	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty file, got %d", len(results))
	}
}

func TestSourceResult_GetError(t *testing.T) {
	r1 := &SourceResult{}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("analysis failed")
	r2 := &SourceResult{Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
