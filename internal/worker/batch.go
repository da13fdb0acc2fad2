package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/linreg/internal/logging"
	"github.com/ppiankov/linreg/internal/model"
	"github.com/ppiankov/linreg/internal/pipeline"
)

// Analyzer runs a single analysis
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.Request) (*pipeline.AnalysisResult, error)
}

// AnalyzeJob analyses one source
type AnalyzeJob struct {
	Request  pipeline.Request
	Analyzer Analyzer
	Limiter  *Limiter
}

// Execute waits for the source host's rate limit (remote sources only) and
// runs the analysis
func (j *AnalyzeJob) Execute(ctx context.Context) Result {
	src := j.Request.Source
	res := &SourceResult{Source: src}
	start := time.Now()

	if src.Kind == pipeline.SourceURL {
		if err := j.Limiter.Wait(ctx, src.Location); err != nil {
			res.Error = fmt.Errorf("rate limit: %w", err)
			return res
		}
	}

	result, err := j.Analyzer.Analyze(ctx, j.Request)
	res.Duration = time.Since(start)
	if err != nil {
		logging.FromContext(ctx).Warnw("analysis failed", "source", src.Label(), "kind", model.ErrorKind(err), "error", err)
		res.Error = err
		return res
	}

	res.Report = result.Report
	return res
}

// SourceResult is the outcome for one source of a batch
type SourceResult struct {
	Source   pipeline.Source
	Report   *model.Report
	Error    error
	Duration time.Duration
}

// GetError returns the error from the result
func (r *SourceResult) GetError() error {
	return r.Error
}

// BatchProcessor analyses many sources concurrently
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
	limiter     *Limiter
	template    pipeline.Request
	xColumn     string
	yColumn     string
}

// NewBatchProcessor creates a batch processor. requestsPerSecond <= 0
// disables per-host rate limiting.
func NewBatchProcessor(analyzer Analyzer, concurrency int, requestsPerSecond float64, burst int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
		limiter:     NewLimiter(requestsPerSecond, burst),
	}
}

// WithRequest sets the options applied to every source (predictions, cache, LLM)
func (b *BatchProcessor) WithRequest(template pipeline.Request) *BatchProcessor {
	b.template = template
	return b
}

// WithDefaultColumns sets the columns used by sources that name none
func (b *BatchProcessor) WithDefaultColumns(xColumn, yColumn string) *BatchProcessor {
	b.xColumn = xColumn
	b.yColumn = yColumn
	return b
}

// ProcessSources analyses every source. Results are in input order.
func (b *BatchProcessor) ProcessSources(ctx context.Context, sources []pipeline.Source) []*SourceResult {
	if len(sources) == 0 {
		return []*SourceResult{}
	}

	logger := logging.FromContext(ctx)
	logger.Infow("batch started", "sources", len(sources), "concurrency", b.concurrency)

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, src := range sources {
		if src.XColumn == "" {
			src.XColumn = b.xColumn
		}
		if src.YColumn == "" {
			src.YColumn = b.yColumn
		}
		req := b.template
		req.Source = src
		pool.Submit(&AnalyzeJob{Request: req, Analyzer: b.analyzer, Limiter: b.limiter})
	}

	results := pool.Wait()

	out := make([]*SourceResult, len(sources))
	for i := range out {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*SourceResult)
			continue
		}
		// Never ran: the batch was cancelled first
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &SourceResult{Source: sources[i], Error: err}
	}

	logger.Infow("batch finished", "sources", len(out), "failed", CountFailed(out))
	return out
}

// ProcessFile reads a manifest and analyses its sources
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*SourceResult, error) {
	sources, err := ReadSourcesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}

	return b.ProcessSources(ctx, sources), nil
}

// CountFailed returns the number of failed results
func CountFailed(results []*SourceResult) int {
	n := 0
	for _, r := range results {
		if r.Error != nil {
			n++
		}
	}
	return n
}

// ReadSourcesFromFile reads a manifest: one source per line (see
// pipeline.ParseSource), blank lines and # comments ignored, duplicate
// lines dropped.
func ReadSourcesFromFile(filePath string) ([]pipeline.Source, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var sources []pipeline.Source
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key := strings.Join(strings.Fields(line), " ")
		if seen[key] {
			continue
		}
		seen[key] = true

		src, err := pipeline.ParseSource(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filePath, lineNo, err)
		}
		sources = append(sources, src)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return sources, nil
}
