package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/linreg/internal/model"
)

// Summarizer produces the optional narrative for a report. The narrative is
// attached after all statistics are final and never feeds back into them.
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer. An empty provider yields a disabled summarizer.
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return &Summarizer{provider: provider, config: config}, nil
}

// IsEnabled reports whether a provider is configured
func (s *Summarizer) IsEnabled() bool {
	return s != nil && s.provider != nil
}

// ProviderName returns the configured provider name, or ""
func (s *Summarizer) ProviderName() string {
	if !s.IsEnabled() {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary narrates report. Provider failures are reported as
// warnings on the returned summary rather than as errors.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.Report) (*model.LLMSummary, error) {
	if !s.IsEnabled() {
		return nil, nil
	}

	summary := &model.LLMSummary{
		Provider: s.provider.Name(),
		Model:    s.config.Model,
		Strict:   s.config.StrictFigures,
	}

	if !s.provider.IsAvailable(ctx) {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("LLM provider %q is not available (check API key, base URL or network)", s.provider.Name()))
		return summary, nil
	}

	summary.Enabled = true

	figures := ReportFigures(report)
	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:    report,
		Figures:   figures,
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("LLM summary generation failed: %v", err))
		return summary, nil
	}

	summary.SummaryMD = resp.Summary
	if resp.Model != "" {
		summary.Model = resp.Model
	}
	summary.Warnings = append(summary.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))
	if s.config.StrictFigures {
		summary.Warnings = append(summary.Warnings,
			fmt.Sprintf("Verified %d quoted figures against the report", len(resp.QuotedFigures)))
	}

	return summary, nil
}

// RenderSeparateMarkdown renders the narrative as a standalone Markdown file
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var b strings.Builder

	b.WriteString("# LLM Summary\n\n")
	b.WriteString("> **GENERATED CONTENT.** This narrative was written by a language model from the report. ")
	b.WriteString("All statistics were determined independently of the model; when the two disagree, the report is authoritative.\n\n")

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Provider | %s |\n", summary.Provider)
	if summary.Model != "" {
		fmt.Fprintf(&b, "| Model | %s |\n", summary.Model)
	}
	fmt.Fprintf(&b, "| Strict Figure Mode | %t |\n\n", summary.Strict)

	if summary.SummaryMD == "" {
		b.WriteString("_No summary generated._\n")
	} else {
		b.WriteString(summary.SummaryMD)
		b.WriteString("\n")
	}

	if len(summary.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range summary.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}
