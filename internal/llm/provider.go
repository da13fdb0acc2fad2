package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/linreg/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a plain-language narrative of the report
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Report is the regression report to narrate
	Report model.Report

	// Figures is the STRICT allowlist of numbers the narrative may quote.
	// Any other number in the output is rejected in strict mode.
	Figures []float64

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	// Summary is the generated summary text
	Summary string

	// QuotedFigures are the numbers found in the summary (for verification)
	QuotedFigures []string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama", ""
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// StrictFigures rejects narratives quoting numbers absent from the report
	StrictFigures bool

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:      "", // Disabled by default
		Timeout:       30,
		StrictFigures: true,
		MaxTokens:     600,
	}
}

const systemPrompt = "You explain linear regression results to non-specialists. You only quote numbers given to you and never invent statistics."

// BuildPrompt constructs the default narrative prompt
func BuildPrompt(report model.Report, figures []float64) string {
	var b strings.Builder

	fmt.Fprintf(&b, `You are describing a simple linear regression of y on x. The numbers below are final; your text NEVER changes or recomputes them.

CRITICAL RULES:
1. You MUST ONLY quote numbers from this allowed list (rounded to at most 2 decimals):
%s

2. DO NOT compute new statistics (no p-values, confidence intervals, or standard errors).
3. Correlation is not causation: never claim that x causes y.
4. If the fit is poor or the sample is small, say so plainly.

Report:
- Subject: %s
- Points: %d
- Equation: %s
- R²: %.4f
`, joinFigures(figures), report.Subject, len(report.Points), report.Model.Equation(4), report.Model.RSquared)

	if report.Pearson != nil {
		fmt.Fprintf(&b, "- Pearson r: %.4f\n", *report.Pearson)
	} else if report.PearsonError != "" {
		fmt.Fprintf(&b, "- Pearson r: undefined (%s)\n", report.PearsonError)
	}
	fmt.Fprintf(&b, "- Strength: %s, direction: %s, confidence: %s\n", report.Score.Strength, report.Score.Direction, report.Score.Confidence)

	if len(report.Predictions) > 0 {
		b.WriteString("\nPredictions:\n")
		for _, p := range report.Predictions {
			if p.Error != "" {
				continue
			}
			fmt.Fprintf(&b, "- x = %g -> y = %.4f\n", p.X, p.Y)
		}
	}

	b.WriteString("\nKey Signals:\n")
	for i, signal := range report.Score.Signals {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", signal.Type, signal.Description)
	}

	b.WriteString("\nWrite 3-4 sentences describing what the line says about the relationship and how far it can be trusted.")

	return b.String()
}

func joinFigures(figures []float64) string {
	if len(figures) == 0 {
		return "(No figures available)"
	}

	var b strings.Builder
	for i, f := range figures {
		if i >= 40 {
			fmt.Fprintf(&b, "\n... and %d more", len(figures)-40)
			break
		}
		fmt.Fprintf(&b, "\n- %s", formatFigure(f))
	}
	return b.String()
}
