package model

import "time"

// Report represents one complete regression analysis
type Report struct {
	ID        string     `json:"id"`
	Subject   string     `json:"subject"` // Human-readable label (e.g., file name)
	Source    string     `json:"source"`  // Where the data came from
	CreatedAt time.Time  `json:"created_at"`
	FetchMeta *FetchMeta `json:"fetch_meta,omitempty"` // Present for remote sources

	Points    []Point   `json:"points"`
	Fitted    []float64 `json:"fitted"`    // slope*x+intercept per point, in input order
	Residuals []float64 `json:"residuals"` // y - fitted per point

	Model        FittedModel `json:"model"`
	Pearson      *float64    `json:"pearson,omitempty"`       // Nil when correlation is undefined
	PearsonError string      `json:"pearson_error,omitempty"` // Why Pearson is nil

	Score       Score        `json:"score"`
	Predictions []Prediction `json:"predictions,omitempty"`

	LLM *LLMSummary `json:"llm,omitempty"` // Optional narrative (separate, never affects numbers)
}

// Dataset rebuilds the analysed dataset from the report points
func (r *Report) Dataset() Dataset {
	return NewDataset(r.Points...)
}

// FetchMeta contains HTTP metadata from fetching a remote source
type FetchMeta struct {
	StatusCode   int               `json:"status_code"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified string            `json:"last_modified,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	FromCache    bool              `json:"from_cache,omitempty"`
}

// Score is the transparent interpretation of a fit
type Score struct {
	Strength   Strength  `json:"strength"`   // Strength of linear association
	Direction  Direction `json:"direction"`  // Sign of the association
	Confidence string    `json:"confidence"` // "low", "medium", "high"
	RMSE       float64   `json:"rmse"`       // Root mean squared residual
	Signals    []Signal  `json:"signals"`
}

// Strength buckets |r|
type Strength string

const (
	StrengthNone       Strength = "none"
	StrengthWeak       Strength = "weak"
	StrengthModerate   Strength = "moderate"
	StrengthStrong     Strength = "strong"
	StrengthVeryStrong Strength = "very_strong"
	StrengthUndefined  Strength = "undefined"
)

// Direction is the sign of the association
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNone     Direction = "none"
)

// Signal represents a diagnostic signal with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Inputs and formulas behind the signal
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalCorrelationStrength SignalType = "correlation_strength" // |r| bucket
	SignalFitQuality          SignalType = "fit_quality"          // R² bucket
	SignalSmallSample         SignalType = "small_sample"         // Too few points to trust the fit
	SignalResidualOutliers    SignalType = "residual_outliers"    // Points far from the line
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// LLMSummary contains the optional LLM-generated narrative
type LLMSummary struct {
	Enabled   bool     `json:"enabled"`
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	Strict    bool     `json:"strict"`               // Whether quoted figures were checked
	SummaryMD string   `json:"summary_md,omitempty"` // Markdown narrative
	Warnings  []string `json:"warnings,omitempty"`
}
