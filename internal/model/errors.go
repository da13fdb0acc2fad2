package model

import "errors"

// Input shape and content problems, reported before any numeric work
var (
	ErrEmptyInput         = errors.New("input sequences must not be empty")
	ErrLengthMismatch     = errors.New("x and y must have the same length")
	ErrNonNumericValue    = errors.New("non-numeric value")
	ErrInsufficientPoints = errors.New("at least 2 data points are required")
)

// Numerically undefined results from valid-shaped but degenerate data
var (
	ErrUndefinedCorrelation = errors.New("correlation is undefined: a variable has zero variance")
	ErrDegenerateInput      = errors.New("regression is undefined: x has zero variance")
	ErrNonFiniteResult      = errors.New("computation produced a non-finite result")
)

// Predictor misuse
var (
	ErrModelUnavailable = errors.New("model not available")
	ErrNonNumericInput  = errors.New("input is not a finite number")
)

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrEmptyInput, "EmptyInput"},
	{ErrLengthMismatch, "LengthMismatch"},
	{ErrNonNumericValue, "NonNumericValue"},
	{ErrInsufficientPoints, "InsufficientPoints"},
	{ErrUndefinedCorrelation, "UndefinedCorrelation"},
	{ErrDegenerateInput, "DegenerateInput"},
	{ErrNonFiniteResult, "NonFiniteResult"},
	{ErrModelUnavailable, "ModelUnavailable"},
	{ErrNonNumericInput, "NonNumericInput"},
}

// ErrorKind classifies err into the analysis error taxonomy.
// Returns "" for errors outside the taxonomy.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return ""
}
