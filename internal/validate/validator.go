// Package validate turns raw, caller-supplied sequences into a clean dataset.
package validate

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/linreg/internal/model"
)

// Axis names a column of the raw sample
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
)

// LengthMismatchError reports sequences of different lengths
type LengthMismatchError struct {
	XLen int
	YLen int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("x and y must have the same length (%d vs %d)", e.XLen, e.YLen)
}

func (e *LengthMismatchError) Unwrap() error {
	return model.ErrLengthMismatch
}

// NonNumericError reports an element that is not a finite real number
type NonNumericError struct {
	Axis  Axis
	Index int
	Value any
}

func (e *NonNumericError) Error() string {
	return fmt.Sprintf("non-numeric value %s[%d] = %q", e.Axis, e.Index, fmt.Sprint(e.Value))
}

func (e *NonNumericError) Unwrap() error {
	return model.ErrNonNumericValue
}

// Validate coerces two raw sequences into a dataset of (x, y) pairs.
// Checks run in order: empty input, length mismatch, numeric coercion of
// every element, minimum point count.
func Validate(x, y []any) (model.Dataset, error) {
	if len(x) == 0 || len(y) == 0 {
		return model.Dataset{}, model.ErrEmptyInput
	}
	if len(x) != len(y) {
		return model.Dataset{}, &LengthMismatchError{XLen: len(x), YLen: len(y)}
	}

	points := make([]model.Point, len(x))
	for i := range x {
		xv, err := ParseScalar(x[i])
		if err != nil {
			return model.Dataset{}, &NonNumericError{Axis: AxisX, Index: i, Value: x[i]}
		}
		yv, err := ParseScalar(y[i])
		if err != nil {
			return model.Dataset{}, &NonNumericError{Axis: AxisY, Index: i, Value: y[i]}
		}
		points[i] = model.Point{X: xv, Y: yv}
	}

	if len(points) < 2 {
		return model.Dataset{}, model.ErrInsufficientPoints
	}

	return model.NewDataset(points...), nil
}

// ValidateStrings is Validate for string columns (CSV cells, form fields)
func ValidateStrings(x, y []string) (model.Dataset, error) {
	return Validate(toAny(x), toAny(y))
}

// ValidateFloats is Validate for already-numeric columns
func ValidateFloats(x, y []float64) (model.Dataset, error) {
	return Validate(toAny(x), toAny(y))
}

func toAny[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// ParseScalar coerces a scalar-like value to a finite float64.
// Strings are trimmed before parsing; NaN and infinities are rejected.
func ParseScalar(v any) (float64, error) {
	var f float64

	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		parsed, err := strconv.ParseFloat(string(t), 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", string(t), model.ErrNonNumericValue)
		}
		f = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, fmt.Errorf("empty value: %w", model.ErrNonNumericValue)
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", s, model.ErrNonNumericValue)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("unsupported type %T: %w", v, model.ErrNonNumericValue)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %v is not finite: %w", f, model.ErrNonNumericValue)
	}

	return f, nil
}
