package model

import (
	"fmt"
	"math"
)

// FittedModel is a simple linear model y = Slope*x + Intercept
type FittedModel struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	N         int     `json:"n"` // Points the model was fitted on
}

// Available reports whether the model holds a usable fit
func (m *FittedModel) Available() bool {
	if m == nil || m.N < 2 {
		return false
	}
	for _, v := range []float64{m.Slope, m.Intercept, m.RSquared} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Equation renders the model as "y = 0.91x - 11.21"
func (m FittedModel) Equation(precision int) string {
	sign := "+"
	intercept := m.Intercept
	if intercept < 0 {
		sign = "-"
		intercept = -intercept
	}
	return fmt.Sprintf("y = %.*fx %s %.*f", precision, m.Slope, sign, precision, intercept)
}

// Prediction is a model output for a single new x
type Prediction struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Input string  `json:"input,omitempty"` // Raw input when it was not a number
	Error string  `json:"error,omitempty"`
}
