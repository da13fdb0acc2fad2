package regress

import (
	"fmt"

	"github.com/ppiankov/linreg/internal/model"
	"github.com/ppiankov/linreg/internal/validate"
)

// Outcome is the result of predicting a single input
type Outcome struct {
	Input any
	X     float64
	Value float64
	Err   error
}

// Predict applies a fitted model to a new x. x may be any scalar-like
// value accepted by validate.ParseScalar.
func Predict(m *model.FittedModel, x any) (float64, error) {
	if !m.Available() {
		return 0, model.ErrModelUnavailable
	}

	xv, err := validate.ParseScalar(x)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", model.ErrNonNumericInput, fmt.Sprint(x))
	}

	y := m.Slope*xv + m.Intercept
	if !isFinite(y) {
		return 0, fmt.Errorf("predict x=%g: %w", xv, model.ErrNonFiniteResult)
	}

	return y, nil
}

// PredictMany predicts every input independently and returns the outcomes
// in input order. A failure for one input does not affect the others.
func PredictMany(m *model.FittedModel, xs []any) []Outcome {
	outcomes := make([]Outcome, len(xs))
	for i, x := range xs {
		outcomes[i].Input = x
		if xv, err := validate.ParseScalar(x); err == nil {
			outcomes[i].X = xv
		}
		outcomes[i].Value, outcomes[i].Err = Predict(m, x)
	}
	return outcomes
}

// ToPredictions converts outcomes to report predictions
func ToPredictions(outcomes []Outcome) []model.Prediction {
	preds := make([]model.Prediction, len(outcomes))
	for i, o := range outcomes {
		preds[i] = model.Prediction{X: o.X, Y: o.Value}
		if o.Err != nil {
			preds[i] = model.Prediction{
				Input: fmt.Sprint(o.Input),
				Error: o.Err.Error(),
			}
		}
	}
	return preds
}
