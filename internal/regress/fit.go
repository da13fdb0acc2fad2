package regress

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/ppiankov/linreg/internal/model"
)

// Fit fits y = slope*x + intercept by ordinary least squares and scores the
// fit with R² on the same data. It also returns the fitted value of every
// point, in dataset order.
func Fit(ds model.Dataset) (model.FittedModel, []float64, error) {
	n := ds.Len()
	if n < 2 {
		return model.FittedModel{}, nil, fmt.Errorf("%w: %d point(s)", model.ErrDegenerateInput, n)
	}

	xs, ys := ds.Xs(), ds.Ys()
	if noVariance(xs) {
		return model.FittedModel{}, nil, model.ErrDegenerateInput
	}

	var intercept, slope float64
	if isConstant(ys) {
		// Exact solution; the general path would leave rounding noise in the slope
		intercept, slope = ys[0], 0
	} else {
		intercept, slope = stat.LinearRegression(xs, ys, nil, false)
	}

	fitted := make([]float64, n)
	for i, x := range xs {
		fitted[i] = slope*x + intercept
	}

	r2 := rSquared(xs, ys, fitted, intercept, slope)

	if !isFinite(slope, intercept, r2) || !isFinite(fitted...) {
		return model.FittedModel{}, nil, model.ErrNonFiniteResult
	}

	return model.FittedModel{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  r2,
		N:         n,
	}, fitted, nil
}

// rSquared is 1 - SS_res/SS_tot. When Y has no variance (SS_tot == 0) it is 1
// when the line reproduces every point and 0 otherwise.
func rSquared(xs, ys, fitted []float64, intercept, slope float64) float64 {
	if !noVariance(ys) {
		return stat.RSquared(xs, ys, nil, intercept, slope)
	}

	var ssRes float64
	for i, y := range ys {
		d := y - fitted[i]
		ssRes += d * d
	}
	if ssRes == 0 {
		return 1
	}
	return 0
}

// Residuals returns y - fitted for every point
func Residuals(ds model.Dataset, fitted []float64) ([]float64, error) {
	if len(fitted) != ds.Len() {
		return nil, fmt.Errorf("residuals: %d fitted values for %d points", len(fitted), ds.Len())
	}

	res := make([]float64, ds.Len())
	for i := range res {
		res[i] = ds.At(i).Y - fitted[i]
	}
	return res, nil
}
