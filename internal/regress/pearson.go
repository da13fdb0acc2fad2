// Package regress implements simple (one predictor) linear regression:
// Pearson correlation, ordinary least squares fitting and prediction.
//
// Every function is pure. Sample moments (n-1) are used throughout; the
// n-1 factors cancel in both r and the OLS slope, so results are identical
// under the population convention.
package regress

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/ppiankov/linreg/internal/model"
)

// Pearson computes Pearson's correlation coefficient r over the dataset.
// A constant X or Y makes r undefined (0/0) and returns
// model.ErrUndefinedCorrelation rather than NaN.
func Pearson(ds model.Dataset) (float64, error) {
	if ds.Len() < 2 {
		return 0, model.ErrInsufficientPoints
	}

	xs, ys := ds.Xs(), ds.Ys()
	if noVariance(xs) || noVariance(ys) {
		return 0, model.ErrUndefinedCorrelation
	}

	r := stat.Correlation(xs, ys, nil)
	if !isFinite(r) {
		return 0, model.ErrNonFiniteResult
	}

	// Rounding can push |r| a few ulps past 1
	return math.Max(-1, math.Min(1, r)), nil
}

// isConstant reports whether every value is identical. Exact comparison
// avoids the rounding noise of a computed variance (e.g. [0.1, 0.1, 0.1]).
func isConstant(values []float64) bool {
	return floats.Max(values) == floats.Min(values)
}

// noVariance reports whether values are constant or their variance
// underflows to zero (e.g. values around 1e-200)
func noVariance(values []float64) bool {
	return isConstant(values) || stat.Variance(values, nil) == 0
}

func isFinite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
