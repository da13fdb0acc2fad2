package score

import (
	"fmt"
	"math"

	"github.com/ppiankov/linreg/internal/model"
)

// Scorer interprets a fitted model and generates diagnostic signals
type Scorer struct {
	outlierFactor float64
}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{outlierFactor: 2}
}

// Calculate interprets the fit. r is nil when the correlation is undefined.
func (s *Scorer) Calculate(ds model.Dataset, m model.FittedModel, fitted []float64, r *float64) model.Score {
	var signals []model.Signal

	// 1. Correlation strength
	strength, direction, strengthSignal := s.correlationStrength(r)
	signals = append(signals, strengthSignal)

	// 2. Fit quality
	signals = append(signals, s.fitQuality(m))

	// 3. Sample size
	if ds.Len() < 5 {
		signals = append(signals, model.Signal{
			Type:        model.SignalSmallSample,
			Severity:    model.SeverityWarning,
			Description: fmt.Sprintf("Only %d points; the fit may not generalise", ds.Len()),
			Data: map[string]interface{}{
				"n":       ds.Len(),
				"minimum": 5,
			},
		})
	}

	// 4. Residual outliers
	rmse := rootMeanSquare(ds, fitted)
	if outlierSignal, found := s.residualOutliers(ds, fitted, rmse); found {
		signals = append(signals, outlierSignal)
	}

	return model.Score{
		Strength:   strength,
		Direction:  direction,
		Confidence: s.determineConfidence(ds.Len(), m.RSquared),
		RMSE:       rmse,
		Signals:    signals,
	}
}

// correlationStrength buckets |r|
func (s *Scorer) correlationStrength(r *float64) (model.Strength, model.Direction, model.Signal) {
	if r == nil {
		return model.StrengthUndefined, model.DirectionNone, model.Signal{
			Type:        model.SignalCorrelationStrength,
			Severity:    model.SeverityWarning,
			Description: "Correlation undefined (a variable has no variance)",
		}
	}

	abs := math.Abs(*r)
	var strength model.Strength
	switch {
	case abs < 0.1:
		strength = model.StrengthNone
	case abs < 0.3:
		strength = model.StrengthWeak
	case abs < 0.5:
		strength = model.StrengthModerate
	case abs < 0.7:
		strength = model.StrengthStrong
	default:
		strength = model.StrengthVeryStrong
	}

	direction := model.DirectionNone
	if strength != model.StrengthNone {
		direction = model.DirectionPositive
		if *r < 0 {
			direction = model.DirectionNegative
		}
	}

	severity := model.SeverityInfo
	if strength == model.StrengthNone || strength == model.StrengthWeak {
		severity = model.SeverityWarning
	}

	return strength, direction, model.Signal{
		Type:        model.SignalCorrelationStrength,
		Severity:    severity,
		Description: fmt.Sprintf("Pearson r = %.4f (%s, %s)", *r, strength, direction),
		Data: map[string]interface{}{
			"r":       *r,
			"abs_r":   abs,
			"buckets": "none<0.1<=weak<0.3<=moderate<0.5<=strong<0.7<=very_strong",
		},
	}
}

// fitQuality buckets R²
func (s *Scorer) fitQuality(m model.FittedModel) model.Signal {
	severity := model.SeverityInfo
	quality := "good"
	switch {
	case m.RSquared < 0.3:
		severity = model.SeverityCritical
		quality = "poor"
	case m.RSquared < 0.7:
		severity = model.SeverityWarning
		quality = "fair"
	}

	return model.Signal{
		Type:        model.SignalFitQuality,
		Severity:    severity,
		Description: fmt.Sprintf("R² = %.4f: the line explains %.1f%% of the variance in y (%s)", m.RSquared, m.RSquared*100, quality),
		Data: map[string]interface{}{
			"r_squared": m.RSquared,
			"formula":   "1 - SS_res / SS_tot",
		},
	}
}

// residualOutliers flags points whose residual exceeds outlierFactor * RMSE
func (s *Scorer) residualOutliers(ds model.Dataset, fitted []float64, rmse float64) (model.Signal, bool) {
	if rmse == 0 || len(fitted) != ds.Len() {
		return model.Signal{}, false
	}

	threshold := s.outlierFactor * rmse
	var indices []int
	for i := 0; i < ds.Len(); i++ {
		if math.Abs(ds.At(i).Y-fitted[i]) > threshold {
			indices = append(indices, i)
		}
	}

	if len(indices) == 0 {
		return model.Signal{}, false
	}

	severity := model.SeverityInfo
	if float64(len(indices)) > 0.1*float64(ds.Len()) {
		severity = model.SeverityWarning
	}

	return model.Signal{
		Type:        model.SignalResidualOutliers,
		Severity:    severity,
		Description: fmt.Sprintf("%d point(s) lie more than %.0f×RMSE from the line", len(indices), s.outlierFactor),
		Data: map[string]interface{}{
			"indices":   indices,
			"rmse":      rmse,
			"threshold": threshold,
			"formula":   fmt.Sprintf("|y - fitted| > %.0f * RMSE", s.outlierFactor),
		},
	}, true
}

// determineConfidence determines how much the fit can be relied upon
func (s *Scorer) determineConfidence(n int, r2 float64) string {
	if n < 5 || r2 < 0.3 {
		return "low"
	}
	if n >= 10 && r2 >= 0.7 {
		return "high"
	}
	return "medium"
}

// rootMeanSquare returns sqrt(SS_res / n)
func rootMeanSquare(ds model.Dataset, fitted []float64) float64 {
	if ds.Len() == 0 || len(fitted) != ds.Len() {
		return 0
	}

	var ss float64
	for i := 0; i < ds.Len(); i++ {
		d := ds.At(i).Y - fitted[i]
		ss += d * d
	}
	return math.Sqrt(ss / float64(ds.Len()))
}
