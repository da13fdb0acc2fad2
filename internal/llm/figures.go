package llm

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/linreg/internal/model"
)

// ErrFigureLeak is returned in strict mode when a narrative quotes a number
// that is not a statistic of the report
var ErrFigureLeak = errors.New("FIGURE LEAK")

// Whole numbers below this are ordinary prose ("two outliers", "3 points")
const smallCountLimit = 10

var numberPattern = regexp.MustCompile(`[-−]?\d+(?:[.,]\d+)*%?`)

// ReportFigures lists every number a narrative of the report may quote
func ReportFigures(r model.Report) []float64 {
	figures := []float64{
		r.Model.Slope,
		r.Model.Intercept,
		r.Model.RSquared,
		r.Model.RSquared * 100,
		float64(r.Model.N),
		float64(len(r.Points)),
		r.Score.RMSE,
	}
	if r.Pearson != nil {
		figures = append(figures, *r.Pearson, *r.Pearson*100)
	}
	for _, p := range r.Predictions {
		if p.Error == "" {
			figures = append(figures, p.X, p.Y)
		}
	}
	if len(r.Points) > 0 {
		ds := r.Dataset()
		xs, ys := ds.Xs(), ds.Ys()
		figures = append(figures, minOf(xs), maxOf(xs), minOf(ys), maxOf(ys))
	}
	return figures
}

// extractFigures returns the numbers quoted in text
func extractFigures(text string) []string {
	matches := numberPattern.FindAllString(text, -1)

	seen := make(map[string]bool)
	var unique []string
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			unique = append(unique, m)
		}
	}
	return unique
}

// checkFigures verifies every quoted number against the allowlist. A quoted
// number matches a figure when their magnitudes agree at the quoted
// precision, capped at two decimals. Signs are ignored because prose often
// writes "y = 0.91x - 11.21".
func checkFigures(quoted []string, allowed []float64) error {
	for _, q := range quoted {
		value, decimals, ok := parseQuoted(q)
		if !ok {
			continue
		}
		if decimals == 0 && math.Abs(value) < smallCountLimit {
			continue
		}
		if !figureAllowed(value, decimals, allowed) {
			return fmt.Errorf("%w: narrative quotes %s, which is not a statistic in the report", ErrFigureLeak, q)
		}
	}
	return nil
}

func figureAllowed(value float64, decimals int, allowed []float64) bool {
	if decimals > 2 {
		decimals = 2
	}
	scale := math.Pow(10, float64(decimals))
	want := math.Round(math.Abs(value) * scale)
	for _, a := range allowed {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			continue
		}
		if math.Round(math.Abs(a)*scale) == want {
			return true
		}
	}
	return false
}

// parseQuoted parses "−11.21", "58.8%" or "1,024" into a value and its decimal count
func parseQuoted(q string) (float64, int, bool) {
	s := strings.TrimSuffix(q, "%")
	s = strings.Replace(s, "−", "-", 1)

	// A comma followed by exactly three digits is a thousands separator
	if strings.Contains(s, ",") {
		parts := strings.Split(s, ",")
		thousands := true
		for _, p := range parts[1:] {
			if len(strings.SplitN(p, ".", 2)[0]) != 3 {
				thousands = false
			}
		}
		if !thousands {
			return 0, 0, false
		}
		s = strings.Join(parts, "")
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, 0, false
	}

	decimals := 0
	if i := strings.IndexByte(s, '.'); i >= 0 {
		decimals = len(s) - i - 1
	}
	return value, decimals, true
}

// formatFigure renders a figure the way the narrative may quote it
func formatFigure(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatFloat(f, 'f', 0, 64)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// verifyNarrative extracts quoted figures and, in strict mode, checks them
func verifyNarrative(summary string, allowed []float64, strict bool) ([]string, error) {
	quoted := extractFigures(summary)
	if strict {
		if err := checkFigures(quoted, allowed); err != nil {
			return nil, err
		}
	}
	return quoted, nil
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Min(m, v)
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		m = math.Max(m, v)
	}
	return m
}
