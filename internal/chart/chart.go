// Package chart draws the scatter-plus-fit-line figure for an analysis.
package chart

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strings"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"

	"github.com/ppiankov/linreg/internal/model"
)

// Format is an output image format
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 640
)

var (
	pointColor = drawing.Color{R: 31, G: 119, B: 180, A: 255}
	lineColor  = drawing.Color{R: 214, G: 39, B: 40, A: 255}
)

// pointStyle renders dots with no connecting line
func pointStyle() gochart.Style {
	return gochart.Style{
		StrokeWidth: gochart.Disabled,
		DotWidth:    5,
		DotColor:    pointColor,
	}
}

// Title returns the chart title for a given R²
func Title(r2 float64) string {
	return fmt.Sprintf("Linear regression (R² = %.4f)", r2)
}

// Build assembles the chart: raw points as a scatter series and the fitted
// line drawn through the points ordered by x.
func Build(ds model.Dataset, fitted []float64, r2 float64) (*gochart.Chart, error) {
	if ds.Len() < 2 {
		return nil, fmt.Errorf("chart: %w", model.ErrInsufficientPoints)
	}
	if len(fitted) != ds.Len() {
		return nil, fmt.Errorf("chart: %d fitted values for %d points", len(fitted), ds.Len())
	}

	xs := ds.Xs()
	ys := ds.Ys()

	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return xs[order[a]] < xs[order[b]] })

	lineX := make([]float64, len(order))
	lineY := make([]float64, len(order))
	for i, idx := range order {
		lineX[i] = xs[idx]
		lineY[i] = fitted[idx]
	}

	ch := gochart.Chart{
		Title:      Title(r2),
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.XAxis{Name: "x"},
		YAxis:      gochart.YAxis{Name: "y"},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Data points",
				XValues: xs,
				YValues: ys,
				Style:   pointStyle(),
			},
			gochart.ContinuousSeries{
				Name:    "Regression line",
				XValues: lineX,
				YValues: lineY,
				Style: gochart.Style{
					StrokeColor: lineColor,
					StrokeWidth: 2,
				},
			},
		},
	}
	if r := flatRange(ys, fitted); r != nil {
		ch.YAxis.Range = r
	}
	ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}

	return &ch, nil
}

// flatRange pads a zero-height y range to one unit either side of the value.
// go-chart would otherwise tick a zero range at float resolution.
func flatRange(ys, fitted []float64) *gochart.ContinuousRange {
	lo := math.Min(floats.Min(ys), floats.Min(fitted))
	hi := math.Max(floats.Max(ys), floats.Max(fitted))
	if hi != lo {
		return nil
	}
	return &gochart.ContinuousRange{Min: lo - 1, Max: hi + 1}
}

// FormatFromPath picks the format from a file extension, defaulting to PNG
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".svg") {
		return FormatSVG
	}
	return FormatPNG
}

// Render writes the chart in the requested format
func Render(w io.Writer, c *gochart.Chart, format Format) error {
	if c == nil {
		return fmt.Errorf("chart: nothing to render")
	}

	var provider gochart.RendererProvider
	switch format {
	case FormatPNG, "":
		provider = gochart.PNG
	case FormatSVG:
		provider = gochart.SVG
	default:
		return fmt.Errorf("chart: unsupported format %q", format)
	}

	if err := c.Render(provider, w); err != nil {
		return fmt.Errorf("chart: render %s: %w", format, err)
	}
	return nil
}
