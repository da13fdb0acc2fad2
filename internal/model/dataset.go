package model

// Point is a single paired observation
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dataset is an ordered, immutable sequence of paired observations.
// Datasets produced by the validator always hold at least 2 finite points.
type Dataset struct {
	points []Point
}

// NewDataset builds a dataset from the given points without validating them.
// The points are copied.
func NewDataset(points ...Point) Dataset {
	cp := make([]Point, len(points))
	copy(cp, points)
	return Dataset{points: cp}
}

// Len returns the number of points
func (d Dataset) Len() int {
	return len(d.points)
}

// At returns the i-th point
func (d Dataset) At(i int) Point {
	return d.points[i]
}

// Points returns a copy of the points in input order
func (d Dataset) Points() []Point {
	cp := make([]Point, len(d.points))
	copy(cp, d.points)
	return cp
}

// Xs returns the independent values in input order
func (d Dataset) Xs() []float64 {
	xs := make([]float64, len(d.points))
	for i, p := range d.points {
		xs[i] = p.X
	}
	return xs
}

// Ys returns the dependent values in input order
func (d Dataset) Ys() []float64 {
	ys := make([]float64, len(d.points))
	for i, p := range d.points {
		ys[i] = p.Y
	}
	return ys
}
