package accumulation

import (
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"
)

// SecondsPerHour normalizes an integral over seconds to an hourly depth.
const SecondsPerHour = 3600

// Spline samples a not-a-knot cubic spline through fixed knots on a fixed
// grid. The spline is linear in its ordinates, so it is stored as one weight
// row per grid point and evaluating a pixel is a dot product.
type Spline struct {
	knots   []float64
	grid    []float64
	weights [][]float64 // [grid][knot]
}

// NewSpline precomputes the weights for knots and grid (epoch seconds, both
// strictly increasing). At least three knots are required.
func NewSpline(knots, grid []float64) (*Spline, error) {
	if len(knots) < 3 {
		return nil, fmt.Errorf("cubic spline needs at least 3 knots, got %d", len(knots))
	}
	if len(grid) < 2 {
		return nil, fmt.Errorf("integration grid needs at least 2 points, got %d", len(grid))
	}
	if err := checkIncreasing(knots); err != nil {
		return nil, fmt.Errorf("knots: %w", err)
	}
	if err := checkIncreasing(grid); err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}

	weights := make([][]float64, len(grid))
	for g := range weights {
		weights[g] = make([]float64, len(knots))
	}
	unit := make([]float64, len(knots))
	for k := range knots {
		clear(unit)
		unit[k] = 1
		var nak interp.NotAKnotCubic
		if err := nak.Fit(knots, unit); err != nil {
			return nil, fmt.Errorf("fit spline basis %d: %w", k, err)
		}
		for g, x := range grid {
			weights[g][k] = nak.Predict(x)
		}
	}
	return &Spline{knots: knots, grid: grid, weights: weights}, nil
}

// Evaluate returns the spline through ys sampled on the grid.
func (s *Spline) Evaluate(ys []float64) []float64 {
	out := make([]float64, len(s.grid))
	for g, row := range s.weights {
		out[g] = dot(row, ys)
	}
	return out
}

// IntegralWeights returns, per knot, the trapezoidal integral over the grid of
// that knot's basis function. The integral of the spline through ys is then
// dot(IntegralWeights(), ys).
func (s *Spline) IntegralWeights() []float64 {
	out := make([]float64, len(s.knots))
	column := make([]float64, len(s.grid))
	for k := range s.knots {
		for g, row := range s.weights {
			column[g] = row[k]
		}
		out[k] = integrate.Trapezoidal(s.grid, column)
	}
	return out
}

// Interpolate resamples time-stacked layers from knot times onto grid times,
// pixel by pixel. All layers must share one shape.
func Interpolate(knots []time.Time, layers []*domain.Raster, grid []time.Time) ([]*domain.Raster, error) {
	rows, cols, err := stackShape(knots, layers)
	if err != nil {
		return nil, err
	}
	s, err := NewSpline(domain.Seconds(knots), domain.Seconds(grid))
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Raster, len(grid))
	for g := range out {
		out[g] = domain.NewRaster(rows, cols)
	}
	ys := make([]float64, len(layers))
	for px := 0; px < rows*cols; px++ {
		for k, l := range layers {
			ys[k] = l.Data[px]
		}
		for g, row := range s.weights {
			out[g].Data[px] = dot(row, ys)
		}
	}
	return out, nil
}

// Integrate applies the trapezoidal rule per pixel over time-stacked layers
// sampled at grid times. The result is in value x seconds.
func Integrate(grid []time.Time, layers []*domain.Raster) (*domain.Raster, error) {
	rows, cols, err := stackShape(grid, layers)
	if err != nil {
		return nil, err
	}
	if len(grid) < 2 {
		return nil, fmt.Errorf("integration grid needs at least 2 points, got %d", len(grid))
	}
	xs := domain.Seconds(grid)
	if err := checkIncreasing(xs); err != nil {
		return nil, fmt.Errorf("grid: %w", err)
	}

	out := domain.NewRaster(rows, cols)
	series := make([]float64, len(layers))
	for px := range out.Data {
		for g, l := range layers {
			series[g] = l.Data[px]
		}
		out.Data[px] = integrate.Trapezoidal(xs, series)
	}
	return out, nil
}

// IntegrateHour computes the hourly accumulation depth of rate snapshots:
// spline through the knots, trapezoid over the grid, divided by one hour.
// It equals Integrate(grid, Interpolate(knots, layers, grid)) / 3600 without
// materializing the resampled stack.
func IntegrateHour(knots []time.Time, layers []*domain.Raster, grid []time.Time) (*domain.Raster, error) {
	rows, cols, err := stackShape(knots, layers)
	if err != nil {
		return nil, err
	}
	s, err := NewSpline(domain.Seconds(knots), domain.Seconds(grid))
	if err != nil {
		return nil, err
	}
	w := s.IntegralWeights()

	out := domain.NewRaster(rows, cols)
	for px := range out.Data {
		var sum float64
		for k, l := range layers {
			sum += w[k] * l.Data[px]
		}
		out.Data[px] = sum / SecondsPerHour
	}
	return out, nil
}

func stackShape(times []time.Time, layers []*domain.Raster) (rows, cols int, err error) {
	if len(layers) != len(times) {
		return 0, 0, fmt.Errorf("%d layers for %d timestamps", len(layers), len(times))
	}
	if len(layers) == 0 {
		return 0, 0, errors.New("no layers")
	}
	rows, cols = layers[0].Rows, layers[0].Cols
	for i, l := range layers {
		if l.Rows != rows || l.Cols != cols {
			return 0, 0, fmt.Errorf("layer %d is %dx%d, want %dx%d: %w", i, l.Rows, l.Cols, rows, cols, domain.ErrShapeMismatch)
		}
	}
	return rows, cols, nil
}

func checkIncreasing(xs []float64) error {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return fmt.Errorf("not strictly increasing at index %d", i)
		}
	}
	return nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
