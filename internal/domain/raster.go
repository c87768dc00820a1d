package domain

import (
	"fmt"
	"math"
)

// RasterConfig is the geometry shared by every raster written in one
// (zone, timestamp) run.
type RasterConfig struct {
	Cols         int
	Rows         int
	GeoTransform [6]float64
	Projection   string
}

// Raster is a single-band grid of physical values, row-major.
type Raster struct {
	Rows int
	Cols int
	Data []float64
}

// NewRaster allocates a zero-filled raster.
func NewRaster(rows, cols int) *Raster {
	return &Raster{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// NewRasterFor allocates a zero-filled raster with the dimensions of cfg.
func NewRasterFor(cfg RasterConfig) *Raster {
	return NewRaster(cfg.Rows, cfg.Cols)
}

// RasterFromRows builds a raster from nested rows. All rows must have the
// same length.
func RasterFromRows(rows [][]float64) (*Raster, error) {
	if len(rows) == 0 {
		return NewRaster(0, 0), nil
	}
	cols := len(rows[0])
	r := NewRaster(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), cols)
		}
		copy(r.Data[i*cols:], row)
	}
	return r, nil
}

func (r *Raster) At(row, col int) float64 { return r.Data[row*r.Cols+col] }

func (r *Raster) Set(row, col int, v float64) { r.Data[row*r.Cols+col] = v }

// Rows2D returns the data as nested rows.
func (r *Raster) Rows2D() [][]float64 {
	out := make([][]float64, r.Rows)
	for i := range out {
		out[i] = append([]float64(nil), r.Data[i*r.Cols:(i+1)*r.Cols]...)
	}
	return out
}

// SameShape reports whether r has the dimensions of cfg.
func (r *Raster) SameShape(cfg RasterConfig) bool {
	return r.Rows == cfg.Rows && r.Cols == cfg.Cols
}

// AllNaN reports whether no cell holds a finite value. An empty raster is not
// considered all-NaN.
func (r *Raster) AllNaN() bool {
	if len(r.Data) == 0 {
		return false
	}
	for _, v := range r.Data {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Add accumulates o into r cell by cell.
func (r *Raster) Add(o *Raster) error {
	if o.Rows != r.Rows || o.Cols != r.Cols {
		return fmt.Errorf("raster shape %dx%d does not match %dx%d", o.Rows, o.Cols, r.Rows, r.Cols)
	}
	for i, v := range o.Data {
		r.Data[i] += v
	}
	return nil
}

// Scale multiplies every cell by f.
func (r *Raster) Scale(f float64) {
	for i := range r.Data {
		r.Data[i] *= f
	}
}

func (r *Raster) Clone() *Raster {
	return &Raster{Rows: r.Rows, Cols: r.Cols, Data: append([]float64(nil), r.Data...)}
}
