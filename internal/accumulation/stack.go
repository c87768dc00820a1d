package accumulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
)

// RasterReader loads a raster, applying transform to every cell. A missing or
// unreadable file is an error; callers decide whether that is fatal.
type RasterReader interface {
	Read(ctx context.Context, path string, transform domain.Transform) (*domain.Raster, error)
}

// Layer records what was loaded for one input of a stack.
type Layer struct {
	Path string
	// Err is nil for a usable layer, or wraps domain.ErrInputMissing or
	// domain.ErrAllNaNLayer when the layer was replaced by zeros.
	Err error
}

// Stack reads one layer per path into zero-initialized rasters shaped like
// cfg. Unreadable inputs and inputs with no finite value stay zero; inputs
// with some non-finite cells are kept verbatim.
func Stack(ctx context.Context, reader RasterReader, paths []string, cfg domain.RasterConfig, transform domain.Transform, logger *slog.Logger) ([]*domain.Raster, []Layer) {
	layers := make([]*domain.Raster, len(paths))
	report := make([]Layer, len(paths))
	for i, path := range paths {
		layers[i] = domain.NewRasterFor(cfg)
		report[i] = Layer{Path: path, Err: loadLayer(ctx, reader, path, cfg, transform, layers[i])}
		if report[i].Err != nil {
			logger.Warn("input layer replaced by zeros", "path", path, "error", report[i].Err)
		}
	}
	return layers, report
}

func loadLayer(ctx context.Context, reader RasterReader, path string, cfg domain.RasterConfig, transform domain.Transform, dst *domain.Raster) error {
	r, err := reader.Read(ctx, path, transform)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInputMissing, err)
	}
	if !r.SameShape(cfg) {
		return fmt.Errorf("%w: %s is %dx%d, want %dx%d: %w",
			domain.ErrInputMissing, path, r.Rows, r.Cols, cfg.Rows, cfg.Cols, domain.ErrShapeMismatch)
	}
	if r.AllNaN() {
		return domain.ErrAllNaNLayer
	}
	copy(dst.Data, r.Data)
	return nil
}

// Missing counts the layers that were replaced by zeros.
func Missing(report []Layer) int {
	n := 0
	for _, l := range report {
		if l.Err != nil {
			n++
		}
	}
	return n
}
