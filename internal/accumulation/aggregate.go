package accumulation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
)

// Sum adds up the rasters at paths cell by cell. Inputs that cannot be read
// contribute nothing and are reported; the partial sum is still returned.
// Non-finite cells of readable inputs propagate into the sum.
func Sum(ctx context.Context, reader RasterReader, paths []string, cfg domain.RasterConfig, transform domain.Transform, logger *slog.Logger) (*domain.Raster, []Layer) {
	total := domain.NewRasterFor(cfg)
	report := make([]Layer, len(paths))
	for i, path := range paths {
		report[i] = Layer{Path: path}
		r, err := reader.Read(ctx, path, transform)
		if err != nil {
			report[i].Err = fmt.Errorf("%w: %w", domain.ErrInputMissing, err)
			logger.Warn("input missing, counted as zero", "path", path, "error", err)
			continue
		}
		if err := total.Add(r); err != nil {
			report[i].Err = fmt.Errorf("%w: %w: %w", domain.ErrInputMissing, domain.ErrShapeMismatch, err)
			logger.Warn("input shape mismatch, counted as zero", "path", path, "error", err)
			continue
		}
	}
	return total, report
}

// Hourly builds the hourly accumulation from the rate snapshots at paths,
// taken at knots, integrated over grid.
func Hourly(ctx context.Context, reader RasterReader, paths []string, knots, grid []time.Time, cfg domain.RasterConfig, logger *slog.Logger) (*domain.Raster, []Layer, error) {
	if len(paths) != len(knots) {
		return nil, nil, fmt.Errorf("%d snapshot paths for %d timestamps", len(paths), len(knots))
	}
	layers, report := Stack(ctx, reader, paths, cfg, domain.Identity, logger)
	r, err := IntegrateHour(knots, layers, grid)
	if err != nil {
		return nil, report, err
	}
	return r, report, nil
}
