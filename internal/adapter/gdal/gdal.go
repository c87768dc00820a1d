// Package gdal reads and writes GeoTIFF rasters with the GDAL command-line
// utilities. Rasters cross the process boundary as raw band files: reads
// export the first band to ENVI with gdal_translate, writes describe a raw
// Float32 band with a VRT and translate it to a tiled, LZW-compressed GeoTIFF.
package gdal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
)

// Runner executes GDAL utilities.
type Runner interface {
	Execute(ctx context.Context, cmd domain.Command) error
	Output(ctx context.Context, cmd domain.Command) ([]byte, error)
}

// Rasters implements pipeline.RasterReader and pipeline.RasterWriter.
type Rasters struct {
	runner Runner
	tmpDir string
	logger *slog.Logger
}

// NewRasters creates a raster binding staging band files under tmpDir, which
// should be RAM-backed in production.
func NewRasters(runner Runner, tmpDir string, logger *slog.Logger) *Rasters {
	return &Rasters{runner: runner, tmpDir: tmpDir, logger: logger}
}

// Read loads band 1 of path as float64 and applies transform to every cell.
// A missing file yields an error wrapping domain.ErrRasterNotFound.
func (r *Rasters) Read(ctx context.Context, path string, transform domain.Transform) (*domain.Raster, error) {
	if err := statFile(path); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrRasterNotFound, err)
	}

	dir, err := os.MkdirTemp(r.tmpDir, "gdal-read-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer r.cleanup(dir)

	band := filepath.Join(dir, "band.raw")
	if err := r.runner.Execute(ctx, exportCommand(path, band)); err != nil {
		return nil, fmt.Errorf("export %s: %w", path, err)
	}

	raster, err := readENVI(band, headerPath(band))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	transform.Apply(raster)
	return raster, nil
}

// Write creates path as a single-band Float32 GeoTIFF with the geometry of
// cfg. Parent directories are created as needed.
func (r *Rasters) Write(ctx context.Context, path string, cfg domain.RasterConfig, raster *domain.Raster, noData *float64) error {
	if !raster.SameShape(cfg) || len(raster.Data) != cfg.Rows*cfg.Cols {
		return fmt.Errorf("%w: raster is %dx%d, configuration %dx%d",
			domain.ErrShapeMismatch, raster.Rows, raster.Cols, cfg.Rows, cfg.Cols)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory of %s: %w", path, err)
	}

	dir, err := os.MkdirTemp(r.tmpDir, "gdal-write-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer r.cleanup(dir)

	band := filepath.Join(dir, "band.raw")
	if err := writeFloat32(band, raster.Data); err != nil {
		return err
	}
	vrt := filepath.Join(dir, "band.vrt")
	if err := writeVRT(vrt, filepath.Base(band), cfg, noData); err != nil {
		return err
	}
	if err := r.runner.Execute(ctx, importCommand(vrt, path)); err != nil {
		return fmt.Errorf("translate %s: %w", path, err)
	}
	return nil
}

func (r *Rasters) cleanup(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		r.logger.Warn("remove staging directory failed", "dir", dir, "error", err)
	}
}

// Configs implements pipeline.ConfigSource by inspecting the durable
// 5-minute snapshot of a zone with gdalinfo.
type Configs struct {
	runner Runner
	layout domain.Layout
}

// NewConfigs creates a geometry source for snapshots under layout.
func NewConfigs(runner Runner, layout domain.Layout) *Configs {
	return &Configs{runner: runner, layout: layout}
}

// ConfigFor returns the geometry of the snapshot of zone at ts. An absent
// snapshot yields domain.ErrConfigNotFound; an unreadable one a plain error.
func (c *Configs) ConfigFor(ctx context.Context, zone domain.Zone, ts time.Time) (domain.RasterConfig, error) {
	path := c.layout.DurablePath(domain.ParamValues5mn, zone, ts)
	if err := statFile(path); err != nil {
		return domain.RasterConfig{}, fmt.Errorf("%w: %w", domain.ErrConfigNotFound, err)
	}
	out, err := c.runner.Output(ctx, infoCommand(path))
	if err != nil {
		return domain.RasterConfig{}, fmt.Errorf("inspect %s: %w", path, err)
	}
	cfg, err := parseInfo(out)
	if err != nil {
		return domain.RasterConfig{}, fmt.Errorf("inspect %s: %w", path, err)
	}
	return cfg, nil
}

func statFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s does not exist", path)
		}
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

func infoCommand(path string) domain.Command {
	return domain.Command{Name: "gdalinfo", Args: []string{"-json", path}}
}

func exportCommand(src, dst string) domain.Command {
	return domain.Command{Name: "gdal_translate", Args: []string{
		"-q", "-of", "ENVI", "-ot", "Float64", "-b", "1",
		"-co", "SUFFIX=REPLACE",
		src, dst,
	}}
}

func importCommand(vrt, dst string) domain.Command {
	return domain.Command{Name: "gdal_translate", Args: []string{
		"-q", "-of", "GTiff",
		"-co", "TILED=YES",
		"-co", "COMPRESS=LZW",
		vrt, dst,
	}}
}
