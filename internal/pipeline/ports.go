package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/accumulation"
	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
)

// RasterReader loads input rasters.
type RasterReader = accumulation.RasterReader

// RasterWriter creates a single-band raster file with the geometry of cfg.
// A non-nil noData is recorded as the band's no-data value.
type RasterWriter interface {
	Write(ctx context.Context, path string, cfg domain.RasterConfig, r *domain.Raster, noData *float64) error
}

// ConfigSource returns the geometry of the snapshot of zone at ts, or an error
// wrapping domain.ErrConfigNotFound when that snapshot is unavailable.
type ConfigSource interface {
	ConfigFor(ctx context.Context, zone domain.Zone, ts time.Time) (domain.RasterConfig, error)
}

// ExistenceChecker reports whether a durable artifact is present.
type ExistenceChecker interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// CommandExecutor runs rendering and file-management commands synchronously.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd domain.Command) error
}

// WatermarkStore records the latest timestamp generated for a param key.
type WatermarkStore interface {
	RecordLast(ctx context.Context, paramKey string, ts time.Time) error
}

// Deps bundles the collaborators of a run.
type Deps struct {
	Reader     RasterReader
	Writer     RasterWriter
	Configs    ConfigSource
	Exists     ExistenceChecker
	Executor   CommandExecutor
	Watermarks WatermarkStore
}

// Method selects how the 1h tier is produced.
type Method string

const (
	// MethodInterpolate integrates a cubic interpolation of the 5-minute
	// rate snapshots.
	MethodInterpolate Method = "interpolate"
	// MethodSum adds up the scaled 5-minute depth snapshots.
	MethodSum Method = "sum"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodInterpolate, MethodSum:
		return m, nil
	}
	return "", fmt.Errorf("unknown 1h method %q", s)
}
