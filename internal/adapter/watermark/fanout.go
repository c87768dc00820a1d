// Package watermark combines watermark sinks.
package watermark

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/pipeline"
	"github.com/hashicorp/go-multierror"
)

// Fanout records a watermark in every sink, in order. All sinks are attempted
// even when one fails; the failures are returned together.
type Fanout []pipeline.WatermarkStore

// RecordLast implements pipeline.WatermarkStore.
func (f Fanout) RecordLast(ctx context.Context, paramKey string, ts time.Time) error {
	var errs *multierror.Error
	for _, s := range f {
		if err := s.RecordLast(ctx, paramKey, ts); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// Discard logs watermarks instead of storing them. It backs
// WATERMARK_DRIVER=none, for reprocessing runs that must not move the
// channels clients see.
type Discard struct {
	Logger *slog.Logger
}

func (d Discard) RecordLast(_ context.Context, paramKey string, ts time.Time) error {
	d.Logger.Debug("watermark not stored", "param_key", paramKey, "timestamp", ts.UTC().Format(time.RFC3339))
	return nil
}
