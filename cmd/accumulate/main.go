// Command accumulate builds the radar precipitation accumulation tiles (1h to
// 72h) for one reference time or an inclusive range, in every requested zone.
//
// Usage:
//
//	accumulate -datetime 2000-06-15T13:00:00Z
//	accumulate -start 2000-06-15T00:00:00Z -end 2000-06-15T23:55:00Z -zone METROPOLE -replace
//
// Settings come from the environment (see internal/config). The exit status is
// 0 when every unit was committed or skipped, 1 when any unit failed, and 2 on
// usage or configuration errors.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/radar-accumulation-service/internal/adapter/cache"
	"github.com/couchcryptid/radar-accumulation-service/internal/adapter/exec"
	"github.com/couchcryptid/radar-accumulation-service/internal/adapter/fs"
	"github.com/couchcryptid/radar-accumulation-service/internal/adapter/gdal"
	httpadapter "github.com/couchcryptid/radar-accumulation-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/radar-accumulation-service/internal/adapter/kafka"
	"github.com/couchcryptid/radar-accumulation-service/internal/adapter/sqlstore"
	"github.com/couchcryptid/radar-accumulation-service/internal/adapter/watermark"
	"github.com/couchcryptid/radar-accumulation-service/internal/config"
	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
	"github.com/couchcryptid/radar-accumulation-service/internal/observability"
	"github.com/couchcryptid/radar-accumulation-service/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	exitOK    = 0
	exitRun   = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	req, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, "accumulate:", err)
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitUsage
	}
	method, err := pipeline.ParseMethod(cfg.OneHourMethod)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return exitUsage
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks, err := openWatermarks(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open watermark store", "error", err)
		return exitRun
	}
	defer sinks.close(logger)

	layout := domain.Layout{
		TilesRoot:   cfg.TilesRoot,
		ScratchRoot: cfg.ScratchRoot,
		PalettesDir: cfg.PalettesDir,
	}
	executor := exec.NewExecutor(logger)
	rasters := gdal.NewRasters(executor, cfg.ScratchRoot, logger)

	p := pipeline.New(pipeline.Deps{
		Reader:     rasters,
		Writer:     rasters,
		Configs:    cache.NewConfigs(gdal.NewConfigs(executor, layout), cfg.ConfigCacheSize),
		Exists:     fs.NewChecker(),
		Executor:   executor,
		Watermarks: sinks.store,
	}, layout, method, logger, metrics)

	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	report, runErr := p.Run(ctx, req)

	if cfg.PushgatewayURL != "" {
		if err := pushMetrics(cfg, prometheus.DefaultGatherer); err != nil {
			logger.Error("metrics push error", "error", err)
		}
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		logger.Error("run failed", "run_id", report.RunID, "failed", report.Failed, "error", runErr)
		return exitRun
	}
	return exitOK
}

// pushMetrics sends the run's metrics to the Pushgateway, giving up after
// SHUTDOWN_TIMEOUT.
func pushMetrics(cfg *config.Config, g prometheus.Gatherer) error {
	host, _ := os.Hostname()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return observability.Push(ctx, cfg.PushgatewayURL, host, g)
}

// watermarkSinks is the configured watermark store and the resources behind it.
type watermarkSinks struct {
	store   pipeline.WatermarkStore
	closers []io.Closer
}

func (w watermarkSinks) close(logger *slog.Logger) {
	for _, c := range w.closers {
		if err := c.Close(); err != nil {
			logger.Error("watermark sink close error", "error", err)
		}
	}
}

// openWatermarks fans watermarks out to the SQL table read by the tile server
// and, when brokers are configured, to the tile-update topic.
func openWatermarks(ctx context.Context, cfg *config.Config, logger *slog.Logger) (watermarkSinks, error) {
	var sinks watermarkSinks
	var fanout watermark.Fanout

	if cfg.WatermarkDriver == config.WatermarkNone {
		logger.Info("watermark store disabled")
		fanout = append(fanout, watermark.Discard{Logger: logger})
	} else {
		db, err := sqlstore.Open(ctx, cfg, logger)
		if err != nil {
			return sinks, err
		}
		store, err := sqlstore.New(db, cfg.WatermarkTable)
		if err != nil {
			_ = db.Close()
			return sinks, err
		}
		if cfg.WatermarkDriver == config.WatermarkSQLite {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return sinks, err
			}
		}
		fanout = append(fanout, store)
		sinks.closers = append(sinks.closers, store)
	}

	if cfg.NotificationsEnabled() {
		notifier := kafkaadapter.NewNotifier(cfg, logger)
		fanout = append(fanout, notifier)
		sinks.closers = append(sinks.closers, notifier)
		logger.Info("tile update notifications enabled", "topic", cfg.KafkaTilesTopic)
	}

	sinks.store = fanout
	return sinks, nil
}
