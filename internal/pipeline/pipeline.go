package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
	"github.com/couchcryptid/radar-accumulation-service/internal/observability"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Request selects the timestamps and zones of a run. Start and End are both
// included and stepped by 5 minutes.
type Request struct {
	Start   time.Time
	End     time.Time
	Zones   []domain.Zone
	Replace bool
}

// Timestamps lists the reference timestamps of the request.
func (r Request) Timestamps() []time.Time {
	return domain.Range(r.Start, r.End, domain.MustSpecFor(domain.Tier5mn).Alignment, false, false)
}

// Report summarises a run.
type Report struct {
	RunID          string
	Committed      int
	Replaced       int
	Skipped        int
	Failed         int
	ConfigNotFound int
	Outcomes       []Outcome
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.State {
	case StateCommitted:
		if o.Replaced {
			r.Replaced++
		} else {
			r.Committed++
		}
	case StateSkipped:
		r.Skipped++
	case StateFailed:
		r.Failed++
	}
}

// Pipeline drives every tier of every (zone, timestamp) of a request through
// the Controller, finer tiers first.
type Pipeline struct {
	controller *Controller
	configs    ConfigSource
	logger     *slog.Logger
	metrics    *observability.Metrics
	running    atomic.Bool
	ready      atomic.Bool
}

// New creates a Pipeline with the given collaborators and observability.
func New(deps Deps, layout domain.Layout, method Method, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		controller: NewController(deps, layout, method, logger, metrics),
		configs:    deps.Configs,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once the pipeline has processed at least one
// (zone, timestamp), or an error describing why it is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not processed any timestamp yet")
	}
	return nil
}

// Running reports whether a run is in progress.
func (p *Pipeline) Running() bool {
	return p.running.Load()
}

// Run processes req. Unit failures do not stop the run; they are collected
// and returned together once every unit has been attempted. Cancelling ctx
// stops the run before the next unit.
func (p *Pipeline) Run(ctx context.Context, req Request) (Report, error) {
	if req.End.Before(req.Start) {
		return Report{}, fmt.Errorf("end %s is before start %s",
			req.End.UTC().Format(time.RFC3339), req.Start.UTC().Format(time.RFC3339))
	}
	if !p.running.CompareAndSwap(false, true) {
		return Report{}, errors.New("a run is already in progress")
	}
	defer p.running.Store(false)

	zones := req.Zones
	if len(zones) == 0 {
		zones = domain.DefaultZones
	}

	report := Report{RunID: uuid.NewString()}
	logger := p.logger.With("run_id", report.RunID)
	timestamps := req.Timestamps()

	logger.Info("run started",
		"start", req.Start.UTC().Format(time.RFC3339),
		"end", req.End.UTC().Format(time.RFC3339),
		"timestamps", len(timestamps),
		"zones", zones,
		"replace", req.Replace,
	)
	p.metrics.RunRunning.Set(1)
	defer p.metrics.RunRunning.Set(0)
	start := domain.Now()

	var errs *multierror.Error
	for _, ts := range timestamps {
		for _, zone := range zones {
			if err := ctx.Err(); err != nil {
				logger.Info("run stopping", "reason", err)
				errs = multierror.Append(errs, err)
				return p.finish(logger, report, errs, start)
			}
			for _, err := range p.processZone(ctx, logger, zone, ts, req.Replace, &report) {
				errs = multierror.Append(errs, err)
			}
			p.ready.Store(true)
		}
	}
	return p.finish(logger, report, errs, start)
}

// processZone resolves the raster geometry of (zone, ts) and runs every tier
// in dependency order. It returns the failures of the units it ran.
func (p *Pipeline) processZone(ctx context.Context, logger *slog.Logger, zone domain.Zone, ts time.Time, replace bool, report *Report) []error {
	logger = logger.With("zone", zone, "timestamp", ts.UTC().Format(time.RFC3339))

	cfg, err := p.resolveConfig(ctx, logger, zone, ts)
	if err != nil {
		if ctx.Err() != nil {
			return []error{ctx.Err()}
		}
		report.ConfigNotFound++
		p.metrics.ConfigNotFound.Inc()
		logger.Info("skipping all tiers, no snapshot within the hour", "error", err)
		return nil
	}

	var failures []error
	for _, tier := range domain.AccumulationTiers {
		if err := ctx.Err(); err != nil {
			return append(failures, err)
		}
		out := p.controller.Process(ctx, Unit{
			Zone:      zone,
			Timestamp: ts,
			Tier:      tier,
			Config:    cfg,
			Replace:   replace,
		})
		report.add(out)
		if out.State == StateFailed {
			failures = append(failures, fmt.Errorf("%s %s at %s: %w",
				zone, tier, ts.UTC().Format(time.RFC3339), out.Err))
		}
	}
	return failures
}

// resolveConfig probes the snapshots of the hour ending at ts, most recent
// first, and returns the geometry of the first one found.
func (p *Pipeline) resolveConfig(ctx context.Context, logger *slog.Logger, zone domain.Zone, ts time.Time) (domain.RasterConfig, error) {
	for _, candidate := range domain.ConfigCandidates(ts) {
		if err := ctx.Err(); err != nil {
			return domain.RasterConfig{}, err
		}
		cfg, err := p.configs.ConfigFor(ctx, zone, candidate)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, domain.ErrConfigNotFound) {
			logger.Warn("snapshot unreadable", "snapshot", candidate.UTC().Format(time.RFC3339), "error", err)
		}
	}
	return domain.RasterConfig{}, fmt.Errorf("%w: %s at %s", domain.ErrConfigNotFound, zone, ts.UTC().Format(time.RFC3339))
}

func (p *Pipeline) finish(logger *slog.Logger, report Report, errs *multierror.Error, start time.Time) (Report, error) {
	err := errs.ErrorOrNil()
	success := 0.0
	if err == nil {
		success = 1
	}
	p.metrics.LastRunSuccess.Set(success)

	logger.Info("run finished",
		"committed", report.Committed,
		"replaced", report.Replaced,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"config_not_found", report.ConfigNotFound,
		"duration", domain.Since(start),
	)
	return report, err
}
