package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/accumulation"
	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
	"github.com/couchcryptid/radar-accumulation-service/internal/observability"
)

// State is a step of the per-unit state machine. Generation of one
// (zone, timestamp, tier) unit walks CheckAlignment, CheckExistence, Generate
// and Commit, and stops in Skipped, Committed or Failed.
type State int

const (
	StateCheckAlignment State = iota
	StateCheckExistence
	StateGenerate
	StateCommit
	StateSkipped
	StateCommitted
	StateFailed
)

var stateNames = [...]string{
	StateCheckAlignment: "check_alignment",
	StateCheckExistence: "check_existence",
	StateGenerate:       "generate",
	StateCommit:         "commit",
	StateSkipped:        "skipped",
	StateCommitted:      "committed",
	StateFailed:         "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether s ends the state machine.
func (s State) Terminal() bool {
	return s >= StateSkipped
}

// interpolatedNoData marks cells of the interpolated 1h raster that carry no
// value.
const interpolatedNoData = -99.0

// Unit is one (zone, timestamp, tier) generation.
type Unit struct {
	Zone      domain.Zone
	Timestamp time.Time
	Tier      domain.Tier
	Config    domain.RasterConfig
	Replace   bool
}

// Outcome is the terminal state of a unit. Err explains a Skipped or Failed
// outcome; Replaced is set when an existing artifact was regenerated.
type Outcome struct {
	Zone      domain.Zone
	Timestamp time.Time
	Tier      domain.Tier
	Param     domain.Param
	State     State
	Replaced  bool
	Missing   int
	Err       error
}

// Label is the outcome label used in metrics.
func (o Outcome) Label() string {
	if o.State == StateCommitted && o.Replaced {
		return "replaced"
	}
	return o.State.String()
}

// Controller decides whether a unit runs and carries it through generation.
type Controller struct {
	deps    Deps
	layout  domain.Layout
	method  Method
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewController creates a Controller writing under layout and producing the
// 1h tier with method.
func NewController(deps Deps, layout domain.Layout, method Method, logger *slog.Logger, metrics *observability.Metrics) *Controller {
	return &Controller{
		deps:    deps,
		layout:  layout,
		method:  method,
		logger:  logger,
		metrics: metrics,
	}
}

// Process runs the state machine for u. It never returns a partially
// committed unit: the watermark is written last, and only for non-replace
// runs.
func (c *Controller) Process(ctx context.Context, u Unit) Outcome {
	out := Outcome{Zone: u.Zone, Timestamp: u.Timestamp, Tier: u.Tier}
	spec, err := domain.SpecFor(u.Tier)
	if err != nil {
		out.State, out.Err = StateFailed, err
		return out
	}
	plan, err := NewPlan(c.layout, u.Tier, u.Zone, u.Timestamp)
	if err != nil {
		out.State, out.Err = StateFailed, err
		return out
	}
	out.Param = spec.ColorParam

	logger := c.logger.With(
		"zone", u.Zone,
		"tier", u.Tier,
		"timestamp", u.Timestamp.UTC().Format(time.RFC3339),
		"param_key", domain.ParamKey(spec.ColorParam, u.Zone),
	)

	start := domain.Now()
	state := StateCheckAlignment
	for !state.Terminal() {
		state = c.step(ctx, state, u, spec, plan, &out, logger)
	}
	out.State = state
	c.observe(out, domain.Since(start), logger)
	return out
}

func (c *Controller) step(ctx context.Context, state State, u Unit, spec domain.TierSpec, plan Plan, out *Outcome, logger *slog.Logger) State {
	switch state {
	case StateCheckAlignment:
		if !plan.Aligned {
			out.Err = fmt.Errorf("%w: %s at %s", domain.ErrMisaligned, u.Tier, u.Timestamp.UTC().Format(time.RFC3339))
			return StateSkipped
		}
		return StateCheckExistence

	case StateCheckExistence:
		path := plan.ColorDurable
		exists, err := c.deps.Exists.Exists(ctx, path)
		if err != nil {
			out.Err = fmt.Errorf("check %s: %w", path, err)
			return StateFailed
		}
		if exists && !u.Replace {
			out.Err = fmt.Errorf("%w: %s", domain.ErrAlreadyExists, path)
			return StateSkipped
		}
		if exists {
			logger.Info("replacing existing artifact", "path", path)
		}
		out.Replaced = exists
		return StateGenerate

	case StateGenerate:
		missing, err := c.generate(ctx, u, spec, plan, logger)
		out.Missing = missing
		if err != nil {
			out.Err = err
			return StateFailed
		}
		return StateCommit

	case StateCommit:
		if u.Replace {
			return StateCommitted
		}
		key := domain.ParamKey(spec.ColorParam, u.Zone)
		if err := c.deps.Watermarks.RecordLast(ctx, key, u.Timestamp); err != nil {
			out.Err = fmt.Errorf("record watermark for %s: %w", key, err)
			return StateFailed
		}
		return StateCommitted
	}
	out.Err = fmt.Errorf("unexpected state %s", state)
	return StateFailed
}

// generate builds the value raster in scratch, colours it, then moves the
// artifacts to durable storage. It returns the number of inputs that were
// replaced by zeros.
func (c *Controller) generate(ctx context.Context, u Unit, spec domain.TierSpec, plan Plan, logger *slog.Logger) (int, error) {
	raster, report, noData, err := c.accumulate(ctx, u, spec, plan.Inputs, logger)
	missing := accumulation.Missing(report)
	if err != nil {
		return missing, fmt.Errorf("accumulate %s: %w", u.Tier, err)
	}

	valueScratch, colorScratch := plan.ValueScratch, plan.ColorScratch

	if err := c.deps.Writer.Write(ctx, valueScratch, u.Config, raster, noData); err != nil {
		c.discard(ctx, logger, valueScratch)
		return missing, fmt.Errorf("%w: %s: %w", domain.ErrWriteFailure, valueScratch, err)
	}

	if err := c.deps.Executor.Execute(ctx, plan.Render); err != nil {
		c.discard(ctx, logger, valueScratch, colorScratch)
		return missing, fmt.Errorf("%w: %s: %w", domain.ErrRenderFailure, colorScratch, err)
	}

	if err := c.deps.Executor.Execute(ctx, plan.Persist); err != nil {
		c.discard(ctx, logger, valueScratch, colorScratch)
		return missing, fmt.Errorf("%w: %s: %w", domain.ErrWriteFailure, plan.Persist, err)
	}

	if err := c.deps.Executor.Execute(ctx, plan.Move); err != nil {
		c.discard(ctx, logger, colorScratch)
		return missing, fmt.Errorf("%w: %s: %w", domain.ErrWriteFailure, plan.Move, err)
	}
	return missing, nil
}

func (c *Controller) accumulate(ctx context.Context, u Unit, spec domain.TierSpec, paths []string, logger *slog.Logger) (*domain.Raster, []accumulation.Layer, *float64, error) {
	if u.Tier == domain.Tier1h && c.method == MethodInterpolate {
		knots := domain.RawWindow1h(u.Timestamp)
		grid := domain.DenseGrid1h(u.Timestamp)
		r, report, err := accumulation.Hourly(ctx, c.deps.Reader, paths, knots, grid, u.Config, logger)
		noData := interpolatedNoData
		return r, report, &noData, err
	}

	r, report := accumulation.Sum(ctx, c.deps.Reader, paths, u.Config, spec.Transform, logger)
	return r, report, nil, nil
}

// discard removes scratch artifacts of a failed unit. Errors are logged only.
func (c *Controller) discard(ctx context.Context, logger *slog.Logger, paths ...string) {
	for _, p := range paths {
		if err := c.deps.Executor.Execute(ctx, domain.RemoveCommand(p)); err != nil {
			logger.Warn("discard scratch artifact failed", "path", p, "error", err)
		}
	}
}

func (c *Controller) observe(out Outcome, elapsed time.Duration, logger *slog.Logger) {
	tier := string(out.Tier)
	c.metrics.Units.WithLabelValues(tier, out.Label()).Inc()
	if out.Missing > 0 {
		c.metrics.MissingInputs.WithLabelValues(tier).Add(float64(out.Missing))
	}

	switch out.State {
	case StateSkipped:
		logger.Info("tier skipped", "reason", out.Err)
	case StateFailed:
		c.metrics.UnitDuration.WithLabelValues(tier).Observe(elapsed.Seconds())
		logger.Error("tier generation failed", "error", out.Err, "missing_inputs", out.Missing)
	default:
		c.metrics.UnitDuration.WithLabelValues(tier).Observe(elapsed.Seconds())
		logger.Info("tier generated",
			"replaced", out.Replaced,
			"missing_inputs", out.Missing,
			"duration", elapsed,
		)
	}
}
