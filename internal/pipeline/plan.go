package pipeline

import (
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
)

// Plan lists the artifacts and external commands of one tier at one zone and
// timestamp. The Controller executes it; cmd/windows prints it.
type Plan struct {
	Tier      domain.Tier
	Zone      domain.Zone
	Timestamp time.Time
	Aligned   bool

	// Inputs are the durable input artifacts, oldest first.
	Inputs       []string
	ValueScratch string
	ColorScratch string
	ColorDurable string

	Render  domain.Command
	Persist domain.Command // moves the values to their durable path, or removes them
	Move    domain.Command
}

// NewPlan builds the plan of tier t for zone z at ts.
func NewPlan(layout domain.Layout, t domain.Tier, z domain.Zone, ts time.Time) (Plan, error) {
	spec, err := domain.SpecFor(t)
	if err != nil {
		return Plan{}, err
	}
	inputs, err := domain.InputPaths(layout, t, z, ts)
	if err != nil {
		return Plan{}, err
	}

	p := Plan{
		Tier:         t,
		Zone:         z,
		Timestamp:    ts.UTC(),
		Aligned:      spec.Aligned(ts),
		Inputs:       inputs,
		ValueScratch: layout.ScratchPath(spec.ValueParam, z, ts),
		ColorScratch: layout.ScratchPath(spec.ColorParam, z, ts),
		ColorDurable: layout.DurablePath(spec.ColorParam, z, ts),
	}
	p.Render = domain.ColorReliefCommand(p.ValueScratch, layout.PalettePath(t), p.ColorScratch)
	p.Persist = domain.RemoveCommand(p.ValueScratch)
	if spec.KeepValues {
		p.Persist = domain.MoveCommand(p.ValueScratch, layout.DurablePath(spec.ValueParam, z, ts))
	}
	p.Move = domain.MoveCommand(p.ColorScratch, p.ColorDurable)
	return p, nil
}

// Commands returns the external commands in execution order.
func (p Plan) Commands() []domain.Command {
	return []domain.Command{p.Render, p.Persist, p.Move}
}
