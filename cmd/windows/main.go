// Command windows prints what the accumulation controller would do for one
// tier, zone and reference time: the alignment verdict, the input artifacts
// and whether they exist, the scratch and durable outputs, and the external
// commands in execution order. It has no side effects.
//
// Usage:
//
//	go run ./cmd/windows -tier 3h -zone METROPOLE -datetime 2000-06-15T13:00:00Z
//	go run ./cmd/windows -tier 1h -zone REUNION -datetime 2000-06-15T13:05:00Z -json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/adapter/fs"
	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
	"github.com/couchcryptid/radar-accumulation-service/internal/pipeline"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// input is one input artifact and whether it is on disk.
type input struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// report is the printed plan.
type report struct {
	Tier         domain.Tier `json:"tier"`
	Zone         domain.Zone `json:"zone"`
	Timestamp    time.Time   `json:"timestamp"`
	Aligned      bool        `json:"aligned"`
	Exists       bool        `json:"exists"`
	Verdict      string      `json:"verdict"`
	Inputs       []input     `json:"inputs"`
	ValueScratch string      `json:"value_scratch"`
	ColorScratch string      `json:"color_scratch"`
	ColorDurable string      `json:"color_durable"`
	Commands     []string    `json:"commands"`
}

// existenceChecker is satisfied by fs.Checker.
type existenceChecker interface {
	Exists(ctx context.Context, path string) (bool, error)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, fs.NewChecker()))
}

func run(args []string, stdout, stderr io.Writer, checker existenceChecker) int {
	set := flag.NewFlagSet("windows", flag.ContinueOnError)
	set.SetOutput(stderr)
	tierName := set.String("tier", string(domain.Tier1h), "tier to plan (1h, 3h, 6h, 12h, 24h, 72h)")
	zoneName := set.String("zone", string(domain.ZoneMetropole), "zone to plan")
	datetime := set.String("datetime", "", "reference time, RFC 3339 (UTC)")
	replace := set.Bool("replace", false, "plan a replace run")
	asJSON := set.Bool("json", false, "print the plan as JSON")
	tilesRoot := set.String("tiles-root", sharedcfg.EnvOrDefault("TILES_ROOT", "/media/datastore/tempsreel.infoclimat.net/tiles"), "durable tile store")
	scratchRoot := set.String("scratch-root", sharedcfg.EnvOrDefault("SCRATCH_ROOT", "/dev/shm"), "scratch directory")
	palettesDir := set.String("palettes-dir", sharedcfg.EnvOrDefault("PALETTES_DIR", "palettes"), "colour palettes directory")
	if err := set.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	tier, err := domain.ParseTier(*tierName)
	if err == nil && tier == domain.Tier5mn {
		err = fmt.Errorf("tier %s is an input, not generated", tier)
	}
	if err != nil {
		fmt.Fprintln(stderr, "windows:", err)
		return 2
	}
	zone, err := domain.ParseZone(*zoneName)
	if err != nil {
		fmt.Fprintln(stderr, "windows:", err)
		return 2
	}
	ts, err := time.Parse(time.RFC3339, *datetime)
	if err != nil {
		fmt.Fprintln(stderr, "windows: -datetime:", err)
		return 2
	}

	layout := domain.Layout{TilesRoot: *tilesRoot, ScratchRoot: *scratchRoot, PalettesDir: *palettesDir}
	plan, err := pipeline.NewPlan(layout, tier, zone, ts)
	if err != nil {
		fmt.Fprintln(stderr, "windows:", err)
		return 2
	}

	r, err := buildReport(context.Background(), plan, *replace, checker)
	if err != nil {
		fmt.Fprintln(stderr, "windows:", err)
		return 1
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			fmt.Fprintln(stderr, "windows:", err)
			return 1
		}
		return 0
	}
	printReport(stdout, r)
	return 0
}

func buildReport(ctx context.Context, plan pipeline.Plan, replace bool, checker existenceChecker) (report, error) {
	r := report{
		Tier:         plan.Tier,
		Zone:         plan.Zone,
		Timestamp:    plan.Timestamp,
		Aligned:      plan.Aligned,
		ValueScratch: plan.ValueScratch,
		ColorScratch: plan.ColorScratch,
		ColorDurable: plan.ColorDurable,
	}
	for _, p := range plan.Inputs {
		ok, err := checker.Exists(ctx, p)
		if err != nil {
			return report{}, err
		}
		r.Inputs = append(r.Inputs, input{Path: p, Exists: ok})
	}
	exists, err := checker.Exists(ctx, plan.ColorDurable)
	if err != nil {
		return report{}, err
	}
	r.Exists = exists

	switch {
	case !plan.Aligned:
		r.Verdict = "skip: timestamp not aligned with tier"
	case exists && !replace:
		r.Verdict = "skip: artifact already exists"
	case exists:
		r.Verdict = "generate: replace existing artifact, watermark unchanged"
	default:
		r.Verdict = "generate"
	}
	if plan.Aligned && (!exists || replace) {
		for _, c := range plan.Commands() {
			r.Commands = append(r.Commands, c.String())
		}
	}
	return r, nil
}

func printReport(w io.Writer, r report) {
	fmt.Fprintf(w, "tier:      %s\n", r.Tier)
	fmt.Fprintf(w, "zone:      %s\n", r.Zone)
	fmt.Fprintf(w, "timestamp: %s\n", r.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(w, "verdict:   %s\n", r.Verdict)

	present := 0
	for _, in := range r.Inputs {
		if in.Exists {
			present++
		}
	}
	fmt.Fprintf(w, "\ninputs (%d/%d present):\n", present, len(r.Inputs))
	for _, in := range r.Inputs {
		mark := "  "
		if !in.Exists {
			mark = "! "
		}
		fmt.Fprintf(w, "  %s%s\n", mark, in.Path)
	}

	fmt.Fprintf(w, "\noutputs:\n  %s\n  %s\n  %s\n", r.ValueScratch, r.ColorScratch, r.ColorDurable)
	if len(r.Commands) > 0 {
		fmt.Fprintln(w, "\ncommands:")
		for _, c := range r.Commands {
			fmt.Fprintf(w, "  %s\n", c)
		}
	}
}
