package domain

import (
	"slices"
	"time"
)

// Range returns the timestamps from start to end spaced by step. excludeStart
// drops start itself; excludeEnd drops end when it falls on the grid. An empty
// range or a non-positive step yields nil.
func Range(start, end time.Time, step time.Duration, excludeStart, excludeEnd bool) []time.Time {
	if step <= 0 {
		return nil
	}
	if excludeStart {
		start = start.Add(step)
	}
	var out []time.Time
	for ts := start; ts.Before(end) || (!excludeEnd && ts.Equal(end)); ts = ts.Add(step) {
		out = append(out, ts)
	}
	return out
}

// AccumulationRange returns count timestamps spaced by step over
// (end-count*step, end].
func AccumulationRange(end time.Time, count int, step time.Duration) []time.Time {
	return Range(end.Add(-time.Duration(count)*step), end, step, true, false)
}

const (
	denseGridStep  = time.Minute
	denseGridStart = 55 * time.Minute
)

// RawWindow1h is the 5-minute snapshots feeding the hourly interpolation:
// 12 timestamps over (T-1h, T].
func RawWindow1h(ts time.Time) []time.Time {
	s := MustSpecFor(Tier1h)
	return AccumulationRange(ts, s.Count, s.Step)
}

// DenseGrid1h is the resampling axis of the hourly integration: one point per
// minute over [T-55min, T]. It starts at the first snapshot of RawWindow1h, so
// the first five minutes of the hour are not covered.
func DenseGrid1h(ts time.Time) []time.Time {
	return Range(ts.Add(-denseGridStart), ts, denseGridStep, false, false)
}

// WindowFor returns the timestamps of the input artifacts of tier t at ts.
func WindowFor(t Tier, ts time.Time) ([]time.Time, error) {
	s, err := SpecFor(t)
	if err != nil {
		return nil, err
	}
	return AccumulationRange(ts, s.Count, s.Step), nil
}

// InputPaths returns the durable paths of the artifacts tier t reads at ts for
// zone z, oldest first.
func InputPaths(l Layout, t Tier, z Zone, ts time.Time) ([]string, error) {
	s, err := SpecFor(t)
	if err != nil {
		return nil, err
	}
	input := MustSpecFor(s.Input)
	window := AccumulationRange(ts, s.Count, s.Step)
	paths := make([]string, len(window))
	for i, w := range window {
		paths[i] = l.DurablePath(input.ValueParam, z, w)
	}
	return paths, nil
}

// Seconds converts timestamps to epoch seconds, the x axis of interpolation
// and integration.
func Seconds(ts []time.Time) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = float64(t.Unix())
	}
	return out
}

// ConfigCandidates lists the snapshot timestamps probed, most recent first,
// for the raster geometry of a run at ts: T, T-5min, ..., T-55min.
func ConfigCandidates(ts time.Time) []time.Time {
	window := RawWindow1h(ts)
	slices.Reverse(window)
	return window
}
