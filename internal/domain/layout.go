package domain

import (
	"fmt"
	"path/filepath"
	"time"
)

// Layout locates artifacts on disk. TilesRoot is the durable tile store served
// to clients, ScratchRoot the RAM-backed staging area where artifacts are built
// before being moved in place.
type Layout struct {
	TilesRoot   string
	ScratchRoot string
	PalettesDir string
}

// DurablePath is {TilesRoot}/{YYYY}/{MM}/{DD}/{paramKey}_{HH}_v{mm}.tif.
func (l Layout) DurablePath(p Param, z Zone, ts time.Time) string {
	ts = ts.UTC()
	return filepath.Join(
		l.TilesRoot,
		fmt.Sprintf("%04d", ts.Year()),
		fmt.Sprintf("%02d", int(ts.Month())),
		fmt.Sprintf("%02d", ts.Day()),
		fmt.Sprintf("%s_%02d_v%02d.tif", ParamKey(p, z), ts.Hour(), ts.Minute()),
	)
}

// ScratchPath is {ScratchRoot}/{paramKey}_{YYYY}_{MM}_{DD}_{HH}_{mm}.tif.
func (l Layout) ScratchPath(p Param, z Zone, ts time.Time) string {
	ts = ts.UTC()
	return filepath.Join(l.ScratchRoot, fmt.Sprintf("%s_%04d_%02d_%02d_%02d_%02d.tif",
		ParamKey(p, z), ts.Year(), int(ts.Month()), ts.Day(), ts.Hour(), ts.Minute()))
}

// PalettePath is the colour-relief palette of tier t.
func (l Layout) PalettePath(t Tier) string {
	return filepath.Join(l.PalettesDir, t.Palette()+".cpt")
}
