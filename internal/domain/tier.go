package domain

import (
	"fmt"
	"time"
)

// Tier is an accumulation duration. Tier5mn is the native sampling interval of
// the radar mosaics and is never generated here.
type Tier string

const (
	Tier5mn Tier = "5mn"
	Tier1h  Tier = "1h"
	Tier3h  Tier = "3h"
	Tier6h  Tier = "6h"
	Tier12h Tier = "12h"
	Tier24h Tier = "24h"
	Tier72h Tier = "72h"
)

// AccumulationTiers lists the generated tiers in dependency order: every tier
// only reads outputs of a tier that precedes it.
var AccumulationTiers = []Tier{Tier1h, Tier3h, Tier6h, Tier12h, Tier24h, Tier72h}

// TierSpec describes how one tier is derived from its input tier.
type TierSpec struct {
	Tier Tier
	// Input is the tier whose artifacts are read. Count artifacts spaced Step
	// apart are read over (T-Count*Step, T].
	Input Tier
	Count int
	Step  time.Duration
	// Alignment is the calendar step the reference timestamp must sit on. Only
	// the minute of the hour is checked; seconds are ignored.
	Alignment time.Duration
	// Transform is applied to inputs when the tier is produced by summation.
	Transform  Transform
	KeepValues bool
	ValueParam Param
	ColorParam Param
}

var tierSpecs = map[Tier]TierSpec{
	Tier5mn: {
		Tier:       Tier5mn,
		Alignment:  5 * time.Minute,
		Transform:  Identity,
		ValueParam: ParamValues5mn,
		ColorParam: ParamColor5mn,
	},
	Tier1h: {
		Tier:       Tier1h,
		Input:      Tier5mn,
		Count:      12,
		Step:       5 * time.Minute,
		Alignment:  5 * time.Minute,
		Transform:  MeteoFranceScale,
		KeepValues: true,
		ValueParam: ParamValues1h,
		ColorParam: ParamColor1h,
	},
	Tier3h:  hourly(Tier3h, 3, ParamValues3h, ParamColor3h, false),
	Tier6h:  hourly(Tier6h, 6, ParamValues6h, ParamColor6h, false),
	Tier12h: hourly(Tier12h, 12, ParamValues12h, ParamColor12h, false),
	Tier24h: hourly(Tier24h, 24, ParamValues24h, ParamColor24h, true),
	Tier72h: {
		Tier:       Tier72h,
		Input:      Tier24h,
		Count:      3,
		Step:       24 * time.Hour,
		Alignment:  time.Hour,
		Transform:  Identity,
		KeepValues: true,
		ValueParam: ParamValues72h,
		ColorParam: ParamColor72h,
	},
}

func hourly(t Tier, hours int, values, color Param, keep bool) TierSpec {
	return TierSpec{
		Tier:       t,
		Input:      Tier1h,
		Count:      hours,
		Step:       time.Hour,
		Alignment:  time.Hour,
		Transform:  Identity,
		KeepValues: keep,
		ValueParam: values,
		ColorParam: color,
	}
}

// SpecFor returns the lookup-table entry for t.
func SpecFor(t Tier) (TierSpec, error) {
	s, ok := tierSpecs[t]
	if !ok {
		return TierSpec{}, fmt.Errorf("unknown tier %q", t)
	}
	return s, nil
}

// MustSpecFor is SpecFor for tiers known at compile time.
func MustSpecFor(t Tier) TierSpec {
	s, err := SpecFor(t)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseTier accepts the tier names used in artifact palettes ("1h", "72h", ...).
func ParseTier(s string) (Tier, error) {
	if _, ok := tierSpecs[Tier(s)]; !ok {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return Tier(s), nil
}

// Aligned reports whether the minute of ts sits on the tier's calendar step:
// any multiple of 5 for 1h, the top of the hour for coarser tiers.
func (s TierSpec) Aligned(ts time.Time) bool {
	step := int(s.Alignment / time.Minute)
	if step <= 0 || step > 60 {
		return false
	}
	return ts.UTC().Minute()%step == 0
}

// Palette is the colour-relief palette name of the tier.
func (t Tier) Palette() string {
	return "radar" + string(t)
}
