package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
	"github.com/couchcryptid/radar-accumulation-service/internal/pipeline"
)

var isoLayouts = []string{
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// zoneList collects repeated -zone flags.
type zoneList []domain.Zone

func (z *zoneList) String() string {
	parts := make([]string, len(*z))
	for i, zone := range *z {
		parts[i] = string(zone)
	}
	return strings.Join(parts, " ")
}

func (z *zoneList) Set(s string) error {
	zone, err := domain.ParseZone(s)
	if err != nil {
		return err
	}
	*z = append(*z, zone)
	return nil
}

// parseArgs turns the command line into a run request.
func parseArgs(args []string, output io.Writer) (pipeline.Request, error) {
	set := flag.NewFlagSet("accumulate", flag.ContinueOnError)
	set.SetOutput(output)

	epoch := set.String("timestamp", "", "reference time as Unix seconds")
	datetime := set.String("datetime", "", "reference time as ISO 8601 (UTC)")
	start := set.String("start", "", "first reference time of a range (Unix seconds or ISO 8601)")
	end := set.String("end", "", "last reference time of a range, inclusive (default: start)")
	var zones zoneList
	set.Var(&zones, "zone", "zone to process (repeatable)")
	zoneSet := set.String("zones", "", "zones to process, separated by spaces or commas")
	replace := set.Bool("replace", false, "regenerate existing artifacts without moving watermarks")

	if err := set.Parse(args); err != nil {
		return pipeline.Request{}, err
	}
	if set.NArg() > 0 {
		return pipeline.Request{}, fmt.Errorf("unexpected arguments: %s", strings.Join(set.Args(), " "))
	}

	var req pipeline.Request
	var err error
	switch countSet(*epoch, *datetime, *start) {
	case 0:
		return pipeline.Request{}, errors.New("one of -timestamp, -datetime or -start is required")
	case 1:
	default:
		return pipeline.Request{}, errors.New("-timestamp, -datetime and -start are mutually exclusive")
	}
	switch {
	case *epoch != "":
		req.Start, err = parseEpoch(*epoch)
	case *datetime != "":
		req.Start, err = parseISO(*datetime)
	default:
		req.Start, err = parseTime(*start)
	}
	if err != nil {
		return pipeline.Request{}, err
	}

	req.End = req.Start
	if *end != "" {
		if req.End, err = parseTime(*end); err != nil {
			return pipeline.Request{}, err
		}
	}
	if req.End.Before(req.Start) {
		return pipeline.Request{}, fmt.Errorf("-end %s is before start %s",
			req.End.Format(time.RFC3339), req.Start.Format(time.RFC3339))
	}

	for _, s := range strings.FieldsFunc(*zoneSet, func(r rune) bool { return r == ' ' || r == ',' }) {
		if err := zones.Set(s); err != nil {
			return pipeline.Request{}, err
		}
	}
	req.Zones = zones
	req.Replace = *replace
	return req, nil
}

func countSet(values ...string) int {
	n := 0
	for _, v := range values {
		if v != "" {
			n++
		}
	}
	return n
}

// parseTime accepts Unix seconds or ISO 8601.
func parseTime(s string) (time.Time, error) {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return parseEpoch(s)
	}
	return parseISO(s)
}

func parseEpoch(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: must be Unix seconds", s)
	}
	return time.Unix(n, 0).UTC(), nil
}

func parseISO(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q: expected ISO 8601, e.g. 2000-06-15T13:00:00Z", s)
}
