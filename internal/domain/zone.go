package domain

import (
	"fmt"
	"strings"
)

// Zone is a geographic region covered by its own radar mosaic.
type Zone string

const (
	ZoneMetropole         Zone = "METROPOLE"
	ZoneAntilles          Zone = "ANTILLES"
	ZoneReunion           Zone = "REUNION"
	ZoneNouvelleCaledonie Zone = "NOUVELLE-CALEDONIE"
)

// DefaultZones are processed when no zone is requested explicitly.
// Nouvelle-Calédonie has no 5-minute mosaic feed yet and is opt-in.
var DefaultZones = []Zone{ZoneMetropole, ZoneAntilles, ZoneReunion}

var knownZones = []Zone{ZoneMetropole, ZoneAntilles, ZoneReunion, ZoneNouvelleCaledonie}

// ParseZone validates a zone name. Matching is exact, as zone names are part of
// the artifact file names.
func ParseZone(s string) (Zone, error) {
	for _, z := range knownZones {
		if string(z) == s {
			return z, nil
		}
	}
	choices := make([]string, len(knownZones))
	for i, z := range knownZones {
		choices[i] = "'" + string(z) + "'"
	}
	return "", fmt.Errorf("invalid zone '%s' (choose from %s)", s, strings.Join(choices, ", "))
}
