package main

import (
	"bytes"
	"errors"
	"flag"
	"io"
	"testing"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ref = time.Date(2000, 6, 15, 13, 0, 0, 0, time.UTC)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantStart   time.Time
		wantEnd     time.Time
		wantZones   []domain.Zone
		wantReplace bool
	}{
		{
			name:      "epoch timestamp",
			args:      []string{"-timestamp", "961074000"},
			wantStart: ref,
			wantEnd:   ref,
		},
		{
			name:      "iso datetime",
			args:      []string{"-datetime", "2000-06-15T13:00:00Z"},
			wantStart: ref,
			wantEnd:   ref,
		},
		{
			name:      "datetime with space",
			args:      []string{"-datetime", "2000-06-15 13:00:00"},
			wantStart: ref,
			wantEnd:   ref,
		},
		{
			name:      "rfc3339 offset",
			args:      []string{"-datetime", "2000-06-15T15:00:00+02:00"},
			wantStart: ref,
			wantEnd:   ref,
		},
		{
			name:      "range mixing epoch and iso",
			args:      []string{"-start", "961074000", "-end", "2000-06-15T14:00:00Z"},
			wantStart: ref,
			wantEnd:   ref.Add(time.Hour),
		},
		{
			name:        "zones and replace",
			args:        []string{"-datetime", "2000-06-15T13:00:00Z", "-zone", "REUNION", "-zones", "METROPOLE,ANTILLES", "-replace"},
			wantStart:   ref,
			wantEnd:     ref,
			wantZones:   []domain.Zone{domain.ZoneReunion, domain.ZoneMetropole, domain.ZoneAntilles},
			wantReplace: true,
		},
		{
			name:      "space separated zones",
			args:      []string{"-timestamp", "961074000", "-zones", "NOUVELLE-CALEDONIE REUNION"},
			wantStart: ref,
			wantEnd:   ref,
			wantZones: []domain.Zone{domain.ZoneNouvelleCaledonie, domain.ZoneReunion},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := parseArgs(tt.args, io.Discard)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, req.Start)
			assert.Equal(t, tt.wantEnd, req.End)
			assert.Equal(t, tt.wantReplace, req.Replace)
			if tt.wantZones == nil {
				assert.Empty(t, req.Zones)
			} else {
				assert.Equal(t, tt.wantZones, req.Zones)
			}
		})
	}
}

func TestParseArgs_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no time", args: nil, wantErr: "is required"},
		{name: "two times", args: []string{"-timestamp", "961074000", "-datetime", "2000-06-15T13:00:00Z"}, wantErr: "mutually exclusive"},
		{name: "bad epoch", args: []string{"-timestamp", "yesterday"}, wantErr: "Unix seconds"},
		{name: "bad datetime", args: []string{"-datetime", "15/06/2000"}, wantErr: "invalid datetime"},
		{name: "end before start", args: []string{"-start", "2000-06-15T13:00:00Z", "-end", "2000-06-15T12:00:00Z"}, wantErr: "before start"},
		{name: "unknown zone", args: []string{"-timestamp", "961074000", "-zone", "GUYANE"}, wantErr: "choose from"},
		{name: "unknown zone in list", args: []string{"-timestamp", "961074000", "-zones", "METROPOLE guyane"}, wantErr: "invalid zone 'guyane'"},
		{name: "positional", args: []string{"-timestamp", "961074000", "extra"}, wantErr: "unexpected arguments"},
		{name: "unknown flag", args: []string{"-hours", "3"}, wantErr: "not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseArgs(tt.args, io.Discard)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseArgs_Help(t *testing.T) {
	var out bytes.Buffer
	_, err := parseArgs([]string{"-h"}, &out)
	require.True(t, errors.Is(err, flag.ErrHelp))
	assert.Contains(t, out.String(), "-replace")
}

func TestRun_UsageErrorExitCode(t *testing.T) {
	var stderr bytes.Buffer
	code := run([]string{"-timestamp", "soon"}, &stderr)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "accumulate:")
}

func TestRun_ConfigErrorExitCode(t *testing.T) {
	t.Setenv("ENV_FILE", "/nonexistent/.env")
	t.Setenv("ONE_HOUR_METHOD", "median")
	code := run([]string{"-timestamp", "961074000"}, io.Discard)
	assert.Equal(t, exitUsage, code)
}
