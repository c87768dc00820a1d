// Package memory binds every pipeline port to an in-process file map. It
// interprets the commands the controller issues (gdaldem, mv, cp, rm) against
// that map and records every interaction so tests can assert on them.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
)

// File is a raster held by the store. Rendered files keep the values they
// were coloured from so moves and copies stay observable.
type File struct {
	Raster  *domain.Raster
	Config  domain.RasterConfig
	NoData  *float64
	Palette string
}

// Write records one RasterWriter call.
type Write struct {
	Path   string
	Raster *domain.Raster
	NoData *float64
}

// Store is safe for concurrent use.
type Store struct {
	layout domain.Layout

	mu         sync.Mutex
	files      map[string]*File
	watermarks map[string]time.Time

	reads    []string
	writes   []Write
	commands []string
	lookups  []string

	// FailWrite, when set, is consulted before every write; a non-nil error
	// aborts it.
	FailWrite func(path string) error
	// FailCommand, when set, is consulted before every command; a non-nil
	// error aborts it.
	FailCommand func(cmd domain.Command) error
}

// New creates an empty store. The layout locates the snapshots ConfigFor
// reads geometry from.
func New(layout domain.Layout) *Store {
	return &Store{
		layout:     layout,
		files:      make(map[string]*File),
		watermarks: make(map[string]time.Time),
	}
}

// Put stores r at path with geometry cfg.
func (s *Store) Put(path string, cfg domain.RasterConfig, r *domain.Raster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &File{Raster: r.Clone(), Config: cfg}
}

// Touch marks path as present without content.
func (s *Store) Touch(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = &File{}
}

// File returns the file at path.
func (s *Store) File(path string) (*File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[path]
	return f, ok
}

// Read implements pipeline.RasterReader.
func (s *Store) Read(_ context.Context, path string, transform domain.Transform) (*domain.Raster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, path)
	f, ok := s.files[path]
	if !ok || f.Raster == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrRasterNotFound, path)
	}
	r := f.Raster.Clone()
	transform.Apply(r)
	return r, nil
}

// Write implements pipeline.RasterWriter.
func (s *Store) Write(_ context.Context, path string, cfg domain.RasterConfig, r *domain.Raster, noData *float64) error {
	if s.FailWrite != nil {
		if err := s.FailWrite(path); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := r.Clone()
	s.files[path] = &File{Raster: clone, Config: cfg, NoData: noData}
	s.writes = append(s.writes, Write{Path: path, Raster: clone, NoData: noData})
	return nil
}

// ConfigFor implements pipeline.ConfigSource from the snapshot stored at the
// durable 5-minute path of zone at ts.
func (s *Store) ConfigFor(_ context.Context, zone domain.Zone, ts time.Time) (domain.RasterConfig, error) {
	path := s.layout.DurablePath(domain.ParamValues5mn, zone, ts)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups = append(s.lookups, path)
	f, ok := s.files[path]
	if !ok || f.Raster == nil {
		return domain.RasterConfig{}, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
	}
	return f.Config, nil
}

// Exists implements pipeline.ExistenceChecker.
func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[path]
	return ok, nil
}

// Execute implements pipeline.CommandExecutor.
func (s *Store) Execute(_ context.Context, cmd domain.Command) error {
	if s.FailCommand != nil {
		if err := s.FailCommand(cmd); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd.String())

	switch {
	case cmd.Name == "mv" && len(cmd.Args) == 2:
		f, err := s.lookup(cmd.Args[0])
		if err != nil {
			return err
		}
		delete(s.files, cmd.Args[0])
		s.files[cmd.Args[1]] = f
	case cmd.Name == "rm" && len(cmd.Args) == 2 && cmd.Args[0] == "-f":
		delete(s.files, cmd.Args[1])
	case cmd.Name == "gdaldem" && len(cmd.Args) >= 4 && cmd.Args[0] == "color-relief":
		f, err := s.lookup(cmd.Args[1])
		if err != nil {
			return err
		}
		s.files[cmd.Args[3]] = &File{Raster: f.Raster, Config: f.Config, Palette: cmd.Args[2]}
	default:
		return fmt.Errorf("%w: %s", domain.ErrUnknownCommand, cmd)
	}
	return nil
}

func (s *Store) lookup(path string) (*File, error) {
	f, ok := s.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: no such file", path)
	}
	return f, nil
}

// RecordLast implements pipeline.WatermarkStore.
func (s *Store) RecordLast(_ context.Context, paramKey string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermarks[paramKey] = ts
	return nil
}

// Watermark returns the last timestamp recorded for paramKey.
func (s *Store) Watermark(paramKey string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.watermarks[paramKey]
	return ts, ok
}

// Watermarks returns a copy of every recorded watermark.
func (s *Store) Watermarks() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.watermarks))
	for k, v := range s.watermarks {
		out[k] = v
	}
	return out
}

// Reads returns the paths passed to Read, in order.
func (s *Store) Reads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reads...)
}

// Writes returns every raster written, in order.
func (s *Store) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Write(nil), s.writes...)
}

// Commands returns the executed commands rendered as shell lines.
func (s *Store) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// ConfigLookups returns the snapshot paths probed by ConfigFor.
func (s *Store) ConfigLookups() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lookups...)
}

// Reset forgets recorded interactions but keeps files and watermarks.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads, s.writes, s.commands, s.lookups = nil, nil, nil, nil
}
