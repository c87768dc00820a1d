package gdal

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRunner emulates the GDAL utilities used by the binding. Exports write
// the registered raster as an ENVI Float64 band; imports capture the staged
// VRT and raw band before the staging directory is removed.
type fakeRunner struct {
	rasters  map[string]*domain.Raster
	info     map[string]string
	commands []domain.Command
	fail     error

	importedVRT  string
	importedBand []byte
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{rasters: make(map[string]*domain.Raster), info: make(map[string]string)}
}

func (f *fakeRunner) Execute(_ context.Context, cmd domain.Command) error {
	f.commands = append(f.commands, cmd)
	if f.fail != nil {
		return f.fail
	}
	n := len(cmd.Args)
	src, dst := cmd.Args[n-2], cmd.Args[n-1]
	switch cmd.Args[2] {
	case "ENVI":
		r, ok := f.rasters[src]
		if !ok {
			return fmt.Errorf("%s: not recognized as a supported file format", src)
		}
		buf := make([]byte, 8*len(r.Data))
		for i, v := range r.Data {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
		}
		if err := os.WriteFile(dst, buf, 0o600); err != nil {
			return err
		}
		hdr := fmt.Sprintf("ENVI\ndescription = {\n%s}\nsamples = %d\nlines   = %d\nbands   = 1\nheader offset = 0\ndata type = 5\nbyte order = 0\n",
			src, r.Cols, r.Rows)
		return os.WriteFile(headerPath(dst), []byte(hdr), 0o600)
	case "GTiff":
		vrt, err := os.ReadFile(src)
		if err != nil {
			return err
		}
		band, err := os.ReadFile(filepath.Join(filepath.Dir(src), "band.raw"))
		if err != nil {
			return err
		}
		f.importedVRT = string(vrt)
		f.importedBand = band
		return os.WriteFile(dst, []byte("tiff"), 0o600)
	}
	return domain.ErrUnknownCommand
}

func (f *fakeRunner) Output(_ context.Context, cmd domain.Command) ([]byte, error) {
	f.commands = append(f.commands, cmd)
	if f.fail != nil {
		return nil, f.fail
	}
	out, ok := f.info[cmd.Args[len(cmd.Args)-1]]
	if !ok {
		return nil, errors.New("no such file")
	}
	return []byte(out), nil
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("tiff"), 0o600))
}

func TestRasters_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ac5radaricval_MF_METROPOLE_12_v55.tif")
	touch(t, path)

	runner := newFakeRunner()
	runner.rasters[path] = &domain.Raster{Rows: 2, Cols: 3, Data: []float64{0, 1, 2, 3, 4, 65535}}

	r := NewRasters(runner, t.TempDir(), discardLogger())
	got, err := r.Read(context.Background(), path, domain.MeteoFranceScale)
	require.NoError(t, err)

	assert.Equal(t, 2, got.Rows)
	assert.Equal(t, 3, got.Cols)
	want := make([]float64, 6)
	for i, v := range []float64{0, 1, 2, 3, 4, 65535} {
		want[i] = domain.MeteoFranceScale(v)
	}
	assert.Empty(t, cmp.Diff(want, got.Data, cmp.Comparer(func(a, b float64) bool {
		return a == b || (math.IsNaN(a) && math.IsNaN(b))
	})))
	require.Len(t, runner.commands, 1)
	assert.Equal(t, "gdal_translate", runner.commands[0].Name)
	assert.Equal(t, path, runner.commands[0].Args[len(runner.commands[0].Args)-2])
}

func TestRasters_ReadRemovesStaging(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.tif")
	touch(t, path)
	runner := newFakeRunner()
	runner.rasters[path] = domain.NewRaster(1, 1)

	staging := t.TempDir()
	_, err := NewRasters(runner, staging, discardLogger()).Read(context.Background(), path, domain.Identity)
	require.NoError(t, err)

	entries, err := os.ReadDir(staging)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRasters_ReadMissing(t *testing.T) {
	runner := newFakeRunner()
	r := NewRasters(runner, t.TempDir(), discardLogger())

	_, err := r.Read(context.Background(), filepath.Join(t.TempDir(), "absent.tif"), domain.Identity)
	require.ErrorIs(t, err, domain.ErrRasterNotFound)
	assert.Empty(t, runner.commands)
}

func TestRasters_ReadExportFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.tif")
	touch(t, path)
	runner := newFakeRunner()

	_, err := NewRasters(runner, t.TempDir(), discardLogger()).Read(context.Background(), path, domain.Identity)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export")
}

func TestRasters_Write(t *testing.T) {
	runner := newFakeRunner()
	r := NewRasters(runner, t.TempDir(), discardLogger())
	cfg := domain.RasterConfig{
		Cols:         2,
		Rows:         2,
		GeoTransform: [6]float64{-5, 0.01, 0, 52, 0, -0.01},
		Projection:   "EPSG:4326",
	}
	raster := &domain.Raster{Rows: 2, Cols: 2, Data: []float64{1.5, 2, 0, -99}}
	noData := -99.0
	dst := filepath.Join(t.TempDir(), "2000", "06", "15", "out.tif")

	require.NoError(t, r.Write(context.Background(), dst, cfg, raster, &noData))

	_, err := os.Stat(dst)
	require.NoError(t, err)
	require.Len(t, runner.importedBand, 16)
	for i, want := range raster.Data {
		got := math.Float32frombits(binary.LittleEndian.Uint32(runner.importedBand[i*4:]))
		assert.InDelta(t, want, float64(got), 1e-6)
	}
	assert.Contains(t, runner.importedVRT, `rasterXSize="2"`)
	assert.Contains(t, runner.importedVRT, "<GeoTransform>-5, 0.01, 0, 52, 0, -0.01</GeoTransform>")
	assert.Contains(t, runner.importedVRT, "<SRS>EPSG:4326</SRS>")
	assert.Contains(t, runner.importedVRT, "<NoDataValue>-99</NoDataValue>")

	last := runner.commands[len(runner.commands)-1]
	assert.Equal(t, []string{"-q", "-of", "GTiff", "-co", "TILED=YES", "-co", "COMPRESS=LZW"}, last.Args[:7])
}

func TestRasters_WriteShapeMismatch(t *testing.T) {
	runner := newFakeRunner()
	r := NewRasters(runner, t.TempDir(), discardLogger())

	err := r.Write(context.Background(), filepath.Join(t.TempDir(), "out.tif"),
		domain.RasterConfig{Cols: 3, Rows: 2}, domain.NewRaster(2, 2), nil)
	require.ErrorIs(t, err, domain.ErrShapeMismatch)
	assert.Empty(t, runner.commands)
}

func TestRasters_WriteTranslateFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.fail = errors.New("gdal_translate: exit status 1")
	r := NewRasters(runner, t.TempDir(), discardLogger())

	err := r.Write(context.Background(), filepath.Join(t.TempDir(), "out.tif"),
		domain.RasterConfig{Cols: 1, Rows: 1}, domain.NewRaster(1, 1), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "translate")
}

func TestConfigs_ConfigFor(t *testing.T) {
	layout := domain.Layout{TilesRoot: t.TempDir()}
	ts := time.Date(2000, 6, 15, 12, 55, 0, 0, time.UTC)
	path := layout.DurablePath(domain.ParamValues5mn, domain.ZoneMetropole, ts)
	touch(t, path)

	runner := newFakeRunner()
	runner.info[path] = `{
  "description": "snapshot",
  "size": [1536, 1536],
  "coordinateSystem": {"wkt": "PROJCS[\"stereo\"]"},
  "geoTransform": [-619652.07, 1000.0, 0.0, -3526818.34, 0.0, -1000.0],
  "bands": [{"band": 1, "type": "UInt16"}]
}`

	cfg, err := NewConfigs(runner, layout).ConfigFor(context.Background(), domain.ZoneMetropole, ts)
	require.NoError(t, err)
	assert.Equal(t, domain.RasterConfig{
		Cols:         1536,
		Rows:         1536,
		GeoTransform: [6]float64{-619652.07, 1000, 0, -3526818.34, 0, -1000},
		Projection:   `PROJCS["stereo"]`,
	}, cfg)
}

func TestConfigs_ConfigForMissingSnapshot(t *testing.T) {
	runner := newFakeRunner()
	layout := domain.Layout{TilesRoot: t.TempDir()}

	_, err := NewConfigs(runner, layout).ConfigFor(context.Background(), domain.ZoneMetropole, time.Now())
	require.ErrorIs(t, err, domain.ErrConfigNotFound)
	assert.Empty(t, runner.commands)
}

func TestConfigs_ConfigForUnreadableSnapshot(t *testing.T) {
	layout := domain.Layout{TilesRoot: t.TempDir()}
	ts := time.Date(2000, 6, 15, 12, 55, 0, 0, time.UTC)
	touch(t, layout.DurablePath(domain.ParamValues5mn, domain.ZoneMetropole, ts))

	runner := newFakeRunner()
	runner.fail = errors.New("gdalinfo: exit status 1")

	_, err := NewConfigs(runner, layout).ConfigFor(context.Background(), domain.ZoneMetropole, ts)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestParseInfo(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    domain.RasterConfig
		wantErr bool
	}{
		{
			name:  "no georeferencing",
			input: `{"size": [4, 3]}`,
			want:  domain.RasterConfig{Cols: 4, Rows: 3, GeoTransform: [6]float64{0, 1, 0, 0, 0, 1}},
		},
		{name: "missing size", input: `{}`, wantErr: true},
		{name: "zero size", input: `{"size": [0, 3]}`, wantErr: true},
		{name: "short geotransform", input: `{"size": [1, 1], "geoTransform": [0, 1]}`, wantErr: true},
		{name: "not json", input: `Driver: GTiff`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseInfo([]byte(tt.input))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseENVIHeader(t *testing.T) {
	h, err := parseENVIHeader([]byte("ENVI\ndescription = {\n  line one,\n  line two}\nsamples = 3\nlines = 2\ndata type = 4\nbyte order = 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, h.samples)
	assert.Equal(t, 2, h.lines)
	assert.Equal(t, enviFloat32, h.dataType)
	assert.Equal(t, binary.BigEndian, h.byteOrder)

	_, err = parseENVIHeader([]byte("ENVI\nsamples = 3\ndata type = 4\n"))
	require.Error(t, err)

	_, err = parseENVIHeader([]byte("ENVI\nsamples = 3\nlines = 2\ndata type = 12\n"))
	require.Error(t, err)
}

func TestDecodeBand_Float32BigEndian(t *testing.T) {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint32(raw, math.Float32bits(1.25))
	binary.BigEndian.PutUint32(raw[4:], math.Float32bits(-3))

	r, err := decodeBand(enviHeader{samples: 2, lines: 1, dataType: enviFloat32, byteOrder: binary.BigEndian}, raw)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.25, -3}, r.Data)

	_, err = decodeBand(enviHeader{samples: 3, lines: 1, dataType: enviFloat32, byteOrder: binary.BigEndian}, raw)
	require.Error(t, err)
}

func TestBuildVRT_WithoutNoData(t *testing.T) {
	out, err := buildVRT("band.raw", domain.RasterConfig{Cols: 5, Rows: 1, GeoTransform: [6]float64{0, 1, 0, 0, 0, 1}}, nil)
	require.NoError(t, err)

	doc := string(out)
	assert.NotContains(t, doc, "NoDataValue")
	assert.NotContains(t, doc, "<SRS>")
	assert.Contains(t, doc, `<SourceFilename relativetoVRT="1">band.raw</SourceFilename>`)
	assert.Contains(t, doc, "<LineOffset>20</LineOffset>")
	assert.Contains(t, doc, "<ByteOrder>LSB</ByteOrder>")
}
