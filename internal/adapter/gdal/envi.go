package gdal

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
)

// ENVI data type codes.
const (
	enviFloat32 = 4
	enviFloat64 = 5
)

// enviHeader is the subset of an ENVI .hdr file needed to decode one band.
type enviHeader struct {
	samples   int
	lines     int
	bands     int
	dataType  int
	byteOrder binary.ByteOrder
	offset    int
}

func headerPath(band string) string {
	return strings.TrimSuffix(band, filepath.Ext(band)) + ".hdr"
}

// parseENVIHeader reads "key = value" pairs. Values in braces may span
// several lines.
func parseENVIHeader(data []byte) (enviHeader, error) {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var key string
	var open strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if key != "" {
			open.WriteString(line)
			if strings.Contains(line, "}") {
				fields[key] = open.String()
				key = ""
			}
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if strings.HasPrefix(v, "{") && !strings.Contains(v, "}") {
			key = k
			open.Reset()
			open.WriteString(v)
			continue
		}
		fields[k] = v
	}
	if err := scanner.Err(); err != nil {
		return enviHeader{}, err
	}

	h := enviHeader{bands: 1, byteOrder: binary.LittleEndian}
	ints := []struct {
		key      string
		dst      *int
		required bool
	}{
		{"samples", &h.samples, true},
		{"lines", &h.lines, true},
		{"bands", &h.bands, false},
		{"data type", &h.dataType, true},
		{"header offset", &h.offset, false},
	}
	for _, f := range ints {
		v, ok := fields[f.key]
		if !ok {
			if f.required {
				return enviHeader{}, fmt.Errorf("header has no %q", f.key)
			}
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return enviHeader{}, fmt.Errorf("header %q: %w", f.key, err)
		}
		*f.dst = n
	}
	if v := fields["byte order"]; v == "1" {
		h.byteOrder = binary.BigEndian
	}
	if h.dataType != enviFloat32 && h.dataType != enviFloat64 {
		return enviHeader{}, fmt.Errorf("unsupported ENVI data type %d", h.dataType)
	}
	return h, nil
}

// readENVI decodes the first band of an ENVI raw file.
func readENVI(bandPath, hdrPath string) (*domain.Raster, error) {
	hdrData, err := os.ReadFile(hdrPath)
	if err != nil {
		return nil, err
	}
	h, err := parseENVIHeader(hdrData)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(bandPath)
	if err != nil {
		return nil, err
	}
	return decodeBand(h, raw)
}

func decodeBand(h enviHeader, raw []byte) (*domain.Raster, error) {
	size := 8
	if h.dataType == enviFloat32 {
		size = 4
	}
	n := h.samples * h.lines
	if h.offset < 0 || len(raw) < h.offset+n*size {
		return nil, fmt.Errorf("band holds %d bytes, want %d", len(raw)-h.offset, n*size)
	}

	r := domain.NewRaster(h.lines, h.samples)
	data := raw[h.offset:]
	for i := range n {
		if size == 8 {
			r.Data[i] = math.Float64frombits(h.byteOrder.Uint64(data[i*8:]))
		} else {
			r.Data[i] = float64(math.Float32frombits(h.byteOrder.Uint32(data[i*4:])))
		}
	}
	return r, nil
}

// writeFloat32 stores values as a little-endian Float32 band.
func writeFloat32(path string, values []float64) error {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return fmt.Errorf("write band: %w", err)
	}
	return nil
}
