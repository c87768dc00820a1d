package gdal

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
)

// info mirrors the parts of `gdalinfo -json` output describing geometry.
type info struct {
	Size             []int     `json:"size"`
	GeoTransform     []float64 `json:"geoTransform"`
	CoordinateSystem *struct {
		WKT string `json:"wkt"`
	} `json:"coordinateSystem"`
}

func parseInfo(data []byte) (domain.RasterConfig, error) {
	var doc info
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.RasterConfig{}, fmt.Errorf("parse gdalinfo output: %w", err)
	}
	if len(doc.Size) != 2 || doc.Size[0] <= 0 || doc.Size[1] <= 0 {
		return domain.RasterConfig{}, fmt.Errorf("gdalinfo reports size %v", doc.Size)
	}

	cfg := domain.RasterConfig{Cols: doc.Size[0], Rows: doc.Size[1]}
	switch len(doc.GeoTransform) {
	case 0:
		// GDAL's default for ungeoreferenced rasters.
		cfg.GeoTransform = [6]float64{0, 1, 0, 0, 0, 1}
	case 6:
		copy(cfg.GeoTransform[:], doc.GeoTransform)
	default:
		return domain.RasterConfig{}, fmt.Errorf("gdalinfo reports %d geotransform coefficients", len(doc.GeoTransform))
	}
	if doc.CoordinateSystem != nil {
		cfg.Projection = doc.CoordinateSystem.WKT
	}
	return cfg, nil
}
