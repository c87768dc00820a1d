package gdal

import (
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
)

type vrtDataset struct {
	XMLName      xml.Name      `xml:"VRTDataset"`
	RasterXSize  int           `xml:"rasterXSize,attr"`
	RasterYSize  int           `xml:"rasterYSize,attr"`
	SRS          string        `xml:"SRS,omitempty"`
	GeoTransform string        `xml:"GeoTransform"`
	Band         vrtRasterBand `xml:"VRTRasterBand"`
}

type vrtRasterBand struct {
	DataType       string        `xml:"dataType,attr"`
	Band           int           `xml:"band,attr"`
	SubClass       string        `xml:"subClass,attr"`
	NoDataValue    string        `xml:"NoDataValue,omitempty"`
	SourceFilename vrtSourceFile `xml:"SourceFilename"`
	ImageOffset    int           `xml:"ImageOffset"`
	PixelOffset    int           `xml:"PixelOffset"`
	LineOffset     int           `xml:"LineOffset"`
	ByteOrder      string        `xml:"ByteOrder"`
}

type vrtSourceFile struct {
	RelativeToVRT int    `xml:"relativetoVRT,attr"`
	Path          string `xml:",chardata"`
}

// buildVRT describes a little-endian Float32 raw band file, relative to the
// VRT, with the geometry of cfg.
func buildVRT(bandFile string, cfg domain.RasterConfig, noData *float64) ([]byte, error) {
	gt := make([]string, len(cfg.GeoTransform))
	for i, v := range cfg.GeoTransform {
		gt[i] = formatFloat(v)
	}
	doc := vrtDataset{
		RasterXSize:  cfg.Cols,
		RasterYSize:  cfg.Rows,
		SRS:          cfg.Projection,
		GeoTransform: strings.Join(gt, ", "),
		Band: vrtRasterBand{
			DataType:       "Float32",
			Band:           1,
			SubClass:       "VRTRawRasterBand",
			SourceFilename: vrtSourceFile{RelativeToVRT: 1, Path: bandFile},
			PixelOffset:    4,
			LineOffset:     4 * cfg.Cols,
			ByteOrder:      "LSB",
		},
	}
	if noData != nil {
		doc.Band.NoDataValue = formatFloat(*noData)
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode VRT: %w", err)
	}
	return out, nil
}

func writeVRT(path, bandFile string, cfg domain.RasterConfig, noData *float64) error {
	data, err := buildVRT(bandFile, cfg, noData)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write VRT: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
