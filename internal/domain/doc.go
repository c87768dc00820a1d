// Package domain models radar precipitation accumulations for the tile service.
//
// # Data Source
//
// Météo-France publishes a precipitation mosaic for each zone every five
// minutes. The ingest chain stores each one as a single-band GeoTIFF in the
// tile store under the ParamValues5mn channel; values are depths in
// hundredths of a millimetre, with 65535 marking cells outside radar
// coverage.
//
// # Tiers
//
// Accumulations are built as a dependency chain, each tier reading only the
// outputs of the tier before it:
//
//	1h  <- 12 five-minute snapshots over (T-1h, T]
//	3h  <- 3 hourly accumulations    over (T-3h, T]
//	6h  <- 6 hourly accumulations    over (T-6h, T]
//	12h <- 12 hourly accumulations   over (T-12h, T]
//	24h <- 24 hourly accumulations   over (T-24h, T]
//	72h <- 3 daily accumulations     over (T-72h, T]
//
// The hourly tier may be produced every five minutes; coarser tiers only on
// the hour. The full table lives in tierSpecs.
//
// Hourly accumulations are computed by resampling the snapshots with a
// not-a-knot cubic spline onto a one-minute grid and integrating it with the
// trapezoidal rule. The grid spans [T-55min, T], which is where the snapshots
// are; the first five minutes of the hour are not extrapolated.
//
// # Artifacts
//
// Every tier produces a value raster and a colourised raster:
//
//	durable: {tiles}/{YYYY}/{MM}/{DD}/{param}_{zone}_{HH}_v{mm}.tif
//	scratch: {scratch}/{param}_{zone}_{YYYY}_{MM}_{DD}_{HH}_{mm}.tif
//
// Both are built in scratch space. Colour rasters always move to the tile
// store; value rasters only for the 1h, 24h and 72h tiers, which are read back
// by later tiers or by downstream products.
//
// # Watermarks
//
// After a tier is generated for the first time, the tile store's "last
// timestamp" record for its colour channel is advanced. Regenerating an
// existing artifact (replace mode) is a backfill and leaves it unchanged.
package domain
