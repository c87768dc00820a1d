// Package cache memoizes raster geometry lookups. Snapshots of one zone share
// their geometry, and consecutive timestamps of a range probe the same
// snapshots, so most lookups of a run are repeats.
package cache

import (
	"context"
	"time"

	"github.com/couchcryptid/radar-accumulation-service/internal/domain"
	"github.com/couchcryptid/radar-accumulation-service/internal/pipeline"
)

type configKey struct {
	zone domain.Zone
	unix int64
}

// Configs wraps a ConfigSource with an in-memory LRU cache.
type Configs struct {
	inner pipeline.ConfigSource
	cache *lru[configKey, domain.RasterConfig]
}

// NewConfigs creates a cache decorator holding up to maxEntries geometries.
func NewConfigs(inner pipeline.ConfigSource, maxEntries int) *Configs {
	return &Configs{
		inner: inner,
		cache: newLRU[configKey, domain.RasterConfig](maxEntries),
	}
}

// ConfigFor implements pipeline.ConfigSource.
func (c *Configs) ConfigFor(ctx context.Context, zone domain.Zone, ts time.Time) (domain.RasterConfig, error) {
	key := configKey{zone: zone, unix: ts.Unix()}
	if cfg, ok := c.cache.get(key); ok {
		return cfg, nil
	}
	cfg, err := c.inner.ConfigFor(ctx, zone, ts)
	if err != nil {
		// Not cached: the snapshot may still arrive before the next probe.
		return cfg, err
	}
	c.cache.put(key, cfg)
	return cfg, nil
}

// Len returns the number of cached geometries.
func (c *Configs) Len() int {
	return c.cache.len()
}
