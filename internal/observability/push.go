package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name of accumulation runs.
const PushJob = "radar_accumulation"

// Push sends everything gathered by g to the Pushgateway at url, grouped by
// instance when one is given.
func Push(ctx context.Context, url, instance string, g prometheus.Gatherer) error {
	p := push.New(url, PushJob).Gatherer(g)
	if instance != "" {
		p = p.Grouping("instance", instance)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
