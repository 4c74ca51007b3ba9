package metrics

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const pushgatewayJob = "autobill_billing_run"

// PushgatewayPusher sends the process metrics to a Prometheus Pushgateway
// once a billing run completes, so short-lived runs are still scraped.
type PushgatewayPusher struct {
	endpoint string
	job      string
	grouping map[string]string
	gatherer prometheus.Gatherer
}

// NewPushgatewayPusher returns nil when no endpoint is configured.
func NewPushgatewayPusher(cfg Config) *PushgatewayPusher {
	endpoint := strings.TrimSpace(cfg.PushgatewayURL)
	if endpoint == "" {
		return nil
	}
	return &PushgatewayPusher{
		endpoint: endpoint,
		job:      pushgatewayJob,
		// Series already carry service and env labels; grouping keys must not collide with them.
		grouping: map[string]string{
			"instance": instanceName(cfg.ServiceName),
		},
		gatherer: prometheus.DefaultGatherer,
	}
}

// Push sends the current registry metrics to the Pushgateway.
func (p *PushgatewayPusher) Push(ctx context.Context) error {
	if p == nil || p.gatherer == nil {
		return nil
	}
	if p.job == "" {
		return errors.New("pushgateway job is required")
	}

	pusher := push.New(p.endpoint, p.job).Gatherer(p.gatherer)
	for key, value := range p.grouping {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		pusher = pusher.Grouping(key, value)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	return pusher.PushContext(ctx)
}

func instanceName(fallback string) string {
	if host, err := os.Hostname(); err == nil && strings.TrimSpace(host) != "" {
		return host
	}
	return labelOrDefault(fallback, "autobill")
}
