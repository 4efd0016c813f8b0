package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/target/compliance-gate/config"
	"github.com/target/compliance-gate/internal/observability/statsd"
)

// BuildMetrics returns the flow metrics sink and a func that releases it.
// Disabled metrics yield statsd.Discard.
//
//nolint:ireturn // callers only need the Sink surface.
func BuildMetrics(cfg config.MetricsConfig, logger *slog.Logger) (statsd.Sink, func() error, error) {
	noop := func() error { return nil }
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.Enabled {
		return statsd.Discard, noop, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Address:    cfg.Address,
		Prefix:     cfg.Prefix,
		GlobalTags: cfg.Tags,
		Logger:     logger,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("metrics: %w", err)
	}
	logger.Info("statsd metrics enabled", "address", cfg.Address, "prefix", cfg.Prefix)
	return client, client.Close, nil
}
