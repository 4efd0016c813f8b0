package config

import "strings"

// MetricsConfig controls the StatsD sink for auth flow metrics.
//
// Environment variables:
//   - METRICS_ENABLED: emit metrics (default: false)
//   - STATSD_ADDRESS: host:port of the collector (default: 127.0.0.1:8125)
//   - STATSD_PREFIX: metric name prefix (default: compliance_gate)
//   - STATSD_TAGS: global tags as comma-separated key:value pairs
type MetricsConfig struct {
	Enabled bool              `env:"METRICS_ENABLED" envDefault:"false"`
	Address string            `env:"STATSD_ADDRESS"  envDefault:"127.0.0.1:8125"`
	Prefix  string            `env:"STATSD_PREFIX"   envDefault:"compliance_gate"`
	Tags    map[string]string `env:"STATSD_TAGS"`
}

// Sanitize trims the address and disables metrics without one.
func (c *MetricsConfig) Sanitize() {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		c.Enabled = false
	}
}
