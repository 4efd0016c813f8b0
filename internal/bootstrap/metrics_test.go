package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/compliance-gate/config"
	"github.com/target/compliance-gate/internal/observability/statsd"
)

func TestBuildMetrics(t *testing.T) {
	sink, closeFn, err := BuildMetrics(config.MetricsConfig{}, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, statsd.Discard, sink)
	require.NoError(t, closeFn())

	sink, closeFn, err = BuildMetrics(config.MetricsConfig{
		Enabled: true,
		Address: "127.0.0.1:8125",
		Prefix:  "compliance_gate",
	}, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &statsd.Client{}, sink)
	require.NoError(t, closeFn())

	_, _, err = BuildMetrics(config.MetricsConfig{Enabled: true}, quietLogger())
	require.Error(t, err)
}
