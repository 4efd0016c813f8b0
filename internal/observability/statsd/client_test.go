package statsd

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLine(t *testing.T) {
	tests := []struct {
		name   string
		global map[string]string
		local  map[string]string
		want   string
	}{
		{name: "no tags", want: "auth.flow:1|c"},
		{
			name:   "local overrides global and keys sort",
			global: map[string]string{"env": "prod", " service ": " gate "},
			local:  map[string]string{"flow": "login", "env": "stage", "": "dropped"},
			want:   "auth.flow:1|c|#env:stage,flow:login,service:gate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatLine("auth.flow", "1", "c", tt.global, tt.local))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "auth.flow_login", normalizeName(" auth..flow/login "))
	assert.Equal(t, "a_b_c", normalizeName("a:b|c"))
}

func TestNewClientRequiresAddress(t *testing.T) {
	_, err := NewClient(Config{Address: "  "})
	require.Error(t, err)
}

func TestClientWritesDatagrams(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })

	c, err := NewClient(Config{
		Address:    pc.LocalAddr().String(),
		Prefix:     ".compliance_gate.",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)

	read := func() string {
		t.Helper()
		buf := make([]byte, 512)
		require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, rerr := pc.ReadFrom(buf)
		require.NoError(t, rerr)
		return string(buf[:n])
	}

	c.Count("auth.flow", 1, map[string]string{"flow": "login", "state": "authenticated"})
	assert.Equal(t, "compliance_gate.auth.flow:1|c|#env:test,flow:login,state:authenticated", read())

	c.Timing("auth.flow.duration", 1500*time.Microsecond, nil)
	assert.Equal(t, "compliance_gate.auth.flow.duration:1.5|ms|#env:test", read())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	c.Count("auth.flow", 1, nil)
}

func TestDiscardAcceptsWrites(t *testing.T) {
	Discard.Count("x", 1, nil)
	Discard.Timing("x", time.Second, nil)
}
