package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFullSchema(t *testing.T) {
	cfg, err := Parse(`
[node]
short-name = "artnode"
long-name = "artnode long name"
ip = "10.0.0.5"
port = 6454
mac = "00:11:22:33:44:55"
style = 0
oem = 1
esta-man = 2

[[node.ports]]
direction = "output"
universe = "0.0.1"
type = 128

[bind]
host = "0.0.0.0"
port = 6454

[sync]
mode = "art-sync"
buffer-ttl-ms = 200

[failsafe]
enabled = true
idle-timeout-ms = 1000
tick-interval-ms = 50

[discovery]
reply-on-change-limit = 40
reply-on-change-policy = "prefer-latest"

[diagnostics]
subscriber-ttl-ms = 60000
rate-limit-hz = 10
subscriber-warning-threshold = 30

[diagnostics.broadcast-target]
host = "255.255.255.255"
port = 6454

[triggers]
min-interval-ms = 100

[triggers.reply]
enabled = false

[data.responses]
variant1 = "hello"
`)
	require.NoError(t, err)
	require.Equal(t, "artnode", cfg.Node.ShortName)
	require.Equal(t, "art-sync", cfg.Sync.Mode)
	require.Equal(t, 1, len(cfg.Node.Ports))
	require.Equal(t, "output", cfg.Node.Ports[0].Direction)
	require.Equal(t, "prefer-latest", cfg.Discovery.ReplyOnChangePolicy)
	require.Equal(t, "hello", cfg.Data.Responses["variant1"])
}

func TestValidateRejectsBadDirection(t *testing.T) {
	_, err := Parse(`
[[node.ports]]
direction = "sideways"
universe = "0.0.0"
`)
	require.Error(t, err)
}

func TestValidateRejectsBadSyncMode(t *testing.T) {
	_, err := Parse(`
[sync]
mode = "bogus"
`)
	require.Error(t, err)
}

func TestParsePortAddressForms(t *testing.T) {
	n, sn, u, err := ParsePortAddress("1.2.3")
	require.NoError(t, err)
	require.Equal(t, uint8(1), n)
	require.Equal(t, uint8(2), sn)
	require.Equal(t, uint8(3), u)

	n, sn, u, err = ParsePortAddress("16")
	require.NoError(t, err)
	require.Equal(t, uint8(0), n)
	require.Equal(t, uint8(1), sn)
	require.Equal(t, uint8(0), u)

	_, _, _, err = ParsePortAddress("128.0.0")
	require.Error(t, err)
}
