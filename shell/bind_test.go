package shell

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveBindAddrPrecedence(t *testing.T) {
	// Explicit node IP beats everything.
	ip, port := ResolveBindAddr("192.168.1.10", "10.0.0.1", 7000, 6454)
	require.Equal(t, [4]byte{192, 168, 1, 10}, ip)
	require.Equal(t, uint16(7000), port)

	// A non-wildcard bind host is next.
	ip, _ = ResolveBindAddr("", "10.0.0.1", 0, 0)
	require.Equal(t, [4]byte{10, 0, 0, 1}, ip)

	// The wildcard bind host falls through to detection or the fallback;
	// either way the result is non-zero.
	ip, port = ResolveBindAddr("", "0.0.0.0", 0, 0)
	require.NotEqual(t, [4]byte{}, ip)
	require.Equal(t, uint16(DefaultPort), port)
}

func TestResolvePortPrecedence(t *testing.T) {
	require.Equal(t, uint16(7001), resolvePort(7001, 7002))
	require.Equal(t, uint16(7002), resolvePort(0, 7002))
	require.Equal(t, uint16(DefaultPort), resolvePort(0, 0))
}

func TestParseIPv4RejectsNonIPv4(t *testing.T) {
	require.Equal(t, [4]byte{}, parseIPv4(""))
	require.Equal(t, [4]byte{}, parseIPv4("not-an-ip"))
	require.Equal(t, [4]byte{}, parseIPv4("fe80::1"))
	require.Equal(t, [4]byte{2, 0, 0, 1}, parseIPv4("2.0.0.1"))
}
