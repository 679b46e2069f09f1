package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePortAddress parses a port-address string in either
// "net.subnet.universe" form or a plain decimal universe number
// (0-32767).
func ParsePortAddress(s string) (net, subNet, universe uint8, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, 0, fmt.Errorf("config: empty port address")
	}

	if strings.Contains(s, ".") {
		parts := strings.Split(s, ".")
		if len(parts) != 3 {
			return 0, 0, 0, fmt.Errorf("config: invalid port address %q, expected net.subnet.universe", s)
		}
		n, err := parseComponent(parts[0], 127)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("config: invalid net in %q: %w", s, err)
		}
		sn, err := parseComponent(parts[1], 15)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("config: invalid sub-net in %q: %w", s, err)
		}
		u, err := parseComponent(parts[2], 15)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("config: invalid universe in %q: %w", s, err)
		}
		return n, sn, u, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 32767 {
		return 0, 0, 0, fmt.Errorf("config: invalid port address %q, expected 0-32767", s)
	}
	return uint8(v >> 8 & 0x7F), uint8(v >> 4 & 0x0F), uint8(v & 0x0F), nil
}

func parseComponent(s string, max int) (uint8, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if v < 0 || v > max {
		return 0, fmt.Errorf("value %d out of range 0-%d", v, max)
	}
	return uint8(v), nil
}
