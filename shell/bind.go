package shell

import "net"

// DefaultPort is the standard Art-Net UDP port.
const DefaultPort = 0x1936 // 6454

// ResolveBindAddr resolves the advertised node identity: explicit node IP,
// then a non-wildcard bind host, then interface auto-detection, then the
// 2.0.0.1 fallback; node port, then bind port, then the default.
func ResolveBindAddr(nodeIP string, bindHost string, nodePort, bindPort int) (ip [4]byte, port uint16) {
	port = resolvePort(nodePort, bindPort)

	if parsed := parseIPv4(nodeIP); parsed != ([4]byte{}) {
		return parsed, port
	}
	if bindHost != "" && bindHost != "0.0.0.0" {
		if parsed := parseIPv4(bindHost); parsed != ([4]byte{}) {
			return parsed, port
		}
	}
	if auto := detectPrimaryIPv4(); auto != ([4]byte{}) {
		return auto, port
	}
	return [4]byte{2, 0, 0, 1}, port
}

func resolvePort(nodePort, bindPort int) uint16 {
	switch {
	case nodePort != 0:
		return uint16(nodePort)
	case bindPort != 0:
		return uint16(bindPort)
	default:
		return DefaultPort
	}
}

func parseIPv4(s string) [4]byte {
	if s == "" {
		return [4]byte{}
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return [4]byte{}
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return [4]byte{}
	}
	var out [4]byte
	copy(out[:], ip4)
	return out
}

// detectPrimaryIPv4 scans local interfaces for a usable address, preferring
// 2.x.x.x (Art-Net primary network) then 10.x.x.x, rejecting
// loopback/link-local/multicast.
func detectPrimaryIPv4() [4]byte {
	ifaces, err := net.Interfaces()
	if err != nil {
		return [4]byte{}
	}

	var candidates [][4]byte
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			ip4 := ipnet.IP.To4()
			if ip4 == nil || ip4.IsLoopback() || ip4.IsLinkLocalUnicast() || ip4.IsMulticast() {
				continue
			}
			var b [4]byte
			copy(b[:], ip4)
			candidates = append(candidates, b)
		}
	}

	for _, c := range candidates {
		if c[0] == 2 {
			return c
		}
	}
	for _, c := range candidates {
		if c[0] == 10 {
			return c
		}
	}
	if len(candidates) > 0 {
		return candidates[0]
	}
	return [4]byte{}
}
