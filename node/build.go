package node

import (
	"fmt"
	"net"
	"time"

	"github.com/gopatchy/artnode/codec"
	"github.com/gopatchy/artnode/config"
	"github.com/gopatchy/artnode/protocol"
	"github.com/gopatchy/artnode/shell"
)

// buildState translates a parsed config.Config into the protocol
// package's InitialState.
func buildState(cfg *config.Config) (*protocol.State, error) {
	ip, port := shell.ResolveBindAddr(cfg.Node.IP, cfg.Bind.Host, cfg.Node.Port, cfg.Bind.Port)

	ports := make([]protocol.PortConfig, 0, len(cfg.Node.Ports))
	for _, p := range cfg.Node.Ports {
		dir := protocol.PortOutput
		if p.Direction == "input" {
			dir = protocol.PortInput
		}
		n, sn, u := uint8(0), uint8(0), uint8(0)
		if p.Universe != "" {
			var err error
			n, sn, u, err = config.ParsePortAddress(p.Universe)
			if err != nil {
				return nil, err
			}
		}
		ports = append(ports, protocol.PortConfig{
			Direction:   dir,
			Type:        p.Type,
			PortAddress: codec.NewPortAddress(n, sn, u),
		})
	}

	var mac [6]byte
	if hw, err := net.ParseMAC(cfg.Node.MAC); err == nil && len(hw) == 6 {
		copy(mac[:], hw)
	}

	node := protocol.NodeIdentity{
		ShortName:             cfg.Node.ShortName,
		LongName:              cfg.Node.LongName,
		IP:                    ip,
		UDPPort:               port,
		MAC:                   mac,
		Oem:                   uint8(cfg.Node.Oem),
		OemHi:                 uint8(cfg.Node.Oem >> 8),
		EstaMan:               cfg.Node.EstaMan,
		VersionHi:             cfg.Node.VersionHi,
		VersionLo:             cfg.Node.VersionLo,
		Style:                 cfg.Node.Style,
		Ports:                 ports,
		Status1:               cfg.Node.Status1,
		Status2:               cfg.Node.Status2,
		Status3:               cfg.Node.Status3,
		BackgroundQueuePolicy: cfg.Node.BackgroundQueuePolicy,
		RefreshRateHz:         cfg.Node.RefreshRate,
	}

	pcfg := protocol.Config{}
	pcfg.Discovery.ReplyOnChangeLimit = cfg.Discovery.ReplyOnChangeLimit
	if cfg.Discovery.ReplyOnChangePolicy == "prefer-latest" {
		pcfg.Discovery.EvictionPolicy = protocol.EvictPreferLatest
	}
	pcfg.Diagnostics.BroadcastTarget = protocol.Addr{Host: cfg.Diagnostics.BroadcastTarget.Host, Port: cfg.Diagnostics.BroadcastTarget.Port}
	pcfg.Diagnostics.SubscriberTTL = cfg.Diagnostics.SubscriberTTL()
	pcfg.Diagnostics.RateLimitHz = cfg.Diagnostics.RateLimitHz
	pcfg.Diagnostics.SubscriberWarningThreshold = cfg.Diagnostics.SubscriberWarningThreshold
	pcfg.Triggers.MinInterval = cfg.Triggers.MinInterval()
	pcfg.Triggers.ReplyEnabled = cfg.Triggers.Reply.Enabled
	macros, err := parseTriggerMacros(cfg.Triggers.Macros)
	if err != nil {
		return nil, err
	}
	pcfg.Triggers.Macros = macros
	pcfg.Data.Responses = cfg.Data.Responses
	pcfg.Capabilities.FailsafeSupported = cfg.Failsafe.Enabled
	if cfg.Node.RefreshRate > 0 {
		pcfg.RefreshRates = map[codec.PortAddress]float64{}
		for _, p := range ports {
			pcfg.RefreshRates[p.PortAddress] = float64(cfg.Node.RefreshRate)
		}
	}
	pcfg.MergeTimeout = 4 * time.Second
	pcfg.KeepaliveInterval = 900 * time.Millisecond
	pcfg.ArtSyncTimeout = 4 * time.Second

	failsafeCfg := protocol.FailsafeConfig{
		Enabled:      cfg.Failsafe.Enabled,
		IdleTimeout:  cfg.Failsafe.IdleTimeout(),
		TickInterval: cfg.Failsafe.TickInterval(),
	}

	syncMode := protocol.SyncImmediate
	if cfg.Sync.Mode == "art-sync" {
		syncMode = protocol.SyncArtSync
	}

	state := protocol.InitialState(node, pcfg, failsafeCfg, syncMode, cfg.Sync.BufferTTL())
	if err := seedRDMPorts(state, cfg.RDM.Ports); err != nil {
		return nil, err
	}
	state.NetworkDefaults = networkDefaults(cfg.Programming)
	return state, nil
}

// networkDefaults translates the configured ArtIpProg factory-reset
// identity; a field left blank in the TOML file keeps its zero value.
// handleArtIpProg's reset path applies the IP as-is (a blank IP resets the
// node to 0.0.0.0) and keeps the node's current UDP port when Port is 0.
func networkDefaults(pc config.ProgrammingConfig) protocol.NetworkDefaults {
	var nd protocol.NetworkDefaults
	if ip := net.ParseIP(pc.Network.IP); ip != nil {
		copy(nd.IP[:], ip.To4())
	}
	if mask := net.ParseIP(pc.Network.SubnetMask); mask != nil {
		copy(nd.Subnet[:], mask.To4())
	}
	if gw := net.ParseIP(pc.Network.Gateway); gw != nil {
		copy(nd.Gateway[:], gw.To4())
	}
	nd.Port = uint16(pc.Network.Port)
	return nd
}

// parseTriggerMacros translates "key.sub-key" -> handler-name config entries
// into the TriggerKey-addressed map handleArtTrigger dispatches through.
func parseTriggerMacros(macros map[string]string) (map[protocol.TriggerKey]string, error) {
	if len(macros) == 0 {
		return nil, nil
	}
	out := make(map[protocol.TriggerKey]string, len(macros))
	for addr, handler := range macros {
		var key, subKey uint8
		if _, err := fmt.Sscanf(addr, "%d.%d", &key, &subKey); err != nil {
			return nil, fmt.Errorf("triggers.macros[%q]: expected \"key.sub-key\": %w", addr, err)
		}
		out[protocol.TriggerKey{Key: key, SubKey: subKey}] = handler
	}
	return out, nil
}

// seedRDMPorts pre-populates a port-address's Table of Devices from
// statically configured UIDs, for fixtures that are never discovered via
// ArtTodControl because their UID is known ahead of time.
func seedRDMPorts(state *protocol.State, ports map[string]config.RDMPortConfig) error {
	for addrStr, pc := range ports {
		n, sn, u, err := config.ParsePortAddress(addrStr)
		if err != nil {
			return fmt.Errorf("rdm.ports[%q]: %w", addrStr, err)
		}
		pa := codec.NewPortAddress(n, sn, u)
		uids := map[[6]byte]bool{}
		for _, uidStr := range pc.UIDs {
			uid, err := parseRDMUID(uidStr)
			if err != nil {
				return fmt.Errorf("rdm.ports[%q].uids: %w", addrStr, err)
			}
			uids[uid] = true
		}
		state.RDM[pa] = &protocol.RDMPortState{UIDs: uids}
	}
	return nil
}

// parseRDMUID parses a 6-byte RDM UID in "MMMM:DDDDDDDD" form (2-byte
// manufacturer ID, 4-byte device ID, colon-separated hex per the RDM spec).
func parseRDMUID(s string) ([6]byte, error) {
	var uid [6]byte
	var mfr uint16
	var dev uint32
	if _, err := fmt.Sscanf(s, "%04x:%08x", &mfr, &dev); err != nil {
		return uid, fmt.Errorf("invalid rdm uid %q, expected MMMM:DDDDDDDD hex: %w", s, err)
	}
	uid[0] = byte(mfr >> 8)
	uid[1] = byte(mfr)
	uid[2] = byte(dev >> 24)
	uid[3] = byte(dev >> 16)
	uid[4] = byte(dev >> 8)
	uid[5] = byte(dev)
	return uid, nil
}

func shellConfig(cfg *config.Config, callbacks shell.Callbacks) shell.Config {
	failsafeTick := cfg.Failsafe.TickInterval()
	bindPort := cfg.Bind.Port
	if bindPort == 0 {
		bindPort = cfg.Node.Port
	}
	return shell.Config{
		BindHost:             cfg.Bind.Host,
		BindPort:             bindPort,
		RxBufferCount:        cfg.RxBuffer.Count,
		RxBufferSize:         cfg.RxBuffer.Size,
		TxBufferCount:        cfg.TxBuffer.Count,
		TxBufferSize:         cfg.TxBuffer.Size,
		FailsafeTickInterval: failsafeTick,
		Callbacks:            callbacks,
	}
}
