package protocol

import (
	"time"

	"github.com/gopatchy/artnode/codec"
)

// Status1 indicator bits (7-6): the front-panel LED state ArtAddress's LED
// commands select.
const (
	status1IndicatorMask   uint8 = 0xC0
	status1IndicatorLocate uint8 = 0x40
	status1IndicatorMute   uint8 = 0x80
	status1IndicatorNormal uint8 = 0xC0
)

// handleArtAddress applies naming, per-port switch, and command byte
// changes, bound to the port page named by BindIndex (0 or 1 both mean
// page 1).
func handleArtAddress(s *State, pkt *codec.ArtAddressPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artaddress")

	if pkt.ShortName != "" && pkt.ShortName != "\x00" {
		s.Node.ShortName = pkt.ShortName
	}
	if pkt.LongName != "" && pkt.LongName != "\x00" {
		s.Node.LongName = pkt.LongName
	}
	// Switch values program only with bit 7 set; 0x00 means no change.
	if pkt.NetSwitch&0x80 != 0 {
		s.Node.NetSwitch = pkt.NetSwitch & 0x7F
	}
	if pkt.SubSwitch&0x80 != 0 {
		s.Node.SubSwitch = pkt.SubSwitch & 0x0F
	}

	page := bindPage(pkt.BindIndex)
	s.applyPortSwitches(page, pkt.SwIn, pkt.SwOut)

	var effects []Effect
	effects = append(effects, s.applyAddressCommand(pkt.Command, page, now)...)

	effects = append(effects, replyEffect(&codec.ArtDiagDataPacket{
		Priority: diagPriorityLow,
		Text:     wrapPayload([]byte("address changed")),
	}, sender))

	// The programming callback fires exactly once per ArtAddress,
	// regardless of how many fields it touched.
	effects = append(effects, callbackEffect("programming", map[string]any{
		"sender":     sender,
		"short_name": s.Node.ShortName,
		"long_name":  s.Node.LongName,
		"net_switch": s.Node.NetSwitch,
		"sub_switch": s.Node.SubSwitch,
		"bind_page":  page,
		"command":    pkt.Command,
	}))

	pages := s.buildPollReplyPages(false, 0, 0x7FFF)
	effects = append(effects, pollReplyEffects(pages, sender)...)
	for _, sub := range s.replyOnChangeSubscribers() {
		if sub.Addr == sender {
			continue
		}
		effects = append(effects, pollReplyEffects(pages, sub.Addr)...)
	}
	return effects
}

func bindPage(bindIndex uint8) int {
	if bindIndex <= 1 {
		return 0
	}
	return int(bindIndex) - 1
}

func (s *State) applyPortSwitches(page int, swIn, swOut [4]uint8) {
	base := page * 4
	for i := 0; i < 4; i++ {
		idx := base + i
		if idx >= len(s.Node.Ports) {
			break
		}
		if swIn[i]&0x80 != 0 {
			s.Node.Ports[idx].SwIn = swIn[i] & 0x0F
			s.Node.Ports[idx].PortAddress = codec.NewPortAddress(s.Node.NetSwitch, s.Node.SubSwitch, swIn[i]&0x0F)
		}
		if swOut[i]&0x80 != 0 {
			s.Node.Ports[idx].SwOut = swOut[i] & 0x0F
			s.Node.Ports[idx].PortAddress = codec.NewPortAddress(s.Node.NetSwitch, s.Node.SubSwitch, swOut[i]&0x0F)
		}
	}
}

func (s *State) applyAddressCommand(cmd uint8, page int, now time.Time) []Effect {
	switch {
	case cmd == codec.AddrCmdClearMerge:
		for pa := range s.DMX {
			ps := s.portDMX(pa)
			ps.Sources = map[SourceKey]*DMXSource{}
			ps.ExclusiveOwner = nil
			s.setMergingBit(pa, false)
		}
	case cmd == codec.AddrCmdLedNormal:
		s.Node.Status1 = (s.Node.Status1 &^ status1IndicatorMask) | status1IndicatorNormal
	case cmd == codec.AddrCmdLedMute:
		s.Node.Status1 = (s.Node.Status1 &^ status1IndicatorMask) | status1IndicatorMute
	case cmd == codec.AddrCmdLedLocate:
		s.Node.Status1 = (s.Node.Status1 &^ status1IndicatorMask) | status1IndicatorLocate
	case cmd >= codec.AddrCmdMergeLTPBase && cmd <= codec.AddrCmdMergeLTPMax:
		s.setPortMergeMode(page, int(cmd-codec.AddrCmdMergeLTPBase), MergeLTP)
	case cmd >= codec.AddrCmdMergeHTPBase && cmd <= codec.AddrCmdMergeHTPMax:
		s.setPortMergeMode(page, int(cmd-codec.AddrCmdMergeHTPBase), MergeHTP)
	case cmd >= codec.AddrCmdDirInputBase && cmd <= codec.AddrCmdDirInputMax:
		s.setPortDirection(page, int(cmd-codec.AddrCmdDirInputBase), PortInput)
	case cmd >= codec.AddrCmdDirOutputBase && cmd <= codec.AddrCmdDirOutputMax:
		s.setPortDirection(page, int(cmd-codec.AddrCmdDirOutputBase), PortOutput)
	case cmd == codec.AddrCmdFailsafeHold:
		s.setAllFailsafeModes(FailsafeHold)
	case cmd == codec.AddrCmdFailsafeZero:
		s.setAllFailsafeModes(FailsafeZero)
	case cmd == codec.AddrCmdFailsafeFull:
		s.setAllFailsafeModes(FailsafeFull)
	case cmd == codec.AddrCmdFailsafeScene:
		s.setAllFailsafeModes(FailsafeScene)
	case cmd == codec.AddrCmdFailsafeRecord:
		return s.recordFailsafeScenes(now)
	case cmd >= codec.AddrCmdBgQueuePolicyBase && cmd <= codec.AddrCmdBgQueuePolicyMax:
		s.Node.BackgroundQueuePolicy = cmd - codec.AddrCmdBgQueuePolicyBase
	}
	return nil
}

func (s *State) setPortMergeMode(page, portIdx int, mode MergeMode) {
	idx := page*4 + portIdx
	if idx < 0 || idx >= len(s.Node.Ports) {
		return
	}
	pa := s.Node.Ports[idx].PortAddress
	s.portDMX(pa).MergeMode = mode
}

func (s *State) setPortDirection(page, portIdx int, dir PortDirection) {
	idx := page*4 + portIdx
	if idx < 0 || idx >= len(s.Node.Ports) {
		return
	}
	s.Node.Ports[idx].Direction = dir
}

func (s *State) setAllFailsafeModes(mode FailsafeMode) {
	for _, fs := range s.Failsafe {
		fs.Mode = mode
	}
	for _, port := range s.Node.Ports {
		s.portFailsafe(port.PortAddress).Mode = mode
	}
	s.deriveStatus3Mode(mode)
}

func (s *State) recordFailsafeScenes(now time.Time) []Effect {
	for pa, ps := range s.DMX {
		fs := s.portFailsafe(pa)
		fs.SceneBytes = ps.LastOutput.Data
		fs.Length = ps.LastOutput.Length
		fs.HasScene = true
	}
	return []Effect{logEffect(LogInfo, "failsafe scene recorded", map[string]any{"at": now})}
}

// handleArtInput applies the enable/disable bit per physical port within
// the bound page. Disabling a port also drops any frame it has staged for
// ArtSync: a disabled port has nothing left to flush on the next sync.
func handleArtInput(s *State, pkt *codec.ArtInputPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artinput")

	page := bindPage(pkt.BindIndex)
	base := page * 4
	for i := 0; i < 4; i++ {
		idx := base + i
		if idx >= len(s.Node.Ports) {
			break
		}
		disabled := pkt.Input[i]&0x80 != 0
		s.Node.Ports[idx].Disabled = disabled
		if disabled {
			delete(s.Sync.Staging, s.Node.Ports[idx].PortAddress)
		}
	}

	bound := s.Node.Pages()
	var pages []*codec.ArtPollReplyPacket
	if page >= 0 && page < len(bound) {
		pages = []*codec.ArtPollReplyPacket{s.buildPollReplyPage(bound[page], uint8(page+1))}
	}
	return pollReplyEffects(pages, sender)
}

// handleArtIpProg programs the node's network identity. Without the enable
// bit nothing is mutated but the reply still reflects the current values.
// The reset sub-command (0x88) restores the configured factory defaults.
// The ip-prog callback carries the change-set so the shell can rebind its
// socket, which is an I/O concern the state machine cannot perform itself.
func handleArtIpProg(s *State, pkt *codec.ArtIpProgPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artipprog")

	if pkt.Command&codec.IpProgCmdEnable == 0 {
		reply := &codec.ArtIpProgReplyPacket{ProgIP: s.Node.IP, ProgPort: s.Node.UDPPort}
		return []Effect{replyEffect(reply, sender)}
	}

	if pkt.Command == codec.IpProgCmdReset || pkt.Command&codec.IpProgCmdDefault != 0 {
		s.Node.IP = s.NetworkDefaults.IP
		if s.NetworkDefaults.Port != 0 {
			s.Node.UDPPort = s.NetworkDefaults.Port
		}
		reply := &codec.ArtIpProgReplyPacket{
			ProgIP:      s.NetworkDefaults.IP,
			ProgSubnet:  s.NetworkDefaults.Subnet,
			ProgGateway: s.NetworkDefaults.Gateway,
			ProgPort:    s.Node.UDPPort,
		}
		return []Effect{
			replyEffect(reply, sender),
			callbackEffect("ip-prog", map[string]any{
				"command":         pkt.Command,
				"ip":              s.NetworkDefaults.IP,
				"subnet":          s.NetworkDefaults.Subnet,
				"port":            s.Node.UDPPort,
				"gateway":         s.NetworkDefaults.Gateway,
				"factory_default": true,
			}),
		}
	}

	reply := &codec.ArtIpProgReplyPacket{}
	if pkt.Command&codec.IpProgCmdProgramIP != 0 {
		s.Node.IP = pkt.ProgIP
	}
	if pkt.Command&codec.IpProgCmdProgramPort != 0 && pkt.ProgPort != 0 {
		s.Node.UDPPort = pkt.ProgPort
	}
	reply.ProgIP = s.Node.IP
	reply.ProgPort = s.Node.UDPPort
	reply.ProgSubnet = pkt.ProgSubnet
	reply.ProgGateway = pkt.ProgGateway

	return []Effect{
		replyEffect(reply, sender),
		callbackEffect("ip-prog", map[string]any{
			"command":         pkt.Command,
			"ip":              pkt.ProgIP,
			"subnet":          pkt.ProgSubnet,
			"port":            pkt.ProgPort,
			"gateway":         pkt.ProgGateway,
			"dhcp":            pkt.Command&codec.IpProgCmdDHCP != 0,
			"factory_default": false,
		}),
	}
}
