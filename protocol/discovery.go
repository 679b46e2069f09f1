package protocol

import (
	"sort"
	"time"

	"github.com/gopatchy/artnode/codec"
)

func (s *State) upsertPeer(addr Addr, now time.Time) *PeerRecord {
	p, ok := s.Peers[addr.Key()]
	if !ok {
		p = &PeerRecord{Addr: addr, SeenAt: now}
		s.Peers[addr.Key()] = p
	}
	p.UpdatedAt = now
	return p
}

// subscribeReplyOnChange enforces the configured subscriber limit and
// eviction policy. Returns true if the peer ends
// up subscribed.
func (s *State) subscribeReplyOnChange(p *PeerRecord, now time.Time) bool {
	if p.ReplyOnChange {
		return true
	}

	limit := s.Cfg.Discovery.ReplyOnChangeLimit
	if limit <= 0 {
		p.ReplyOnChange = true
		return true
	}

	current := s.replyOnChangeSubscribers()
	if len(current) < limit {
		p.ReplyOnChange = true
		return true
	}

	switch s.Cfg.Discovery.EvictionPolicy {
	case EvictPreferLatest:
		sort.Slice(current, func(i, j int) bool { return current[i].SeenAt.Before(current[j].SeenAt) })
		oldest := current[0]
		oldest.ReplyOnChange = false
		p.ReplyOnChange = true
		return true
	default: // EvictPreferExisting
		return false
	}
}

func (s *State) replyOnChangeSubscribers() []*PeerRecord {
	var out []*PeerRecord
	for _, p := range s.Peers {
		if p.ReplyOnChange {
			out = append(out, p)
		}
	}
	// Sort by seen-at so fan-out order is deterministic regardless of map
	// iteration order.
	sort.Slice(out, func(i, j int) bool { return out[i].SeenAt.Before(out[j].SeenAt) })
	return out
}

// buildPollReplyPages assembles one ArtPollReplyPacket per page of up to 4
// ports, optionally filtered to the inclusive [bottom, top] port-address
// range for targeted polls.
func (s *State) buildPollReplyPages(targeted bool, bottom, top codec.PortAddress) []*codec.ArtPollReplyPacket {
	pages := s.Node.Pages()
	var out []*codec.ArtPollReplyPacket

	for i, page := range pages {
		if targeted && !pageInRange(page, bottom, top) {
			continue
		}
		out = append(out, s.buildPollReplyPage(page, uint8(i+1)))
	}
	return out
}

func pageInRange(page []PortConfig, bottom, top codec.PortAddress) bool {
	if len(page) == 0 {
		return false
	}
	for _, port := range page {
		if port.PortAddress >= bottom && port.PortAddress <= top {
			return true
		}
	}
	return false
}

func (s *State) buildPollReplyPage(page []PortConfig, bindIndex uint8) *codec.ArtPollReplyPacket {
	n := s.Node
	p := &codec.ArtPollReplyPacket{
		IP:                    n.IP,
		UDPPort:               n.UDPPort,
		VersionInfo:           uint16(n.VersionHi)<<8 | uint16(n.VersionLo),
		NetSwitch:             n.NetSwitch,
		SubSwitch:             n.SubSwitch,
		OemHi:                 n.OemHi,
		Oem:                   n.Oem,
		Status1:               n.Status1,
		EstaMan:               n.EstaMan,
		ShortName:             n.ShortName,
		LongName:              n.LongName,
		NodeReport:            n.NodeReport,
		NumPorts:              uint8(len(page)),
		Style:                 n.Style,
		MAC:                   n.MAC,
		BindIP:                n.IP,
		BindIndex:             bindIndex,
		Status2:               s.status2(),
		Status3:               n.Status3,
		DefaultResponderUID:   n.DefaultResponderUID,
		BackgroundQueuePolicy: n.BackgroundQueuePolicy,
		RefreshRateLo:         n.RefreshRateHz,
	}

	for i, port := range page {
		p.PortTypes[i] = port.Type
		p.GoodInput[i] = port.GoodInput
		p.GoodOutputA[i] = port.GoodOutputA
		p.GoodOutputB[i] = port.GoodOutputB
		p.SwIn[i] = port.SwIn
		p.SwOut[i] = port.SwOut
	}

	return p
}

// status2 derives the Status2 byte: DHCP-capable, extended-port-address
// and output-style bits always set; rdm-via-artaddress set iff an RDM
// callback is registered.
func (s *State) status2() uint8 {
	v := uint8(codec.Status2DHCPCapable | codec.Status2ExtendedPortAddr | codec.Status2OutputStyleSwitch)
	if s.Node.RDMCallbackRegistered {
		v |= codec.Status2RDMViaArtAddress
	}
	return v
}

// pollReplyEffects turns a set of built pages into tx effects targeted at addr.
func pollReplyEffects(pages []*codec.ArtPollReplyPacket, target Addr) []Effect {
	out := make([]Effect, 0, len(pages))
	for _, pg := range pages {
		out = append(out, replyEffect(pg, target))
	}
	return out
}
