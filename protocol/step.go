package protocol

import (
	"time"

	"github.com/gopatchy/artnode/codec"
)

// Step is the pure heart of the node: given the current state and one
// event, it returns the next state and the effects the shell must perform.
// It never touches the clock, the network, or a source of randomness
// directly; Event.Timestamp supplies "now" and jitterDelayMS supplies
// the poll-reply stagger.
func Step(s *State, ev Event) (*State, []Effect, error) {
	switch ev.Kind {
	case EventRxPacket:
		return s, dispatchPacket(s, ev.Packet, ev.Sender, ev.Timestamp), nil
	case EventTick:
		return s, tick(s, ev.Timestamp), nil
	case EventCommand:
		effects, err := dispatchCommand(s, ev)
		return s, effects, err
	}
	return s, nil, nil
}

// dispatchPacket routes a decoded packet to its opcode-specific handler.
// Wire-level rejects are counted and logged but never returned as errors:
// an Art-Net node must tolerate an evolving peer.
func dispatchPacket(s *State, pkt codec.Packet, sender Addr, now time.Time) []Effect {
	switch p := pkt.(type) {
	case *codec.ArtPollPacket:
		return handleArtPoll(s, p, sender, now)
	case *codec.ArtPollReplyPacket:
		s.upsertPeer(sender, now)
		s.Stats.incr("rx-artpollreply")
		return nil
	case *codec.ArtDmxPacket:
		return handleArtDmx(s, p, sender, now)
	case *codec.ArtNzsPacket:
		return handleArtNzs(s, p, sender, now)
	case *codec.ArtVlcPacket:
		return handleArtVlc(s, p, sender, now)
	case *codec.ArtSyncPacket:
		return handleArtSync(s, p, sender, now)
	case *codec.ArtAddressPacket:
		return handleArtAddress(s, p, sender, now)
	case *codec.ArtInputPacket:
		return handleArtInput(s, p, sender, now)
	case *codec.ArtIpProgPacket:
		return handleArtIpProg(s, p, sender, now)
	case *codec.ArtTodRequestPacket:
		return handleArtTodRequest(s, p, sender, now)
	case *codec.ArtTodControlPacket:
		return handleArtTodControl(s, p, now)
	case *codec.ArtRdmPacket:
		return handleArtRdm(s, p, sender, now)
	case *codec.ArtRdmSubPacket:
		return handleArtRdmSub(s, p, sender, now)
	case *codec.ArtCommandPacket:
		return handleArtCommand(s, p, sender, now)
	case *codec.ArtTriggerPacket:
		return handleArtTrigger(s, p, sender, now)
	case *codec.ArtDataRequestPacket:
		return handleArtDataRequest(s, p, sender, now)
	case *codec.ArtFirmwareMasterPacket:
		return handleArtFirmwareMaster(s, p, sender, now)
	case *codec.ArtDiagDataPacket:
		return handleArtDiagData(s, p, sender, now)
	default:
		s.Stats.incr("rx-unhandled-opcode")
		return []Effect{logEffect(LogDebug, "unhandled opcode", map[string]any{"opcode": pkt.OpCode()})}
	}
}

// tick drives every time-based process: merge timeouts, failsafe
// engagement, keepalive re-emission, the ArtSync hard fallback, and
// diagnostic subscriber expiry. The shell delivers one Tick at a steady
// cadence.
func tick(s *State, now time.Time) []Effect {
	var effects []Effect
	effects = append(effects, s.mergeTimeoutTick(now)...)
	effects = append(effects, s.failsafeTick(now)...)
	effects = append(effects, s.keepaliveTick(now)...)
	effects = append(effects, s.syncTick(now)...)
	s.pruneDiagSubscribers(now)
	s.Stats.incr("tick")
	return effects
}

// dispatchCommand routes a caller-issued command event. Unlike wire-level
// rejects, a malformed command is the caller's bug and surfaces as an error.
func dispatchCommand(s *State, ev Event) ([]Effect, error) {
	switch ev.Command {
	case cmdDeferredReply:
		return []Effect{replyEffect(ev.Packet, ev.Target)}, nil
	case CmdSendDMX:
		return commandSendDMX(s, ev)
	case CmdSendRDM:
		return commandSendRDM(s, ev)
	case CmdSendSync:
		return commandSendSync(s, ev)
	case CmdSendDiagnostic:
		return commandSendDiagnostic(s, ev)
	case CmdApplyState:
		return commandApplyState(s, ev)
	}
	return nil, nil
}

func commandSendDMX(s *State, ev Event) ([]Effect, error) {
	if len(ev.Data) > 512 {
		return nil, ErrDMXTooLong
	}
	var data [512]byte
	n := copy(data[:], ev.Data)

	ps := s.portDMX(ev.PortAddress)
	ps.LastSequence++
	if ps.LastSequence == 0 {
		ps.LastSequence = 1
	}
	ps.LastOutput = OutputFrame{Data: data, Length: n, UpdatedAt: ev.Timestamp}
	ps.LastEmittedAt = ev.Timestamp

	pkt := &codec.ArtDmxPacket{
		Sequence:    ps.LastSequence,
		PortAddress: ev.PortAddress,
		Length:      uint16(n),
		Data:        codec.NewOwnedPayload(data[:n]),
	}

	target, broadcast := ev.Target, !ev.HasTarget
	s.Stats.incr("tx-artdmx")
	return []Effect{txEffect(pkt, target, broadcast)}, nil
}

func commandSendRDM(s *State, ev Event) ([]Effect, error) {
	if !ev.HasTarget {
		return nil, ErrNoTarget
	}
	if len(ev.Data) < rdmMinLength {
		return nil, ErrRDMTooShort
	}
	if !codec.AcceptedRDMCommandClasses[ev.Data[rdmClassOffset]] {
		return nil, ErrRDMBadClass
	}

	pkt := &codec.ArtRdmPacket{
		PortAddress: ev.PortAddress,
		RdmData:     codec.NewOwnedPayload(ev.Data),
	}
	s.Stats.incr("tx-artrdm")
	return []Effect{txEffect(pkt, ev.Target, false)}, nil
}

func commandSendSync(s *State, ev Event) ([]Effect, error) {
	pkt := &codec.ArtSyncPacket{}
	target, broadcast := ev.Target, !ev.HasTarget
	s.Stats.incr("tx-artsync")
	return []Effect{txEffect(pkt, target, broadcast)}, nil
}

func commandSendDiagnostic(s *State, ev Event) ([]Effect, error) {
	pkt := &codec.ArtDiagDataPacket{Priority: ev.Priority, Text: codec.NewOwnedPayload(ev.Data)}
	s.Stats.incr("tx-artdiagdata")
	if ev.HasTarget {
		return []Effect{txEffect(pkt, ev.Target, false)}, nil
	}
	return s.fanOutDiagnostic(ev.Priority, ev.Data, Addr{}, ev.Timestamp), nil
}

// commandApplyState deep-merges a runtime configuration patch, used by the
// shell's reload path (config file change, admin API call) without tearing
// down the node. Every section re-derives the status bits and
// good-output-b values that depend on it, and any change visible in an
// ArtPollReply fans out to reply-on-change subscribers.
func commandApplyState(s *State, ev Event) ([]Effect, error) {
	patch := ev.Patch
	if patch == nil {
		return nil, nil
	}
	if patch.Node != nil {
		s.Node = *patch.Node
	}
	if patch.Network != nil {
		if patch.Network.IP != nil {
			s.Node.IP = *patch.Network.IP
		}
		if patch.Network.UDPPort != nil {
			s.Node.UDPPort = *patch.Network.UDPPort
		}
		if patch.Network.MAC != nil {
			s.Node.MAC = *patch.Network.MAC
		}
	}
	if patch.Callbacks != nil && patch.Callbacks.RDMRegistered != nil {
		s.Node.RDMCallbackRegistered = *patch.Callbacks.RDMRegistered
	}
	if patch.Capabilities != nil {
		s.Cfg.Capabilities.FailsafeSupported = patch.Capabilities.FailsafeSupported
		s.FailsafeConfig.Enabled = patch.Capabilities.FailsafeSupported
	}
	if patch.Sync != nil {
		s.Sync.Mode = patch.Sync.Mode
		s.Sync.BufferTTL = patch.Sync.BufferTTL
	}
	if patch.Failsafe != nil {
		s.FailsafeConfig = *patch.Failsafe
	}
	if patch.Data != nil {
		s.Cfg.Data.Responses = patch.Data.Responses
	}
	if patch.Programming != nil && patch.Programming.NetworkDefaults != nil {
		s.NetworkDefaults = *patch.Programming.NetworkDefaults
	}
	if patch.CommandLabels != nil {
		if patch.CommandLabels.SwIn != nil {
			s.CommandLabels.SwIn = *patch.CommandLabels.SwIn
		}
		if patch.CommandLabels.SwOut != nil {
			s.CommandLabels.SwOut = *patch.CommandLabels.SwOut
		}
	}
	if patch.Diagnostics != nil {
		d := patch.Diagnostics
		if d.BroadcastTarget != nil {
			s.Cfg.Diagnostics.BroadcastTarget = *d.BroadcastTarget
		}
		if d.SubscriberTTL != nil {
			s.Cfg.Diagnostics.SubscriberTTL = *d.SubscriberTTL
		}
		if d.RateLimitHz != nil {
			s.Cfg.Diagnostics.RateLimitHz = *d.RateLimitHz
		}
		if d.SubscriberWarningThreshold != nil {
			s.Cfg.Diagnostics.SubscriberWarningThreshold = *d.SubscriberWarningThreshold
		}
	}
	if patch.RDM != nil {
		for pa, uids := range patch.RDM.Ports {
			r := s.portRDM(pa)
			for _, uid := range uids {
				r.UIDs[uid] = true
			}
		}
	}

	s.rederiveStatus()

	effects := []Effect{logEffect(LogInfo, "state patch applied", nil)}
	pages := s.buildPollReplyPages(false, 0, 0x7FFF)
	for _, sub := range s.replyOnChangeSubscribers() {
		effects = append(effects, pollReplyEffects(pages, sub.Addr)...)
	}
	return effects, nil
}
