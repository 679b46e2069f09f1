package protocol

import (
	"time"

	"github.com/gopatchy/artnode/codec"
)

// applySource records a source's frame and recomputes last-output per the
// port's merge mode.
func (ps *PortDMXState) applySource(key SourceKey, data [512]byte, length int, now time.Time) {
	src, ok := ps.Sources[key]
	if !ok {
		src = &DMXSource{}
		ps.Sources[key] = src
	}
	src.Data = data
	src.Length = length
	src.LastUpdated = now

	if ps.MergeMode == MergeLTP {
		ps.ExclusiveOwner = &key
		ps.ExclusiveUpdatedAt = now
		ps.LastOutput = OutputFrame{Data: data, Length: length, UpdatedAt: now}
		return
	}

	ps.recomputeHTP(now)
}

// recomputeHTP sets LastOutput to the per-channel maximum across all live
// sources.
func (ps *PortDMXState) recomputeHTP(now time.Time) {
	var out [512]byte
	maxLen := 0
	for _, src := range ps.Sources {
		if src.Length > maxLen {
			maxLen = src.Length
		}
		for i := 0; i < src.Length; i++ {
			if src.Data[i] > out[i] {
				out[i] = src.Data[i]
			}
		}
	}
	ps.LastOutput = OutputFrame{Data: out, Length: maxLen, UpdatedAt: now}
}

// purgeStaleSources drops sources untouched for longer than timeout and
// reports whether anything was removed, so the caller can clear the
// merging bit of good-output-a once only one source remains.
func (ps *PortDMXState) purgeStaleSources(now time.Time, timeout time.Duration) (purged bool) {
	if timeout <= 0 {
		return false
	}
	for key, src := range ps.Sources {
		if now.Sub(src.LastUpdated) >= timeout {
			delete(ps.Sources, key)
			purged = true
		}
	}
	if purged && ps.MergeMode == MergeHTP {
		ps.recomputeHTP(now)
	}
	return purged
}

func (ps *PortDMXState) merging() bool { return len(ps.Sources) > 1 }

// GoodOutputAMergingBit is the bit of GoodOutputA that indicates an active merge.
const GoodOutputAMergingBit = 1 << 3

func dmxFrameEffect(pa codec.PortAddress, seq uint8, data [512]byte, length int, now time.Time) Effect {
	return Effect{
		Kind:             EffectDMXFrame,
		FramePortAddress: pa,
		FrameSequence:    seq,
		FrameData:        data,
		FrameLength:      length,
		FrameTimestamp:   now,
	}
}

func dmxCallback(pa codec.PortAddress, sender Addr, data [512]byte, length int, tags map[string]any) Effect {
	payload := map[string]any{
		"port_address": pa,
		"sender":       sender,
		"data":         data[:length],
		"length":       length,
	}
	for k, v := range tags {
		payload[k] = v
	}
	return callbackEffect("dmx", payload)
}

func copyPayload(ref codec.PayloadRef) ([512]byte, int) {
	var out [512]byte
	b := ref.Bytes()
	n := copy(out[:], b)
	return out, n
}

// handleArtDmx merges and emits immediately, or stages the frame while in
// art-sync mode, subject to the hard art-sync timeout.
func handleArtDmx(s *State, pkt *codec.ArtDmxPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artdmx")

	data, length := copyPayload(pkt.Data)
	pa := pkt.PortAddress

	if s.inArtSyncMode(now) {
		s.Sync.Staging[pa] = StagedFrame{Data: data, Length: length, Sequence: pkt.Sequence, Physical: pkt.Physical, ReceivedAt: now}
		s.pruneStaging(now)
		return nil
	}

	return s.mergeAndEmit(pa, SourceKey{Sender: sender, Physical: pkt.Physical}, data, length, pkt.Sequence, sender, now, nil)
}

// inArtSyncMode reports whether this frame should be staged rather than
// applied immediately: sync mode is art-sync AND the hard fallback timeout
// has not elapsed since the last ArtSync.
func (s *State) inArtSyncMode(now time.Time) bool {
	if s.Sync.Mode != SyncArtSync {
		return false
	}
	if s.Sync.LastSyncAt.IsZero() {
		return true // armed, waiting for first sync
	}
	return now.Sub(s.Sync.LastSyncAt) <= s.artSyncTimeout()
}

func (s *State) artSyncTimeout() time.Duration {
	if s.Cfg.ArtSyncTimeout > 0 {
		return s.Cfg.ArtSyncTimeout
	}
	return 4 * time.Second
}

func (s *State) pruneStaging(now time.Time) {
	ttl := s.Sync.BufferTTL
	if ttl <= 0 {
		return
	}
	for pa, frame := range s.Sync.Staging {
		if now.Sub(frame.ReceivedAt) > ttl {
			delete(s.Sync.Staging, pa)
		}
	}
}

func (s *State) mergeAndEmit(pa codec.PortAddress, key SourceKey, data [512]byte, length int, seq uint8, sender Addr, now time.Time, extraTags map[string]any) []Effect {
	ps := s.portDMX(pa)
	wasMerging := ps.merging()
	ps.applySource(key, data, length, now)
	ps.LastEmittedAt = now
	ps.LastSequence = seq

	nowMerging := ps.merging()
	if wasMerging != nowMerging {
		s.setMergingBit(pa, nowMerging)
	}

	out := ps.LastOutput
	effects := []Effect{dmxFrameEffect(pa, seq, out.Data, out.Length, now), dmxCallback(pa, sender, out.Data, out.Length, extraTags)}
	effects = append(effects, s.clearFailsafe(pa, now)...)
	return effects
}

func (s *State) setMergingBit(pa codec.PortAddress, merging bool) {
	for i := range s.Node.Ports {
		if s.Node.Ports[i].PortAddress != pa {
			continue
		}
		if merging {
			s.Node.Ports[i].GoodOutputA |= GoodOutputAMergingBit
		} else {
			s.Node.Ports[i].GoodOutputA &^= GoodOutputAMergingBit
		}
	}
}

// handleArtNzs behaves like ArtDmx — including ArtSync staging — except
// for the non-zero start code and a per-port-address refresh-rate
// throttle. Start codes 0x00 (null) and 0xCC (RDM) are not legal in
// ArtNzs and are dropped.
func handleArtNzs(s *State, pkt *codec.ArtNzsPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artnzs")

	if pkt.StartCode == 0x00 || pkt.StartCode == 0xCC {
		s.Stats.incr("rx-artnzs-bad-startcode")
		return []Effect{logEffect(LogDebug, "artnzs start code not allowed", map[string]any{
			"start_code": pkt.StartCode,
			"sender":     sender.String(),
		})}
	}

	pa := pkt.PortAddress
	if rate, ok := s.Cfg.RefreshRates[pa]; ok && rate > 0 {
		ps := s.portDMX(pa)
		minGap := time.Duration(float64(time.Second) / rate)
		last := ps.LastOutput.UpdatedAt
		if !last.IsZero() && now.Sub(last) < minGap {
			s.Stats.incr("rx-artnzs-throttled")
			return nil
		}
	}

	data, length := copyPayload(pkt.Data)

	if s.inArtSyncMode(now) {
		s.Sync.Staging[pa] = StagedFrame{Data: data, Length: length, Sequence: pkt.Sequence, StartCode: pkt.StartCode, ReceivedAt: now}
		s.pruneStaging(now)
		return nil
	}

	return s.mergeAndEmit(pa, SourceKey{Sender: sender, Physical: 0}, data, length, pkt.Sequence, sender, now, map[string]any{"start_code": pkt.StartCode})
}

// handleArtVlc decodes the flag bits and emits a VLC-tagged dmx callback;
// VLC frames do not participate in merge or sync.
func handleArtVlc(s *State, pkt *codec.ArtVlcPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artvlc")
	data, length := copyPayload(pkt.Data)
	return []Effect{dmxCallback(pkt.PortAddress, sender, data, length, map[string]any{
		"vlc":    true,
		"ieee":   pkt.Flags&codec.VlcFlagIEEE != 0,
		"reply":  pkt.Flags&codec.VlcFlagReply != 0,
		"beacon": pkt.Flags&codec.VlcFlagBeacon != 0,
	})}
}
