package protocol

import (
	"sort"
	"time"

	"github.com/gopatchy/artnode/codec"
)

// handleArtDiagData accepts an incoming diagnostic and fans it out to
// subscribers, rate-limited per priority level.
func handleArtDiagData(s *State, pkt *codec.ArtDiagDataPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artdiagdata")

	if !s.allowDiag(pkt.Priority, now) {
		s.Stats.incr("diagnostics-throttled")
		return nil
	}

	text := pkt.Text.Clone()
	return s.fanOutDiagnostic(pkt.Priority, text, sender, now)
}

// allowDiag enforces the per-priority token bucket: each priority level
// refills independently at the configured rate.
func (s *State) allowDiag(priority uint8, now time.Time) bool {
	rate := s.Cfg.Diagnostics.RateLimitHz
	if rate <= 0 {
		return true
	}

	b, ok := s.DiagBuckets[priority]
	if !ok {
		b = &DiagTokenBucket{Tokens: rate, LastRefill: now}
		s.DiagBuckets[priority] = b
	}

	elapsed := now.Sub(b.LastRefill).Seconds()
	b.Tokens += elapsed * rate
	if b.Tokens > rate {
		b.Tokens = rate
	}
	b.LastRefill = now

	if b.Tokens < 1 {
		return false
	}
	b.Tokens--
	return true
}

// fanOutDiagnostic emits one unicast tx effect per unicast subscriber that
// accepts this priority, plus a single broadcast to the configured
// broadcast target when at least one broadcast subscriber accepts it.
// Subscribers are walked in seen-at order so fan-out is deterministic.
func (s *State) fanOutDiagnostic(priority uint8, text []byte, origin Addr, now time.Time) []Effect {
	var effects []Effect
	broadcastWanted := false

	for _, p := range s.diagSubscribers() {
		if !p.DiagSubscriber || priority < p.DiagPriority {
			continue
		}
		if !p.DiagUnicast {
			broadcastWanted = true
			continue
		}
		pkt := &codec.ArtDiagDataPacket{Priority: priority, Text: wrapPayload(text)}
		effects = append(effects, txEffect(pkt, p.Addr, false))
		s.Stats.incr("diagnostics-sent")
	}

	if broadcastWanted && s.Cfg.Diagnostics.BroadcastTarget != (Addr{}) {
		pkt := &codec.ArtDiagDataPacket{Priority: priority, Text: wrapPayload(text)}
		effects = append(effects, txEffect(pkt, s.Cfg.Diagnostics.BroadcastTarget, true))
		s.Stats.incr("diagnostics-sent")
	}

	if limit := s.Cfg.Diagnostics.SubscriberWarningThreshold; limit > 0 && len(s.DiagSubscribers) >= limit {
		effects = append(effects, logEffect(LogWarn, "diagnostic subscriber count near threshold", map[string]any{
			"count":     len(s.DiagSubscribers),
			"threshold": limit,
		}))
	}

	return effects
}

func (s *State) diagSubscribers() []*PeerRecord {
	out := make([]*PeerRecord, 0, len(s.DiagSubscribers))
	for _, p := range s.DiagSubscribers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeenAt.Before(out[j].SeenAt) })
	return out
}

// pruneDiagSubscribers drops subscribers whose entry has exceeded the
// configured TTL without a refreshing ArtPoll.
func (s *State) pruneDiagSubscribers(now time.Time) {
	ttl := s.Cfg.Diagnostics.SubscriberTTL
	if ttl <= 0 {
		return
	}
	for key, p := range s.DiagSubscribers {
		if now.Sub(p.UpdatedAt) > ttl {
			delete(s.DiagSubscribers, key)
		}
	}
}

func wrapPayload(b []byte) codec.PayloadRef {
	return codec.NewOwnedPayload(b)
}
