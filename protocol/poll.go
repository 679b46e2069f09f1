package protocol

import (
	"time"

	"github.com/gopatchy/artnode/codec"
)

// jitterDelayMS derives a deterministic 0-1000ms stagger from the state's
// jitter counter instead of math/rand, so Step stays a pure function of its
// inputs while still spreading poll replies across controllers.
func (s *State) jitterDelayMS() int {
	s.jitterCounter++
	x := s.jitterCounter*2654435761 + 0x9E3779B9
	x ^= x >> 15
	return int(x % 1000)
}

// handleArtPoll registers reply-on-change and diagnostic subscriptions,
// then replies with this node's ArtPollReply page(s), staggered unless
// PollFlagSuppressReplyDelay is set.
func handleArtPoll(s *State, pkt *codec.ArtPollPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artpoll")

	peer := s.upsertPeer(sender, now)

	if pkt.Flags&codec.PollFlagReplyOnChange != 0 {
		s.subscribeReplyOnChange(peer, now)
	} else {
		peer.ReplyOnChange = false
	}

	if pkt.Flags&codec.PollFlagDiagnostics != 0 {
		peer.DiagSubscriber = true
		peer.DiagPriority = pkt.DiagPriority
		peer.DiagUnicast = pkt.Flags&codec.PollFlagDiagUnicast != 0
		s.DiagSubscribers[peer.Addr.Key()] = peer
	} else {
		delete(s.DiagSubscribers, peer.Addr.Key())
		peer.DiagSubscriber = false
	}

	targeted := pkt.Flags&codec.PollFlagTargeted != 0
	pages := s.buildPollReplyPages(targeted, pkt.TargetBottom, pkt.TargetTop)
	effects := pollReplyEffects(pages, sender)

	if pkt.Flags&codec.PollFlagSuppressReplyDelay == 0 {
		delay := s.jitterDelayMS()
		for i, pg := range pages {
			effects[i] = scheduleEffect(delay, deferredReplyEvent(pg, sender))
		}
	}

	return effects
}

// deferredReplyEvent wraps an already-built reply packet as a synthetic
// command event the shell replays verbatim once its schedule delay elapses.
func deferredReplyEvent(pkt codec.Packet, target Addr) Event {
	return Event{Kind: EventCommand, Command: cmdDeferredReply, Packet: pkt, Target: target, HasTarget: true}
}

// cmdDeferredReply is an internal CommandKind used only for replaying a
// pre-built reply packet after a poll-reply stagger delay.
const cmdDeferredReply CommandKind = -1
