package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gopatchy/artnode/codec"
)

func subscribeDiag(s *State, host string, priority uint8, unicast bool, at time.Time) {
	flags := uint8(codec.PollFlagDiagnostics | codec.PollFlagSuppressReplyDelay)
	if unicast {
		flags |= codec.PollFlagDiagUnicast
	}
	_, _, err := Step(s, Event{Kind: EventRxPacket, Sender: Addr{Host: host, Port: 6454}, Timestamp: at, Packet: &codec.ArtPollPacket{
		Flags: flags, DiagPriority: priority,
	}})
	if err != nil {
		panic(err)
	}
}

func rxDiag(s *State, priority uint8, text string, at time.Time) []Effect {
	_, effects, err := Step(s, Event{Kind: EventRxPacket, Sender: Addr{Host: "10.0.0.200", Port: 6454}, Timestamp: at, Packet: &codec.ArtDiagDataPacket{
		Priority: priority, Text: codec.NewOwnedPayload([]byte(text + "\x00")),
	}})
	if err != nil {
		panic(err)
	}
	return effects
}

func TestDiagFanOut_UnicastAndBroadcastSplit(t *testing.T) {
	s := newTestState(1)
	s.Cfg.Diagnostics.BroadcastTarget = Addr{Host: "2.255.255.255", Port: 6454}
	t0 := time.Now()

	subscribeDiag(s, "10.0.0.1", 0x10, true, t0)
	subscribeDiag(s, "10.0.0.2", 0x10, false, t0.Add(time.Millisecond))

	effects := rxDiag(s, 0x40, "lamp failure", t0.Add(time.Second))

	var unicasts, broadcasts int
	for _, eff := range effects {
		if eff.Kind != EffectTxPacket {
			continue
		}
		if eff.Broadcast {
			require.Equal(t, "2.255.255.255", eff.Target.Host)
			broadcasts++
		} else {
			require.Equal(t, "10.0.0.1", eff.Target.Host)
			unicasts++
		}
	}
	require.Equal(t, 1, unicasts)
	require.Equal(t, 1, broadcasts)
	require.Equal(t, uint64(2), s.Stats.Get("diagnostics-sent"))
}

func TestDiagFanOut_PriorityFilter(t *testing.T) {
	s := newTestState(1)
	t0 := time.Now()

	// Subscriber only wants priority >= 0x80.
	subscribeDiag(s, "10.0.0.1", 0x80, true, t0)

	effects := rxDiag(s, 0x10, "noise", t0.Add(time.Second))
	for _, eff := range effects {
		require.NotEqual(t, EffectTxPacket, eff.Kind)
	}

	effects = rxDiag(s, 0xE0, "critical", t0.Add(2*time.Second))
	var sent int
	for _, eff := range effects {
		if eff.Kind == EffectTxPacket {
			sent++
		}
	}
	require.Equal(t, 1, sent)
}

func TestDiagRateLimitPerPriority(t *testing.T) {
	s := newTestState(1)
	s.Cfg.Diagnostics.RateLimitHz = 1
	t0 := time.Now()
	subscribeDiag(s, "10.0.0.1", 0, true, t0)

	rxDiag(s, 0x40, "one", t0)
	rxDiag(s, 0x40, "two", t0.Add(10*time.Millisecond))
	require.Equal(t, uint64(1), s.Stats.Get("diagnostics-throttled"))

	// A different priority level has its own bucket.
	rxDiag(s, 0x80, "other level", t0.Add(20*time.Millisecond))
	require.Equal(t, uint64(1), s.Stats.Get("diagnostics-throttled"))

	// After a second the bucket refills.
	rxDiag(s, 0x40, "three", t0.Add(1100*time.Millisecond))
	require.Equal(t, uint64(1), s.Stats.Get("diagnostics-throttled"))
}

func TestDiagSubscriberTTLPrune(t *testing.T) {
	s := newTestState(1)
	s.Cfg.Diagnostics.SubscriberTTL = time.Minute
	t0 := time.Now()

	subscribeDiag(s, "10.0.0.1", 0, true, t0)
	require.Len(t, s.DiagSubscribers, 1)

	_, _, err := Step(s, Event{Kind: EventTick, Timestamp: t0.Add(2 * time.Minute)})
	require.NoError(t, err)
	require.Empty(t, s.DiagSubscribers)
}

func TestSendDiagnosticCommandTargetsExplicitPeer(t *testing.T) {
	s := newTestState(1)
	target := Addr{Host: "10.0.0.7", Port: 6454}

	_, effects, err := Step(s, Event{
		Kind: EventCommand, Command: CmdSendDiagnostic,
		Priority: 0x40, Data: []byte("report\x00"),
		Target: target, HasTarget: true, Timestamp: time.Now(),
	})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	require.Equal(t, target, effects[0].Target)
	require.False(t, effects[0].Broadcast)
}
