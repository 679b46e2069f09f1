package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gopatchy/artnode/codec"
)

func rxDmx(s *State, sender Addr, pa codec.PortAddress, data []byte, at time.Time) []Effect {
	_, effects, err := Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: at, Packet: &codec.ArtDmxPacket{
		PortAddress: pa, Length: uint16(len(data)), Data: codec.NewOwnedPayload(data),
	}})
	if err != nil {
		panic(err)
	}
	return effects
}

func TestMergeLTP_LatestSourceWinsVerbatim(t *testing.T) {
	s := newTestState(1)
	pa := codec.NewPortAddress(0, 0, 0)
	s.portDMX(pa).MergeMode = MergeLTP
	now := time.Now()

	rxDmx(s, Addr{Host: "10.0.0.1", Port: 6454}, pa, []byte{100, 200, 50}, now)
	effects := rxDmx(s, Addr{Host: "10.0.0.2", Port: 6454}, pa, []byte{1, 2, 3}, now.Add(time.Millisecond))

	var frame *Effect
	for i := range effects {
		if effects[i].Kind == EffectDMXFrame {
			frame = &effects[i]
		}
	}
	require.NotNil(t, frame)
	require.Equal(t, []byte{1, 2, 3}, frame.FrameData[:3])
}

func TestMergeTimeout_PurgesStaleSourceAndClearsMergingBit(t *testing.T) {
	s := newTestState(1)
	s.Cfg.MergeTimeout = time.Second
	pa := codec.NewPortAddress(0, 0, 0)
	t0 := time.Now()

	rxDmx(s, Addr{Host: "10.0.0.1", Port: 6454}, pa, []byte{100, 0, 0}, t0)
	rxDmx(s, Addr{Host: "10.0.0.2", Port: 6454}, pa, []byte{0, 200, 0}, t0.Add(900*time.Millisecond))
	require.True(t, s.DMX[pa].merging())
	require.NotZero(t, s.Node.Ports[0].GoodOutputA&GoodOutputAMergingBit)

	// Source 1 exceeds the merge timeout; source 2 is still fresh.
	_, effects, err := Step(s, Event{Kind: EventTick, Timestamp: t0.Add(1100 * time.Millisecond)})
	require.NoError(t, err)

	require.Len(t, s.DMX[pa].Sources, 1)
	require.False(t, s.DMX[pa].merging())
	require.Zero(t, s.Node.Ports[0].GoodOutputA&GoodOutputAMergingBit)

	// The recomposed output no longer carries the purged source's levels.
	var frame *Effect
	for i := range effects {
		if effects[i].Kind == EffectDMXFrame {
			frame = &effects[i]
		}
	}
	require.NotNil(t, frame)
	require.Equal(t, []byte{0, 200, 0}, frame.FrameData[:3])
}

func TestArtNzs_RejectsReservedStartCodes(t *testing.T) {
	s := newTestState(1)
	for _, code := range []uint8{0x00, 0xCC} {
		_, _, err := Step(s, Event{Kind: EventRxPacket, Sender: Addr{Host: "10.0.0.1", Port: 6454}, Timestamp: time.Now(), Packet: &codec.ArtNzsPacket{
			PortAddress: codec.NewPortAddress(0, 0, 0), StartCode: code, Data: codec.NewOwnedPayload([]byte{1}),
		}})
		require.NoError(t, err)
	}
	require.Equal(t, uint64(2), s.Stats.Get("rx-artnzs-bad-startcode"))
}

func TestArtNzs_ThrottledPerRefreshRate(t *testing.T) {
	s := newTestState(1)
	pa := codec.NewPortAddress(0, 0, 0)
	s.Cfg.RefreshRates = map[codec.PortAddress]float64{pa: 10} // min gap 100ms
	t0 := time.Now()

	send := func(at time.Time) {
		_, _, err := Step(s, Event{Kind: EventRxPacket, Sender: Addr{Host: "10.0.0.1", Port: 6454}, Timestamp: at, Packet: &codec.ArtNzsPacket{
			PortAddress: pa, StartCode: 0xDD, Data: codec.NewOwnedPayload([]byte{1, 2}),
		}})
		require.NoError(t, err)
	}

	send(t0)
	send(t0.Add(10 * time.Millisecond))  // too fast, dropped
	send(t0.Add(150 * time.Millisecond)) // past the gap, accepted

	require.Equal(t, uint64(3), s.Stats.Get("rx-artnzs"))
	require.Equal(t, uint64(1), s.Stats.Get("rx-artnzs-throttled"))
}

func TestArtSync_TTLExpiredFramesAreDroppedNotFlushed(t *testing.T) {
	s := InitialState(baseNode(1), Config{}, FailsafeConfig{}, SyncArtSync, 200*time.Millisecond)
	pa := codec.NewPortAddress(0, 0, 0)
	sender := Addr{Host: "10.0.0.1", Port: 6454}
	t0 := time.Now()

	rxDmx(s, sender, pa, []byte{1, 2, 3}, t0)
	require.Len(t, s.Sync.Staging, 1)

	_, effects, err := Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: t0.Add(300 * time.Millisecond), Packet: &codec.ArtSyncPacket{}})
	require.NoError(t, err)

	for _, eff := range effects {
		require.NotEqual(t, EffectDMXFrame, eff.Kind)
	}
	require.Empty(t, s.Sync.Staging)
}

func TestArtSync_IgnoredWhileMerging(t *testing.T) {
	s := InitialState(baseNode(1), Config{}, FailsafeConfig{}, SyncArtSync, time.Second)
	pa := codec.NewPortAddress(0, 0, 0)
	now := time.Now()

	// Two live sources on the port: the node is merging.
	ps := s.portDMX(pa)
	ps.applySource(SourceKey{Sender: Addr{Host: "10.0.0.1"}}, [512]byte{1}, 1, now)
	ps.applySource(SourceKey{Sender: Addr{Host: "10.0.0.2"}}, [512]byte{2}, 1, now)

	rxDmx(s, Addr{Host: "10.0.0.3", Port: 6454}, pa, []byte{9}, now)
	require.Len(t, s.Sync.Staging, 1)

	_, effects, err := Step(s, Event{Kind: EventRxPacket, Sender: Addr{Host: "10.0.0.3", Port: 6454}, Timestamp: now.Add(10 * time.Millisecond), Packet: &codec.ArtSyncPacket{}})
	require.NoError(t, err)

	require.Len(t, effects, 1)
	require.Equal(t, EffectCallback, effects[0].Kind)
	require.Equal(t, "sync", effects[0].CallbackKey)
	require.Equal(t, true, effects[0].Payload["ignored"])

	// The staged frame is kept for the next sync.
	require.Len(t, s.Sync.Staging, 1)
}

func TestSyncTimeout_FallsBackToImmediate(t *testing.T) {
	s := InitialState(baseNode(1), Config{}, FailsafeConfig{}, SyncArtSync, time.Minute)
	s.Cfg.ArtSyncTimeout = time.Second
	pa := codec.NewPortAddress(0, 0, 0)
	sender := Addr{Host: "10.0.0.1", Port: 6454}
	t0 := time.Now()

	// First sync activates art-sync; a staged frame then goes unsynced.
	_, _, err := Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: t0, Packet: &codec.ArtSyncPacket{}})
	require.NoError(t, err)
	rxDmx(s, sender, pa, []byte{7, 8}, t0.Add(100*time.Millisecond))
	require.Len(t, s.Sync.Staging, 1)

	_, effects, err := Step(s, Event{Kind: EventTick, Timestamp: t0.Add(2 * time.Second)})
	require.NoError(t, err)

	var flushed bool
	for _, eff := range effects {
		if eff.Kind == EffectDMXFrame && eff.FramePortAddress == pa {
			flushed = true
		}
	}
	require.True(t, flushed)
	require.Empty(t, s.Sync.Staging)
	require.Equal(t, uint64(1), s.Stats.Get("artsync-timeout-fallback"))

	// With the last sync now older than the timeout, the next frame applies
	// immediately.
	effects = rxDmx(s, sender, pa, []byte{1}, t0.Add(3*time.Second))
	require.NotEmpty(t, effects)
	require.Empty(t, s.Sync.Staging)
}

func TestKeepalive_ReemitsIdleOutput(t *testing.T) {
	s := newTestState(1)
	s.Cfg.KeepaliveInterval = 900 * time.Millisecond
	pa := codec.NewPortAddress(0, 0, 0)
	t0 := time.Now()

	rxDmx(s, Addr{Host: "10.0.0.1", Port: 6454}, pa, []byte{5, 5}, t0)

	_, effects, err := Step(s, Event{Kind: EventTick, Timestamp: t0.Add(time.Second)})
	require.NoError(t, err)

	var frame *Effect
	for i := range effects {
		if effects[i].Kind == EffectDMXFrame {
			frame = &effects[i]
		}
	}
	require.NotNil(t, frame)
	require.Equal(t, []byte{5, 5}, frame.FrameData[:2])

	// Freshly re-emitted: the next tick inside the interval stays quiet.
	_, effects, err = Step(s, Event{Kind: EventTick, Timestamp: t0.Add(1200 * time.Millisecond)})
	require.NoError(t, err)
	for _, eff := range effects {
		require.NotEqual(t, EffectDMXFrame, eff.Kind)
	}
}

func TestFailsafeSceneRecordAndPlayback(t *testing.T) {
	s := newTestState(1)
	s.FailsafeConfig = FailsafeConfig{Enabled: true, IdleTimeout: 500 * time.Millisecond}
	pa := codec.NewPortAddress(0, 0, 0)
	sender := Addr{Host: "10.0.0.1", Port: 6454}
	t0 := time.Now()

	rxDmx(s, sender, pa, []byte{10, 20, 30}, t0)

	// Record the current look, then select scene mode.
	_, _, err := Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: t0, Packet: &codec.ArtAddressPacket{Command: codec.AddrCmdFailsafeRecord}})
	require.NoError(t, err)
	_, _, err = Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: t0, Packet: &codec.ArtAddressPacket{Command: codec.AddrCmdFailsafeScene}})
	require.NoError(t, err)

	_, effects, err := Step(s, Event{Kind: EventTick, Timestamp: t0.Add(time.Second)})
	require.NoError(t, err)

	var frame *Effect
	for i := range effects {
		if effects[i].Kind == EffectDMXFrame && effects[i].FailsafeFrame {
			frame = &effects[i]
		}
	}
	require.NotNil(t, frame)
	require.Equal(t, FailsafeScene, frame.FailsafeMode)
	require.Equal(t, []byte{10, 20, 30}, frame.FrameData[:3])

	// Engagement is edge-triggered: the next tick emits nothing new.
	_, effects, err = Step(s, Event{Kind: EventTick, Timestamp: t0.Add(2 * time.Second)})
	require.NoError(t, err)
	for _, eff := range effects {
		require.False(t, eff.Kind == EffectDMXFrame && eff.FailsafeFrame)
	}

	// Fresh DMX clears the engagement.
	rxDmx(s, sender, pa, []byte{1}, t0.Add(3*time.Second))
	require.False(t, s.Failsafe[pa].Engaged)
}

func TestFailsafeHoldNeverEngages(t *testing.T) {
	s := newTestState(1)
	s.FailsafeConfig = FailsafeConfig{Enabled: true, IdleTimeout: time.Millisecond}
	pa := codec.NewPortAddress(0, 0, 0)

	rxDmx(s, Addr{Host: "10.0.0.1", Port: 6454}, pa, []byte{1}, time.Now().Add(-time.Hour))
	s.portFailsafe(pa).Mode = FailsafeHold

	_, effects, err := Step(s, Event{Kind: EventTick, Timestamp: time.Now()})
	require.NoError(t, err)
	for _, eff := range effects {
		require.False(t, eff.Kind == EffectDMXFrame && eff.FailsafeFrame)
	}
}

// ArtNzs inherits ArtDmx's staging behavior: in art-sync mode the frame is
// held for the next ArtSync and the flushed callback keeps its start code.
func TestArtNzs_StagedAndFlushedByArtSync(t *testing.T) {
	s := InitialState(baseNode(1), Config{}, FailsafeConfig{}, SyncArtSync, 200*time.Millisecond)
	pa := codec.NewPortAddress(0, 0, 0)
	sender := Addr{Host: "10.0.0.1", Port: 6454}
	t0 := time.Now()

	_, effects, err := Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: t0, Packet: &codec.ArtNzsPacket{
		PortAddress: pa, StartCode: 0xDD, Sequence: 4, Data: codec.NewOwnedPayload([]byte{1, 2, 3}),
	}})
	require.NoError(t, err)
	require.Empty(t, effects) // staged, not yet emitted
	require.Len(t, s.Sync.Staging, 1)
	require.Equal(t, uint8(0xDD), s.Sync.Staging[pa].StartCode)

	_, effects, err = Step(s, Event{Kind: EventRxPacket, Sender: sender, Timestamp: t0.Add(100 * time.Millisecond), Packet: &codec.ArtSyncPacket{}})
	require.NoError(t, err)

	var cb *Effect
	var frame *Effect
	for i := range effects {
		switch {
		case effects[i].Kind == EffectCallback && effects[i].CallbackKey == "dmx":
			cb = &effects[i]
		case effects[i].Kind == EffectDMXFrame:
			frame = &effects[i]
		}
	}
	require.NotNil(t, cb)
	require.Equal(t, []byte{1, 2, 3}, cb.Payload["data"].([]byte))
	require.Equal(t, true, cb.Payload["synced"])
	require.Equal(t, uint8(0xDD), cb.Payload["start_code"])
	require.NotNil(t, frame)
	require.True(t, frame.SyncedFrame)
	require.Empty(t, s.Sync.Staging)
}
