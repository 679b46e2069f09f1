package shell

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gopatchy/artnode/codec"
	"github.com/gopatchy/artnode/protocol"
)

func TestEffectsToActionsTranslation(t *testing.T) {
	target := protocol.Addr{Host: "10.0.0.1", Port: 6454}
	deferred := protocol.Event{Kind: protocol.EventCommand}
	effects := []protocol.Effect{
		{Kind: protocol.EffectTxPacket, Packet: &codec.ArtSyncPacket{}, Target: target, Broadcast: true},
		{Kind: protocol.EffectCallback, CallbackKey: "dmx", Payload: map[string]any{"length": 3}},
		{Kind: protocol.EffectLog, Level: protocol.LogWarn, Message: "m"},
		{Kind: protocol.EffectSchedule, DelayMS: 250, Deferred: &deferred},
		{Kind: protocol.EffectDMXFrame, FrameLength: 2, FrameData: [512]byte{9, 8}},
	}

	actions := effectsToActions(effects)
	require.Len(t, actions, 5)

	require.Equal(t, actionSend, actions[0].kind)
	require.Equal(t, target, actions[0].target)
	require.True(t, actions[0].broadcast)

	require.Equal(t, actionCallback, actions[1].kind)
	require.Equal(t, "dmx", actions[1].callbackKey)

	require.Equal(t, actionLog, actions[2].kind)
	require.Equal(t, protocol.LogWarn, actions[2].level)

	require.Equal(t, actionSchedule, actions[3].kind)
	require.Equal(t, 250*time.Millisecond, actions[3].delay)
	require.NotNil(t, actions[3].deferred)

	require.Equal(t, actionCallback, actions[4].kind)
	require.Equal(t, "dmx-frame", actions[4].callbackKey)
	require.Equal(t, []byte{9, 8}, actions[4].payload["data"])
}

func TestSendTickKeepsOnlyFreshest(t *testing.T) {
	g := newGraphChannels()
	t0 := time.Now()

	g.sendTick(t0)
	g.sendTick(t0.Add(time.Second)) // replaces the stale pending tick

	select {
	case got := <-g.tick:
		require.Equal(t, t0.Add(time.Second), got)
	default:
		t.Fatal("no tick pending")
	}
	select {
	case <-g.tick:
		t.Fatal("more than one tick pending")
	default:
	}
}

func TestPauseGateParksAndResumes(t *testing.T) {
	g := newPauseGate()
	g.wait() // open by default

	g.pause()
	done := make(chan struct{})
	go func() {
		g.wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("wait returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	g.resume()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait never resumed")
	}

	g.resume() // idempotent
}
