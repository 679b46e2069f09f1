package protocol

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gopatchy/artnode/codec"
)

func TestHandleArtCommand_SetsSwoutTextAndEmitsProgramming(t *testing.T) {
	s := newTestState(1)
	sender := Addr{Host: "10.0.0.5", Port: 6454}

	_, effects, err := Step(s, Event{
		Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(),
		Packet: &codec.ArtCommandPacket{Text: codec.NewOwnedPayload([]byte("SwoutText=Stage\x00"))},
	})
	require.NoError(t, err)
	require.Equal(t, "Stage", s.CommandLabels.SwOut)

	var sawAck, sawCommand, sawProgramming bool
	for _, eff := range effects {
		switch eff.Kind {
		case EffectTxPacket:
			if _, ok := eff.Packet.(*codec.ArtDiagDataPacket); ok {
				sawAck = true
			}
		case EffectCallback:
			switch eff.CallbackKey {
			case "command":
				sawCommand = true
			case "programming":
				sawProgramming = true
			}
		}
	}
	require.True(t, sawAck, "expected an ArtDiagData ack")
	require.True(t, sawCommand, "expected a command callback")
	require.True(t, sawProgramming, "expected a programming callback on change")
}

func TestHandleArtCommand_NoProgrammingCallbackWhenUnchanged(t *testing.T) {
	s := newTestState(1)
	s.CommandLabels.SwOut = "Stage"
	sender := Addr{Host: "10.0.0.5", Port: 6454}

	_, effects, err := Step(s, Event{
		Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(),
		Packet: &codec.ArtCommandPacket{Text: codec.NewOwnedPayload([]byte("SwoutText=Stage\x00"))},
	})
	require.NoError(t, err)

	for _, eff := range effects {
		require.False(t, eff.Kind == EffectCallback && eff.CallbackKey == "programming")
	}
}

func TestHandleArtCommand_RejectsMismatchedEstaMan(t *testing.T) {
	s := newTestState(1)
	s.Node.EstaMan = 0x1234
	sender := Addr{Host: "10.0.0.5", Port: 6454}

	_, effects, err := Step(s, Event{
		Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(),
		Packet: &codec.ArtCommandPacket{EstaMan: 0x5678, Text: codec.NewOwnedPayload([]byte("SwoutText=Stage\x00"))},
	})
	require.NoError(t, err)
	require.Nil(t, effects)
	require.Equal(t, uint64(1), s.Stats.Get("rx-artcommand-rejected-estaman"))
}

func TestHandleArtTrigger_DispatchesRegisteredMacro(t *testing.T) {
	s := newTestState(1)
	s.Cfg.Triggers.Macros = map[TriggerKey]string{{Key: 5, SubKey: 0}: "macro-blackout"}
	sender := Addr{Host: "10.0.0.5", Port: 6454}

	_, effects, err := Step(s, Event{
		Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(),
		Packet: &codec.ArtTriggerPacket{OemHi: 0xFF, OemLo: 0xFF, Key: 5, SubKey: 0},
	})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	require.Equal(t, EffectCallback, effects[0].Kind)
	require.Equal(t, "macro-blackout", effects[0].CallbackKey)
}

func TestHandleArtTrigger_RejectsMismatchedOem(t *testing.T) {
	s := newTestState(1)
	s.Node.OemHi, s.Node.Oem = 0x12, 0x34
	sender := Addr{Host: "10.0.0.5", Port: 6454}

	_, effects, err := Step(s, Event{
		Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(),
		Packet: &codec.ArtTriggerPacket{OemHi: 0x99, OemLo: 0x88, Key: 1, SubKey: 0},
	})
	require.NoError(t, err)
	require.Nil(t, effects)
	require.Equal(t, uint64(1), s.Stats.Get("rx-arttrigger-rejected-oem"))
}

func TestHandleArtTrigger_DebouncesWithinMinInterval(t *testing.T) {
	s := newTestState(1)
	s.Cfg.Triggers.MinInterval = time.Second
	sender := Addr{Host: "10.0.0.5", Port: 6454}
	now := time.Now()

	_, _, err := Step(s, Event{
		Kind: EventRxPacket, Sender: sender, Timestamp: now,
		Packet: &codec.ArtTriggerPacket{OemHi: 0xFF, OemLo: 0xFF, Key: 1, SubKey: 0},
	})
	require.NoError(t, err)

	_, effects, err := Step(s, Event{
		Kind: EventRxPacket, Sender: sender, Timestamp: now.Add(100 * time.Millisecond),
		Packet: &codec.ArtTriggerPacket{OemHi: 0xFF, OemLo: 0xFF, Key: 1, SubKey: 0},
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), s.Stats.Get("trigger-throttled"))
	require.Len(t, effects, 1)
	require.Equal(t, EffectTxPacket, effects[0].Kind)
}

func TestHandleArtTrigger_EmitsReplyWhenEnabled(t *testing.T) {
	s := newTestState(1)
	s.Cfg.Triggers.ReplyEnabled = true
	s.Node.OemHi, s.Node.Oem = 0x12, 0x34
	sender := Addr{Host: "10.0.0.5", Port: 6454}

	_, effects, err := Step(s, Event{
		Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(),
		Packet: &codec.ArtTriggerPacket{OemHi: 0xFF, OemLo: 0xFF, Key: 2, SubKey: 3},
	})
	require.NoError(t, err)

	var reply *codec.ArtTriggerPacket
	for _, eff := range effects {
		if pkt, ok := eff.Packet.(*codec.ArtTriggerPacket); ok {
			reply = pkt
		}
	}
	require.NotNil(t, reply, "expected an ArtTrigger reply")
	require.Equal(t, uint8(0x12), reply.OemHi)
	require.Equal(t, uint8(0x34), reply.OemLo)
	require.Equal(t, uint8(2), reply.Key)
	require.Equal(t, uint8(3), reply.SubKey)
}

func TestHandleArtDataRequest_ReturnsConfiguredResponse(t *testing.T) {
	s := newTestState(1)
	s.Cfg.Data.Responses = map[string]string{"dr-url-product": "https://example.com/product"}
	sender := Addr{Host: "10.0.0.5", Port: 6454}

	_, effects, err := Step(s, Event{
		Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(),
		Packet: &codec.ArtDataRequestPacket{RequestID: 1},
	})
	require.NoError(t, err)
	require.Len(t, effects, 1)

	reply, ok := effects[0].Packet.(*codec.ArtDataReplyPacket)
	require.True(t, ok)
	require.Equal(t, "https://example.com/product", string(reply.Payload.Bytes()))
}

func TestHandleArtDataRequest_RejectsMismatchedEstaMan(t *testing.T) {
	s := newTestState(1)
	s.Node.EstaMan = 0x1234
	sender := Addr{Host: "10.0.0.5", Port: 6454}

	_, effects, err := Step(s, Event{
		Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(),
		Packet: &codec.ArtDataRequestPacket{EstaMan: 0x5678, RequestID: 1},
	})
	require.NoError(t, err)
	require.Nil(t, effects)
	require.Equal(t, uint64(1), s.Stats.Get("rx-artdatarequest-rejected-estaman"))
}

func TestHandleArtDataRequest_FallsBackToCallbackWhenUnconfigured(t *testing.T) {
	s := newTestState(1)
	sender := Addr{Host: "10.0.0.5", Port: 6454}

	_, effects, err := Step(s, Event{
		Kind: EventRxPacket, Sender: sender, Timestamp: time.Now(),
		Packet: &codec.ArtDataRequestPacket{RequestID: 99},
	})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	require.Equal(t, EffectCallback, effects[0].Kind)
	require.Equal(t, "data-request", effects[0].CallbackKey)
}
