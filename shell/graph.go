package shell

import (
	"time"

	"github.com/gopatchy/artnode/codec"
	"github.com/gopatchy/artnode/protocol"
)

// rxMessage is what the receiver pushes downstream to the logic stage for
// every successfully decoded frame.
type rxMessage struct {
	packet  codec.Packet
	sender  protocol.Addr
	release func()
}

// actionKind tags the logic stage's translation of a protocol.Effect into
// something the sender/callback dispatcher can execute.
type actionKind int

const (
	actionSend actionKind = iota
	actionCallback
	actionLog
	actionSchedule
	actionRelease
)

// action is what the logic stage appends to the bounded action channel the
// sender reads from.
type action struct {
	kind actionKind

	// actionSend
	packet    codec.Packet
	target    protocol.Addr
	broadcast bool

	// actionCallback
	callbackKey string
	payload     map[string]any

	// actionLog
	level   protocol.LogLevel
	message string
	fields  map[string]any

	// actionSchedule
	delay    time.Duration
	deferred *protocol.Event

	// actionRelease
	release func()
}

// graphChannels are the bounded queues between stages: rx 64, commands 32,
// actions 32, ticks sliding-1. Full channels block producers, so overload
// backs up to the OS socket instead of growing heap.
type graphChannels struct {
	rx      chan rxMessage
	tick    chan time.Time
	command chan protocol.Event
	actions chan action
}

func newGraphChannels() *graphChannels {
	return &graphChannels{
		rx:      make(chan rxMessage, 64),
		tick:    make(chan time.Time, 1), // sliding-1: only the freshest tick is ever pending
		command: make(chan protocol.Event, 32),
		actions: make(chan action, 32),
	}
}

// sendTick pushes into the sliding-1 tick channel, dropping a stale pending
// tick rather than blocking the timer.
func (g *graphChannels) sendTick(now time.Time) {
	select {
	case g.tick <- now:
	default:
		select {
		case <-g.tick:
		default:
		}
		select {
		case g.tick <- now:
		default:
		}
	}
}

func effectsToActions(effects []protocol.Effect) []action {
	out := make([]action, 0, len(effects))
	for _, e := range effects {
		switch e.Kind {
		case protocol.EffectTxPacket:
			out = append(out, action{kind: actionSend, packet: e.Packet, target: e.Target, broadcast: e.Broadcast})
		case protocol.EffectCallback:
			out = append(out, action{kind: actionCallback, callbackKey: e.CallbackKey, payload: e.Payload})
		case protocol.EffectLog:
			out = append(out, action{kind: actionLog, level: e.Level, message: e.Message, fields: e.Fields})
		case protocol.EffectSchedule:
			out = append(out, action{kind: actionSchedule, delay: time.Duration(e.DelayMS) * time.Millisecond, deferred: e.Deferred})
		case protocol.EffectDMXFrame:
			payload := map[string]any{
				"port_address":   e.FramePortAddress,
				"sequence":       e.FrameSequence,
				"data":           e.FrameData[:e.FrameLength],
				"length":         e.FrameLength,
				"timestamp":      e.FrameTimestamp,
				"failsafe":       e.FailsafeFrame,
				"failsafe_mode":  e.FailsafeMode,
				"synced":         e.SyncedFrame,
			}
			out = append(out, action{kind: actionCallback, callbackKey: "dmx-frame", payload: payload})
		}
	}
	return out
}
