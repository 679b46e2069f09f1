package protocol

import (
	"time"

	"github.com/gopatchy/artnode/codec"
)

// EffectKind tags the Effect union. The shell pattern-matches it to
// dispatch I/O; the step function never performs I/O directly.
type EffectKind int

const (
	EffectTxPacket EffectKind = iota
	EffectCallback
	EffectSchedule
	EffectLog
	EffectDMXFrame
)

// LogLevel mirrors the levels the shell's logger understands.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

// Effect is the tagged union returned by Step alongside the new state.
type Effect struct {
	Kind EffectKind

	// EffectTxPacket
	Packet    codec.Packet
	Target    Addr
	Broadcast bool
	IsReply   bool

	// EffectCallback
	CallbackKey string
	Payload     map[string]any

	// EffectSchedule
	DelayMS  int
	Deferred *Event

	// EffectLog
	Level   LogLevel
	Message string
	Fields  map[string]any

	// EffectDMXFrame
	FramePortAddress codec.PortAddress
	FrameSequence    uint8
	FrameData        [512]byte
	FrameLength      int
	FrameTimestamp   time.Time
	FailsafeFrame    bool
	FailsafeMode     FailsafeMode
	SyncedFrame      bool
}

func txEffect(pkt codec.Packet, target Addr, broadcast bool) Effect {
	return Effect{Kind: EffectTxPacket, Packet: pkt, Target: target, Broadcast: broadcast}
}

func replyEffect(pkt codec.Packet, target Addr) Effect {
	return Effect{Kind: EffectTxPacket, Packet: pkt, Target: target, IsReply: true}
}

func callbackEffect(key string, payload map[string]any) Effect {
	return Effect{Kind: EffectCallback, CallbackKey: key, Payload: payload}
}

func logEffect(level LogLevel, msg string, fields map[string]any) Effect {
	return Effect{Kind: EffectLog, Level: level, Message: msg, Fields: fields}
}

func scheduleEffect(delayMS int, ev Event) Effect {
	e := ev
	return Effect{Kind: EffectSchedule, DelayMS: delayMS, Deferred: &e}
}
