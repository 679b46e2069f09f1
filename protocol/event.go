package protocol

import (
	"time"

	"github.com/gopatchy/artnode/codec"
)

// EventKind tags the Event union.
type EventKind int

const (
	EventRxPacket EventKind = iota
	EventTick
	EventCommand
)

// CommandKind tags the command sub-union of EventCommand.
type CommandKind int

const (
	CmdSendDMX CommandKind = iota
	CmdSendRDM
	CmdSendSync
	CmdSendDiagnostic
	CmdApplyState
)

// ApplyStatePatch is the deep-merge payload for CmdApplyState: node, network, callbacks, capabilities, sync, failsafe, data,
// programming, command-labels, diagnostics, and rdm each merge
// independently — a nil field leaves that section of state untouched.
type ApplyStatePatch struct {
	Node         *NodeIdentity
	Network      *NetworkPatch
	Callbacks    *CallbacksPatch
	Capabilities *struct{ FailsafeSupported bool }
	Sync         *struct {
		Mode      SyncMode
		BufferTTL time.Duration
	}
	Failsafe      *FailsafeConfig
	Data          *DataPatch
	Programming   *ProgrammingPatch
	CommandLabels *CommandLabelsPatch
	Diagnostics   *DiagnosticsPatch
	RDM           *RDMPatch
}

// NetworkPatch carries the node's bound network identity.
type NetworkPatch struct {
	IP      *[4]byte
	UDPPort *uint16
	MAC     *[6]byte
}

// CallbacksPatch mirrors shell-side callback registration that affects
// advertised state (the RDM-via-ArtAddress bit in Status2).
type CallbacksPatch struct {
	RDMRegistered *bool
}

// DataPatch replaces the configured ArtDataRequest responses.
type DataPatch struct {
	Responses map[string]string
}

// ProgrammingPatch replaces the factory network defaults ArtIpProg's reset
// sub-command restores.
type ProgrammingPatch struct {
	NetworkDefaults *NetworkDefaults
}

// CommandLabelsPatch replaces the SwinText/SwoutText command labels.
type CommandLabelsPatch struct {
	SwIn  *string
	SwOut *string
}

// DiagnosticsPatch replaces ArtDiagData fan-out and rate-limit configuration.
type DiagnosticsPatch struct {
	BroadcastTarget            *Addr
	SubscriberTTL              *time.Duration
	RateLimitHz                *float64
	SubscriberWarningThreshold *int
}

// RDMPatch seeds or replaces port-address ToD entries.
type RDMPatch struct {
	Ports map[codec.PortAddress][][6]byte
}

// Event is the tagged union consumed by Step.
type Event struct {
	Kind EventKind

	// EventRxPacket
	Packet codec.Packet
	Sender Addr

	// EventTick / EventRxPacket
	Timestamp time.Time

	// EventCommand
	Command CommandKind

	// CmdSendDMX / CmdSendRDM / CmdSendSync / CmdSendDiagnostic
	Target      Addr
	HasTarget   bool
	PortAddress codec.PortAddress
	Data        []byte
	Priority    uint8

	// CmdApplyState
	Patch *ApplyStatePatch
}
