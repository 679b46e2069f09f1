package protocol

import (
	"time"

	"github.com/gopatchy/artnode/codec"
)

// MergeMode selects how concurrent DMX sources to one port-address combine.
type MergeMode int

const (
	MergeHTP MergeMode = iota // Highest-Takes-Precedence (default)
	MergeLTP                  // Latest-Takes-Precedence
)

// FailsafeMode is the output behavior chosen when incoming DMX stops.
type FailsafeMode int

const (
	FailsafeHold FailsafeMode = iota
	FailsafeZero
	FailsafeFull
	FailsafeScene
)

// SyncMode selects whether ArtDmx is applied immediately or staged for ArtSync.
type SyncMode int

const (
	SyncImmediate SyncMode = iota
	SyncArtSync
)

// SubscriberEvictionPolicy governs what happens when a reply-on-change
// subscription arrives after the configured limit is reached.
type SubscriberEvictionPolicy int

const (
	EvictPreferExisting SubscriberEvictionPolicy = iota // reject newcomers
	EvictPreferLatest                                   // evict the oldest seen-at
)

// PortDirection is the configured direction of a physical DMX port.
type PortDirection int

const (
	PortOutput PortDirection = iota
	PortInput
)

// PortConfig describes one of the node's physical DMX ports.
type PortConfig struct {
	Direction   PortDirection
	Type        uint8 // PortTypes byte: bit7 set for DMX512 capability etc
	PortAddress codec.PortAddress
	GoodInput   uint8
	GoodOutputA uint8
	GoodOutputB uint8
	SwIn        uint8
	SwOut       uint8
	Disabled    bool // ArtInput disable bit
}

// NodeIdentity is the identity advertised in ArtPollReply.
type NodeIdentity struct {
	ShortName             string
	LongName              string
	NodeReport            string
	IP                    [4]byte
	UDPPort               uint16
	MAC                   [6]byte
	OemHi, Oem            uint8
	EstaMan               uint16
	VersionHi, VersionLo  uint8
	Style                 uint8
	NetSwitch, SubSwitch  uint8
	Ports                 []PortConfig
	Status1               uint8
	Status2               uint8
	Status3               uint8
	BackgroundQueuePolicy uint8
	RefreshRateHz         uint8
	DefaultResponderUID   [6]byte
	RDMCallbackRegistered bool
}

// Pages groups Ports into ArtPollReply pages of at most 4 ports each.
func (n NodeIdentity) Pages() [][]PortConfig {
	var pages [][]PortConfig
	for i := 0; i < len(n.Ports); i += 4 {
		end := i + 4
		if end > len(n.Ports) {
			end = len(n.Ports)
		}
		pages = append(pages, n.Ports[i:end])
	}
	if len(pages) == 0 {
		pages = [][]PortConfig{{}}
	}
	return pages
}

// PeerRecord tracks a remote controller/node's capabilities and subscriptions.
type PeerRecord struct {
	Addr           Addr
	ReplyOnChange  bool
	DiagSubscriber bool
	DiagPriority   uint8
	DiagUnicast    bool
	SeenAt         time.Time
	UpdatedAt      time.Time
}

// DMXSource is one contributor's most recent frame for a port-address.
type DMXSource struct {
	Data        [512]byte
	Length      int
	LastUpdated time.Time
}

// SourceKey identifies a DMX source by sender address and physical port.
type SourceKey struct {
	Sender   Addr
	Physical uint8
}

// OutputFrame is the most recently composed frame for a port-address.
type OutputFrame struct {
	Data      [512]byte
	Length    int
	UpdatedAt time.Time
}

// PortDMXState is the per-port-address DMX merge state.
type PortDMXState struct {
	Sources            map[SourceKey]*DMXSource
	ExclusiveOwner     *SourceKey
	ExclusiveUpdatedAt time.Time
	LastOutput         OutputFrame
	MergeMode          MergeMode
	LastEmittedAt      time.Time
	LastSequence       uint8
}

func newPortDMXState() *PortDMXState {
	return &PortDMXState{Sources: map[SourceKey]*DMXSource{}}
}

// StagedFrame is an ArtDmx or ArtNzs frame held for a future ArtSync.
// StartCode is zero for ArtDmx.
type StagedFrame struct {
	Data       [512]byte
	Length     int
	Sequence   uint8
	Physical   uint8
	StartCode  uint8
	ReceivedAt time.Time
}

// SyncState tracks ArtSync mode, the active sub-state, and staged frames.
type SyncState struct {
	Mode         SyncMode
	ActiveMode   SyncMode
	BufferTTL    time.Duration
	LastSyncAt   time.Time
	WaitingSince time.Time
	Staging      map[codec.PortAddress]StagedFrame
}

// PortFailsafeState is the per-port failsafe state machine.
type PortFailsafeState struct {
	Engaged    bool
	Mode       FailsafeMode
	EngagedAt  time.Time
	Length     int
	SceneBytes [512]byte
	HasScene   bool
}

// FailsafeConfig is the node-wide failsafe configuration.
type FailsafeConfig struct {
	Enabled      bool
	IdleTimeout  time.Duration
	TickInterval time.Duration
}

// NetworkDefaults is the factory-default network identity ArtIpProg's reset
// sub-command (0x88) reverts a node to.
type NetworkDefaults struct {
	IP      [4]byte
	Subnet  [4]byte
	Gateway [4]byte
	Port    uint16
}

// RDMPortState is the per-port ToD and discovery bookkeeping.
type RDMPortState struct {
	UIDs           map[[6]byte]bool
	DiscoveryQueue [][6]byte
}

func newRDMPortState() *RDMPortState {
	return &RDMPortState{UIDs: map[[6]byte]bool{}}
}

// FirmwareSession tracks one sender's in-progress ArtFirmwareMaster transfer.
type FirmwareSession struct {
	ExpectedLengthWords uint32
	Accumulated         []byte
	ChecksumAcc         uint16
	LastBlockID         uint8
}

// TriggerKey identifies a trigger debounce slot by (key, sub-key).
type TriggerKey struct {
	Key    uint8
	SubKey uint8
}

// DiagTokenBucket rate-limits diagnostics per priority level.
type DiagTokenBucket struct {
	Tokens     float64
	LastRefill time.Time
}

// Config is the node's static configuration, carried in State so
// apply-state can deep-merge into it.
type Config struct {
	Discovery struct {
		ReplyOnChangeLimit int
		EvictionPolicy     SubscriberEvictionPolicy
	}
	Diagnostics struct {
		BroadcastTarget            Addr
		SubscriberTTL              time.Duration
		RateLimitHz                float64
		SubscriberWarningThreshold int
	}
	Triggers struct {
		MinInterval  time.Duration
		ReplyEnabled bool
		Macros       map[TriggerKey]string // (key, sub-key) -> registered macro callback name
	}
	Data struct {
		Responses map[string]string // ArtDataRequest variant -> canned reply payload
	}
	RefreshRates map[codec.PortAddress]float64 // ArtNzs throttling, Hz; 0 = unlimited
	Capabilities struct {
		FailsafeSupported bool
	}
	MergeTimeout      time.Duration
	KeepaliveInterval time.Duration
	ArtSyncTimeout    time.Duration // hard fallback to immediate if last sync older than this
}

// CommandLabelState holds the switch text labels last set via ArtCommand's
// SwinText/SwoutText directives.
type CommandLabelState struct {
	SwIn  string
	SwOut string
}

// Stats holds the node's monotonic event counters.
type Stats struct {
	counts map[string]uint64
}

func newStats() *Stats { return &Stats{counts: map[string]uint64{}} }

func (s *Stats) incr(key string) { s.counts[key]++ }

// Get returns the current value of a named counter.
func (s *Stats) Get(key string) uint64 { return s.counts[key] }

// All returns a snapshot copy of every counter.
func (s *Stats) All() map[string]uint64 {
	out := make(map[string]uint64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// State is the complete node state; Step mutates it in place and is its
// only writer.
type State struct {
	Node NodeIdentity
	Cfg  Config

	Peers map[string]*PeerRecord

	DMX  map[codec.PortAddress]*PortDMXState
	Sync SyncState

	Failsafe       map[codec.PortAddress]*PortFailsafeState
	FailsafeConfig FailsafeConfig

	RDM              map[codec.PortAddress]*RDMPortState
	FirmwareSessions map[string]*FirmwareSession

	DiagSubscribers map[string]*PeerRecord
	DiagBuckets     map[uint8]*DiagTokenBucket

	TriggerLastFired map[TriggerKey]time.Time

	CommandLabels CommandLabelState

	// NetworkDefaults is the factory network identity ArtIpProg's reset
	// sub-command restores.
	NetworkDefaults NetworkDefaults

	Stats *Stats

	// jitterCounter advances the deterministic poll-reply stagger delay;
	// Step may not call time.Now or math/rand, so the "random" 0-1000ms
	// spread is a counter-driven hash instead.
	jitterCounter uint64
}

// InitialState builds the state a node starts with from its
// configuration. Pure: no I/O, no clock reads.
func InitialState(node NodeIdentity, cfg Config, failsafeCfg FailsafeConfig, syncMode SyncMode, bufferTTL time.Duration) *State {
	s := &State{
		Node:  node,
		Cfg:   cfg,
		Peers: map[string]*PeerRecord{},
		DMX:   map[codec.PortAddress]*PortDMXState{},
		Sync: SyncState{
			Mode:      syncMode,
			BufferTTL: bufferTTL,
			Staging:   map[codec.PortAddress]StagedFrame{},
		},
		Failsafe:         map[codec.PortAddress]*PortFailsafeState{},
		FailsafeConfig:   failsafeCfg,
		RDM:              map[codec.PortAddress]*RDMPortState{},
		FirmwareSessions: map[string]*FirmwareSession{},
		DiagSubscribers:  map[string]*PeerRecord{},
		DiagBuckets:      map[uint8]*DiagTokenBucket{},
		TriggerLastFired: map[TriggerKey]time.Time{},
		Stats:            newStats(),
	}
	s.rederiveStatus()
	return s
}

func (s *State) portDMX(pa codec.PortAddress) *PortDMXState {
	ps, ok := s.DMX[pa]
	if !ok {
		ps = newPortDMXState()
		s.DMX[pa] = ps
	}
	return ps
}

func (s *State) portFailsafe(pa codec.PortAddress) *PortFailsafeState {
	fs, ok := s.Failsafe[pa]
	if !ok {
		fs = &PortFailsafeState{}
		s.Failsafe[pa] = fs
	}
	return fs
}

func (s *State) portRDM(pa codec.PortAddress) *RDMPortState {
	r, ok := s.RDM[pa]
	if !ok {
		r = newRDMPortState()
		s.RDM[pa] = r
	}
	return r
}
