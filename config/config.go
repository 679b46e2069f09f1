// Package config parses the node's TOML configuration file: node
// identity, bind address, sync/failsafe
// behavior, buffer pool sizing, discovery, diagnostics, triggers, rdm,
// data-request responses, and programming defaults.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root of the TOML schema.
type Config struct {
	Node        NodeConfig        `toml:"node"`
	Bind        BindConfig        `toml:"bind"`
	Sync        SyncConfig        `toml:"sync"`
	Failsafe    FailsafeConfig    `toml:"failsafe"`
	RxBuffer    BufferConfig      `toml:"rx-buffer"`
	TxBuffer    BufferConfig      `toml:"tx-buffer"`
	Discovery   DiscoveryConfig   `toml:"discovery"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Triggers    TriggersConfig    `toml:"triggers"`
	RDM         RDMConfig         `toml:"rdm"`
	Data        DataConfig        `toml:"data"`
	Programming ProgrammingConfig `toml:"programming"`
}

// PortConfig describes one physical DMX port.
type PortConfig struct {
	Direction string `toml:"direction"` // "input" | "output"
	Universe  string `toml:"universe"`  // "net.subnet.universe" or plain int
	Type      uint8  `toml:"type"`
}

// NodeConfig is the advertised ArtPollReply identity.
type NodeConfig struct {
	ShortName             string       `toml:"short-name"`
	LongName              string       `toml:"long-name"`
	IP                    string       `toml:"ip"`
	Port                  int          `toml:"port"`
	MAC                   string       `toml:"mac"`
	Ports                 []PortConfig `toml:"ports"`
	Style                 uint8        `toml:"style"`
	Oem                   uint16       `toml:"oem"`
	EstaMan               uint16       `toml:"esta-man"`
	VersionHi             uint8        `toml:"version-hi"`
	VersionLo             uint8        `toml:"version-lo"`
	Status1               uint8        `toml:"status1"`
	Status2               uint8        `toml:"status2"`
	Status3               uint8        `toml:"status3"`
	BackgroundQueuePolicy uint8        `toml:"background-queue-policy"`
	RefreshRate           uint8        `toml:"refresh-rate"`
}

// BindConfig is the UDP socket bind address.
type BindConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SyncConfig selects immediate vs ArtSync-staged output.
type SyncConfig struct {
	Mode        string `toml:"mode"` // "immediate" | "art-sync"
	BufferTTLMS int    `toml:"buffer-ttl-ms"`
}

func (c SyncConfig) BufferTTL() time.Duration {
	return time.Duration(c.BufferTTLMS) * time.Millisecond
}

// FailsafeConfig governs output when incoming DMX stops.
type FailsafeConfig struct {
	Enabled        bool `toml:"enabled"`
	IdleTimeoutMS  int  `toml:"idle-timeout-ms"`
	TickIntervalMS int  `toml:"tick-interval-ms"`
}

func (c FailsafeConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMS) * time.Millisecond
}

func (c FailsafeConfig) TickInterval() time.Duration {
	if c.TickIntervalMS <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// BufferConfig sizes one of the pooled rx/tx buffer queues.
type BufferConfig struct {
	Count int `toml:"count"`
	Size  int `toml:"size"`
}

// DiscoveryConfig governs ArtPoll reply-on-change subscriber bookkeeping.
type DiscoveryConfig struct {
	ReplyOnChangeLimit  int    `toml:"reply-on-change-limit"`
	ReplyOnChangePolicy string `toml:"reply-on-change-policy"` // "prefer-existing" | "prefer-latest"
}

// DiagnosticsConfig governs ArtDiagData fan-out and rate limiting.
type DiagnosticsConfig struct {
	BroadcastTarget struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
	} `toml:"broadcast-target"`
	SubscriberTTLMS            int     `toml:"subscriber-ttl-ms"`
	RateLimitHz                float64 `toml:"rate-limit-hz"`
	SubscriberWarningThreshold int     `toml:"subscriber-warning-threshold"`
}

func (c DiagnosticsConfig) SubscriberTTL() time.Duration {
	return time.Duration(c.SubscriberTTLMS) * time.Millisecond
}

// TriggersConfig governs ArtTrigger debounce and reply behavior.
type TriggersConfig struct {
	MinIntervalMS int `toml:"min-interval-ms"`
	Reply         struct {
		Enabled bool `toml:"enabled"`
	} `toml:"reply"`
	// Macros maps "key.sub-key" to a registered callback name, dispatched
	// instead of the generic "trigger" callback when it matches.
	Macros map[string]string `toml:"macros"`
}

func (c TriggersConfig) MinInterval() time.Duration {
	return time.Duration(c.MinIntervalMS) * time.Millisecond
}

// RDMPortConfig seeds a port-address's ToD with a fixed set of UIDs.
type RDMPortConfig struct {
	UIDs []string `toml:"uids"`
}

// RDMConfig governs ArtRdm/ArtRdmSub/ArtTodRequest background behavior.
type RDMConfig struct {
	Ports      map[string]RDMPortConfig `toml:"ports"`
	Background struct {
		Supported      bool  `toml:"supported"`
		Policy         uint8 `toml:"policy"`
		PollIntervalMS int   `toml:"poll-interval-ms"`
	} `toml:"background"`
	Discovery struct {
		BatchSize int `toml:"batch-size"`
	} `toml:"discovery"`
}

// DataConfig holds canned ArtDataReply responses by variant name.
type DataConfig struct {
	Responses map[string]string `toml:"responses"`
}

// ProgrammingConfig holds the factory-default network identity ArtIpProg's
// "restore defaults" sub-command reverts to.
type ProgrammingConfig struct {
	Network struct {
		IP         string `toml:"ip"`
		SubnetMask string `toml:"subnet-mask"`
		Gateway    string `toml:"gateway"`
		Port       int    `toml:"port"`
	} `toml:"network"`
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse decodes TOML from an in-memory string; used by tests
// (`artnode config validate` reads its file through Load).
func Parse(text string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(text, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse error: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for i, p := range c.Node.Ports {
		if p.Direction != "" && p.Direction != "input" && p.Direction != "output" {
			return fmt.Errorf("config: node.ports[%d]: direction must be \"input\" or \"output\", got %q", i, p.Direction)
		}
		if _, _, _, err := ParsePortAddress(p.Universe); p.Universe != "" && err != nil {
			return fmt.Errorf("config: node.ports[%d]: %w", i, err)
		}
	}
	switch c.Sync.Mode {
	case "", "immediate", "art-sync":
	default:
		return fmt.Errorf("config: sync.mode must be \"immediate\" or \"art-sync\", got %q", c.Sync.Mode)
	}
	switch c.Discovery.ReplyOnChangePolicy {
	case "", "prefer-existing", "prefer-latest":
	default:
		return fmt.Errorf("config: discovery.reply-on-change-policy must be \"prefer-existing\" or \"prefer-latest\", got %q", c.Discovery.ReplyOnChangePolicy)
	}
	return nil
}
