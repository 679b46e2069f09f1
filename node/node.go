// Package node is the thin public surface over the shell and protocol
// packages: start/stop/send helpers plus the optional metrics endpoint.
// It owns no protocol logic of its own.
package node

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gopatchy/artnode/codec"
	"github.com/gopatchy/artnode/config"
	"github.com/gopatchy/artnode/internal/obs"
	"github.com/gopatchy/artnode/protocol"
	"github.com/gopatchy/artnode/shell"
)

// Options configures the parts of Start that a TOML file cannot express:
// Go callbacks, the logger, and the optional metrics/snapshot HTTP server.
type Options struct {
	Callbacks   shell.Callbacks
	Logger      *logrus.Logger
	MetricsAddr string // empty disables the HTTP server
}

// Handle is the running node's control surface:
// Stop/Pause/Resume/Send*/Snapshot.
type Handle struct {
	runtime *shell.Runtime
	metrics *obs.Metrics
	http    *httpServer
	cfg     *config.Config
	done    chan struct{}
}

// Start builds initial state from cfg, opens the UDP runtime, and (if
// MetricsAddr is set) serves /metrics and /debug/snapshot.
func Start(cfg *config.Config, opts Options) (*Handle, error) {
	state, err := buildState(cfg)
	if err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = obs.NewLogger(logrus.InfoLevel)
	}

	sc := shellConfig(cfg, opts.Callbacks)
	sc.Logger = log

	rt, err := shell.Start(state, sc)
	if err != nil {
		return nil, err
	}

	h := &Handle{runtime: rt, cfg: cfg, done: make(chan struct{})}

	if opts.MetricsAddr != "" {
		h.metrics = obs.NewMetrics()
		h.http = newHTTPServer(opts.MetricsAddr, h.metrics, h.Snapshot)
		h.http.start()
		go h.pollMetrics()
	}

	return h, nil
}

// pollMetrics periodically copies the live Stats snapshot into Prometheus.
func (h *Handle) pollMetrics() {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
		}
		snap := h.Snapshot([]string{"stats"})
		counts, ok := snap["stats"].(map[string]uint64)
		if !ok {
			return
		}
		h.metrics.Observe(counts)
	}
}

// Stop is idempotent: tears down the UDP runtime and the metrics server.
func (h *Handle) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
	h.runtime.Stop()
	if h.http != nil {
		h.http.stop()
	}
}

// Pause parks the receiver and failsafe timer with zero CPU.
func (h *Handle) Pause() { h.runtime.Pause() }

// Resume wakes a paused node.
func (h *Handle) Resume() { h.runtime.Resume() }

// SendDMX emits an ArtDmx frame for port-address pa. An empty target
// broadcasts (policy permitting).
func (h *Handle) SendDMX(pa codec.PortAddress, data []byte, target *protocol.Addr) error {
	ev := protocol.Event{Command: protocol.CmdSendDMX, PortAddress: pa, Data: data}
	if target != nil {
		ev.Target, ev.HasTarget = *target, true
	}
	return h.runtime.Command(ev)
}

// SendRDM emits an ArtRdm frame carrying an already-encoded RDM PDU.
func (h *Handle) SendRDM(pa codec.PortAddress, data []byte, target protocol.Addr) error {
	ev := protocol.Event{Command: protocol.CmdSendRDM, PortAddress: pa, Data: data, Target: target, HasTarget: true}
	return h.runtime.Command(ev)
}

// SendSync emits an ArtSync frame, broadcasting by default.
func (h *Handle) SendSync(target *protocol.Addr) error {
	ev := protocol.Event{Command: protocol.CmdSendSync}
	if target != nil {
		ev.Target, ev.HasTarget = *target, true
	}
	return h.runtime.Command(ev)
}

// SendDiagnostic emits an ArtDiagData frame, fanned out to subscribers if
// target is nil.
func (h *Handle) SendDiagnostic(priority uint8, text []byte, target *protocol.Addr) error {
	ev := protocol.Event{Command: protocol.CmdSendDiagnostic, Priority: priority, Data: text}
	if target != nil {
		ev.Target, ev.HasTarget = *target, true
	}
	return h.runtime.Command(ev)
}

// ApplyState deep-merges a runtime configuration patch without tearing
// down the node.
func (h *Handle) ApplyState(patch *protocol.ApplyStatePatch) error {
	return h.runtime.Command(protocol.Event{Command: protocol.CmdApplyState, Patch: patch})
}

// Snapshot returns a read-only view of the named state sections, or every
// section when keys is nil.
func (h *Handle) Snapshot(keys []string) map[string]any {
	return h.runtime.Snapshot(keys)
}

// SnapshotContext is Snapshot with a deadline.
func (h *Handle) SnapshotContext(ctx context.Context, keys []string) (map[string]any, error) {
	type result struct {
		m map[string]any
	}
	ch := make(chan result, 1)
	go func() { ch <- result{h.Snapshot(keys)} }()
	select {
	case r := <-ch:
		return r.m, nil
	case <-ctx.Done():
		return nil, shell.ErrSnapshotTimeout
	}
}

// LocalAddr returns the address the node's UDP socket is bound to.
func (h *Handle) LocalAddr() string { return h.runtime.LocalAddr().String() }
