// Package shell is the I/O runtime that pumps UDP datagrams, pooled
// buffers, and a failsafe timer through the pure protocol.Step machine
// while enforcing broadcast policy.
package shell

import (
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gopatchy/artnode/protocol"
)

// Config configures one Runtime: bind address, buffer pool sizing, tick
// cadence, and user callbacks.
type Config struct {
	BindHost string // default 0.0.0.0
	BindPort int    // default 6454

	BroadcastAddr string // default 255.255.255.255 on BindPort

	RxBufferCount, RxBufferSize int // default 256, 2048
	TxBufferCount, TxBufferSize int // default 128, 2048

	FailsafeTickInterval time.Duration // default 100ms

	Callbacks Callbacks
	Logger    *logrus.Logger
}

func (c Config) withDefaults() Config {
	if c.BindPort == 0 {
		c.BindPort = DefaultPort
	}
	if c.BroadcastAddr == "" {
		c.BroadcastAddr = fmt.Sprintf("255.255.255.255:%d", c.BindPort)
	}
	if c.RxBufferCount == 0 {
		c.RxBufferCount = 256
	}
	if c.RxBufferSize == 0 {
		c.RxBufferSize = 2048
	}
	if c.TxBufferCount == 0 {
		c.TxBufferCount = 128
	}
	if c.TxBufferSize == 0 {
		c.TxBufferSize = 2048
	}
	if c.FailsafeTickInterval == 0 {
		c.FailsafeTickInterval = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = logrus.New()
	}
	return c
}

// Runtime owns the UDP socket(s), buffer pools, and the three-stage graph
// (receiver -> logic -> sender) plus the failsafe timer.
type Runtime struct {
	cfg Config

	conn           *net.UDPConn
	rxPool, txPool *Pool

	channels *graphChannels
	gate     *pauseGate

	recv  *receiver
	lg    *logic
	send  *sender
	timer *failsafeTimer

	closed chan struct{}
}

// Start opens the socket, creates pools, assembles the graph, and begins
// processing.
func Start(state *protocol.State, cfg Config) (*Runtime, error) {
	cfg = cfg.withDefaults()

	addr := &net.UDPAddr{IP: net.ParseIP(nonEmpty(cfg.BindHost, "0.0.0.0")), Port: cfg.BindPort}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("shell: bind %s: %w", addr, err)
	}

	broadcast, err := net.ResolveUDPAddr("udp4", cfg.BroadcastAddr)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("shell: resolve broadcast address %q: %w", cfg.BroadcastAddr, err)
	}

	if cfg.BindPort != DefaultPort {
		cfg.Logger.WithField("port", cfg.BindPort).Warn("binding to non-standard Art-Net port")
	}

	rxPool := NewPool(cfg.RxBufferCount, cfg.RxBufferSize)
	txPool := NewPool(cfg.TxBufferCount, cfg.TxBufferSize)
	channels := newGraphChannels()
	gate := newPauseGate()

	log := cfg.Logger.WithField("component", "artnode")

	r := &Runtime{
		cfg:      cfg,
		conn:     conn,
		rxPool:   rxPool,
		txPool:   txPool,
		channels: channels,
		gate:     gate,
		recv:     newReceiver(conn, rxPool, channels.rx, log.WithField("stage", "receiver"), gate),
		lg:       newLogic(state, channels, log.WithField("stage", "logic")),
		send:     newSender(conn, txPool, channels, cfg.Callbacks, log.WithField("stage", "sender"), broadcast),
		timer:    newFailsafeTimer(cfg.FailsafeTickInterval, channels, gate),
		closed:   make(chan struct{}),
	}

	r.send.start()
	r.lg.start()
	r.recv.start()
	r.timer.start()

	return r, nil
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Stop is idempotent: it tears down the graph and closes both pools and
// the socket.
func (r *Runtime) Stop() {
	select {
	case <-r.closed:
		return
	default:
		close(r.closed)
	}

	r.gate.resume() // wake any parked receiver/timer so they can observe done
	r.timer.stop()
	r.recv.stop() // closes the socket, unblocking ReadFromUDP
	r.lg.stop()
	r.rxPool.Close()
	r.txPool.Close()
	r.send.stop()
}

// Pause parks the receiver and failsafe timer with zero CPU until Resume.
func (r *Runtime) Pause() { r.gate.pause() }

// Resume wakes a paused receiver and failsafe timer.
func (r *Runtime) Resume() { r.gate.resume() }

// Command enqueues a caller-issued command event for the logic stage.
func (r *Runtime) Command(ev protocol.Event) error {
	select {
	case <-r.closed:
		return ErrNotRunning
	default:
	}
	ev.Kind = protocol.EventCommand
	select {
	case r.channels.command <- ev:
		return nil
	case <-r.closed:
		return ErrNotRunning
	}
}

// Snapshot returns a read-only view of named top-level state sections,
// or every section if keys is empty.
func (r *Runtime) Snapshot(keys []string) map[string]any {
	return r.lg.snapshot(keys)
}

// LocalAddr returns the address the runtime's socket is bound to.
func (r *Runtime) LocalAddr() net.Addr { return r.conn.LocalAddr() }
