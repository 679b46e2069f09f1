package shell

import (
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gopatchy/artnode/codec"
	"github.com/gopatchy/artnode/protocol"
)

// receiver owns the UDP socket's read side: borrow a buffer, block on
// ReadFromUDP, decode, and push downstream. Stop closes the socket, which
// wakes the blocking read with an error the loop swallows.
type receiver struct {
	conn *net.UDPConn
	pool *Pool
	out  chan<- rxMessage
	log  *logrus.Entry
	gate *pauseGate
	done chan struct{}
	wg   sync.WaitGroup
}

func newReceiver(conn *net.UDPConn, pool *Pool, out chan<- rxMessage, log *logrus.Entry, gate *pauseGate) *receiver {
	return &receiver{conn: conn, pool: pool, out: out, log: log, gate: gate, done: make(chan struct{})}
}

func (r *receiver) start() {
	r.wg.Add(1)
	go r.loop()
}

func (r *receiver) stop() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	r.conn.Close()
	r.wg.Wait()
}

func (r *receiver) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		default:
		}

		r.gate.wait()

		buf, err := r.pool.Borrow()
		if err != nil {
			return // pool closed: shutting down
		}

		n, udpAddr, err := r.conn.ReadFromUDP(buf.Bytes())
		if err != nil {
			r.pool.Release(buf)
			select {
			case <-r.done:
				return
			default:
				continue // a single read failure doesn't stop the loop
			}
		}

		view := buf.Bytes()[:n]
		pkt, err := codec.Decode(view)
		if err != nil {
			r.log.WithFields(logrus.Fields{"error": err, "sender": udpAddr.String()}).Warn("malformed art-net frame")
			r.pool.Release(buf)
			continue
		}

		sender := protocol.Addr{Host: udpAddr.IP.String(), Port: udpAddr.Port}
		released := false
		release := func() {
			if released {
				return
			}
			released = true
			r.pool.Release(buf)
		}

		select {
		case r.out <- rxMessage{packet: pkt, sender: sender, release: release}:
		case <-r.done:
			release()
			return
		}
	}
}

// pauseGate lets the receiver and failsafe timer park with zero CPU until
// Resume. Starts open.
type pauseGate struct {
	mu     sync.Mutex
	paused bool
	ch     chan struct{}
}

func newPauseGate() *pauseGate {
	return &pauseGate{ch: make(chan struct{})}
}

func (g *pauseGate) wait() {
	g.mu.Lock()
	paused := g.paused
	ch := g.ch
	g.mu.Unlock()
	if paused {
		<-ch
	}
}

func (g *pauseGate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		g.paused = true
		g.ch = make(chan struct{})
	}
}

func (g *pauseGate) resume() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		g.paused = false
		close(g.ch)
	}
}

// failsafeTimer emits a Tick at a steady cadence into the sliding-1 tick
// channel, so only the freshest tick is ever pending.
type failsafeTimer struct {
	interval time.Duration
	channels *graphChannels
	gate     *pauseGate
	done     chan struct{}
	wg       sync.WaitGroup
}

func newFailsafeTimer(interval time.Duration, channels *graphChannels, gate *pauseGate) *failsafeTimer {
	return &failsafeTimer{interval: interval, channels: channels, gate: gate, done: make(chan struct{})}
}

func (t *failsafeTimer) start() {
	t.wg.Add(1)
	go t.loop()
}

func (t *failsafeTimer) stop() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	t.wg.Wait()
}

func (t *failsafeTimer) loop() {
	defer t.wg.Done()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case now := <-ticker.C:
			t.gate.wait()
			select {
			case <-t.done:
				return
			default:
			}
			t.channels.sendTick(now)
		}
	}
}
