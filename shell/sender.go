package shell

import (
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gopatchy/artnode/codec"
	"github.com/gopatchy/artnode/protocol"
)

// sender owns the UDP socket's write side plus the callback/log/release
// dispatcher for every action the logic stage produces. Policy is checked
// before any socket write.
type sender struct {
	conn      *net.UDPConn
	pool      *Pool
	channels  *graphChannels
	callbacks Callbacks
	log       *logrus.Entry
	broadcast *net.UDPAddr

	stopping chan struct{}
	wg       sync.WaitGroup
	delayWG  sync.WaitGroup
}

func newSender(conn *net.UDPConn, pool *Pool, channels *graphChannels, callbacks Callbacks, log *logrus.Entry, broadcast *net.UDPAddr) *sender {
	return &sender{conn: conn, pool: pool, channels: channels, callbacks: callbacks, log: log, broadcast: broadcast, stopping: make(chan struct{})}
}

func (s *sender) start() {
	s.wg.Add(1)
	go s.loop()
}

func (s *sender) stop() {
	select {
	case <-s.stopping:
	default:
		close(s.stopping)
	}
	s.wg.Wait()
	s.delayWG.Wait()
}

func (s *sender) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopping:
			s.drain()
			return
		case a, ok := <-s.channels.actions:
			if !ok {
				return
			}
			s.handle(a)
		}
	}
}

// drain empties any actions already queued so a logic-stage release
// closure still runs its buffer release during shutdown.
func (s *sender) drain() {
	for {
		select {
		case a := <-s.channels.actions:
			if a.kind == actionRelease {
				s.handle(a)
			}
		default:
			return
		}
	}
}

func (s *sender) handle(a action) {
	switch a.kind {
	case actionSend:
		s.handleSend(a)
	case actionCallback:
		s.handleCallback(a)
	case actionLog:
		s.handleLog(a)
	case actionSchedule:
		s.handleSchedule(a)
	case actionRelease:
		a.release()
	}
}

func (s *sender) handleSend(a action) {
	host, port, broadcast := s.resolveTarget(a)
	if host == "" {
		s.log.WithField("op", a.packet.OpCode()).Error("send with no resolvable target")
		return
	}
	if err := checkBroadcastPolicy(a.packet.OpCode(), host, broadcast); err != nil {
		s.log.WithFields(logrus.Fields{"op": a.packet.OpCode(), "target": host, "error": err}).Error("send rejected")
		return
	}

	buf, err := s.pool.Borrow()
	if err != nil {
		s.log.WithError(err).Debug("tx buffer pool closed, dropping send")
		return
	}
	defer s.pool.Release(buf)

	data, err := codec.Encode(a.packet)
	if err != nil {
		s.log.WithError(err).WithField("op", a.packet.OpCode()).Error("encode failed")
		return
	}

	addr := &net.UDPAddr{IP: net.ParseIP(host), Port: port}
	if _, err := s.conn.WriteToUDP(data, addr); err != nil {
		s.log.WithError(err).WithField("target", addr.String()).Error("udp write failed")
	}
}

// resolveTarget picks the concrete destination for a send action: an
// explicit target, or the configured broadcast address when the effect
// asked for broadcast without naming one.
func (s *sender) resolveTarget(a action) (host string, port int, broadcast bool) {
	if a.target.Host != "" {
		return a.target.Host, a.target.Port, a.broadcast || a.target.IsLimitedBroadcast()
	}
	if a.broadcast && s.broadcast != nil {
		return s.broadcast.IP.String(), s.broadcast.Port, true
	}
	return a.target.Host, a.target.Port, a.broadcast
}

func (s *sender) handleCallback(a action) {
	fn := s.callbacks.dispatch(a.callbackKey, a.payload)
	if fn == nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.WithField("callback", a.callbackKey).Errorf("callback panicked: %v", r)
			}
		}()
		fn(a.payload)
	}()
}

func (s *sender) handleLog(a action) {
	entry := s.log.WithFields(a.fields)
	switch a.level {
	case protocol.LogInfo:
		entry.Info(a.message)
	case protocol.LogWarn:
		entry.Warn(a.message)
	case protocol.LogError:
		entry.Error(a.message)
	default:
		entry.Debug(a.message)
	}
}

// handleSchedule sleeps for the effect's delay then re-dispatches the
// deferred event onto the command channel. Cancellation during shutdown
// swallows the work silently.
func (s *sender) handleSchedule(a action) {
	if a.deferred == nil {
		return
	}
	s.delayWG.Add(1)
	go func() {
		defer s.delayWG.Done()
		timer := time.NewTimer(a.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-s.stopping:
			return
		}
		select {
		case s.channels.command <- *a.deferred:
		case <-s.stopping:
		}
	}()
}
