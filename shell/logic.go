package shell

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gopatchy/artnode/protocol"
)

// logic is the single-writer stage that holds the authoritative node state
// and is the sole caller of protocol.Step. It never touches the network
// directly.
type logic struct {
	state    *protocol.State
	mu       sync.Mutex // guards state for Snapshot reads from other goroutines
	channels *graphChannels
	log      *logrus.Entry

	done chan struct{}
	wg   sync.WaitGroup
}

func newLogic(state *protocol.State, channels *graphChannels, log *logrus.Entry) *logic {
	return &logic{state: state, channels: channels, log: log, done: make(chan struct{})}
}

func (l *logic) start() {
	l.wg.Add(1)
	go l.loop()
}

func (l *logic) stop() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	l.wg.Wait()
}

func (l *logic) loop() {
	defer l.wg.Done()
	for {
		select {
		case <-l.done:
			return
		case msg := <-l.channels.rx:
			l.step(protocol.Event{Kind: protocol.EventRxPacket, Packet: msg.packet, Sender: msg.sender}, msg.release)
		case now := <-l.channels.tick:
			l.step(protocol.Event{Kind: protocol.EventTick, Timestamp: now}, nil)
		case ev := <-l.channels.command:
			l.step(ev, nil)
		}
	}
}

// step is the only place Step is ever invoked: it holds the mutex just long
// enough to swap in the new state, translates effects to actions, and
// enqueues a release action last when the input carried one, so the rx
// buffer outlives every payload view taken from it.
func (l *logic) step(ev protocol.Event, release func()) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	l.mu.Lock()
	newState, effects, err := protocol.Step(l.state, ev)
	l.state = newState
	l.mu.Unlock()

	if err != nil {
		l.log.WithError(err).WithField("event_kind", ev.Kind).Warn("command rejected")
	}

	actions := effectsToActions(effects)
	if release != nil {
		actions = append(actions, action{kind: actionRelease, release: release})
	}

	for _, a := range actions {
		select {
		case l.channels.actions <- a:
		case <-l.done:
			if a.kind == actionRelease {
				a.release()
			}
			return
		}
	}
}

// snapshot returns a read-only view of named top-level state sections for
// diagnostics. Reading requires the mutex
// since step() runs concurrently on the logic goroutine; this is the one
// place state is read from outside it.
func (l *logic) snapshot(keys []string) map[string]any {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.state

	all := map[string]any{
		"node":  s.Node,
		"stats": s.Stats.All(),
		"peers": len(s.Peers),
		"sync":  s.Sync.Mode,
	}
	if len(keys) == 0 {
		return all
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out
}
