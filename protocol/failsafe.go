package protocol

import (
	"time"

	"github.com/gopatchy/artnode/codec"
)

// failsafeTick engages failsafe for any port whose last composed output is
// older than the configured idle timeout, and clears the moment a new frame
// arrives (clearFailsafe, called from the merge path). Mode hold never
// engages: holding the last output is the idle port's behavior anyway, so
// there is nothing to switch to. The failsafe dmx-frame effect and callback
// fire exactly once, on the tick the port transitions into engagement, not
// on every tick it stays engaged.
func (s *State) failsafeTick(now time.Time) []Effect {
	if !s.FailsafeConfig.Enabled {
		return nil
	}

	var effects []Effect
	for pa, ps := range s.DMX {
		fs := s.portFailsafe(pa)
		if fs.Engaged || fs.Mode == FailsafeHold {
			continue
		}

		idle := now.Sub(ps.LastOutput.UpdatedAt)
		if idle < s.FailsafeConfig.IdleTimeout {
			continue
		}

		fs.Engaged = true
		fs.EngagedAt = now
		effects = append(effects, logEffect(LogWarn, "failsafe engaged", map[string]any{
			"port_address": pa,
			"idle_for":     idle,
		}))
		effects = append(effects, s.emitFailsafeFrame(pa, fs, now)...)
	}
	return effects
}

func (s *State) emitFailsafeFrame(pa codec.PortAddress, fs *PortFailsafeState, now time.Time) []Effect {
	var data [512]byte
	length := 0

	switch fs.Mode {
	case FailsafeZero:
		length = 512
	case FailsafeFull:
		for i := range data {
			data[i] = 0xFF
		}
		length = 512
	case FailsafeScene:
		if fs.HasScene {
			data, length = fs.SceneBytes, fs.Length
		}
	}

	frame := Effect{
		Kind:             EffectDMXFrame,
		FramePortAddress: pa,
		FrameData:        data,
		FrameLength:      length,
		FrameTimestamp:   now,
		FailsafeFrame:    true,
		FailsafeMode:     fs.Mode,
	}
	cb := dmxCallback(pa, Addr{}, data, length, map[string]any{
		"failsafe":      true,
		"failsafe_mode": fs.Mode,
	})
	return []Effect{frame, cb}
}

// clearFailsafe runs whenever fresh DMX arrives for a port-address that was
// in failsafe, restoring normal HTP/LTP output.
func (s *State) clearFailsafe(pa codec.PortAddress, now time.Time) []Effect {
	fs, ok := s.Failsafe[pa]
	if !ok || !fs.Engaged {
		return nil
	}
	fs.Engaged = false
	return []Effect{logEffect(LogInfo, "failsafe cleared", map[string]any{
		"port_address": pa,
		"engaged_for":  now.Sub(fs.EngagedAt),
	})}
}

// keepaliveTick re-emits the last output frame for idle but not-yet-failsafe
// ports on the configured interval, so downstream fixtures see a steady
// refresh even without new input.
func (s *State) keepaliveTick(now time.Time) []Effect {
	interval := s.Cfg.KeepaliveInterval
	if interval <= 0 {
		return nil
	}

	var effects []Effect
	for pa, ps := range s.DMX {
		if fs, ok := s.Failsafe[pa]; ok && fs.Engaged {
			continue
		}
		if ps.LastEmittedAt.IsZero() || now.Sub(ps.LastEmittedAt) < interval {
			continue
		}
		ps.LastEmittedAt = now
		effects = append(effects, dmxFrameEffect(pa, ps.LastSequence, ps.LastOutput.Data, ps.LastOutput.Length, now))
	}
	return effects
}

// mergeTimeoutTick purges DMX sources that have gone silent past the
// configured merge timeout and re-emits the recomposed output for any port
// that lost a contributor.
func (s *State) mergeTimeoutTick(now time.Time) []Effect {
	timeout := s.Cfg.MergeTimeout
	if timeout <= 0 {
		return nil
	}

	var effects []Effect
	for pa, ps := range s.DMX {
		if ps.purgeStaleSources(now, timeout) {
			if !ps.merging() {
				s.setMergingBit(pa, false)
			}
			effects = append(effects, dmxFrameEffect(pa, ps.LastSequence, ps.LastOutput.Data, ps.LastOutput.Length, now))
		}
	}
	return effects
}
