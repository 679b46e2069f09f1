package protocol

import (
	"time"

	"github.com/gopatchy/artnode/codec"
)

// handleArtSync flushes every staged frame through the merge path, in
// port-address order so replay is deterministic. While the node is merging
// multiple sources anywhere, the sync is ignored: a single sync callback is
// emitted with ignored=true and the staged frames are kept (subject to the
// normal TTL prune) for the next sync to flush once the merge resolves.
func handleArtSync(s *State, _ *codec.ArtSyncPacket, sender Addr, now time.Time) []Effect {
	s.Stats.incr("rx-artsync")

	s.Sync.LastSyncAt = now
	s.Sync.ActiveMode = SyncArtSync

	// Anything that outlived buffer-ttl before this sync arrived is
	// discarded, never flushed.
	s.pruneStaging(now)

	if s.anyPortMerging() {
		return []Effect{callbackEffect("sync", map[string]any{
			"sender":  sender,
			"ignored": true,
			"reason":  "merging",
		})}
	}

	pas := make([]codec.PortAddress, 0, len(s.Sync.Staging))
	for pa := range s.Sync.Staging {
		pas = append(pas, pa)
	}
	sortPortAddresses(pas)

	var effects []Effect
	for _, pa := range pas {
		frame := s.Sync.Staging[pa]
		delete(s.Sync.Staging, pa)
		key := SourceKey{Sender: sender, Physical: frame.Physical}
		fx := s.mergeAndEmit(pa, key, frame.Data, frame.Length, frame.Sequence, sender, now, stagedTags(frame, map[string]any{"synced": true}))
		for i := range fx {
			if fx[i].Kind == EffectDMXFrame {
				fx[i].SyncedFrame = true
			}
		}
		effects = append(effects, fx...)
	}
	return effects
}

// stagedTags decorates a flush's callback tags with the staged frame's
// start code, so an ArtNzs frame keeps its start code across the sync.
func stagedTags(frame StagedFrame, tags map[string]any) map[string]any {
	if frame.StartCode != 0 {
		tags["start_code"] = frame.StartCode
	}
	return tags
}

func (s *State) anyPortMerging() bool {
	for _, ps := range s.DMX {
		if ps.merging() {
			return true
		}
	}
	return false
}

func sortPortAddresses(pas []codec.PortAddress) {
	for i := 1; i < len(pas); i++ {
		for j := i; j > 0 && pas[j-1] > pas[j]; j-- {
			pas[j-1], pas[j] = pas[j], pas[j-1]
		}
	}
}

// syncTick runs on every Tick event: once the hard fallback timeout
// elapses without a fresh ArtSync, the node reverts to immediate output
// and any frames still staged are flushed as-is.
func (s *State) syncTick(now time.Time) []Effect {
	if s.Sync.Mode != SyncArtSync || s.Sync.ActiveMode != SyncArtSync || s.Sync.LastSyncAt.IsZero() {
		return nil
	}
	if now.Sub(s.Sync.LastSyncAt) <= s.artSyncTimeout() {
		return nil
	}

	s.Stats.incr("artsync-timeout-fallback")
	effects := []Effect{logEffect(LogWarn, "art-sync timeout, falling back to immediate output", map[string]any{
		"last_sync_at": s.Sync.LastSyncAt,
	})}

	pas := make([]codec.PortAddress, 0, len(s.Sync.Staging))
	for pa := range s.Sync.Staging {
		pas = append(pas, pa)
	}
	sortPortAddresses(pas)
	for _, pa := range pas {
		frame := s.Sync.Staging[pa]
		delete(s.Sync.Staging, pa)
		key := SourceKey{Physical: frame.Physical}
		effects = append(effects, s.mergeAndEmit(pa, key, frame.Data, frame.Length, frame.Sequence, Addr{}, now, stagedTags(frame, map[string]any{"sync_timeout_flush": true}))...)
	}

	s.Sync.ActiveMode = SyncImmediate
	return effects
}
