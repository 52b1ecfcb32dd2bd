// Package clientview tracks what a single connection was shown on the
// previous tick so the hub can emit added/updated/removed diffs instead of
// re-sending the whole visible set every tick. It also offers per-chunk
// terrain bookkeeping; the hub does not use it and decides terrain resends
// by comparing terrain areas.
package clientview

import "github.com/example/tidewar/internal/world"

// ChunkCoord identifies a terrain chunk in chunk-grid space (not meters).
type ChunkCoord struct {
	X, Y int16
}

// State is embedded in a connection's player data and updated once per
// tick by Diff.
type State struct {
	visible      map[world.EntityID]struct{}
	loadedChunks map[ChunkCoord]struct{}
}

// Diff computes which entity IDs are newly visible (Added), still visible
// but worth re-sending because their data changed (Updated, determined by
// the caller via changed), and no longer visible (Removed) compared to the
// previous call. It then replaces the stored visible set with current.
func (s *State) Diff(current map[world.EntityID]struct{}, changed func(world.EntityID) bool) (added, updated, removed []world.EntityID) {
	if s.visible == nil {
		s.visible = make(map[world.EntityID]struct{}, len(current))
	}

	for id := range current {
		if _, was := s.visible[id]; was {
			if changed == nil || changed(id) {
				updated = append(updated, id)
			}
		} else {
			added = append(added, id)
		}
	}

	for id := range s.visible {
		if _, still := current[id]; !still {
			removed = append(removed, id)
		}
	}

	s.visible = current
	return
}

// Reset clears all tracked state, forcing the next Diff to report every
// entity as Added. The hub does not call it.
func (s *State) Reset() {
	s.visible = nil
	s.loadedChunks = nil
}

// ChunkLoaded reports whether the connection has already been sent the
// given chunk's current content (per MarkChunksLoaded).
func (s *State) ChunkLoaded(c ChunkCoord) bool {
	_, ok := s.loadedChunks[c]
	return ok
}

// MarkChunksLoaded records that the connection has now been sent the
// current content of the given chunks.
func (s *State) MarkChunksLoaded(chunks []ChunkCoord) {
	if s.loadedChunks == nil {
		s.loadedChunks = make(map[ChunkCoord]struct{}, len(chunks))
	}
	for _, c := range chunks {
		s.loadedChunks[c] = struct{}{}
	}
}

// UnmarkChunks forgets the given chunks so ChunkLoaded reports them as not
// yet sent.
func (s *State) UnmarkChunks(chunks []ChunkCoord) {
	for _, c := range chunks {
		delete(s.loadedChunks, c)
	}
}
