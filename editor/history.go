package editor

import (
	"c4arch/diagram"
)

// DefaultHistoryLimit bounds how many snapshots a History keeps.
const DefaultHistoryLimit = 500

// History is a linear undo/redo timeline of snapshots. Snapshots are stored
// by pointer and never modified, so the current entry can be compared by
// identity with the orchestrator's current snapshot.
type History struct {
	states  []*diagram.Snapshot
	current int // Current position in history, -1 when empty
	max     int // Maximum number of states to keep
}

// NewHistory creates a new history manager
func NewHistory(max int) *History {
	if max <= 0 {
		max = DefaultHistoryLimit
	}
	return &History{
		states:  make([]*diagram.Snapshot, 0, 16),
		current: -1,
		max:     max,
	}
}

// Push truncates every entry after the current position and appends s.
func (h *History) Push(s *diagram.Snapshot) {
	// If we're not at the end, truncate everything after current
	if h.current < len(h.states)-1 {
		for i := h.current + 1; i < len(h.states); i++ {
			h.states[i] = nil
		}
		h.states = h.states[:h.current+1]
	}

	h.states = append(h.states, s)

	// If we exceed max, remove oldest
	if len(h.states) > h.max {
		h.states[0] = nil
		h.states = h.states[1:]
	} else {
		h.current++
	}
}

// Replace overwrites the entry at the current position. The history length
// and position are unchanged. It is a no-op on an empty history.
func (h *History) Replace(s *diagram.Snapshot) bool {
	if h.current < 0 {
		return false
	}
	h.states[h.current] = s
	return true
}

// CanUndo returns true if we can undo
func (h *History) CanUndo() bool {
	return h.current > 0
}

// CanRedo returns true if we can redo
func (h *History) CanRedo() bool {
	return h.current < len(h.states)-1
}

// Undo goes back one state
func (h *History) Undo() (*diagram.Snapshot, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.current--
	return h.states[h.current], true
}

// Redo goes forward one state
func (h *History) Redo() (*diagram.Snapshot, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.current++
	return h.states[h.current], true
}

// Current returns the snapshot at the current position, or nil.
func (h *History) Current() *diagram.Snapshot {
	if h.current < 0 {
		return nil
	}
	return h.states[h.current]
}

// At returns the snapshot at index i.
func (h *History) At(i int) *diagram.Snapshot {
	if i < 0 || i >= len(h.states) {
		return nil
	}
	return h.states[i]
}

// Clear clears all history
func (h *History) Clear() {
	for i := range h.states {
		h.states[i] = nil
	}
	h.states = h.states[:0]
	h.current = -1
}

// Len returns the number of stored snapshots.
func (h *History) Len() int {
	return len(h.states)
}

// Index returns the current position, -1 when empty.
func (h *History) Index() int {
	return h.current
}

// Stats returns current position and total states
func (h *History) Stats() (current, total int) {
	return h.current + 1, len(h.states)
}

// snapshots returns a copy of the stored pointers.
func (h *History) snapshots() []*diagram.Snapshot {
	out := make([]*diagram.Snapshot, len(h.states))
	copy(out, h.states)
	return out
}

// restore replaces the whole timeline.
func (h *History) restore(states []*diagram.Snapshot, index int) {
	h.Clear()
	if len(states) > h.max {
		drop := len(states) - h.max
		states = states[drop:]
		index -= drop
	}
	h.states = append(h.states, states...)
	switch {
	case len(h.states) == 0:
		h.current = -1
	case index < 0:
		h.current = 0
	case index >= len(h.states):
		h.current = len(h.states) - 1
	default:
		h.current = index
	}
}
