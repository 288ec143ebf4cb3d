package editor

import (
	"testing"

	"c4arch/diagram"
)

func snap(ids ...string) *diagram.Snapshot {
	s := diagram.Empty()
	for _, id := range ids {
		s.Nodes = append(s.Nodes, diagram.Entity{ID: id, Label: id, EntityType: diagram.Component})
	}
	return s
}

func TestHistoryBasicOperations(t *testing.T) {
	h := NewHistory(10)

	if h.CanUndo() || h.CanRedo() {
		t.Error("Empty history should not allow undo or redo")
	}
	if _, ok := h.Undo(); ok {
		t.Error("Undo on empty history should be a no-op")
	}
	if h.Index() != -1 || h.Len() != 0 {
		t.Errorf("Expected index -1 and length 0, got %d/%d", h.Index(), h.Len())
	}

	s1, s2 := snap("a"), snap("a", "b")
	h.Push(s1)
	h.Push(s2)

	if !h.CanUndo() {
		t.Error("Should be able to undo after two pushes")
	}
	got, ok := h.Undo()
	if !ok || got != s1 {
		t.Errorf("Undo should return the first snapshot by identity")
	}
	got, ok = h.Redo()
	if !ok || got != s2 {
		t.Errorf("Redo should return the second snapshot by identity")
	}
	if h.CanRedo() {
		t.Error("Should not be able to redo at the end")
	}
}

func TestHistoryTruncatesOnPush(t *testing.T) {
	h := NewHistory(10)
	h.Push(snap("a"))
	h.Push(snap("b"))
	h.Push(snap("c"))

	h.Undo()
	h.Undo()
	h.Push(snap("d"))

	if h.Len() != 2 {
		t.Errorf("Expected 2 states after truncation, got %d", h.Len())
	}
	if h.CanRedo() {
		t.Error("Redo should be impossible after pushing from a non-terminal index")
	}
	if h.Current().Nodes[0].ID != "d" {
		t.Errorf("Expected current d, got %s", h.Current().Nodes[0].ID)
	}
}

func TestHistoryLimit(t *testing.T) {
	h := NewHistory(3)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		h.Push(snap(id))
	}

	current, total := h.Stats()
	if total != 3 || current != 3 {
		t.Errorf("Expected 3/3, got %d/%d", current, total)
	}
	if h.At(0).Nodes[0].ID != "c" {
		t.Errorf("Oldest states should be evicted, first is %s", h.At(0).Nodes[0].ID)
	}
}

func TestHistoryReplace(t *testing.T) {
	h := NewHistory(10)
	if h.Replace(snap("x")) {
		t.Error("Replace on empty history should report false")
	}

	h.Push(snap("a"))
	h.Push(snap("b"))
	replacement := snap("b2")
	if !h.Replace(replacement) {
		t.Fatal("Replace should succeed")
	}
	if h.Len() != 2 || h.Index() != 1 {
		t.Errorf("Replace changed shape: len=%d index=%d", h.Len(), h.Index())
	}
	if h.Current() != replacement {
		t.Error("Current should be the replacement")
	}
}

func TestHistoryRestoreClampsIndex(t *testing.T) {
	h := NewHistory(2)
	h.restore([]*diagram.Snapshot{snap("a"), snap("b"), snap("c")}, 2)
	if h.Len() != 2 || h.Index() != 1 {
		t.Errorf("Expected len 2 index 1, got %d/%d", h.Len(), h.Index())
	}

	h.restore(nil, 5)
	if h.Index() != -1 {
		t.Errorf("Expected index -1 on empty restore, got %d", h.Index())
	}
}
