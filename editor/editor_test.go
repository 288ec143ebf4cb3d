package editor

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"c4arch/diagram"
)

// fixedClock returns a clock that advances one millisecond per call.
func fixedClock() func() time.Time {
	at := time.UnixMilli(1700000000000)
	return func() time.Time {
		at = at.Add(time.Millisecond)
		return at
	}
}

func newTestOrchestrator(opts ...Option) *Orchestrator {
	return New(append([]Option{WithClock(fixedClock())}, opts...)...)
}

func seeded(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	o := newTestOrchestrator(opts...)
	s := snap("a", "b", "c")
	s.Edges = []diagram.Relation{
		{ID: "ab", Source: "a", Target: "b", Label: "uses"},
		{ID: "bc", Source: "b", Target: "c", Label: "uses"},
	}
	o.Commit(s)
	return o
}

func TestCommitKeepsIdentity(t *testing.T) {
	o := newTestOrchestrator()
	s := snap("a")
	o.Commit(s)

	if o.Snapshot() != s {
		t.Error("Snapshot should be the committed value")
	}
	if o.History().At(o.History().Index()) != o.Snapshot() {
		t.Error("history[index] should be the current snapshot")
	}
}

func TestCommitUndoRedoRestoresState(t *testing.T) {
	o := seeded(t)
	next := snap("a", "b", "c", "d")
	o.Commit(next)

	before := o.State()
	o.Undo()
	o.Redo()
	after := o.State()

	if !reflect.DeepEqual(before, after) {
		t.Errorf("commit/undo/redo changed state:\nbefore %+v\nafter  %+v", before, after)
	}
	if o.Snapshot() != next {
		t.Error("redo should restore the committed snapshot by identity")
	}
}

func TestCommitTruncatesFuture(t *testing.T) {
	o := newTestOrchestrator()
	o.Commit(snap("a"))
	o.Commit(snap("b"))
	o.Commit(snap("c"))

	o.Undo()
	o.Undo()
	o.Commit(snap("d"))

	if o.Redo() {
		t.Error("redo should be impossible after committing at a non-terminal index")
	}
	if o.History().Len() != 2 {
		t.Errorf("Expected history length 2, got %d", o.History().Len())
	}
	for i := 0; i < o.History().Len(); i++ {
		id := o.History().At(i).Nodes[0].ID
		if id == "b" || id == "c" {
			t.Errorf("truncated snapshot %s still reachable", id)
		}
	}
}

func TestUndoOnEmptyHistory(t *testing.T) {
	o := newTestOrchestrator()
	if o.Undo() {
		t.Error("Undo on empty history should report false")
	}
	if o.Redo() {
		t.Error("Redo on empty history should report false")
	}
	if o.Snapshot() != nil || o.History().Len() != 0 || o.History().Index() != -1 {
		t.Error("empty history should stay empty")
	}
}

func TestUndoAtFirstEntry(t *testing.T) {
	o := newTestOrchestrator()
	s := snap("a")
	o.Commit(s)
	if o.Undo() {
		t.Error("Undo at index 0 should be a no-op")
	}
	if o.Snapshot() != s {
		t.Error("snapshot should be unchanged")
	}
}

func TestReset(t *testing.T) {
	o := seeded(t)
	o.SetCode("@startuml\n@enduml")
	o.SetMode(ModeAddConnection)
	o.ClickEntity("a")
	ticket := o.BeginRequest()

	o.Reset()

	if o.Snapshot() != nil || o.Code() != "" || o.History().Len() != 0 {
		t.Error("Reset should clear snapshot, code and history")
	}
	if o.Mode() != ModeSelect || o.ConnectionSource() != "" {
		t.Error("Reset should clear interaction state")
	}
	if o.Undo() {
		t.Error("Reset should not be undoable")
	}
	if o.EndRequest(ticket) {
		t.Error("requests issued before Reset should be stale")
	}
}

func TestAddNodeOnEmptyDiagram(t *testing.T) {
	o := newTestOrchestrator()
	e := o.AddNode()

	if o.History().Len() != 1 || o.History().Index() != 0 {
		t.Errorf("Expected history length 1 index 0, got %d/%d", o.History().Len(), o.History().Index())
	}
	s := o.Snapshot()
	if len(s.Nodes) != 1 {
		t.Fatalf("Expected one entity, got %d", len(s.Nodes))
	}
	if s.Nodes[0].EntityType != diagram.Component {
		t.Errorf("Expected COMPONENT, got %s", s.Nodes[0].EntityType)
	}
	if e.Label != NewNodeLabel || e.Position != (diagram.Point{X: 300, Y: 200}) {
		t.Errorf("Unexpected defaults: %+v", e)
	}
	if e.ID != "node-1700000000001" {
		t.Errorf("Unexpected id %q", e.ID)
	}
}

func TestAddNodeKeepsPreviousSnapshot(t *testing.T) {
	o := seeded(t)
	before := o.Snapshot()
	o.AddNode()

	if len(before.Nodes) != 3 {
		t.Error("AddNode modified the previous snapshot")
	}
	if len(o.Snapshot().Nodes) != 4 {
		t.Errorf("Expected 4 nodes, got %d", len(o.Snapshot().Nodes))
	}
}

func TestDeleteSelectedPrunesRelations(t *testing.T) {
	o := seeded(t)
	o.ClickEntity("b")

	if err := o.DeleteSelected("b"); err != nil {
		t.Fatalf("DeleteSelected failed: %v", err)
	}

	s := o.Snapshot()
	if s.HasEntity("b") {
		t.Error("entity b still present")
	}
	for _, r := range s.Edges {
		if r.Touches("b") {
			t.Errorf("relation %s still references b", r.ID)
		}
	}
	if o.Selected() != "" || o.Editing() != "" {
		t.Error("selection should be cleared after delete")
	}
	if o.History().Len() != 2 {
		t.Errorf("delete should commit, history length %d", o.History().Len())
	}
}

func TestDeleteUnknownEntity(t *testing.T) {
	o := seeded(t)
	err := o.DeleteSelected("zz")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Expected ErrEntityNotFound, got %v", err)
	}
	if o.History().Len() != 1 {
		t.Error("failed delete should not commit")
	}
}

func TestUpdateLabelInPlace(t *testing.T) {
	o := seeded(t)
	o.Commit(snap("a", "b"))
	before := o.Snapshot()
	untouched := before.Nodes[1]

	if err := o.UpdateLabel("a", "Gateway"); err != nil {
		t.Fatalf("UpdateLabel failed: %v", err)
	}

	if o.History().Len() != 2 || o.History().Index() != 1 {
		t.Errorf("in-place label edit changed history shape: %d/%d", o.History().Len(), o.History().Index())
	}
	s := o.Snapshot()
	if s == before {
		t.Error("label edit should install a new snapshot object")
	}
	if s.Nodes[0].Label != "Gateway" {
		t.Errorf("label not updated: %q", s.Nodes[0].Label)
	}
	if s.Nodes[1] != untouched {
		t.Error("other entities should be unchanged")
	}
	if before.Nodes[0].Label != "a" {
		t.Error("previous snapshot was modified")
	}
	if o.History().At(o.History().Index()) != s {
		t.Error("history[index] should be the current snapshot")
	}
}

func TestUpdateLabelCommitPolicy(t *testing.T) {
	o := seeded(t, WithLabelPolicy(LabelEditCommit))
	if err := o.UpdateLabel("a", "Gateway"); err != nil {
		t.Fatalf("UpdateLabel failed: %v", err)
	}
	if o.History().Len() != 2 {
		t.Errorf("commit policy should append, got length %d", o.History().Len())
	}
	o.Undo()
	if o.Snapshot().Nodes[0].Label != "a" {
		t.Error("label edit should be undoable under commit policy")
	}
}

func TestAddConnectionUniqueIDs(t *testing.T) {
	o := seeded(t)
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		r, err := o.AddConnection("a", "c", "")
		if err != nil {
			t.Fatalf("AddConnection failed: %v", err)
		}
		if seen[r.ID] {
			t.Errorf("duplicate relation id %q", r.ID)
		}
		seen[r.ID] = true
		if r.Label != "uses" || !r.Animated {
			t.Errorf("unexpected relation defaults: %+v", r)
		}
	}
}

func TestAddConnectionSameMillisecond(t *testing.T) {
	at := time.UnixMilli(5)
	o := New(WithClock(func() time.Time { return at }))
	o.Commit(snap("a", "b"))

	r1, _ := o.AddConnection("a", "b", "uses")
	r2, _ := o.AddConnection("a", "b", "uses")
	if r1.ID == r2.ID {
		t.Errorf("relation ids collide: %q", r1.ID)
	}
}

func TestAddConnectionSelfLoop(t *testing.T) {
	o := seeded(t)
	r, err := o.AddConnection("a", "a", "monitors")
	if err != nil {
		t.Fatalf("self-loop should be allowed: %v", err)
	}
	if r.Source != "a" || r.Target != "a" {
		t.Errorf("unexpected relation %+v", r)
	}
}

func TestAddConnectionErrors(t *testing.T) {
	o := newTestOrchestrator()
	if _, err := o.AddConnection("a", "b", ""); !errors.Is(err, ErrNoDiagram) {
		t.Errorf("Expected ErrNoDiagram, got %v", err)
	}
	o = seeded(t)
	if _, err := o.AddConnection("a", "zz", ""); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Expected ErrEntityNotFound, got %v", err)
	}
}

func TestTwoStepConnectionGesture(t *testing.T) {
	o := seeded(t)
	o.SetConnectionType("stores_in")
	o.SetMode(ModeAddConnection)
	edgesBefore := len(o.Snapshot().Edges)

	if err := o.ClickEntity("a"); err != nil {
		t.Fatalf("first click failed: %v", err)
	}
	if o.ConnectionSource() != "a" {
		t.Errorf("Expected connection source a, got %q", o.ConnectionSource())
	}
	if len(o.Snapshot().Edges) != edgesBefore {
		t.Error("first click should not create a relation")
	}

	if err := o.ClickEntity("c"); err != nil {
		t.Fatalf("second click failed: %v", err)
	}
	edges := o.Snapshot().Edges
	if len(edges) != edgesBefore+1 {
		t.Fatalf("Expected exactly one new relation, got %d", len(edges)-edgesBefore)
	}
	r := edges[len(edges)-1]
	if r.Source != "a" || r.Target != "c" || r.Label != "stores_in" {
		t.Errorf("unexpected relation %+v", r)
	}
	if o.Mode() != ModeSelect || o.ConnectionSource() != "" {
		t.Errorf("gesture should end in select mode, got %s source=%q", o.Mode(), o.ConnectionSource())
	}
}

func TestClickOutsideConnectModeOpensLabelEdit(t *testing.T) {
	o := seeded(t)
	if err := o.ClickEntity("b"); err != nil {
		t.Fatalf("ClickEntity failed: %v", err)
	}
	if o.Editing() != "b" || o.Selected() != "b" {
		t.Errorf("click should open label edit on b, got editing=%q", o.Editing())
	}
	if o.History().Len() != 1 {
		t.Error("opening label edit should not commit")
	}

	o.CancelEdit()
	if o.Editing() != "" {
		t.Error("CancelEdit should close label edit")
	}
}

func TestSetModeDropsPendingSource(t *testing.T) {
	o := seeded(t)
	o.SetMode(ModeAddConnection)
	o.ClickEntity("a")
	o.SetMode(ModeSelect)
	if o.ConnectionSource() != "" {
		t.Error("leaving addConnection should clear the source")
	}
}

func TestUndoDropsVanishedConnectionSource(t *testing.T) {
	o := seeded(t)
	added := o.AddNode()
	o.SetMode(ModeAddConnection)
	if err := o.ClickEntity(added.ID); err != nil {
		t.Fatalf("first click failed: %v", err)
	}

	o.Undo()
	if o.ConnectionSource() != "" {
		t.Errorf("source %q is gone after undo and should be cleared", o.ConnectionSource())
	}
	if o.Mode() != ModeAddConnection {
		t.Errorf("Expected addConnection mode to survive undo, got %s", o.Mode())
	}

	if err := o.ClickEntity("a"); err != nil {
		t.Fatalf("click after undo failed: %v", err)
	}
	if err := o.ClickEntity("b"); err != nil {
		t.Fatalf("second click after undo failed: %v", err)
	}
	last := o.Snapshot().Edges[len(o.Snapshot().Edges)-1]
	if last.Source != "a" || last.Target != "b" {
		t.Errorf("Expected a new a -> b relation, got %+v", last)
	}

	// A source that survives the move is kept.
	o.Undo()
	o.SetMode(ModeAddConnection)
	o.ClickEntity("a")
	o.Redo()
	if o.ConnectionSource() != "a" {
		t.Errorf("Expected source a to survive redo, got %q", o.ConnectionSource())
	}
}

func TestReplaceGraph(t *testing.T) {
	o := seeded(t)
	current := o.Snapshot()

	if o.ReplaceGraph(current.Nodes, current.Edges) {
		t.Error("unchanged graph should not be committed")
	}

	nodes := append([]diagram.Entity{}, current.Nodes...)
	nodes[0].Position = diagram.Point{X: 999, Y: 1}
	edges := append(append([]diagram.Relation{}, current.Edges...),
		diagram.Relation{ID: "dangling", Source: "a", Target: "gone"})

	if !o.ReplaceGraph(nodes, edges) {
		t.Fatal("changed graph should be committed")
	}
	if o.Snapshot().HasRelation("dangling") {
		t.Error("dangling relation should be pruned")
	}
	if o.Snapshot().Nodes[0].Position.X != 999 {
		t.Error("moved position not recorded")
	}
	nodes[1].Label = "mutated"
	if o.Snapshot().Nodes[1].Label == "mutated" {
		t.Error("ReplaceGraph should copy its input")
	}
}

func TestHooksFire(t *testing.T) {
	var commits []Source
	var undos, redos, resets int
	o := newTestOrchestrator(WithHooks(Hooks{
		OnCommit: func(source Source, _ *diagram.Snapshot) { commits = append(commits, source) },
		OnUndo:   func(*diagram.Snapshot) { undos++ },
		OnRedo:   func(*diagram.Snapshot) { redos++ },
		OnReset:  func() { resets++ },
	}))

	o.AddNode()
	o.AddNode()
	o.Undo()
	o.Redo()
	o.Reset()

	if !reflect.DeepEqual(commits, []Source{SourceAddNode, SourceAddNode}) {
		t.Errorf("unexpected commits %v", commits)
	}
	if undos != 1 || redos != 1 || resets != 1 {
		t.Errorf("Expected 1/1/1 hooks, got %d/%d/%d", undos, redos, resets)
	}
}

func TestRequestSequencing(t *testing.T) {
	o := newTestOrchestrator()
	first := o.BeginRequest()
	second := o.BeginRequest()

	if !o.Processing() {
		t.Error("should be processing while a request is outstanding")
	}
	if o.EndRequest(first) {
		t.Error("older ticket should be stale")
	}
	if !o.Processing() {
		t.Error("stale completion should not end processing")
	}
	if !o.EndRequest(second) {
		t.Error("latest ticket should be accepted")
	}
	if o.Processing() {
		t.Error("processing should end with the latest request")
	}
}

func TestStateRestore(t *testing.T) {
	o := seeded(t)
	o.Commit(snap("x", "y"))
	o.Undo()
	o.SetCode("code")
	o.SetMode(ModeAddConnection)
	o.ClickEntity("a")

	st := o.State()
	restored := newTestOrchestrator()
	if err := restored.Restore(st); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	if !reflect.DeepEqual(restored.State(), st) {
		t.Error("restored state differs")
	}
	if !restored.Redo() {
		t.Error("redo entries should survive restore")
	}
}

func TestRestoreRejectsInvalidSnapshot(t *testing.T) {
	o := newTestOrchestrator()
	bad := State{History: []*diagram.Snapshot{{
		Nodes: []diagram.Entity{{ID: "a"}},
		Edges: []diagram.Relation{{ID: "r", Source: "a", Target: "missing"}},
	}}}
	if err := o.Restore(bad); !errors.Is(err, diagram.ErrInvalidSnapshot) {
		t.Errorf("Expected ErrInvalidSnapshot, got %v", err)
	}
}
