// Package editor owns the canonical diagram state: the committed snapshot,
// its undo/redo history, the generated code and the interactive edit mode.
package editor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"c4arch/diagram"
	"c4arch/layout"
)

var (
	// ErrEntityNotFound is returned when an edit names an entity that is not
	// part of the current snapshot.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrNoDiagram is returned by edits that need an existing diagram.
	ErrNoDiagram = errors.New("no diagram")
)

// Defaults for entities created interactively.
const (
	NewNodeLabel = "New Node"
	NewNodeX     = 300
	NewNodeY     = 200
)

// Source names what produced a commit.
type Source string

// Commit sources
const (
	SourceRemote    Source = "remote"
	SourceCode      Source = "code"
	SourceAssistant Source = "assistant"
	SourceAddNode   Source = "add_node"
	SourceDelete    Source = "delete"
	SourceLabel     Source = "label"
	SourceConnect   Source = "connect"
	SourceCanvas    Source = "canvas"
)

// Hooks are optional callbacks fired after state transitions.
type Hooks struct {
	OnCommit func(source Source, s *diagram.Snapshot)
	OnUndo   func(s *diagram.Snapshot)
	OnRedo   func(s *diagram.Snapshot)
	OnReset  func()
}

// Orchestrator is the single owner of diagram state. Every edit goes through
// one of its methods or through Dispatch. It is not safe for concurrent use;
// callers serialise access.
type Orchestrator struct {
	history *History
	code    string

	mode             Mode
	connectionSource string
	connectionType   string
	selected         string
	editing          string // entity whose label dialog is open

	labelPolicy LabelPolicy
	now         func() time.Time
	logger      *slog.Logger
	hooks       Hooks

	latest   uint64
	inFlight bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source used for generated ids.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithHistoryLimit bounds the undo history.
func WithHistoryLimit(n int) Option {
	return func(o *Orchestrator) {
		o.history = NewHistory(n)
	}
}

// WithLabelPolicy selects how label edits are recorded.
func WithLabelPolicy(p LabelPolicy) Option {
	return func(o *Orchestrator) {
		o.labelPolicy = p
	}
}

// WithHooks registers transition callbacks.
func WithHooks(h Hooks) Option {
	return func(o *Orchestrator) {
		o.hooks = h
	}
}

// New creates an Orchestrator with no diagram.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		history:        NewHistory(DefaultHistoryLimit),
		mode:           ModeSelect,
		connectionType: diagram.DefaultRelationLabel,
		now:            time.Now,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Snapshot returns the current snapshot, nil when there is no diagram.
// The returned value is shared with history and must not be modified.
func (o *Orchestrator) Snapshot() *diagram.Snapshot {
	return o.history.Current()
}

// Code returns the committed code.
func (o *Orchestrator) Code() string {
	return o.code
}

// SetCode replaces the committed code. Code is not part of history.
func (o *Orchestrator) SetCode(code string) {
	o.code = code
}

// History returns the undo history. Callers must not modify it.
func (o *Orchestrator) History() *History {
	return o.history
}

// Mode returns the current edit mode.
func (o *Orchestrator) Mode() Mode {
	return o.mode
}

// ConnectionSource returns the entity picked by the first click of a
// connection gesture.
func (o *Orchestrator) ConnectionSource() string {
	return o.connectionSource
}

// ConnectionType returns the label used for relations drawn by clicking.
func (o *Orchestrator) ConnectionType() string {
	return o.connectionType
}

// Selected returns the selected entity id.
func (o *Orchestrator) Selected() string {
	return o.selected
}

// Editing returns the entity whose label is being edited.
func (o *Orchestrator) Editing() string {
	return o.editing
}

// LabelPolicy returns the active label policy.
func (o *Orchestrator) LabelPolicy() LabelPolicy {
	return o.labelPolicy
}

// Commit records s as the new current snapshot, discarding any redo entries.
func (o *Orchestrator) Commit(s *diagram.Snapshot) {
	o.commit(SourceRemote, s)
}

// CommitFrom is Commit with an explicit source for logs and metrics.
func (o *Orchestrator) CommitFrom(source Source, s *diagram.Snapshot) {
	o.commit(source, s)
}

func (o *Orchestrator) commit(source Source, s *diagram.Snapshot) {
	if s == nil {
		s = diagram.Empty()
	}
	o.history.Push(s)

	index, total := o.history.Stats()
	o.logger.Debug("commit", "source", source, "nodes", len(s.Nodes), "edges", len(s.Edges), "index", index, "total", total)
	if o.hooks.OnCommit != nil {
		o.hooks.OnCommit(source, s)
	}
}

// Undo steps back one snapshot. It reports false at the start of history.
func (o *Orchestrator) Undo() bool {
	s, ok := o.history.Undo()
	if !ok {
		return false
	}
	o.clearSelection()
	o.dropMissingSource()
	if o.hooks.OnUndo != nil {
		o.hooks.OnUndo(s)
	}
	return true
}

// Redo steps forward one snapshot. It reports false at the end of history.
func (o *Orchestrator) Redo() bool {
	s, ok := o.history.Redo()
	if !ok {
		return false
	}
	o.clearSelection()
	o.dropMissingSource()
	if o.hooks.OnRedo != nil {
		o.hooks.OnRedo(s)
	}
	return true
}

// Reset drops the diagram, code, history and interaction state. Outstanding
// requests become stale. It cannot be undone.
func (o *Orchestrator) Reset() {
	o.history.Clear()
	o.code = ""
	o.mode = ModeSelect
	o.connectionSource = ""
	o.connectionType = diagram.DefaultRelationLabel
	o.clearSelection()
	o.latest++
	o.inFlight = false

	o.logger.Debug("reset")
	if o.hooks.OnReset != nil {
		o.hooks.OnReset()
	}
}

// AddNode appends a default COMPONENT entity and commits.
func (o *Orchestrator) AddNode() diagram.Entity {
	base := o.Snapshot()
	next := base.Clone()
	if next == nil {
		next = diagram.Empty()
	}

	e := diagram.Entity{
		ID:         diagram.EntityID(base, o.now()),
		Position:   diagram.Point{X: NewNodeX, Y: NewNodeY},
		Label:      NewNodeLabel,
		EntityType: diagram.Component,
		Style:      layout.DefaultSize,
	}
	next.Nodes = append(next.Nodes, e)

	o.commit(SourceAddNode, next)
	return e
}

// DeleteSelected removes the entity and every relation touching it, commits,
// and then clears selection and label-edit state.
func (o *Orchestrator) DeleteSelected(id string) error {
	current := o.Snapshot()
	if !current.HasEntity(id) {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}

	o.commit(SourceDelete, current.WithoutEntity(id))

	o.clearSelection()
	if o.connectionSource == id {
		o.connectionSource = ""
	}
	return nil
}

// UpdateLabel replaces the label of one entity and closes the label dialog.
// Under LabelEditInPlace the current history entry is overwritten.
func (o *Orchestrator) UpdateLabel(id, label string) error {
	current := o.Snapshot()
	if !current.HasEntity(id) {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}

	next := current.Clone()
	for i := range next.Nodes {
		if next.Nodes[i].ID == id {
			next.Nodes[i].Label = label
			break
		}
	}

	if o.labelPolicy == LabelEditCommit {
		o.commit(SourceLabel, next)
	} else {
		o.history.Replace(next)
		o.logger.Debug("label updated in place", "entity", id, "index", o.history.Index())
		if o.hooks.OnCommit != nil {
			o.hooks.OnCommit(SourceLabel, next)
		}
	}

	o.editing = ""
	return nil
}

// AddConnection appends a relation between two existing entities and
// commits. An empty label uses the current connection type. Self-loops are
// allowed.
func (o *Orchestrator) AddConnection(source, target, label string) (diagram.Relation, error) {
	current := o.Snapshot()
	if current == nil {
		return diagram.Relation{}, ErrNoDiagram
	}
	for _, id := range []string{source, target} {
		if !current.HasEntity(id) {
			return diagram.Relation{}, fmt.Errorf("%w: %s", ErrEntityNotFound, id)
		}
	}
	if label == "" {
		label = o.connectionType
	}

	r := diagram.Relation{
		ID:       diagram.RelationID(current, source, target, o.now()),
		Source:   source,
		Target:   target,
		Label:    label,
		Animated: true,
	}
	next := current.Clone()
	next.Edges = append(next.Edges, r)

	o.commit(SourceConnect, next)
	return r, nil
}

// SetMode changes the edit mode. Leaving addConnection drops a half-drawn
// connection.
func (o *Orchestrator) SetMode(m Mode) {
	if m != ModeAddConnection {
		o.connectionSource = ""
	}
	o.mode = m
}

// SetConnectionType sets the label for relations drawn by clicking.
func (o *Orchestrator) SetConnectionType(t string) {
	if t == "" {
		t = diagram.DefaultRelationLabel
	}
	o.connectionType = t
}

// ClickEntity handles a click on an entity. In addConnection mode the first
// click picks the source and the second draws the relation and returns to
// select mode. In any other mode the click opens label edit.
func (o *Orchestrator) ClickEntity(id string) error {
	if !o.Snapshot().HasEntity(id) {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, id)
	}

	if o.mode != ModeAddConnection {
		o.selected = id
		o.editing = id
		return nil
	}

	if o.connectionSource == "" {
		o.connectionSource = id
		return nil
	}

	source := o.connectionSource
	o.connectionSource = ""
	o.mode = ModeSelect
	if _, err := o.AddConnection(source, id, o.connectionType); err != nil {
		return err
	}
	return nil
}

// CancelEdit closes the label dialog without changes.
func (o *Orchestrator) CancelEdit() {
	o.clearSelection()
}

// ReplaceGraph commits the graph reported by the canvas. Relations with a
// missing endpoint are dropped. An unchanged graph is not recorded.
func (o *Orchestrator) ReplaceGraph(nodes []diagram.Entity, edges []diagram.Relation) bool {
	next := &diagram.Snapshot{
		Nodes: append([]diagram.Entity{}, nodes...),
		Edges: diagram.PruneDangling(nodes, edges),
	}
	diagram.EnsureUniqueRelationIDs(next)

	if next.Equal(o.Snapshot()) {
		return false
	}
	if o.editing != "" && !next.HasEntity(o.editing) {
		o.clearSelection()
	}
	o.commit(SourceCanvas, next)
	o.dropMissingSource()
	return true
}

// dropMissingSource forgets a pending connection source that the current
// snapshot no longer holds. The mode is kept so the next click starts over.
func (o *Orchestrator) dropMissingSource() {
	if o.connectionSource != "" && !o.Snapshot().HasEntity(o.connectionSource) {
		o.connectionSource = ""
	}
}

func (o *Orchestrator) clearSelection() {
	o.selected = ""
	o.editing = ""
}
