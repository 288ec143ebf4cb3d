// Package canvas adapts committed diagram snapshots to an interactive
// drawing surface. The adapter keeps a working copy that the surface edits
// freely and reports every resulting graph upward through one callback.
package canvas

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"c4arch/diagram"
)

var (
	// ErrIncompleteConnection is returned when a drawn connection lacks a
	// source or target.
	ErrIncompleteConnection = errors.New("connection needs a source and a target")
	// ErrUnknownElement is returned for deltas naming elements that are not
	// in the working copy.
	ErrUnknownElement = errors.New("unknown element")
	// ErrReadOnly is returned for edits while an image is displayed.
	ErrReadOnly = errors.New("canvas is showing an image")
)

// ChangeFunc receives the full working copy after each interaction.
type ChangeFunc func(nodes []diagram.Entity, edges []diagram.Relation)

// NodeChangeKind identifies a node delta.
type NodeChangeKind int

const (
	NodePosition NodeChangeKind = iota
	NodeDimensions
	NodeRemove
)

func (k NodeChangeKind) String() string {
	switch k {
	case NodePosition:
		return "position"
	case NodeDimensions:
		return "dimensions"
	case NodeRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// NodeChange is one node delta reported by the drawing surface.
type NodeChange struct {
	Kind     NodeChangeKind
	ID       string
	Position diagram.Point // NodePosition
	Size     diagram.Size  // NodeDimensions
}

// EdgeChange is one edge delta. Removal is the only edge delta.
type EdgeChange struct {
	ID string
}

// Connection is a link drawn on the surface.
type Connection struct {
	Source string
	Target string
}

// Adapter holds the working copy of one diagram.
type Adapter struct {
	mu sync.Mutex

	source *diagram.Snapshot // last snapshot received through SetSnapshot
	nodes  []diagram.Entity
	edges  []diagram.Relation

	img imageView

	onChange ChangeFunc
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock sets the time source for relation ids.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAdapter creates an empty adapter. onChange may be nil.
func NewAdapter(onChange ChangeFunc, opts ...Option) *Adapter {
	a := &Adapter{
		nodes:    []diagram.Entity{},
		edges:    []diagram.Relation{},
		onChange: onChange,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetOnChange replaces the change callback.
func (a *Adapter) SetOnChange(fn ChangeFunc) {
	a.mu.Lock()
	a.onChange = fn
	a.mu.Unlock()
}

// SetSnapshot replaces the working copy when s is a different snapshot from
// the one last supplied. It reports whether a replace happened. Passing the
// same pointer again keeps local edits.
func (a *Adapter) SetSnapshot(s *diagram.Snapshot) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if s == a.source {
		return false
	}
	a.source = s
	a.nodes = []diagram.Entity{}
	a.edges = []diagram.Relation{}
	if s != nil {
		a.nodes = append(a.nodes, s.Nodes...)
		a.edges = append(a.edges, s.Edges...)
	}
	return true
}

// Nodes returns a copy of the working nodes.
func (a *Adapter) Nodes() []diagram.Entity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]diagram.Entity{}, a.nodes...)
}

// Edges returns a copy of the working edges.
func (a *Adapter) Edges() []diagram.Relation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]diagram.Relation{}, a.edges...)
}

// ApplyNodeChanges applies node deltas in order and reports the result.
// If any change names an unknown node nothing is applied.
func (a *Adapter) ApplyNodeChanges(changes ...NodeChange) error {
	a.mu.Lock()
	if err := a.writable(); err != nil {
		a.mu.Unlock()
		return err
	}

	index := make(map[string]int, len(a.nodes))
	for i, n := range a.nodes {
		index[n.ID] = i
	}
	for _, c := range changes {
		if _, ok := index[c.ID]; !ok {
			a.mu.Unlock()
			return fmt.Errorf("%w: node %q", ErrUnknownElement, c.ID)
		}
	}

	nodes := append([]diagram.Entity{}, a.nodes...)
	removed := map[string]bool{}
	for _, c := range changes {
		if removed[c.ID] {
			continue
		}
		i := index[c.ID]
		switch c.Kind {
		case NodePosition:
			nodes[i].Position = c.Position
		case NodeDimensions:
			nodes[i].Style = c.Size
		case NodeRemove:
			removed[c.ID] = true
		}
	}

	if len(removed) > 0 {
		kept := nodes[:0]
		for _, n := range nodes {
			if !removed[n.ID] {
				kept = append(kept, n)
			}
		}
		nodes = kept
	}
	a.nodes = nodes
	a.edges = diagram.PruneDangling(a.nodes, a.edges)

	a.logger.Debug("node changes applied", "count", len(changes), "removed", len(removed))
	a.emitLocked()
	return nil
}

// ApplyEdgeChanges removes the named edges and reports the result. If any
// change names an unknown edge nothing is applied.
func (a *Adapter) ApplyEdgeChanges(changes ...EdgeChange) error {
	a.mu.Lock()
	if err := a.writable(); err != nil {
		a.mu.Unlock()
		return err
	}

	drop := make(map[string]bool, len(changes))
	for _, c := range changes {
		found := false
		for _, e := range a.edges {
			if e.ID == c.ID {
				found = true
				break
			}
		}
		if !found {
			a.mu.Unlock()
			return fmt.Errorf("%w: edge %q", ErrUnknownElement, c.ID)
		}
		drop[c.ID] = true
	}

	edges := make([]diagram.Relation, 0, len(a.edges))
	for _, e := range a.edges {
		if !drop[e.ID] {
			edges = append(edges, e)
		}
	}
	a.edges = edges

	a.emitLocked()
	return nil
}

// Connect adds an animated "uses" relation for a connection drawn on the
// surface and reports the result.
func (a *Adapter) Connect(c Connection) (diagram.Relation, error) {
	if c.Source == "" || c.Target == "" {
		return diagram.Relation{}, ErrIncompleteConnection
	}

	a.mu.Lock()
	if err := a.writable(); err != nil {
		a.mu.Unlock()
		return diagram.Relation{}, err
	}

	working := &diagram.Snapshot{Nodes: a.nodes, Edges: a.edges}
	for _, id := range []string{c.Source, c.Target} {
		if !working.HasEntity(id) {
			a.mu.Unlock()
			return diagram.Relation{}, fmt.Errorf("%w: node %q", ErrUnknownElement, id)
		}
	}

	r := diagram.Relation{
		ID:       diagram.RelationID(working, c.Source, c.Target, a.now()),
		Source:   c.Source,
		Target:   c.Target,
		Label:    diagram.DefaultRelationLabel,
		Animated: true,
	}
	a.edges = append(append([]diagram.Relation{}, a.edges...), r)

	a.emitLocked()
	return r, nil
}

// emitLocked releases the lock and calls onChange with copies of the
// working copy.
func (a *Adapter) emitLocked() {
	fn := a.onChange
	nodes := append([]diagram.Entity{}, a.nodes...)
	edges := append([]diagram.Relation{}, a.edges...)
	a.mu.Unlock()

	if fn != nil {
		fn(nodes, edges)
	}
}

func (a *Adapter) writable() error {
	if a.img.active {
		return ErrReadOnly
	}
	return nil
}
