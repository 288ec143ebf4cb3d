// Package diagram contains the fundamental types shared by every c4arch surface.
package diagram

import "slices"

// EntityType is the C4 role of an entity.
type EntityType string

// Entity type constants
const (
	System         EntityType = "SYSTEM"
	Container      EntityType = "CONTAINER"
	Component      EntityType = "COMPONENT"
	Actor          EntityType = "ACTOR"
	ExternalSystem EntityType = "EXTERNAL_SYSTEM"
	Database       EntityType = "DATABASE"
	Queue          EntityType = "QUEUE"
	Verb           EntityType = "VERB"
)

// EntityTypes lists every known entity type in display order.
var EntityTypes = []EntityType{System, Container, Component, Actor, ExternalSystem, Database, Queue, Verb}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Level returns the C4 abstraction level for the type (1 = system context).
func (t EntityType) Level() int {
	switch t {
	case System, ExternalSystem, Actor:
		return 1
	case Container, Database, Queue:
		return 2
	case Component:
		return 3
	case Verb:
		return 4
	default:
		return 0
	}
}

// RelationTypes is the relation vocabulary used by the remote service.
var RelationTypes = []string{
	"uses", "contains", "stores_in", "produces", "retrieves_from",
	"triggers", "monitors", "delivers_to", "depends_on", "communicates_with", "interacts_with",
}

// DefaultRelationLabel is used for relations drawn interactively.
const DefaultRelationLabel = "uses"

// Point is a canvas position in pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the rendered size of an entity.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Entity is a box on the diagram.
type Entity struct {
	ID         string
	Position   Point
	Label      string
	EntityType EntityType
	Style      Size
	Level      int    // C4 level as reported by the remote service, 0 when unknown
	Parent     string // Enclosing entity id, if any
}

// Relation is a directed, labeled link between two entities.
type Relation struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Label    string `json:"label"`
	Animated bool   `json:"animated"`
}

// Touches reports whether the relation starts or ends at the entity.
func (r Relation) Touches(entityID string) bool {
	return r.Source == entityID || r.Target == entityID
}

// Snapshot is one complete state of the diagram. Snapshots pushed to history
// are never modified; every edit builds a new one.
type Snapshot struct {
	Nodes []Entity   `json:"nodes"`
	Edges []Relation `json:"edges"`
}

// Empty returns a snapshot with no entities or relations.
func Empty() *Snapshot {
	return &Snapshot{Nodes: []Entity{}, Edges: []Relation{}}
}

// Clone creates a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	clone := &Snapshot{
		Nodes: make([]Entity, len(s.Nodes)),
		Edges: make([]Relation, len(s.Edges)),
	}
	copy(clone.Nodes, s.Nodes)
	copy(clone.Edges, s.Edges)
	return clone
}

// Equal reports whether two snapshots hold the same entities and relations
// in the same order.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	return slices.Equal(s.Nodes, other.Nodes) && slices.Equal(s.Edges, other.Edges)
}

// Entity returns the entity with the given id.
func (s *Snapshot) Entity(id string) (Entity, bool) {
	if s == nil {
		return Entity{}, false
	}
	for _, e := range s.Nodes {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}

// HasEntity reports whether an entity with the id exists.
func (s *Snapshot) HasEntity(id string) bool {
	_, ok := s.Entity(id)
	return ok
}

// HasRelation reports whether a relation with the id exists.
func (s *Snapshot) HasRelation(id string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Edges {
		if r.ID == id {
			return true
		}
	}
	return false
}

// WithoutEntity returns a new snapshot lacking the entity and every relation
// that references it.
func (s *Snapshot) WithoutEntity(id string) *Snapshot {
	out := Empty()
	if s == nil {
		return out
	}
	for _, e := range s.Nodes {
		if e.ID != id {
			out.Nodes = append(out.Nodes, e)
		}
	}
	for _, r := range s.Edges {
		if !r.Touches(id) {
			out.Edges = append(out.Edges, r)
		}
	}
	return out
}

// PruneDangling drops relations whose endpoints are missing from nodes.
func PruneDangling(nodes []Entity, edges []Relation) []Relation {
	present := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}
	kept := make([]Relation, 0, len(edges))
	for _, r := range edges {
		if present[r.Source] && present[r.Target] {
			kept = append(kept, r)
		}
	}
	return kept
}
