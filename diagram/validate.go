package diagram

import (
	"errors"
	"fmt"
)

// ErrInvalidSnapshot marks payloads that break the snapshot invariants.
var ErrInvalidSnapshot = errors.New("invalid diagram snapshot")

// ValidationError describes one broken invariant.
type ValidationError struct {
	Kind    string // "entity" or "relation"
	ID      string
	Message string
}

func (v ValidationError) Error() string {
	if v.ID == "" {
		return fmt.Sprintf("%s: %s", v.Kind, v.Message)
	}
	return fmt.Sprintf("%s %q: %s", v.Kind, v.ID, v.Message)
}

// Validate checks entity id presence and uniqueness, relation id uniqueness,
// and that every relation endpoint exists. All problems are reported together.
func Validate(s *Snapshot) error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrInvalidSnapshot)
	}

	var errs []error
	entities := make(map[string]bool, len(s.Nodes))
	for i, e := range s.Nodes {
		if e.ID == "" {
			errs = append(errs, ValidationError{Kind: "entity", Message: fmt.Sprintf("entity at index %d has no id", i)})
			continue
		}
		if entities[e.ID] {
			errs = append(errs, ValidationError{Kind: "entity", ID: e.ID, Message: "duplicate id"})
		}
		entities[e.ID] = true
	}

	relations := make(map[string]bool, len(s.Edges))
	for _, r := range s.Edges {
		if r.ID != "" && relations[r.ID] {
			errs = append(errs, ValidationError{Kind: "relation", ID: r.ID, Message: "duplicate id"})
		}
		relations[r.ID] = true
		if !entities[r.Source] {
			errs = append(errs, ValidationError{Kind: "relation", ID: r.ID, Message: fmt.Sprintf("source %q not found", r.Source)})
		}
		if !entities[r.Target] {
			errs = append(errs, ValidationError{Kind: "relation", ID: r.ID, Message: fmt.Sprintf("target %q not found", r.Target)})
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, errors.Join(errs...))
	}
	return nil
}

// Normalize repairs the soft problems of a decoded payload in place: unknown
// or missing entity types become COMPONENT and relations without a unique id
// get one. It returns a note per repair so callers can log them.
func Normalize(s *Snapshot) []string {
	if s == nil {
		return nil
	}
	var notes []string
	if s.Nodes == nil {
		s.Nodes = []Entity{}
	}
	if s.Edges == nil {
		s.Edges = []Relation{}
	}
	for i := range s.Nodes {
		e := &s.Nodes[i]
		if !e.EntityType.Valid() {
			notes = append(notes, fmt.Sprintf("entity %q: type %q mapped to %s", e.ID, e.EntityType, Component))
			e.EntityType = Component
		}
	}
	EnsureUniqueRelationIDs(s)
	return notes
}
