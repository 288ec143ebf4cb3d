// Package layout provides algorithms for positioning entities in 2D space.
package layout

import "c4arch/diagram"

// Engine positions entities and returns the resulting snapshot.
// The input slices are not modified.
type Engine interface {
	Layout(entities []diagram.Entity, relations []diagram.Relation) *diagram.Snapshot

	// Name returns the name of this layout algorithm.
	Name() string
}
