package diagram

import (
	"fmt"
	"time"
)

// EntityID builds a fresh entity id from the creation time. If the id is
// already taken in s, a numeric suffix is appended until it is unique.
func EntityID(s *Snapshot, at time.Time) string {
	base := fmt.Sprintf("node-%d", at.UnixMilli())
	return uniqueID(base, s.HasEntity)
}

// RelationID builds a relation id encoding source, target and creation time.
// Repeated source/target pairs stay distinct through the timestamp, and a
// numeric suffix covers calls landing in the same millisecond.
func RelationID(s *Snapshot, source, target string, at time.Time) string {
	base := fmt.Sprintf("edge-%s-%s-%d", source, target, at.UnixMilli())
	return uniqueID(base, s.HasRelation)
}

func uniqueID(base string, taken func(string) bool) string {
	id := base
	for n := 1; taken(id); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

// EnsureUniqueRelationIDs fills in missing relation ids and renames
// duplicates. Relations keep their order; the first holder of an id keeps it.
func EnsureUniqueRelationIDs(s *Snapshot) {
	if s == nil || len(s.Edges) == 0 {
		return
	}

	used := make(map[string]bool, len(s.Edges))
	for i := range s.Edges {
		r := &s.Edges[i]
		if r.ID == "" {
			r.ID = fmt.Sprintf("edge-%s-%s", r.Source, r.Target)
		}
		if used[r.ID] {
			r.ID = uniqueID(r.ID, func(id string) bool { return used[id] })
		}
		used[r.ID] = true
	}
}
