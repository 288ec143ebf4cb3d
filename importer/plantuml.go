package importer

import (
	"fmt"
	"regexp"
	"strings"

	"c4arch/diagram"
)

// PlantUMLImporter imports C4-PlantUML element and relation macros
type PlantUMLImporter struct{}

// NewPlantUMLImporter creates a new PlantUML importer
func NewPlantUMLImporter() *PlantUMLImporter {
	return &PlantUMLImporter{}
}

var (
	elementPattern  = regexp.MustCompile(`^(\w+)\(\s*([\w.]+)\s*,\s*"([^"]*)"`)
	relationPattern = regexp.MustCompile(`^(Rel|BiRel|Rel_\w+)\(\s*([\w.]+)\s*,\s*([\w.]+)\s*(?:,\s*"([^"]*)")?`)
)

// macroTypes maps C4-PlantUML element macros to entity types.
var macroTypes = map[string]diagram.EntityType{
	"Person":          diagram.Actor,
	"Person_Ext":      diagram.Actor,
	"System":          diagram.System,
	"System_Ext":      diagram.ExternalSystem,
	"SystemDb_Ext":    diagram.ExternalSystem,
	"SystemQueue_Ext": diagram.ExternalSystem,
	"SystemDb":        diagram.Database,
	"SystemQueue":     diagram.Queue,
	"Container":       diagram.Container,
	"Container_Ext":   diagram.ExternalSystem,
	"ContainerDb":     diagram.Database,
	"ContainerQueue":  diagram.Queue,
	"Component":       diagram.Component,
	"Component_Ext":   diagram.ExternalSystem,
	"ComponentDb":     diagram.Database,
	"ComponentQueue":  diagram.Queue,
}

// CanImport checks if the content is a C4-PlantUML diagram
func (p *PlantUMLImporter) CanImport(content string) bool {
	content = strings.TrimSpace(content)
	return strings.HasPrefix(content, "@startuml") && strings.Contains(content, "C4")
}

// Import converts C4-PlantUML to a snapshot. Boundaries, includes and
// layout directives are skipped. Relations are resolved after all elements
// are read; Rel_Back points from its second argument to its first.
func (p *PlantUMLImporter) Import(content string) (*diagram.Snapshot, error) {
	b := newBuilder()

	type rel struct {
		line                  int
		source, target, label string
		reverse               bool
	}
	var rels []rel

	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "'") || strings.HasPrefix(line, "@") || strings.HasPrefix(line, "!") {
			continue
		}

		if m := relationPattern.FindStringSubmatch(line); m != nil {
			rels = append(rels, rel{
				line:    i + 1,
				source:  m[2],
				target:  m[3],
				label:   strings.ReplaceAll(m[4], `\n`, "\n"),
				reverse: m[1] == "Rel_Back",
			})
			continue
		}
		if m := elementPattern.FindStringSubmatch(line); m != nil {
			t, ok := macroTypes[m[1]]
			if !ok {
				continue
			}
			b.entity(m[2], strings.ReplaceAll(m[3], `\n`, "\n"), t)
		}
	}

	if len(b.snapshot.Nodes) == 0 {
		return nil, fmt.Errorf("no C4 elements found")
	}
	for _, r := range rels {
		if !b.seen[r.source] || !b.seen[r.target] {
			return nil, fmt.Errorf("line %d: relation %s -> %s references an undeclared element", r.line, r.source, r.target)
		}
		if r.reverse {
			r.source, r.target = r.target, r.source
		}
		b.relation(r.source, r.target, r.label)
	}
	return b.snapshot, nil
}

// GetFormatName returns the format name
func (p *PlantUMLImporter) GetFormatName() string {
	return "PlantUML"
}

// GetFileExtensions returns common file extensions
func (p *PlantUMLImporter) GetFileExtensions() []string {
	return []string{".puml", ".plantuml", ".pu"}
}
