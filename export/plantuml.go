package export

import (
	"fmt"
	"strings"

	"c4arch/diagram"
)

// C4Include pulls in the C4-PlantUML container macros.
const C4Include = "!include https://raw.githubusercontent.com/plantuml-stdlib/C4-PlantUML/master/C4_Container.puml"

// PlantUMLExporter exports snapshots to C4-PlantUML syntax
type PlantUMLExporter struct{}

// NewPlantUMLExporter creates a new PlantUML exporter
func NewPlantUMLExporter() *PlantUMLExporter {
	return &PlantUMLExporter{}
}

// Export converts the snapshot to C4-PlantUML code
func (e *PlantUMLExporter) Export(s *diagram.Snapshot) ([]byte, error) {
	if err := checkSnapshot(s); err != nil {
		return nil, err
	}

	ids := identifiers(s.Nodes)

	var sb strings.Builder
	sb.WriteString("@startuml\n")
	sb.WriteString(C4Include + "\n\n")
	sb.WriteString("LAYOUT_WITH_LEGEND()\n\n")

	for _, n := range s.Nodes {
		sb.WriteString(fmt.Sprintf("%s(%s, %s)\n", macroFor(n.EntityType), ids[n.ID], quote(n.Label)))
	}

	if len(s.Edges) > 0 {
		sb.WriteString("\n")
	}
	for _, r := range s.Edges {
		from, ok := ids[r.Source]
		if !ok {
			continue
		}
		to, ok := ids[r.Target]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("Rel(%s, %s, %s)\n", from, to, quote(r.Label)))
	}

	sb.WriteString("@enduml\n")
	return []byte(sb.String()), nil
}

// macroFor returns the C4-PlantUML element macro for an entity type
func macroFor(t diagram.EntityType) string {
	switch t {
	case diagram.System:
		return "System"
	case diagram.Container:
		return "Container"
	case diagram.Actor:
		return "Person"
	case diagram.ExternalSystem:
		return "System_Ext"
	case diagram.Database:
		return "ContainerDb"
	case diagram.Queue:
		return "ContainerQueue"
	default:
		return "Component"
	}
}

// quote produces a PlantUML string literal. Newlines become \n.
func quote(s string) string {
	s = strings.ReplaceAll(s, `"`, `'`)
	s = strings.ReplaceAll(s, "\r\n", `\n`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return `"` + s + `"`
}

// GetFileExtension returns the file extension for PlantUML
func (e *PlantUMLExporter) GetFileExtension() string {
	return ".puml"
}

// GetFormatName returns the format name
func (e *PlantUMLExporter) GetFormatName() string {
	return "C4-PlantUML"
}

// GetContentType returns the MIME type
func (e *PlantUMLExporter) GetContentType() string {
	return "text/plain; charset=utf-8"
}
