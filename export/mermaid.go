package export

import (
	"fmt"
	"strings"

	"c4arch/diagram"
)

// MermaidExporter exports snapshots to a Mermaid flowchart
type MermaidExporter struct{}

// NewMermaidExporter creates a new Mermaid exporter
func NewMermaidExporter() *MermaidExporter {
	return &MermaidExporter{}
}

// Export converts the snapshot to Mermaid syntax
func (e *MermaidExporter) Export(s *diagram.Snapshot) ([]byte, error) {
	if err := checkSnapshot(s); err != nil {
		return nil, err
	}

	ids := identifiers(s.Nodes)

	var sb strings.Builder
	sb.WriteString("flowchart LR\n")

	used := map[string]bool{}
	for _, n := range s.Nodes {
		label := e.escapeLabel(n.Label) + "<br/>[" + typeName(n.EntityType) + "]"
		sb.WriteString(fmt.Sprintf("    %s%s\n", ids[n.ID], e.formatNodeWithShape(label, n.EntityType)))
		used[e.className(n.EntityType)] = true
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
		if r.Label != "" {
			sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", from, e.escapeLabel(r.Label), to))
		} else {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", from, to))
		}
	}

	// Class definitions follow the C4 palette, only for types present.
	sb.WriteString("\n")
	for _, t := range diagram.EntityTypes {
		name := e.className(t)
		if !used[name] {
			continue
		}
		sb.WriteString(fmt.Sprintf("    classDef %s %s\n", name, e.classStyle(t)))
	}
	for _, n := range s.Nodes {
		sb.WriteString(fmt.Sprintf("    class %s %s\n", ids[n.ID], e.className(n.EntityType)))
	}

	return []byte(sb.String()), nil
}

// formatNodeWithShape wraps a label in the Mermaid shape for the type
func (e *MermaidExporter) formatNodeWithShape(label string, t diagram.EntityType) string {
	switch t {
	case diagram.Actor:
		return fmt.Sprintf("([\"%s\"])", label)
	case diagram.Database:
		return fmt.Sprintf("[(\"%s\")]", label)
	case diagram.Queue:
		return fmt.Sprintf("[/\"%s\"/]", label)
	case diagram.ExternalSystem:
		return fmt.Sprintf("{{\"%s\"}}", label)
	case diagram.Verb:
		return fmt.Sprintf("(\"%s\")", label)
	default:
		return fmt.Sprintf("[\"%s\"]", label)
	}
}

func (e *MermaidExporter) className(t diagram.EntityType) string {
	if t == "" {
		return "component"
	}
	return strings.ToLower(string(t))
}

func (e *MermaidExporter) classStyle(t diagram.EntityType) string {
	fill, text := c4Colors(t)
	return fmt.Sprintf("fill:%s,stroke:#0b3d6e,color:%s", fill, text)
}

// escapeLabel escapes characters Mermaid treats specially inside quotes
func (e *MermaidExporter) escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	s = strings.ReplaceAll(s, "|", "#124;")
	s = strings.ReplaceAll(s, "\n", "<br/>")
	return s
}

// typeName renders an entity type as title case, e.g. "External System"
func typeName(t diagram.EntityType) string {
	words := strings.Split(strings.ToLower(string(t)), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// GetFileExtension returns the file extension for Mermaid
func (e *MermaidExporter) GetFileExtension() string {
	return ".mmd"
}

// GetFormatName returns the format name
func (e *MermaidExporter) GetFormatName() string {
	return "Mermaid"
}

// GetContentType returns the MIME type
func (e *MermaidExporter) GetContentType() string {
	return "text/plain; charset=utf-8"
}
