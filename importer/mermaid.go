package importer

import (
	"fmt"
	"regexp"
	"strings"

	"c4arch/diagram"
)

// MermaidImporter imports Mermaid flowcharts
type MermaidImporter struct{}

// NewMermaidImporter creates a new Mermaid importer
func NewMermaidImporter() *MermaidImporter {
	return &MermaidImporter{}
}

var (
	// id followed by a shape: ([..]) [(..)] [/../] {{..}} (..) [..]
	nodePattern = regexp.MustCompile(`^(\w+)\s*(\(\[|\[\(|\[/|\{\{|\(|\[)(.*?)(\]\)|\)\]|/\]|\}\}|\)|\])$`)
	edgePattern = regexp.MustCompile(`^(\w+)\s*-->\s*(?:\|([^|]*)\|\s*)?(\w+)$`)
	typeLine    = regexp.MustCompile(`<br/>\[([A-Za-z ]+)\]$`)
)

// shapeTypes infers an entity type from a node shape when the label has
// no type line.
var shapeTypes = map[string]diagram.EntityType{
	"([": diagram.Actor,
	"[(": diagram.Database,
	"[/": diagram.Queue,
	"{{": diagram.ExternalSystem,
	"(":  diagram.Verb,
	"[":  diagram.Component,
}

// CanImport checks if the content is a Mermaid flowchart
func (m *MermaidImporter) CanImport(content string) bool {
	content = strings.TrimSpace(content)
	return strings.HasPrefix(content, "flowchart ") || strings.HasPrefix(content, "graph ")
}

// Import converts a Mermaid flowchart to a snapshot. Nodes only named by an
// edge become COMPONENT entities labelled with their id. Class and style
// lines are skipped.
func (m *MermaidImporter) Import(content string) (*diagram.Snapshot, error) {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) == 0 || !m.CanImport(lines[0]) {
		return nil, fmt.Errorf("unsupported Mermaid diagram type")
	}

	b := newBuilder()
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%%") ||
			strings.HasPrefix(line, "classDef ") || strings.HasPrefix(line, "class ") ||
			strings.HasPrefix(line, "style ") || strings.HasPrefix(line, "linkStyle ") {
			continue
		}

		if match := edgePattern.FindStringSubmatch(line); match != nil {
			b.entity(match[1], "", diagram.Component)
			b.entity(match[3], "", diagram.Component)
			b.relation(match[1], match[3], unescapeMermaid(strings.TrimSpace(match[2])))
			continue
		}
		if match := nodePattern.FindStringSubmatch(line); match != nil {
			label, t := m.parseLabel(match[3], shapeTypes[match[2]])
			b.entity(match[1], label, t)
		}
	}

	if len(b.snapshot.Nodes) == 0 {
		return nil, fmt.Errorf("no nodes found")
	}
	return b.snapshot, nil
}

// parseLabel strips quotes, decodes entities and splits off a trailing
// "[Type Name]" line.
func (m *MermaidImporter) parseLabel(raw string, fallback diagram.EntityType) (string, diagram.EntityType) {
	label := strings.Trim(strings.TrimSpace(raw), `"`)
	t := fallback
	if match := typeLine.FindStringSubmatch(label); match != nil {
		candidate := diagram.EntityType(strings.ToUpper(strings.ReplaceAll(match[1], " ", "_")))
		if candidate.Valid() {
			t = candidate
			label = strings.TrimSuffix(label, match[0])
		}
	}
	return unescapeMermaid(label), t
}

func unescapeMermaid(s string) string {
	s = strings.ReplaceAll(s, "#quot;", `"`)
	s = strings.ReplaceAll(s, "#124;", "|")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	return s
}

// GetFormatName returns the format name
func (m *MermaidImporter) GetFormatName() string {
	return "Mermaid"
}

// GetFileExtensions returns common file extensions
func (m *MermaidImporter) GetFileExtensions() []string {
	return []string{".mmd", ".mermaid"}
}
