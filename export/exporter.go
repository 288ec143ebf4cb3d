// Package export renders diagram snapshots to text and image formats
package export

import (
	"errors"
	"fmt"
	"strings"

	"c4arch/diagram"
)

// ErrEmptyDiagram is returned when there is nothing to export.
var ErrEmptyDiagram = errors.New("diagram has no nodes")

// Format represents an export format
type Format string

const (
	// FormatPlantUML exports to C4-PlantUML syntax
	FormatPlantUML Format = "plantuml"
	// FormatMermaid exports to Mermaid flowchart syntax
	FormatMermaid Format = "mermaid"
	// FormatJSON exports the wire shape, indented
	FormatJSON Format = "json"
	// FormatPNG renders a raster image
	FormatPNG Format = "png"
)

// Exporter interface for different export formats
type Exporter interface {
	// Export converts a snapshot to the target format
	Export(s *diagram.Snapshot) ([]byte, error)
	// GetFileExtension returns the recommended file extension for this format
	GetFileExtension() string
	// GetFormatName returns a human-readable name for this format
	GetFormatName() string
	// GetContentType returns the MIME type of the output
	GetContentType() string
}

// NewExporter creates an exporter for the specified format
func NewExporter(format Format) (Exporter, error) {
	switch format {
	case FormatPlantUML:
		return NewPlantUMLExporter(), nil
	case FormatMermaid:
		return NewMermaidExporter(), nil
	case FormatJSON:
		return NewJSONExporter(), nil
	case FormatPNG:
		return NewPNGExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// ParseFormat converts a string to a Format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plantuml", "puml", "c4":
		return FormatPlantUML, nil
	case "mermaid", "mmd":
		return FormatMermaid, nil
	case "json":
		return FormatJSON, nil
	case "png", "image":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}

// GetAvailableFormats returns a list of all available export formats
func GetAvailableFormats() []Format {
	return []Format{
		FormatPlantUML,
		FormatMermaid,
		FormatJSON,
		FormatPNG,
	}
}

// GetFormatDescriptions returns human-readable descriptions of all formats
func GetFormatDescriptions() map[Format]string {
	return map[Format]string{
		FormatPlantUML: "C4-PlantUML diagram code",
		FormatMermaid:  "Mermaid flowchart (for Markdown)",
		FormatJSON:     "Nodes and edges as JSON",
		FormatPNG:      "PNG image",
	}
}

func checkSnapshot(s *diagram.Snapshot) error {
	if s == nil || len(s.Nodes) == 0 {
		return ErrEmptyDiagram
	}
	return nil
}

// identifiers maps entity ids to identifiers safe for PlantUML and Mermaid.
// Collisions after sanitising get a numeric suffix.
func identifiers(nodes []diagram.Entity) map[string]string {
	ids := make(map[string]string, len(nodes))
	used := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		base := sanitizeID(n.ID)
		id := base
		for i := 2; used[id]; i++ {
			id = fmt.Sprintf("%s_%d", base, i)
		}
		used[id] = true
		ids[n.ID] = id
	}
	return ids
}

func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" || (out[0] >= '0' && out[0] <= '9') {
		out = "n_" + out
	}
	return out
}
