// Package importer reads diagram code back into snapshots. It understands
// the text formats the export package writes.
package importer

import (
	"errors"
	"fmt"
	"strings"

	"c4arch/diagram"
)

// ErrUnknownFormat is returned when no importer accepts the content.
var ErrUnknownFormat = errors.New("unable to detect format")

// Importer interface defines methods for importing diagrams from various formats
type Importer interface {
	// CanImport checks if the given content can be imported by this importer
	CanImport(content string) bool

	// Import converts the input content into a snapshot without positions
	Import(content string) (*diagram.Snapshot, error)

	// GetFormatName returns the human-readable name of the format
	GetFormatName() string

	// GetFileExtensions returns common file extensions for this format
	GetFileExtensions() []string
}

// Registry manages available importers
type Registry struct {
	importers []Importer
}

// NewRegistry creates a registry with the C4-PlantUML and Mermaid importers
func NewRegistry() *Registry {
	return &Registry{
		importers: []Importer{
			NewPlantUMLImporter(),
			NewMermaidImporter(),
		},
	}
}

// Register adds a new importer to the registry
func (r *Registry) Register(importer Importer) {
	r.importers = append(r.importers, importer)
}

// DetectFormat attempts to detect the format of the given content
func (r *Registry) DetectFormat(content string) (Importer, error) {
	for _, imp := range r.importers {
		if imp.CanImport(content) {
			return imp, nil
		}
	}
	return nil, ErrUnknownFormat
}

// Import attempts to import content using auto-detection
func (r *Registry) Import(content string) (*diagram.Snapshot, error) {
	importer, err := r.DetectFormat(content)
	if err != nil {
		return nil, err
	}
	return finish(importer.Import(content))
}

// ImportWithFormat imports content using a specific format. The format is
// matched against format names and file extensions.
func (r *Registry) ImportWithFormat(content, format string) (*diagram.Snapshot, error) {
	format = strings.ToLower(strings.TrimSpace(format))

	for _, imp := range r.importers {
		if strings.ToLower(imp.GetFormatName()) == format {
			return finish(imp.Import(content))
		}
		for _, ext := range imp.GetFileExtensions() {
			if strings.TrimPrefix(ext, ".") == strings.TrimPrefix(format, ".") {
				return finish(imp.Import(content))
			}
		}
	}

	return nil, fmt.Errorf("%w: unknown format %q", ErrUnknownFormat, format)
}

// GetAvailableFormats returns a list of available import formats
func (r *Registry) GetAvailableFormats() []string {
	formats := make([]string, len(r.importers))
	for i, imp := range r.importers {
		formats[i] = imp.GetFormatName()
	}
	return formats
}

// finish repairs relation ids and rejects dangling relations.
func finish(s *diagram.Snapshot, err error) (*diagram.Snapshot, error) {
	if err != nil {
		return nil, err
	}
	diagram.Normalize(s)
	if err := diagram.Validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

// builder collects entities in declaration order.
type builder struct {
	snapshot *diagram.Snapshot
	seen     map[string]bool
}

func newBuilder() *builder {
	return &builder{snapshot: diagram.Empty(), seen: map[string]bool{}}
}

func (b *builder) entity(id, label string, t diagram.EntityType) {
	if b.seen[id] {
		return
	}
	b.seen[id] = true
	if label == "" {
		label = id
	}
	b.snapshot.Nodes = append(b.snapshot.Nodes, diagram.Entity{ID: id, Label: label, EntityType: t})
}

func (b *builder) relation(source, target, label string) {
	b.snapshot.Edges = append(b.snapshot.Edges, diagram.Relation{
		ID:     fmt.Sprintf("e%d", len(b.snapshot.Edges)+1),
		Source: source,
		Target: target,
		Label:  label,
	})
}
