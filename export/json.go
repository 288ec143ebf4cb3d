package export

import (
	"encoding/json"

	"c4arch/diagram"
)

// JSONExporter exports snapshots in the renderer wire shape
type JSONExporter struct{}

// NewJSONExporter creates a new JSON exporter
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Export converts a snapshot to indented JSON. An empty diagram is valid.
func (e *JSONExporter) Export(s *diagram.Snapshot) ([]byte, error) {
	if s == nil {
		s = diagram.Empty()
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// GetFileExtension returns the file extension for JSON
func (e *JSONExporter) GetFileExtension() string {
	return ".json"
}

// GetFormatName returns the format name
func (e *JSONExporter) GetFormatName() string {
	return "JSON"
}

// GetContentType returns the MIME type
func (e *JSONExporter) GetContentType() string {
	return "application/json"
}
