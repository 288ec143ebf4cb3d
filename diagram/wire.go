package diagram

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// nodeType is the renderer node kind the remote service and browser expect.
const nodeType = "c4"

// wireEntity accepts both the nested renderer shape ({data:{label,...}}) and
// the flat shape ({label, entityType}).
type wireEntity struct {
	ID         string         `json:"id"`
	Type       string         `json:"type,omitempty"`
	Position   *Point         `json:"position,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Label      string         `json:"label,omitempty"`
	EntityType string         `json:"entityType,omitempty"`
	Level      int            `json:"level,omitempty"`
	Parent     string         `json:"parent,omitempty"`
	Style      *Size          `json:"style,omitempty"`
}

// entityData is the free-form "data" block of a renderer node.
type entityData struct {
	Label      string `mapstructure:"label" json:"label"`
	EntityType string `mapstructure:"entityType" json:"entityType"`
	Level      int    `mapstructure:"level" json:"level,omitempty"`
	Parent     string `mapstructure:"parent" json:"parent,omitempty"`
}

type encodedEntity struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Position Point      `json:"position"`
	Data     entityData `json:"data"`
	Style    *Size      `json:"style,omitempty"`
}

// MarshalJSON encodes the entity in the renderer node shape.
func (e Entity) MarshalJSON() ([]byte, error) {
	out := encodedEntity{
		ID:       e.ID,
		Type:     nodeType,
		Position: e.Position,
		Data: entityData{
			Label:      e.Label,
			EntityType: string(e.EntityType),
			Level:      e.Level,
			Parent:     e.Parent,
		},
	}
	if e.Style != (Size{}) {
		style := e.Style
		out.Style = &style
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes either entity shape. Values under "data" win over
// flat fields.
func (e *Entity) UnmarshalJSON(b []byte) error {
	var w wireEntity
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	decoded := Entity{
		ID:         w.ID,
		Label:      w.Label,
		EntityType: EntityType(strings.ToUpper(w.EntityType)),
		Level:      w.Level,
		Parent:     w.Parent,
	}
	if w.Position != nil {
		decoded.Position = *w.Position
	}
	if w.Style != nil {
		decoded.Style = *w.Style
	}

	if len(w.Data) > 0 {
		var data entityData
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &data,
		})
		if err != nil {
			return err
		}
		if err := decoder.Decode(w.Data); err != nil {
			return fmt.Errorf("entity %q: invalid data block: %w", w.ID, err)
		}
		if data.Label != "" {
			decoded.Label = data.Label
		}
		if data.EntityType != "" {
			decoded.EntityType = EntityType(strings.ToUpper(data.EntityType))
		}
		if data.Level != 0 {
			decoded.Level = data.Level
		}
		if data.Parent != "" {
			decoded.Parent = data.Parent
		}
	}

	*e = decoded
	return nil
}
