package editor

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"c4arch/diagram"
)

// ErrInvalidAction is returned by DecodeAction for malformed requests.
var ErrInvalidAction = errors.New("invalid action")

// Action is a state transition accepted by Dispatch.
type Action interface {
	// Kind returns the action name used on the wire.
	Kind() string
}

// Actions accepted by Dispatch.
type (
	Commit struct {
		Snapshot *diagram.Snapshot
		Source   Source
	}
	Undo    struct{}
	Redo    struct{}
	Reset   struct{}
	AddNode struct{}

	DeleteEntity struct {
		ID string `mapstructure:"id"`
	}
	UpdateLabel struct {
		ID    string `mapstructure:"id"`
		Label string `mapstructure:"label"`
	}
	AddConnection struct {
		Source string `mapstructure:"source"`
		Target string `mapstructure:"target"`
		Label  string `mapstructure:"label"`
	}
	SetMode struct {
		Mode Mode
	}
	ClickEntity struct {
		ID string `mapstructure:"id"`
	}
	SetConnectionType struct {
		Type string `mapstructure:"connectionType"`
	}
	CancelEdit   struct{}
	ReplaceGraph struct {
		Nodes []diagram.Entity
		Edges []diagram.Relation
	}
)

func (Commit) Kind() string            { return "commit" }
func (Undo) Kind() string              { return "undo" }
func (Redo) Kind() string              { return "redo" }
func (Reset) Kind() string             { return "reset" }
func (AddNode) Kind() string           { return "addNode" }
func (DeleteEntity) Kind() string      { return "deleteEntity" }
func (UpdateLabel) Kind() string       { return "updateLabel" }
func (AddConnection) Kind() string     { return "addConnection" }
func (SetMode) Kind() string           { return "setMode" }
func (ClickEntity) Kind() string       { return "clickEntity" }
func (SetConnectionType) Kind() string { return "setConnectionType" }
func (CancelEdit) Kind() string        { return "cancelEdit" }
func (ReplaceGraph) Kind() string      { return "replaceGraph" }

// Dispatch applies one action. Every action maps onto exactly one
// Orchestrator method.
func (o *Orchestrator) Dispatch(a Action) error {
	o.logger.Debug("dispatch", "action", a.Kind())

	switch a := a.(type) {
	case Commit:
		source := a.Source
		if source == "" {
			source = SourceRemote
		}
		o.commit(source, a.Snapshot)
	case Undo:
		o.Undo()
	case Redo:
		o.Redo()
	case Reset:
		o.Reset()
	case AddNode:
		o.AddNode()
	case DeleteEntity:
		return o.DeleteSelected(a.ID)
	case UpdateLabel:
		return o.UpdateLabel(a.ID, a.Label)
	case AddConnection:
		_, err := o.AddConnection(a.Source, a.Target, a.Label)
		return err
	case SetMode:
		o.SetMode(a.Mode)
	case ClickEntity:
		return o.ClickEntity(a.ID)
	case SetConnectionType:
		o.SetConnectionType(a.Type)
	case CancelEdit:
		o.CancelEdit()
	case ReplaceGraph:
		o.ReplaceGraph(a.Nodes, a.Edges)
	default:
		return fmt.Errorf("unsupported action %T", a)
	}
	return nil
}

// DecodeAction builds an Action from a loosely typed request body such as
// {"type": "updateLabel", "id": "n1", "label": "API"}. Snapshot-carrying
// actions are not accepted here.
func DecodeAction(fields map[string]any) (Action, error) {
	kind, _ := fields["type"].(string)

	var target Action
	switch kind {
	case "undo":
		return Undo{}, nil
	case "redo":
		return Redo{}, nil
	case "reset":
		return Reset{}, nil
	case "addNode":
		return AddNode{}, nil
	case "cancelEdit":
		return CancelEdit{}, nil
	case "setMode":
		name, _ := fields["mode"].(string)
		m, err := ParseMode(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidAction, err)
		}
		return SetMode{Mode: m}, nil
	case "deleteEntity":
		target = &DeleteEntity{}
	case "updateLabel":
		target = &UpdateLabel{}
	case "addConnection":
		target = &AddConnection{}
	case "clickEntity":
		target = &ClickEntity{}
	case "setConnectionType":
		target = &SetConnectionType{}
	case "":
		return nil, fmt.Errorf("%w: type is required", ErrInvalidAction)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidAction, kind)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(fields); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidAction, kind, err)
	}

	switch a := target.(type) {
	case *DeleteEntity:
		return *a, nil
	case *UpdateLabel:
		return *a, nil
	case *AddConnection:
		return *a, nil
	case *ClickEntity:
		return *a, nil
	case *SetConnectionType:
		return *a, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidAction, kind)
}
