package editor

import (
	"fmt"

	"c4arch/diagram"
)

// State is the serialisable form of an Orchestrator, used to persist
// sessions. Request tickets are not part of it.
type State struct {
	History          []*diagram.Snapshot `json:"history"`
	Index            int                 `json:"index"`
	Code             string              `json:"code"`
	Mode             Mode                `json:"mode"`
	ConnectionSource string              `json:"connectionSource,omitempty"`
	ConnectionType   string              `json:"connectionType"`
	Selected         string              `json:"selected,omitempty"`
	Editing          string              `json:"editing,omitempty"`
}

// State captures the orchestrator state. Snapshots are shared, not copied.
func (o *Orchestrator) State() State {
	return State{
		History:          o.history.snapshots(),
		Index:            o.history.Index(),
		Code:             o.code,
		Mode:             o.mode,
		ConnectionSource: o.connectionSource,
		ConnectionType:   o.connectionType,
		Selected:         o.selected,
		Editing:          o.editing,
	}
}

// Restore replaces the orchestrator state with st. Every snapshot must be
// valid.
func (o *Orchestrator) Restore(st State) error {
	for i, s := range st.History {
		if err := diagram.Validate(s); err != nil {
			return fmt.Errorf("history entry %d: %w", i, err)
		}
	}

	o.history.restore(st.History, st.Index)
	o.code = st.Code
	o.mode = st.Mode
	o.connectionSource = st.ConnectionSource
	o.connectionType = st.ConnectionType
	if o.connectionType == "" {
		o.connectionType = diagram.DefaultRelationLabel
	}
	o.selected = st.Selected
	o.editing = st.Editing
	o.inFlight = false
	return nil
}
