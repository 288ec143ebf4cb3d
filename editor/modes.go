package editor

import "fmt"

// Mode represents the current editing mode
type Mode int

const (
	ModeSelect        Mode = iota // Clicking an entity opens label edit
	ModeAddNode                   // Adding new entities
	ModeAddConnection             // Two clicks draw a relation
)

// String returns the mode name for display
func (m Mode) String() string {
	switch m {
	case ModeSelect:
		return "select"
	case ModeAddNode:
		return "addNode"
	case ModeAddConnection:
		return "addConnection"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name back to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "select", "":
		return ModeSelect, nil
	case "addNode":
		return ModeAddNode, nil
	case "addConnection":
		return ModeAddConnection, nil
	default:
		return ModeSelect, fmt.Errorf("unknown edit mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// LabelPolicy decides how label edits are written to history.
type LabelPolicy int

const (
	// LabelEditInPlace overwrites the snapshot at the current history
	// position. History length is unchanged and the edit cannot be undone
	// on its own.
	LabelEditInPlace LabelPolicy = iota
	// LabelEditCommit records label edits like every other edit.
	LabelEditCommit
)

func (p LabelPolicy) String() string {
	if p == LabelEditCommit {
		return "commit"
	}
	return "in_place"
}

// ParseLabelPolicy converts a config value to a LabelPolicy.
func ParseLabelPolicy(s string) (LabelPolicy, error) {
	switch s {
	case "in_place", "inplace", "":
		return LabelEditInPlace, nil
	case "commit":
		return LabelEditCommit, nil
	default:
		return LabelEditInPlace, fmt.Errorf("unknown label policy %q", s)
	}
}
