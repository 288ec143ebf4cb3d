package workspace

import (
	"c4arch/assistant"
	"c4arch/canvas"
	"c4arch/codepanel"
	"c4arch/diagram"
	"c4arch/editor"
)

// State is the persisted form of a workspace.
type State struct {
	Editor       editor.State      `json:"editor"`
	Code         codepanel.State   `json:"code"`
	Transcript   []assistant.Entry `json:"transcript"`
	Requirements string            `json:"requirements,omitempty"`
}

// State captures the workspace for persistence.
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Editor:       w.editor.State(),
		Code:         w.code.State(),
		Transcript:   w.assistant.Transcript(),
		Requirements: w.requirements,
	}
}

// Restore replaces the workspace with st. Outstanding requests are
// forgotten.
func (w *Workspace) Restore(st State) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.editor.Restore(st.Editor); err != nil {
		return err
	}
	w.code.Restore(st.Code)
	w.assistant.Restore(st.Transcript)
	w.requirements = st.Requirements
	w.notice = ""
	w.sync()
	return nil
}

// Issue is a code panel finding as presented to clients.
type Issue struct {
	Line     int    `json:"line"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// CodeView is the code panel as presented to clients.
type CodeView struct {
	Committed string  `json:"committed"`
	Draft     string  `json:"draft"`
	Modified  bool    `json:"modified"`
	CanApply  bool    `json:"canApply"`
	Issues    []Issue `json:"issues"`
}

// HistoryView summarises the undo history.
type HistoryView struct {
	Index   int  `json:"index"`
	Length  int  `json:"length"`
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
}

// View is a consistent read of everything a front end renders.
type View struct {
	Snapshot         *diagram.Snapshot `json:"snapshot"`
	Canvas           CanvasView        `json:"canvas"`
	Code             CodeView          `json:"code"`
	History          HistoryView       `json:"history"`
	Mode             editor.Mode       `json:"mode"`
	ConnectionSource string            `json:"connectionSource,omitempty"`
	ConnectionType   string            `json:"connectionType"`
	Selected         string            `json:"selected,omitempty"`
	Editing          string            `json:"editing,omitempty"`
	Transcript       []assistant.Entry `json:"transcript"`
	Suggestions      []string          `json:"suggestions,omitempty"`
	Requirements     string            `json:"requirements,omitempty"`
	Processing       bool              `json:"processing"`
	Thinking         bool              `json:"thinking"`
	Notice           string            `json:"notice,omitempty"`
}

// CanvasView is the canvas working copy and display mode.
type CanvasView struct {
	Nodes []diagram.Entity   `json:"nodes"`
	Edges []diagram.Relation `json:"edges"`
	Image *ImageView         `json:"image,omitempty"`
}

// ImageView describes the canvas image display.
type ImageView struct {
	Ref    string `json:"ref"`
	State  string `json:"state"`
	Format string `json:"format,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Error  string `json:"error,omitempty"`
}

// View returns the current view.
func (w *Workspace) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	h := w.editor.History()
	v := View{
		Snapshot: w.editor.Snapshot(),
		Canvas: CanvasView{
			Nodes: w.canvas.Nodes(),
			Edges: w.canvas.Edges(),
		},
		Code: CodeView{
			Committed: w.code.Committed(),
			Draft:     w.code.Draft(),
			Modified:  w.code.Modified(),
			CanApply:  w.code.CanApply(),
			Issues:    []Issue{},
		},
		History: HistoryView{
			Index:   h.Index(),
			Length:  h.Len(),
			CanUndo: h.CanUndo(),
			CanRedo: h.CanRedo(),
		},
		Mode:             w.editor.Mode(),
		ConnectionSource: w.editor.ConnectionSource(),
		ConnectionType:   w.editor.ConnectionType(),
		Selected:         w.editor.Selected(),
		Editing:          w.editor.Editing(),
		Transcript:       w.assistant.Transcript(),
		Requirements:     w.requirements,
		Processing:       w.editor.Processing(),
		Thinking:         w.assistant.Processing(),
		Notice:           w.notice,
	}
	for _, is := range w.code.Issues() {
		v.Code.Issues = append(v.Code.Issues, Issue{Line: is.Line, Severity: is.Severity.String(), Message: is.Message})
	}
	if w.assistant.ShowSuggestions() {
		v.Suggestions = append([]string(nil), assistant.Suggestions...)
	}
	if info := w.canvas.ImageInfo(); info.State != canvas.ImageNone {
		iv := &ImageView{
			Ref:    info.Ref,
			State:  info.State.String(),
			Format: info.Format,
			Width:  info.Width,
			Height: info.Height,
		}
		if info.Err != nil {
			iv.Error = info.Err.Error()
		}
		v.Canvas.Image = iv
	}
	return v
}
