// Package codepanel holds the editable draft of the generated diagram code.
// The draft is decoupled from the committed code until it is applied.
package codepanel

import "errors"

// ErrApplyDisabled is returned by Apply when the draft may not be applied.
var ErrApplyDisabled = errors.New("apply is disabled: draft is unchanged or fails the structure check")

// Panel tracks the committed code and a local draft.
type Panel struct {
	committed string
	draft     string
	modified  bool
	issues    []Issue

	validator *StructureValidator
}

// New creates an empty panel.
func New() *Panel {
	return &Panel{validator: NewStructureValidator()}
}

// NewWithValidator creates a panel using v for the structure check.
func NewWithValidator(v *StructureValidator) *Panel {
	return &Panel{validator: v}
}

// SetCode installs new committed code. The draft is reset and the modified
// flag cleared.
func (p *Panel) SetCode(code string) {
	p.committed = code
	p.draft = code
	p.modified = false
	p.issues = nil
}

// Edit replaces the draft and runs the structure check.
func (p *Panel) Edit(draft string) {
	p.draft = draft
	p.modified = true
	p.issues = p.validator.Validate(draft)
}

// Draft returns the current draft.
func (p *Panel) Draft() string {
	return p.draft
}

// Committed returns the code last set with SetCode.
func (p *Panel) Committed() string {
	return p.committed
}

// Modified reports whether the draft was edited since the last SetCode or
// Apply.
func (p *Panel) Modified() bool {
	return p.modified
}

// Valid reports whether the last check found no blocking issue.
func (p *Panel) Valid() bool {
	return !HasErrors(p.issues)
}

// Issues returns the findings of the last check.
func (p *Panel) Issues() []Issue {
	return append([]Issue(nil), p.issues...)
}

// CanApply reports whether Apply would succeed.
func (p *Panel) CanApply() bool {
	return p.modified && p.draft != p.committed && p.Valid()
}

// Apply returns the draft to send upstream and clears the modified flag.
// The draft itself is kept; the caller installs the canonical code with
// SetCode once the upstream call succeeds.
func (p *Panel) Apply() (string, error) {
	if !p.CanApply() {
		return "", ErrApplyDisabled
	}
	p.modified = false
	return p.draft, nil
}

// State is the serialisable form of a Panel.
type State struct {
	Committed string `json:"committed"`
	Draft     string `json:"draft"`
	Modified  bool   `json:"modified"`
}

// State captures the panel state.
func (p *Panel) State() State {
	return State{Committed: p.committed, Draft: p.draft, Modified: p.modified}
}

// Restore replaces the panel state and re-runs the check on a modified
// draft.
func (p *Panel) Restore(st State) {
	p.committed = st.Committed
	p.draft = st.Draft
	p.modified = st.Modified
	p.issues = nil
	if p.modified {
		p.issues = p.validator.Validate(p.draft)
	}
}
