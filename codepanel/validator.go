package codepanel

import (
	"fmt"
	"strings"
)

// Severity of an Issue.
type Severity int

const (
	// Error issues block Apply.
	Error Severity = iota
	// Warning issues are shown but never block Apply.
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Issue is one finding of the structural check. Line is 1-based, 0 when the
// issue concerns the whole text.
type Issue struct {
	Line     int
	Severity Severity
	Message  string
}

func (i Issue) String() string {
	if i.Line == 0 {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("line %d: %s: %s", i.Line, i.Severity, i.Message)
}

// StructureKeywords must appear somewhere in code for it to be applied.
var StructureKeywords = []string{"System", "Rel"}

// StructureValidator performs a minimal keyword check on diagram code. It is
// not a grammar: false positives and negatives are expected.
type StructureValidator struct {
	issues []Issue
	// Options
	requireFences bool // Report missing @startuml/@enduml as errors instead of warnings
}

// NewStructureValidator creates a new validator with default settings.
func NewStructureValidator() *StructureValidator {
	return &StructureValidator{}
}

// SetRequireFences makes missing @startuml/@enduml lines block Apply.
func (v *StructureValidator) SetRequireFences(require bool) {
	v.requireFences = require
}

// Validate checks code and returns every issue found.
func (v *StructureValidator) Validate(code string) []Issue {
	v.issues = nil

	found := false
	for _, kw := range StructureKeywords {
		if strings.Contains(code, kw) {
			found = true
			break
		}
	}
	if !found {
		v.add(0, Error, fmt.Sprintf("no structural keyword found (expected one of %s)", strings.Join(StructureKeywords, ", ")))
	}

	v.checkFences(code)
	return v.issues
}

// checkFences looks for the @startuml/@enduml pair.
func (v *StructureValidator) checkFences(code string) {
	severity := Warning
	if v.requireFences {
		severity = Error
	}

	start, end := 0, 0
	for i, line := range strings.Split(code, "\n") {
		switch strings.TrimSpace(line) {
		case "@startuml":
			if start == 0 {
				start = i + 1
			}
		case "@enduml":
			end = i + 1
		}
	}

	switch {
	case start == 0:
		v.add(0, severity, "missing @startuml")
	case end == 0:
		v.add(0, severity, "missing @enduml")
	case end < start:
		v.add(end, severity, "@enduml before @startuml")
	}
}

func (v *StructureValidator) add(line int, severity Severity, msg string) {
	v.issues = append(v.issues, Issue{Line: line, Severity: severity, Message: msg})
}

// HasErrors reports whether any issue blocks Apply.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == Error {
			return true
		}
	}
	return false
}
