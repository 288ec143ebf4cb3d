package codepanel

import (
	"strings"
	"testing"
)

func TestStructureValidator(t *testing.T) {
	tests := []struct {
		name       string
		code       string
		wantErrors int
		wantWarns  int
	}{
		{"complete", sampleCode, 0, 0},
		{"system only", "@startuml\nSystem(a, \"A\")\n@enduml", 0, 0},
		{"rel only", "@startuml\nRel(a, b, \"uses\")\n@enduml", 0, 0},
		{"no keywords", "@startuml\na -> b\n@enduml", 1, 0},
		{"no fences", "System(a)", 0, 1},
		{"no end", "@startuml\nSystem(a)", 0, 1},
		{"reversed", "@enduml\nSystem(a)\n@startuml", 0, 1},
		{"empty", "", 1, 1},
		{"lowercase is not a keyword", "system rel", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewStructureValidator()
			issues := v.Validate(tt.code)

			errs, warns := 0, 0
			for _, i := range issues {
				if i.Severity == Error {
					errs++
				} else {
					warns++
				}
			}
			if errs != tt.wantErrors || warns != tt.wantWarns {
				t.Errorf("Expected %d errors %d warnings, got %d/%d: %v", tt.wantErrors, tt.wantWarns, errs, warns, issues)
			}
		})
	}
}

func TestRequireFences(t *testing.T) {
	v := NewStructureValidator()
	v.SetRequireFences(true)
	issues := v.Validate("System(a)")
	if !HasErrors(issues) {
		t.Errorf("missing fences should be an error in strict mode: %v", issues)
	}
}

func TestIssueString(t *testing.T) {
	i := Issue{Line: 3, Severity: Warning, Message: "@enduml before @startuml"}
	if !strings.HasPrefix(i.String(), "line 3: warning") {
		t.Errorf("unexpected format %q", i.String())
	}
}
