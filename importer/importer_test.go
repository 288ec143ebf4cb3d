package importer

import (
	"errors"
	"strings"
	"testing"

	"c4arch/diagram"
	"c4arch/export"
)

func shop() *diagram.Snapshot {
	return &diagram.Snapshot{
		Nodes: []diagram.Entity{
			{ID: "shopper", Label: "Shopper", EntityType: diagram.Actor},
			{ID: "web-app", Label: "Web \"App\"", EntityType: diagram.Container},
			{ID: "pay", Label: "Payments", EntityType: diagram.ExternalSystem},
			{ID: "orders", Label: "Orders\nDB", EntityType: diagram.Database},
			{ID: "events", Label: "Events", EntityType: diagram.Queue},
			{ID: "place", Label: "place order", EntityType: diagram.Verb},
		},
		Edges: []diagram.Relation{
			{ID: "r1", Source: "shopper", Target: "web-app", Label: "browses"},
			{ID: "r2", Source: "web-app", Target: "orders", Label: "reads | writes"},
			{ID: "r3", Source: "web-app", Target: "events"},
		},
	}
}

func exportAs(t *testing.T, exporter export.Exporter) string {
	t.Helper()
	data, err := exporter.Export(shop())
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	return string(data)
}

func findEntity(t *testing.T, s *diagram.Snapshot, id string) diagram.Entity {
	t.Helper()
	e, ok := s.Entity(id)
	if !ok {
		t.Fatalf("entity %q not imported; have %+v", id, s.Nodes)
	}
	return e
}

func TestMermaidRoundTrip(t *testing.T) {
	content := exportAs(t, export.NewMermaidExporter())

	s, err := NewRegistry().Import(content)
	if err != nil {
		t.Fatalf("import failed: %v\n%s", err, content)
	}
	if len(s.Nodes) != 6 || len(s.Edges) != 3 {
		t.Fatalf("got %d nodes and %d edges, want 6 and 3", len(s.Nodes), len(s.Edges))
	}

	tests := []struct {
		id    string
		label string
		typ   diagram.EntityType
	}{
		{"shopper", "Shopper", diagram.Actor},
		{"web_app", `Web "App"`, diagram.Container},
		{"pay", "Payments", diagram.ExternalSystem},
		{"orders", "Orders\nDB", diagram.Database},
		{"events", "Events", diagram.Queue},
		{"place", "place order", diagram.Verb},
	}
	for _, tt := range tests {
		e := findEntity(t, s, tt.id)
		if e.Label != tt.label || e.EntityType != tt.typ {
			t.Errorf("%s: got (%q, %s), want (%q, %s)", tt.id, e.Label, e.EntityType, tt.label, tt.typ)
		}
	}

	if got := s.Edges[1]; got.Source != "web_app" || got.Target != "orders" || got.Label != "reads | writes" {
		t.Errorf("unexpected relation %+v", got)
	}
	if s.Edges[2].Label != "" {
		t.Errorf("unlabelled relation got label %q", s.Edges[2].Label)
	}
}

func TestPlantUMLRoundTrip(t *testing.T) {
	content := exportAs(t, export.NewPlantUMLExporter())

	s, err := NewRegistry().Import(content)
	if err != nil {
		t.Fatalf("import failed: %v\n%s", err, content)
	}
	if len(s.Nodes) != 6 || len(s.Edges) != 3 {
		t.Fatalf("got %d nodes and %d edges, want 6 and 3", len(s.Nodes), len(s.Edges))
	}

	if e := findEntity(t, s, "shopper"); e.EntityType != diagram.Actor {
		t.Errorf("shopper type = %s", e.EntityType)
	}
	if e := findEntity(t, s, "web_app"); e.Label != "Web 'App'" {
		t.Errorf("web_app label = %q", e.Label)
	}
	if e := findEntity(t, s, "orders"); e.Label != "Orders\nDB" || e.EntityType != diagram.Database {
		t.Errorf("orders = %+v", e)
	}
	// Verb has no macro of its own and comes back as a component.
	if e := findEntity(t, s, "place"); e.EntityType != diagram.Component {
		t.Errorf("place type = %s", e.EntityType)
	}
	if s.Edges[0].Label != "browses" {
		t.Errorf("first relation label = %q", s.Edges[0].Label)
	}
}

func TestPlantUMLRelBack(t *testing.T) {
	content := `@startuml
!include C4_Container.puml
Person(user, "User")
System_Boundary(b, "Shop") {
  Container(api, "API", "Go")
}
Rel_Back(api, user, "serves")
BiRel(user, api)
@enduml`

	s, err := NewRegistry().ImportWithFormat(content, "plantuml")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(s.Nodes) != 2 {
		t.Fatalf("boundary should be skipped, got %+v", s.Nodes)
	}
	if r := s.Edges[0]; r.Source != "user" || r.Target != "api" || r.Label != "serves" {
		t.Errorf("Rel_Back not reversed: %+v", r)
	}
	if r := s.Edges[1]; r.Source != "user" || r.Target != "api" {
		t.Errorf("BiRel = %+v", r)
	}
}

func TestPlantUMLUndeclaredElement(t *testing.T) {
	content := "@startuml\n!include C4_Context.puml\nPerson(user, \"User\")\nRel(user, ghost, \"calls\")\n@enduml"

	_, err := NewRegistry().Import(content)
	if err == nil || !strings.Contains(err.Error(), "line 4") {
		t.Fatalf("expected undeclared element error on line 4, got %v", err)
	}
}

func TestMermaidImplicitNodes(t *testing.T) {
	content := `graph TD
    %% a comment
    a[(Store)]
    a --> b
    classDef x fill:#fff`

	s, err := NewRegistry().Import(content)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if e := findEntity(t, s, "a"); e.EntityType != diagram.Database || e.Label != "Store" {
		t.Errorf("a = %+v", e)
	}
	if e := findEntity(t, s, "b"); e.EntityType != diagram.Component || e.Label != "b" {
		t.Errorf("implicit node = %+v", e)
	}
}

func TestDetectFormat(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		content string
		want    string
	}{
		{"@startuml\n!include C4_Context.puml\n@enduml", "PlantUML"},
		{"flowchart LR\n  a --> b", "Mermaid"},
		{"graph TD\n  a --> b", "Mermaid"},
	}
	for _, tt := range tests {
		imp, err := r.DetectFormat(tt.content)
		if err != nil {
			t.Errorf("DetectFormat(%q): %v", tt.content, err)
			continue
		}
		if imp.GetFormatName() != tt.want {
			t.Errorf("DetectFormat(%q) = %s, want %s", tt.content, imp.GetFormatName(), tt.want)
		}
	}

	// Plain PlantUML without C4 macros is not ours.
	if _, err := r.DetectFormat("@startuml\nA -> B\n@enduml"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := r.Import("digraph { a -> b }"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestImportWithFormat(t *testing.T) {
	r := NewRegistry()
	content := "flowchart LR\n    a[\"A\"]\n    a --> a\n"

	for _, format := range []string{"Mermaid", "mmd", ".mermaid"} {
		s, err := r.ImportWithFormat(content, format)
		if err != nil {
			t.Errorf("ImportWithFormat(%q): %v", format, err)
			continue
		}
		if len(s.Edges) != 1 || s.Edges[0].Source != "a" || s.Edges[0].Target != "a" {
			t.Errorf("ImportWithFormat(%q) edges = %+v", format, s.Edges)
		}
	}

	if _, err := r.ImportWithFormat(content, "d2"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat for d2, got %v", err)
	}
	if _, err := r.ImportWithFormat("flowchart LR\n", "mermaid"); err == nil {
		t.Error("expected error for a flowchart without nodes")
	}

	got := r.GetAvailableFormats()
	if len(got) != 2 || got[0] != "PlantUML" || got[1] != "Mermaid" {
		t.Errorf("GetAvailableFormats() = %v", got)
	}
}
