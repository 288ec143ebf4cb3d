package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"c4arch/diagram"
)

// Styles
var (
	highlight  = lipgloss.AdaptiveColor{Light: "#1168BD", Dark: "#438DD5"}
	special    = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	errorColor = lipgloss.AdaptiveColor{Light: "#E05252", Dark: "#E05252"}

	titleStyle = lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	okDot  = lipgloss.NewStyle().Foreground(special).SetString("●")
	errDot = lipgloss.NewStyle().Foreground(errorColor).SetString("●")

	badgeStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("#ffffff")).
			Bold(true)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

// typeBadges colour entity types like the diagram does.
var typeBadges = map[diagram.EntityType]lipgloss.Style{
	diagram.System:         badgeStyle.Copy().Background(lipgloss.Color("#1168BD")),
	diagram.Container:      badgeStyle.Copy().Background(lipgloss.Color("#438DD5")),
	diagram.Component:      badgeStyle.Copy().Background(lipgloss.Color("#85BBF0")).Foreground(lipgloss.Color("#000000")),
	diagram.Actor:          badgeStyle.Copy().Background(lipgloss.Color("#08427B")),
	diagram.ExternalSystem: badgeStyle.Copy().Background(lipgloss.Color("#999999")),
	diagram.Database:       badgeStyle.Copy().Background(lipgloss.Color("#438DD5")),
	diagram.Queue:          badgeStyle.Copy().Background(lipgloss.Color("#438DD5")),
	diagram.Verb:           badgeStyle.Copy().Background(lipgloss.Color("#7F8C8D")),
}

func printSuccess(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", okDot.String(), msg)
}

func printError(w io.Writer, msg string) {
	fmt.Fprintf(w, "%s %s\n", errDot.String(), msg)
}

// renderSummary describes a snapshot for the terminal.
func renderSummary(s *diagram.Snapshot) string {
	var sb strings.Builder

	counts := map[diagram.EntityType]int{}
	for _, n := range s.Nodes {
		counts[n.EntityType]++
	}
	types := make([]string, 0, len(counts))
	for t, n := range counts {
		types = append(types, fmt.Sprintf("%d %s", n, strings.ToLower(string(t))))
	}
	sort.Strings(types)

	sb.WriteString(titleStyle.Render(fmt.Sprintf("%d entities, %d relations", len(s.Nodes), len(s.Edges))))
	if len(types) > 0 {
		sb.WriteString("  " + dimStyle.Render(strings.Join(types, ", ")))
	}
	sb.WriteString("\n\n")

	labels := make(map[string]string, len(s.Nodes))
	sb.WriteString(headerStyle.Render("Entities") + "\n")
	for _, n := range s.Nodes {
		labels[n.ID] = n.Label
		badge, ok := typeBadges[n.EntityType]
		if !ok {
			badge = badgeStyle
		}
		fmt.Fprintf(&sb, "  %s %s %s\n", badge.Render(string(n.EntityType)), n.Label, dimStyle.Render(n.ID))
	}

	if len(s.Edges) > 0 {
		sb.WriteString("\n" + headerStyle.Render("Relations") + "\n")
		for _, e := range s.Edges {
			fmt.Fprintf(&sb, "  %s → %s %s\n", labels[e.Source], labels[e.Target], dimStyle.Render(e.Label))
		}
	}
	return sb.String()
}

// renderCode frames diagram code.
func renderCode(code string) string {
	return boxStyle.Render(strings.TrimRight(code, "\n"))
}
