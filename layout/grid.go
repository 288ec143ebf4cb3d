package layout

import "c4arch/diagram"

// Grid dimensions, in pixels.
const (
	Columns           = 4
	NodeWidth         = 250
	NodeHeight        = 150
	HorizontalSpacing = 100
	VerticalSpacing   = 80
	Margin            = 50
)

// DefaultSize is the style stamped on every entity the grid places.
var DefaultSize = diagram.Size{Width: NodeWidth, Height: NodeHeight}

// GridLayout places entities row-major on a fixed grid. Input order decides
// the cell; relations are ignored for placement and copied as animated.
type GridLayout struct {
	columns int
}

// NewGridLayout creates a GridLayout with the standard four columns.
func NewGridLayout() *GridLayout {
	return &GridLayout{columns: Columns}
}

// Name returns the name of this layout algorithm.
func (g *GridLayout) Name() string {
	return "grid"
}

// Cell returns the grid cell for the entity at index.
func (g *GridLayout) Cell(index int) (row, col int) {
	return index / g.columns, index % g.columns
}

// Position returns the top-left corner of the cell for index.
func (g *GridLayout) Position(index int) diagram.Point {
	row, col := g.Cell(index)
	return diagram.Point{
		X: float64(col*(NodeWidth+HorizontalSpacing) + Margin),
		Y: float64(row*(NodeHeight+VerticalSpacing) + Margin),
	}
}

// Layout positions entities on the grid.
func (g *GridLayout) Layout(entities []diagram.Entity, relations []diagram.Relation) *diagram.Snapshot {
	out := diagram.Empty()

	for i, e := range entities {
		e.Position = g.Position(i)
		e.Style = DefaultSize
		out.Nodes = append(out.Nodes, e)
	}

	for _, r := range relations {
		r.Animated = true
		out.Edges = append(out.Edges, r)
	}

	return out
}
