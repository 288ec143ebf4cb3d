package canvas

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// BoxStyle defines the characters used to draw boxes.
type BoxStyle struct {
	TopLeft, TopRight, BottomLeft, BottomRight rune
	Horizontal, Vertical                       rune
}

// Box styles
var (
	DefaultBoxStyle = BoxStyle{'┌', '┐', '└', '┘', '─', '│'}
	DoubleBoxStyle  = BoxStyle{'╔', '╗', '╚', '╝', '═', '║'}
	RoundedBoxStyle = BoxStyle{'╭', '╮', '╰', '╯', '─', '│'}
)

// Matrix is a rune grid with simple drawing primitives. Writes outside the
// grid are clipped. It is not safe for concurrent use.
//
// Coordinate System:
//   - Origin (0,0) is top-left
//   - X increases rightward
//   - Y increases downward
//   - All coordinates are in character cells
type Matrix struct {
	cells  [][]rune
	width  int
	height int
}

// NewMatrix creates a blank matrix. Non-positive sizes yield nil.
func NewMatrix(width, height int) *Matrix {
	if width <= 0 || height <= 0 {
		return nil
	}
	cells := make([][]rune, height)
	for y := range cells {
		cells[y] = []rune(strings.Repeat(" ", width))
	}
	return &Matrix{cells: cells, width: width, height: height}
}

// Size returns the width and height of the matrix.
func (m *Matrix) Size() (width, height int) {
	return m.width, m.height
}

// Get returns the character at the given position, or ' ' outside the grid.
func (m *Matrix) Get(x, y int) rune {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return ' '
	}
	return m.cells[y][x]
}

// Set places a character. Positions outside the grid are ignored.
func (m *Matrix) Set(x, y int, r rune) {
	if x < 0 || x >= m.width || y < 0 || y >= m.height {
		return
	}
	m.cells[y][x] = r
}

// DrawBox draws the outline of a box and clears its interior.
func (m *Matrix) DrawBox(x, y, width, height int, style BoxStyle) {
	if width < 2 || height < 2 {
		return
	}
	for j := y + 1; j < y+height-1; j++ {
		for i := x + 1; i < x+width-1; i++ {
			m.Set(i, j, ' ')
		}
	}

	m.Set(x, y, style.TopLeft)
	m.Set(x+width-1, y, style.TopRight)
	m.Set(x, y+height-1, style.BottomLeft)
	m.Set(x+width-1, y+height-1, style.BottomRight)
	for i := x + 1; i < x+width-1; i++ {
		m.Set(i, y, style.Horizontal)
		m.Set(i, y+height-1, style.Horizontal)
	}
	for j := y + 1; j < y+height-1; j++ {
		m.Set(x, j, style.Vertical)
		m.Set(x+width-1, j, style.Vertical)
	}
}

// DrawHorizontalLine draws from x1 to x2 inclusive.
func (m *Matrix) DrawHorizontalLine(x1, y, x2 int, r rune) {
	if x1 > x2 {
		x1, x2 = x2, x1
	}
	for x := x1; x <= x2; x++ {
		m.Set(x, y, r)
	}
}

// DrawVerticalLine draws from y1 to y2 inclusive.
func (m *Matrix) DrawVerticalLine(x, y1, y2 int, r rune) {
	if y1 > y2 {
		y1, y2 = y2, y1
	}
	for y := y1; y <= y2; y++ {
		m.Set(x, y, r)
	}
}

// DrawText writes text starting at (x, y), clipped to the grid. Wide runes
// take two cells.
func (m *Matrix) DrawText(x, y int, text string) {
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		m.Set(x, y, r)
		if w == 2 {
			m.Set(x+1, y, 0)
		}
		x += w
	}
}

// String returns the grid with trailing spaces trimmed from each line.
func (m *Matrix) String() string {
	var sb strings.Builder
	sb.Grow(m.height * (m.width + 1))
	for y, row := range m.cells {
		line := make([]rune, 0, len(row))
		for _, r := range row {
			if r == 0 {
				// Wide character continuation
				continue
			}
			line = append(line, r)
		}
		sb.WriteString(strings.TrimRight(string(line), " "))
		if y < m.height-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Truncate shortens text to at most width cells, adding an ellipsis when
// something was cut.
func Truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(text, width, "…")
}
