package canvas

import (
	"fmt"
	"math"

	"github.com/mattn/go-runewidth"

	"c4arch/diagram"
)

// Placeholder is shown when there is nothing to draw.
const Placeholder = "Enter requirements to generate C4 diagram"

// Largest scale used by Preview, in cells per pixel. Keeps a 250x150 entity
// at about 25x7 cells on large terminals.
const (
	maxScaleX = 0.1
	maxScaleY = 0.05
)

type cellBox struct {
	x, y, w, h int
}

func (b cellBox) center() (int, int) {
	return b.x + b.w/2, b.y + b.h/2
}

// Preview renders the working copy onto a width x height character grid.
// Positions are scaled to fit; relations are drawn as elbow lines ending in
// an arrow next to the target.
func (a *Adapter) Preview(width, height int) string {
	a.mu.Lock()
	img := a.img
	nodes := append([]diagram.Entity{}, a.nodes...)
	edges := append([]diagram.Relation{}, a.edges...)
	a.mu.Unlock()

	if img.active {
		return imageSummary(img, width)
	}
	m := NewMatrix(width, height)
	if m == nil {
		return ""
	}
	if len(nodes) == 0 {
		text := Truncate(Placeholder, width)
		m.DrawText((width-runewidth.StringWidth(text))/2, height/2, text)
		return m.String()
	}

	boxes := layoutBoxes(nodes, width, height)

	for _, e := range edges {
		src, ok1 := boxes[e.Source]
		dst, ok2 := boxes[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		drawElbow(m, src, dst)
	}

	for _, n := range nodes {
		b := boxes[n.ID]
		style := DefaultBoxStyle
		switch n.EntityType {
		case diagram.System, diagram.ExternalSystem:
			style = DoubleBoxStyle
		case diagram.Actor:
			style = RoundedBoxStyle
		}
		m.DrawBox(b.x, b.y, b.w, b.h, style)
		inner := b.w - 2
		m.DrawText(b.x+1, b.y+1, Truncate(n.Label, inner))
		if b.h >= 4 {
			m.DrawText(b.x+1, b.y+2, Truncate(fmt.Sprintf("[%s]", n.EntityType), inner))
		}
	}

	for _, e := range edges {
		src, ok1 := boxes[e.Source]
		dst, ok2 := boxes[e.Target]
		if !ok1 || !ok2 || e.Source == e.Target {
			continue
		}
		drawArrowHead(m, src, dst)
	}

	return m.String()
}

func layoutBoxes(nodes []diagram.Entity, width, height int) map[string]cellBox {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		size := sizeOf(n)
		minX = math.Min(minX, n.Position.X)
		minY = math.Min(minY, n.Position.Y)
		maxX = math.Max(maxX, n.Position.X+size.Width)
		maxY = math.Max(maxY, n.Position.Y+size.Height)
	}

	scaleX := math.Min(maxScaleX, float64(width-1)/math.Max(maxX-minX, 1))
	scaleY := math.Min(maxScaleY, float64(height-1)/math.Max(maxY-minY, 1))

	boxes := make(map[string]cellBox, len(nodes))
	for _, n := range nodes {
		size := sizeOf(n)
		boxes[n.ID] = cellBox{
			x: int((n.Position.X - minX) * scaleX),
			y: int((n.Position.Y - minY) * scaleY),
			w: max(int(size.Width*scaleX), 5),
			h: max(int(size.Height*scaleY), 3),
		}
	}
	return boxes
}

func sizeOf(n diagram.Entity) diagram.Size {
	if n.Style.Width > 0 && n.Style.Height > 0 {
		return n.Style
	}
	return diagram.Size{Width: 250, Height: 150}
}

// drawElbow draws a horizontal then vertical line between box centers.
func drawElbow(m *Matrix, src, dst cellBox) {
	sx, sy := src.center()
	tx, ty := dst.center()
	if sx == tx && sy == ty {
		return
	}
	m.DrawHorizontalLine(sx, sy, tx, '─')
	m.DrawVerticalLine(tx, sy, ty, '│')
	if sx != tx && sy != ty {
		m.Set(tx, sy, corner(sx < tx, sy < ty))
	}
}

func corner(right, down bool) rune {
	switch {
	case right && down:
		return '┐'
	case right && !down:
		return '┘'
	case !right && down:
		return '┌'
	default:
		return '└'
	}
}

// drawArrowHead marks where the elbow line meets the target box.
func drawArrowHead(m *Matrix, src, dst cellBox) {
	sx, sy := src.center()
	tx, ty := dst.center()
	switch {
	case sy < ty && sy < dst.y:
		m.Set(tx, dst.y-1, '▼')
	case sy > ty && sy >= dst.y+dst.h:
		m.Set(tx, dst.y+dst.h, '▲')
	case sx < tx:
		m.Set(dst.x-1, sy, '▶')
	case sx > tx:
		m.Set(dst.x+dst.w, sy, '◀')
	}
}

func imageSummary(img imageView, width int) string {
	var s string
	switch img.state {
	case ImageReady:
		b := img.img.Bounds()
		s = fmt.Sprintf("[image %s %dx%d] %s", img.format, b.Dx(), b.Dy(), img.ref)
	case ImageError:
		s = fmt.Sprintf("[image failed to load] %s", img.ref)
	default:
		s = fmt.Sprintf("[image loading] %s", img.ref)
	}
	return Truncate(s, width)
}
