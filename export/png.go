package export

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"c4arch/diagram"
	"c4arch/layout"
)

// Limits for rendered images.
const (
	pngPadding   = 40.0
	pngMaxSide   = 8192
	pngArrowSize = 10.0
)

// PNGExporter renders snapshots with gg. Entities are drawn at their
// positions; entities without a size use the grid size.
type PNGExporter struct {
	// FontPath is a TrueType font to use instead of Go Mono.
	FontPath string
	// FontSize in points.
	FontSize float64
	// Scale multiplies every coordinate.
	Scale float64
}

// NewPNGExporter creates a PNG exporter with Go Mono at 14pt.
func NewPNGExporter() *PNGExporter {
	return &PNGExporter{FontSize: 14, Scale: 1}
}

type pngBox struct {
	x, y, w, h float64
}

func (b pngBox) center() (float64, float64) {
	return b.x + b.w/2, b.y + b.h/2
}

// edgePoint returns where the segment from the box centre towards (tx, ty)
// leaves the box.
func (b pngBox) edgePoint(tx, ty float64) (float64, float64) {
	cx, cy := b.center()
	dx, dy := tx-cx, ty-cy
	if dx == 0 && dy == 0 {
		return cx, cy
	}
	sx, sy := math.Inf(1), math.Inf(1)
	if dx != 0 {
		sx = (b.w / 2) / math.Abs(dx)
	}
	if dy != 0 {
		sy = (b.h / 2) / math.Abs(dy)
	}
	s := math.Min(sx, sy)
	return cx + dx*s, cy + dy*s
}

// Export renders the snapshot as PNG bytes
func (e *PNGExporter) Export(s *diagram.Snapshot) ([]byte, error) {
	if err := checkSnapshot(s); err != nil {
		return nil, err
	}

	face, err := e.fontFace()
	if err != nil {
		return nil, err
	}

	scale := e.Scale
	if scale <= 0 {
		scale = 1
	}

	boxes := make(map[string]pngBox, len(s.Nodes))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, n := range s.Nodes {
		size := n.Style
		if size.Width <= 0 || size.Height <= 0 {
			size = layout.DefaultSize
		}
		b := pngBox{x: n.Position.X * scale, y: n.Position.Y * scale, w: size.Width * scale, h: size.Height * scale}
		boxes[n.ID] = b
		minX, minY = math.Min(minX, b.x), math.Min(minY, b.y)
		maxX, maxY = math.Max(maxX, b.x+b.w), math.Max(maxY, b.y+b.h)
	}

	width := int(math.Ceil(maxX-minX+2*pngPadding))
	height := int(math.Ceil(maxY-minY+2*pngPadding))
	if width > pngMaxSide || height > pngMaxSide {
		return nil, fmt.Errorf("image too large: %dx%d exceeds %d pixels per side", width, height, pngMaxSide)
	}
	offX, offY := pngPadding-minX, pngPadding-minY
	for id, b := range boxes {
		b.x += offX
		b.y += offY
		boxes[id] = b
	}

	dc := gg.NewContext(width, height)
	dc.SetHexColor("#ffffff")
	dc.Clear()
	dc.SetFontFace(face)

	// Relations first so boxes sit on top of the line ends.
	for _, r := range s.Edges {
		src, ok := boxes[r.Source]
		if !ok {
			continue
		}
		dst, ok := boxes[r.Target]
		if !ok {
			continue
		}
		e.drawRelation(dc, r, src, dst)
	}

	for _, n := range s.Nodes {
		e.drawEntity(dc, n, boxes[n.ID])
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PNGExporter) fontFace() (font.Face, error) {
	data := gomono.TTF
	if e.FontPath != "" {
		b, err := os.ReadFile(e.FontPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read font: %w", err)
		}
		data = b
	}
	ttfFont, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	size := e.FontSize
	if size <= 0 {
		size = 14
	}
	return truetype.NewFace(ttfFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}

func (e *PNGExporter) drawEntity(dc *gg.Context, n diagram.Entity, b pngBox) {
	fill, text := c4Colors(n.EntityType)

	dc.SetHexColor(fill)
	if n.EntityType == diagram.Actor {
		dc.DrawRoundedRectangle(b.x, b.y, b.w, b.h, math.Min(b.w, b.h)/2)
	} else {
		dc.DrawRoundedRectangle(b.x, b.y, b.w, b.h, 8)
	}
	dc.FillPreserve()
	dc.SetHexColor("#0b3d6e")
	dc.SetLineWidth(1.5)
	if n.EntityType == diagram.ExternalSystem {
		dc.SetDash(6, 4)
	}
	dc.Stroke()
	dc.SetDash()

	cx, cy := b.center()
	dc.SetHexColor(text)
	_, lh := dc.MeasureString("M")
	lines := dc.WordWrap(n.Label, b.w-16)
	top := cy - float64(len(lines))*lh/2 - lh/2
	for i, line := range lines {
		dc.DrawStringAnchored(line, cx, top+float64(i)*lh*1.2, 0.5, 0.5)
	}
	dc.DrawStringAnchored("["+typeName(n.EntityType)+"]", cx, b.y+b.h-lh, 0.5, 0.5)
}

func (e *PNGExporter) drawRelation(dc *gg.Context, r diagram.Relation, src, dst pngBox) {
	dc.SetHexColor("#707070")
	dc.SetLineWidth(1.5)

	if r.Source == r.Target {
		// Self-loop: a small arc on the right side.
		_, cy := src.center()
		dc.DrawArc(src.x+src.w, cy, src.h/4, -math.Pi/2, math.Pi/2)
		dc.Stroke()
		if r.Label != "" {
			dc.DrawStringAnchored(r.Label, src.x+src.w+src.h/4+6, cy, 0, 0.5)
		}
		return
	}

	dcx, dcy := dst.center()
	scx, scy := src.center()
	x1, y1 := src.edgePoint(dcx, dcy)
	x2, y2 := dst.edgePoint(scx, scy)

	dc.DrawLine(x1, y1, x2, y2)
	dc.Stroke()
	drawArrowHead(dc, x1, y1, x2, y2)

	if r.Label != "" {
		mx, my := (x1+x2)/2, (y1+y2)/2
		w, h := dc.MeasureString(r.Label)
		dc.SetHexColor("#ffffff")
		dc.DrawRectangle(mx-w/2-3, my-h/2-2, w+6, h+4)
		dc.Fill()
		dc.SetHexColor("#404040")
		dc.DrawStringAnchored(r.Label, mx, my, 0.5, 0.5)
	}
}

func drawArrowHead(dc *gg.Context, fx, fy, tx, ty float64) {
	dx, dy := tx-fx, ty-fy
	length := math.Hypot(dx, dy)
	if length < 0.1 {
		return
	}
	dx /= length
	dy /= length

	const angle = 0.5
	dc.MoveTo(tx, ty)
	dc.LineTo(tx-pngArrowSize*dx+pngArrowSize*dy*angle, ty-pngArrowSize*dy-pngArrowSize*dx*angle)
	dc.LineTo(tx-pngArrowSize*dx-pngArrowSize*dy*angle, ty-pngArrowSize*dy+pngArrowSize*dx*angle)
	dc.ClosePath()
	dc.Fill()
}

// c4Colors returns the fill and text colour for an entity type
func c4Colors(t diagram.EntityType) (fill, text string) {
	switch t {
	case diagram.Actor:
		return "#08427b", "#ffffff"
	case diagram.System:
		return "#1168bd", "#ffffff"
	case diagram.ExternalSystem:
		return "#999999", "#ffffff"
	case diagram.Container, diagram.Database, diagram.Queue:
		return "#438dd5", "#ffffff"
	case diagram.Verb:
		return "#6a8caf", "#ffffff"
	default:
		return "#85bbf0", "#000000"
	}
}

// GetFileExtension returns the file extension for PNG
func (e *PNGExporter) GetFileExtension() string {
	return ".png"
}

// GetFormatName returns the format name
func (e *PNGExporter) GetFormatName() string {
	return "PNG"
}

// GetContentType returns the MIME type
func (e *PNGExporter) GetContentType() string {
	return "image/png"
}
