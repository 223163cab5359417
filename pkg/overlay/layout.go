// Package overlay renders inference results onto frames.
//
// Renderers produce a Layout, a plain list of drawing operations computed
// from the frame size and the results. Draw applies a Layout to a Mat. Keeping
// the two apart lets the layout be checked without touching pixels.
package overlay

import (
	"image"
	"image/color"

	"github.com/teslashibe/go-lens/pkg/inference"
)

// Kind is a drawing operation type.
type Kind int

// Drawing operations.
const (
	KindRect  Kind = iota // Filled or outlined rectangle
	KindPanel             // Filled rectangle blended with the frame
	KindText              // Hershey simplex text
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRect:
		return "rect"
	case KindPanel:
		return "panel"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// Filled is the thickness value for filled rectangles.
const Filled = -1

// Op is one drawing operation. Colors are RGB.
type Op struct {
	Kind      Kind
	Rect      image.Rectangle
	Color     color.RGBA
	Thickness int
	Opacity   float64 // Panels only

	Text   string
	Origin image.Point // Bottom-left corner of the text
	Scale  float64
}

// Layout is an ordered list of drawing operations.
type Layout struct {
	Ops []Op
}

// Fill adds a filled rectangle.
func (l *Layout) Fill(r image.Rectangle, c color.RGBA) {
	l.Ops = append(l.Ops, Op{Kind: KindRect, Rect: r, Color: c, Thickness: Filled})
}

// Outline adds a rectangle border.
func (l *Layout) Outline(r image.Rectangle, c color.RGBA, thickness int) {
	l.Ops = append(l.Ops, Op{Kind: KindRect, Rect: r, Color: c, Thickness: thickness})
}

// Panel adds a filled rectangle blended at opacity over the frame.
func (l *Layout) Panel(r image.Rectangle, c color.RGBA, opacity float64) {
	l.Ops = append(l.Ops, Op{Kind: KindPanel, Rect: r, Color: c, Thickness: Filled, Opacity: opacity})
}

// Text adds a text line.
func (l *Layout) Text(s string, origin image.Point, scale float64, c color.RGBA, thickness int) {
	l.Ops = append(l.Ops, Op{Kind: KindText, Text: s, Origin: origin, Scale: scale, Color: c, Thickness: thickness})
}

// Texts returns the text of every text operation, in order.
func (l Layout) Texts() []string {
	var texts []string
	for _, op := range l.Ops {
		if op.Kind == KindText {
			texts = append(texts, op.Text)
		}
	}
	return texts
}

// FindText returns the first text operation with the given text.
func (l Layout) FindText(s string) (Op, bool) {
	for _, op := range l.Ops {
		if op.Kind == KindText && op.Text == s {
			return op, true
		}
	}
	return Op{}, false
}

// Renderer turns results into a layout for a frame of the given size.
type Renderer interface {
	Layout(size image.Point, results []inference.Result) Layout
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(size image.Point, results []inference.Result) Layout

// Layout implements Renderer.
func (f RendererFunc) Layout(size image.Point, results []inference.Result) Layout {
	return f(size, results)
}

// CenteredSquare returns a side x side square centered in a frame of the
// given size, clamped to the frame.
func CenteredSquare(size image.Point, side int) image.Rectangle {
	cx, cy := size.X/2, size.Y/2
	half := side / 2
	r := image.Rect(cx-half, cy-half, cx-half+side, cy-half+side)
	return r.Intersect(image.Rectangle{Max: size})
}
