package overlay

import (
	"errors"
	"image"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned when drawing on an empty Mat.
var ErrEmptyFrame = errors.New("overlay: empty frame")

// Draw applies l to img in order.
func Draw(img *gocv.Mat, l Layout) error {
	if img.Empty() {
		return ErrEmptyFrame
	}

	bounds := image.Rect(0, 0, img.Cols(), img.Rows())
	for _, op := range l.Ops {
		switch op.Kind {
		case KindRect:
			gocv.Rectangle(img, op.Rect, op.Color, op.Thickness)
		case KindPanel:
			drawPanel(img, op, bounds)
		case KindText:
			gocv.PutText(img, op.Text, op.Origin, gocv.FontHersheySimplex, op.Scale, op.Color, op.Thickness)
		}
	}
	return nil
}

// drawPanel blends a filled rectangle into the frame region it covers.
func drawPanel(img *gocv.Mat, op Op, bounds image.Rectangle) {
	r := op.Rect.Intersect(bounds)
	if r.Empty() {
		return
	}

	roi := img.Region(r)
	defer roi.Close()

	filled := roi.Clone()
	defer filled.Close()

	gocv.Rectangle(&filled, image.Rect(0, 0, r.Dx(), r.Dy()), op.Color, Filled)
	gocv.AddWeighted(filled, op.Opacity, roi, 1-op.Opacity, 0, &roi)
}
