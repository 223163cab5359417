package overlay

import (
	"image"
	"image/color"

	"github.com/teslashibe/go-lens/pkg/inference"
)

// HotdogLabel is the ImageNet class index for "hotdog".
const HotdogLabel = 934

// Captions shown next to the probability bars.
const (
	CaptionHotdog    = "Hotdog"
	CaptionNotHotdog = "Not hotdog"
)

var (
	captionColor   = color.RGBA{R: 225, G: 225, B: 225, A: 255}
	highlightColor = color.RGBA{R: 255, G: 255, A: 255}
	notHotdogBar   = color.RGBA{R: 255, A: 255}
	hotdogBar      = color.RGBA{G: 255, A: 255}
)

// Hotdog draws two horizontal bars for "not hotdog" and "hotdog", each
// 0.2 x frame width x probability long, and highlights the winning caption.
type Hotdog struct {
	Label int // Class treated as hotdog, HotdogLabel by default
}

// HotdogProb returns the hotdog probability within results (0 if absent).
func (h Hotdog) HotdogProb(results []inference.Result) float64 {
	label := h.Label
	if label == 0 {
		label = HotdogLabel
	}
	return inference.Find(results, label)
}

// Layout implements Renderer.
func (h Hotdog) Layout(size image.Point, results []inference.Result) Layout {
	p := h.HotdogProb(results)
	notP := 1 - p

	var l Layout
	l.Fill(image.Rect(0, 0, barLength(size.X, notP), 80), notHotdogBar)
	l.Fill(image.Rect(0, 90, barLength(size.X, p), 170), hotdogBar)

	notColor, hotColor := captionColor, captionColor
	if p > notP {
		hotColor = highlightColor
	} else {
		notColor = highlightColor
	}
	l.Text(CaptionNotHotdog, image.Pt(10, 70), 3, notColor, 8)
	l.Text(CaptionHotdog, image.Pt(10, 160), 3, hotColor, 8)
	return l
}

func barLength(width int, p float64) int {
	return int(float64(width) * 0.2 * p)
}

var _ Renderer = Hotdog{}
