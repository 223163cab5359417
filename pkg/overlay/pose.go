package overlay

import (
	"fmt"
	"image"
	"image/color"

	"github.com/teslashibe/go-lens/pkg/inference"
)

// Pose overlay defaults.
const (
	Threshold     = 0.60
	Prompt        = "Take your pose"
	DefaultRegion = 1500
	PanelOpacity  = 0.7
)

// DefaultPanel fits the longest yoga pose label at scale 1.5.
var DefaultPanel = image.Pt(590, 400)

var (
	panelColor = color.RGBA{R: 211, G: 211, B: 211, A: 255}
	textColor  = color.RGBA{B: 255, A: 255}
)

// Pose shows the top label over a translucent panel, or a prompt while the
// top score stays below the threshold, and outlines the detection region.
type Pose struct {
	Labels    inference.Labels
	Threshold float64
	Region    int // Side of the centered detection square; 0 disables the outline
	Panel     image.Point
}

// NewPose returns a Pose renderer with the default threshold, region and panel.
func NewPose(labels inference.Labels) Pose {
	return Pose{
		Labels:    labels,
		Threshold: Threshold,
		Region:    DefaultRegion,
		Panel:     DefaultPanel,
	}
}

// Caption returns the text shown for results.
func (p Pose) Caption(results []inference.Result) string {
	if len(results) == 0 || results[0].Prob < p.Threshold {
		return Prompt
	}
	top := results[0]
	return fmt.Sprintf("%s %.1f%%", p.Labels.Name(top.Label), top.Prob*100)
}

// Layout implements Renderer.
func (p Pose) Layout(size image.Point, results []inference.Result) Layout {
	var l Layout
	l.Panel(image.Rectangle{Max: p.Panel}, panelColor, PanelOpacity)

	caption := p.Caption(results)
	if caption == Prompt {
		l.Text(caption, image.Pt(0, 50), 1.5, textColor, 3)
	} else {
		l.Text(caption, image.Pt(0, 150), 1.5, textColor, 3)
	}

	if p.Region > 0 {
		l.Outline(CenteredSquare(size, p.Region), textColor, 5)
	}
	return l
}

var _ Renderer = Pose{}
