package lambda

import (
	"fmt"
	"image"

	"github.com/teslashibe/go-lens/pkg/inference"
	"github.com/teslashibe/go-lens/pkg/iot"
	"github.com/teslashibe/go-lens/pkg/overlay"
)

// Profile is what distinguishes one lambda from another: how frames are
// prepared for the model, how results are drawn and what gets published.
type Profile struct {
	Name string

	// Model input
	InputSize image.Point
	Region    int  // Side of the centered crop fed to the model; 0 uses the full frame
	SwapRB    bool // Convert BGR frames to RGB before inference

	TopK      int
	Renderer  overlay.Renderer
	Summarize func(top []inference.Result) iot.Payload

	// Status and diagnostic wording
	LoadingStatus    string
	LoadedStatus     string
	DiagnosticPrefix string
}

// DefaultInputSize is the SqueezeNet / ResNet input.
var DefaultInputSize = image.Pt(224, 224)

// DefaultTopK is the number of poses reported by the top-K profile.
const DefaultTopK = 3

// Hotdog is the binary hotdog / not-hotdog classifier on an ImageNet
// SqueezeNet: the payload is {"Hotdog": p, "Not hotdog": 1-p} where p is the
// hotdog probability within the top result.
func Hotdog() Profile {
	r := overlay.Hotdog{Label: overlay.HotdogLabel}
	return Profile{
		Name:      "hotdog",
		InputSize: DefaultInputSize,
		TopK:      1,
		Renderer:  r,
		Summarize: func(top []inference.Result) iot.Payload {
			p := r.HotdogProb(top)
			return iot.Payload{
				overlay.CaptionHotdog:    p,
				overlay.CaptionNotHotdog: 1 - p,
			}
		},
		LoadingStatus:    "Loading hotdog model",
		LoadedStatus:     "Hotdog model loaded",
		DiagnosticPrefix: "Error in hotdog lambda",
	}
}

// TopK is a label-map classifier (yoga poses, caltech256): it crops the
// centered detection region, feeds RGB to the model, shows the top label
// over a translucent panel and publishes label -> probability for the top k.
func TopK(labels inference.Labels, k int) Profile {
	if k <= 0 {
		k = DefaultTopK
	}
	r := overlay.NewPose(labels)
	return Profile{
		Name:      "topk",
		InputSize: DefaultInputSize,
		Region:    r.Region,
		SwapRB:    true,
		TopK:      k,
		Renderer:  r,
		Summarize: func(top []inference.Result) iot.Payload {
			return labelPayload(labels, top)
		},
		LoadingStatus:    "Loading model",
		LoadedStatus:     "Model loaded",
		DiagnosticPrefix: "Error ",
	}
}

// labelPayload maps label names to probabilities. A name already taken by a
// higher-ranked result gets its class index appended ("tree #7") so no entry
// is lost.
func labelPayload(labels inference.Labels, top []inference.Result) iot.Payload {
	p := make(iot.Payload, len(top))
	for _, res := range top {
		name := labels.Name(res.Label)
		if _, taken := p[name]; taken {
			name = fmt.Sprintf("%s #%d", name, res.Label)
		}
		p[name] = res.Prob
	}
	return p
}
