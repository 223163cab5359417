// Package inference runs classification networks on frames and turns the raw
// output tensor into ranked results.
//
// Models are loaded once through gocv's dnn module and kept for the process
// lifetime:
//
//	model, _ := inference.LoadModel("squeezenet.onnx", inference.DeviceOptions{GPU: true})
//	defer model.Close()
//
//	out, _ := model.Infer(frame)
//	results, _ := inference.Parse(inference.TaskClassification, out)
//	top := inference.TopK(results, 1)
package inference

import (
	"math"
	"sort"

	"gocv.io/x/gocv"
)

// Model runs a network on a prepared frame.
type Model interface {
	// Infer runs a forward pass and returns the flattened output tensor.
	Infer(input gocv.Mat) (Output, error)

	// Close releases the network.
	Close() error
}

// Output is a flattened output tensor.
type Output []float32

// TaskType selects how an output tensor is interpreted.
type TaskType string

// Supported task types. Only classification is parsed.
const (
	TaskClassification TaskType = "classification"
	TaskSSD            TaskType = "ssd"
	TaskSegmentation   TaskType = "segmentation"
)

// Result is one class score.
type Result struct {
	Label int     `json:"label"`
	Prob  float64 `json:"prob"`
}

// Parse converts raw model output into results ordered by descending
// probability. Equal probabilities keep the lower label first.
func Parse(task TaskType, out Output) ([]Result, error) {
	if task != TaskClassification {
		return nil, &TaskError{Task: task}
	}
	if len(out) == 0 {
		return nil, ErrEmptyOutput
	}

	results := make([]Result, len(out))
	for i, p := range out {
		results[i] = Result{Label: i, Prob: float64(p)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Prob > results[j].Prob
	})
	return results, nil
}

// TopK returns the first k results. k <= 0 or k beyond the length returns
// all of them.
func TopK(results []Result, k int) []Result {
	if k <= 0 || k >= len(results) {
		return results
	}
	return results[:k]
}

// Softmax normalizes raw logits into probabilities summing to 1.
func Softmax(out Output) Output {
	if len(out) == 0 {
		return out
	}

	max := out[0]
	for _, v := range out[1:] {
		if v > max {
			max = v
		}
	}

	norm := make(Output, len(out))
	var sum float64
	for i, v := range out {
		e := math.Exp(float64(v - max))
		norm[i] = float32(e)
		sum += e
	}
	for i := range norm {
		norm[i] = float32(float64(norm[i]) / sum)
	}
	return norm
}

// Find returns the probability of label, or 0 when it is not in results.
func Find(results []Result, label int) float64 {
	for _, r := range results {
		if r.Label == label {
			return r.Prob
		}
	}
	return 0
}
