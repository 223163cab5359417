package inference

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

func TestParseSortsDescending(t *testing.T) {
	results, err := Parse(TaskClassification, Output{0.1, 0.7, 0.05, 0.7, 0.15})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := []Result{
		{Label: 1, Prob: float64(float32(0.7))},
		{Label: 3, Prob: float64(float32(0.7))},
		{Label: 4, Prob: float64(float32(0.15))},
		{Label: 0, Prob: float64(float32(0.1))},
		{Label: 2, Prob: float64(float32(0.05))},
	}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("results[%d] = %+v, want %+v", i, results[i], want[i])
		}
	}
}

func TestParseUnsupportedTask(t *testing.T) {
	for _, task := range []TaskType{TaskSSD, TaskSegmentation, "pose"} {
		_, err := Parse(task, Output{1})
		if !errors.Is(err, ErrUnsupportedTask) {
			t.Errorf("Parse(%q) error = %v, want ErrUnsupportedTask", task, err)
		}
		var taskErr *TaskError
		if !errors.As(err, &taskErr) || taskErr.Task != task {
			t.Errorf("Parse(%q) error = %v, want *TaskError", task, err)
		}
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := Parse(TaskClassification, nil); !errors.Is(err, ErrEmptyOutput) {
		t.Errorf("err = %v, want ErrEmptyOutput", err)
	}
}

func TestTopK(t *testing.T) {
	results := []Result{{1, 0.9}, {2, 0.05}, {3, 0.03}}

	tests := []struct {
		k    int
		want int
	}{
		{1, 1},
		{2, 2},
		{3, 3},
		{10, 3},
		{0, 3},
		{-1, 3},
	}

	for _, tt := range tests {
		if got := len(TopK(results, tt.k)); got != tt.want {
			t.Errorf("TopK(k=%d) len = %d, want %d", tt.k, got, tt.want)
		}
	}
}

func TestSoftmax(t *testing.T) {
	out := Softmax(Output{1, 2, 3})

	var sum float64
	for _, v := range out {
		sum += float64(v)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("sum = %v, want 1", sum)
	}
	if !(out[2] > out[1] && out[1] > out[0]) {
		t.Errorf("softmax changed order: %v", out)
	}
	if len(Softmax(nil)) != 0 {
		t.Error("Softmax(nil) should be empty")
	}
}

func TestFind(t *testing.T) {
	results := []Result{{934, 0.92}, {12, 0.01}}
	if got := Find(results, 934); got != 0.92 {
		t.Errorf("Find(934) = %v, want 0.92", got)
	}
	if got := Find(results, 7); got != 0 {
		t.Errorf("Find(7) = %v, want 0", got)
	}
}

func TestReadLabels(t *testing.T) {
	labels, err := ReadLabels(strings.NewReader("tree\n warrior \n\nchair\n\n\n"))
	if err != nil {
		t.Fatalf("ReadLabels: %v", err)
	}
	if len(labels) != 4 {
		t.Fatalf("got %d labels, want 4: %q", len(labels), labels)
	}
	if labels.Name(1) != "warrior" {
		t.Errorf("Name(1) = %q, want warrior", labels.Name(1))
	}
	if labels.Name(2) != "class 2" {
		t.Errorf("Name(2) = %q, want class 2", labels.Name(2))
	}
	if labels.Name(99) != "class 99" {
		t.Errorf("Name(99) = %q, want class 99", labels.Name(99))
	}
}

func TestMockModel(t *testing.T) {
	mock := NewMockScores(1000, map[int]float32{934: 0.92})

	frame := gocv.NewMatWithSize(224, 224, gocv.MatTypeCV8UC3)
	defer frame.Close()

	out, err := mock.Infer(frame)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if len(out) != 1000 || out[934] != 0.92 {
		t.Errorf("unexpected output len=%d out[934]=%v", len(out), out[934])
	}

	if mock.CallCount("Infer") != 1 {
		t.Errorf("Expected 1 Infer call, got %d", mock.CallCount("Infer"))
	}
	if last := mock.LastCall(); last == nil || last.Size != [2]int{224, 224} {
		t.Errorf("LastCall = %+v, want 224x224 input", last)
	}

	mock.Reset()
	if len(mock.Calls()) != 0 {
		t.Error("Expected 0 calls after reset")
	}
}

func TestMockWithError(t *testing.T) {
	want := errors.New("device lost")
	mock := WithError(want)

	frame := gocv.NewMatWithSize(2, 2, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if _, err := mock.Infer(frame); !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestDeviceOptionsString(t *testing.T) {
	tests := []struct {
		opts DeviceOptions
		want string
	}{
		{DeviceOptions{}, "cpu"},
		{DeviceOptions{GPU: true}, "gpu"},
		{DeviceOptions{GPU: true, FP16: true}, "gpu-fp16"},
	}
	for _, tt := range tests {
		if got := tt.opts.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.opts, got, tt.want)
		}
	}
}

func TestArtifactPair(t *testing.T) {
	tests := []struct {
		path, model, config string
	}{
		{"models/squeezenet.onnx", "models/squeezenet.onnx", ""},
		{"models/pose.xml", "models/pose.bin", "models/pose.xml"},
		{"models/deploy.prototxt", "models/deploy.caffemodel", "models/deploy.prototxt"},
	}
	for _, tt := range tests {
		model, config := artifactPair(tt.path)
		if model != tt.model || config != tt.config {
			t.Errorf("artifactPair(%q) = (%q, %q), want (%q, %q)", tt.path, model, config, tt.model, tt.config)
		}
	}
}

func TestLoadModelMissing(t *testing.T) {
	_, err := LoadModel("testdata/does-not-exist.onnx", DeviceOptions{})
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("err = %v, want ErrModelNotFound", err)
	}
}
