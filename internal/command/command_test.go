package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

func TestExecRun(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	out, err := Exec{}.Run(context.Background(), "sh", "-c", "echo hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(string(out)) != "hello" {
		t.Errorf("output = %q, want hello", out)
	}
}

func TestExecRunFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	_, err := Exec{Env: []string{"LENS_TEST=boom"}}.Run(context.Background(), "sh", "-c", "echo $LENS_TEST >&2; exit 3")

	var cmdErr *Error
	if !errors.As(err, &cmdErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if !strings.Contains(cmdErr.Error(), "boom") {
		t.Errorf("error %q should carry stderr", cmdErr.Error())
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
		t.Errorf("exit error = %v, want code 3", err)
	}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	r.Run(context.Background(), "mo", "--input_model", "a.onnx")
	r.Run(context.Background(), "python3", "im2rec.py")

	calls := r.Calls()
	if len(calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(calls))
	}
	if calls[0].String() != "mo --input_model a.onnx" {
		t.Errorf("calls[0] = %q", calls[0].String())
	}
}
