package dataset

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/teslashibe/go-lens/internal/command"
)

func TestJobsOrder(t *testing.T) {
	jobs := Jobs("/data/yoga/train", "/data/yoga/validation", "/out")
	if len(jobs) != 4 {
		t.Fatalf("got %d jobs, want 4", len(jobs))
	}

	want := []Job{
		{StepList, "/out/train", "/data/yoga/train"},
		{StepList, "/out/validation", "/data/yoga/validation"},
		{StepPack, "/out/train", "/data/yoga/train"},
		{StepPack, "/out/validation", "/data/yoga/validation"},
	}
	for i := range want {
		if jobs[i] != want[i] {
			t.Errorf("job %d = %+v, want %+v", i, jobs[i], want[i])
		}
	}
}

func TestRunCommandLines(t *testing.T) {
	rec := &command.Recorder{}
	m := New("/opt/mxnet")
	m.Runner = rec

	if err := m.Run(context.Background(), Jobs("/src/train", "/src/validation", "/out")); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"python3 /opt/mxnet/tools/im2rec.py /out/train /src/train --recursive --list --num-thread 8",
		"python3 /opt/mxnet/tools/im2rec.py /out/validation /src/validation --recursive --list --num-thread 8",
		"python3 /opt/mxnet/tools/im2rec.py /out/train /src/train --recursive --pass-through --pack-label --num-thread 8",
		"python3 /opt/mxnet/tools/im2rec.py /out/validation /src/validation --recursive --pass-through --pack-label --num-thread 8",
	}
	calls := rec.Calls()
	if len(calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(calls), len(want))
	}
	for i, c := range calls {
		if c.String() != want[i] {
			t.Errorf("call %d:\n got %s\nwant %s", i, c, want[i])
		}
	}
}

func TestRunContinuesAfterFailure(t *testing.T) {
	boom := errors.New("no such file")
	rec := &command.Recorder{
		RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			if strings.Contains(strings.Join(args, " "), "--list") && strings.Contains(args[1], "validation") {
				return nil, boom
			}
			return nil, nil
		},
	}
	m := New("/opt/mxnet")
	m.Runner = rec

	err := m.Run(context.Background(), Jobs("a", "b", "out"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want to wrap %v", err, boom)
	}
	if !strings.Contains(err.Error(), "list validation") {
		t.Errorf("error %q does not name the job", err)
	}
	if n := len(rec.Calls()); n != 4 {
		t.Errorf("got %d calls, want all 4 despite the failure", n)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	rec := &command.Recorder{}
	m := New("/opt/mxnet")
	m.Runner = rec

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.Run(ctx, Jobs("a", "b", "out")); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if n := len(rec.Calls()); n != 0 {
		t.Errorf("got %d calls after cancel", n)
	}
}

func TestArgsThreads(t *testing.T) {
	m := &Im2Rec{Tool: "im2rec.py", Threads: 2}
	args := m.Args(Job{Step: StepList, Prefix: "p", Root: "r"})
	if got := strings.Join(args, " "); got != "im2rec.py p r --recursive --list --num-thread 2" {
		t.Errorf("args = %q", got)
	}

	m.Threads = 0
	args = m.Args(Job{Step: StepPack, Prefix: "p", Root: "r"})
	if args[len(args)-1] != "8" {
		t.Errorf("zero threads should fall back to the default, got %v", args)
	}
}

func TestRunWithoutRunnerUsesExec(t *testing.T) {
	// No Runner set: the missing interpreter must surface as an error
	m := &Im2Rec{Python: "lens-no-such-python", Tool: "im2rec.py"}

	err := m.Run(context.Background(), Jobs("a", "b", t.TempDir()))
	if err == nil {
		t.Fatal("expected an error from the missing interpreter")
	}
	var cmdErr *command.Error
	if !errors.As(err, &cmdErr) {
		t.Errorf("err = %v, want a *command.Error", err)
	}
}
