package shell

import (
	"context"
	"testing"
	"time"
)

func TestRunCapturesExitCode(t *testing.T) {
	res, err := Run(context.Background(), 2*time.Second, "sh", "-c", "echo out; echo err >&2; exit 3")
	if err == nil {
		t.Fatalf("expected non-nil error for exit 3")
	}
	if res.Code != 3 {
		t.Fatalf("code = %d, want 3", res.Code)
	}
	if string(res.Stdout) != "out\n" {
		t.Fatalf("stdout = %q", res.Stdout)
	}
	if string(res.Stderr) != "err\n" {
		t.Fatalf("stderr = %q", res.Stderr)
	}
}

func TestRunTimeout(t *testing.T) {
	_, err := Run(context.Background(), 50*time.Millisecond, "sleep", "5")
	if err != ErrTimeout {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
}

func TestLines(t *testing.T) {
	r := Result{Stdout: []byte("a\r\n\nb\n  \nc")}
	got := r.Lines()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("lines = %v", got)
	}
}
