package compare

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunCapturesOutputAndEnv(t *testing.T) {
	r := NewRunner("COMPARE_INPUT", []string{"sh", "-c", "echo got $COMPARE_INPUT; echo diag >&2"})
	res := r.Run(context.Background(), "sample1.aac", 10*time.Second)

	if res.ExitCode != 0 {
		t.Fatalf("ExitCode = %d, want 0 (output: %q)", res.ExitCode, res.Output)
	}
	if res.TimedOut {
		t.Error("TimedOut = true")
	}
	if !strings.Contains(res.Output, "got sample1.aac") {
		t.Errorf("stdout missing sample locator: %q", res.Output)
	}
	if !strings.Contains(res.Output, "diag") {
		t.Errorf("stderr not captured: %q", res.Output)
	}
}

func TestRunNonzeroExit(t *testing.T) {
	r := NewRunner("COMPARE_INPUT", []string{"sh", "-c", "echo partial; exit 3"})
	res := r.Run(context.Background(), "s.aac", 10*time.Second)

	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.TimedOut {
		t.Error("TimedOut = true")
	}
	if !strings.Contains(res.Output, "partial") {
		t.Errorf("output before exit not captured: %q", res.Output)
	}
}

func TestRunTimeout(t *testing.T) {
	r := NewRunner("COMPARE_INPUT", []string{"sh", "-c", "echo before; sleep 30"})
	start := time.Now()
	res := r.Run(context.Background(), "s.aac", 200*time.Millisecond)

	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("run took %v, kill did not happen", elapsed)
	}
	if res.ExitCode != TimeoutExitCode {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, TimeoutExitCode)
	}
	if !res.TimedOut {
		t.Error("TimedOut = false")
	}
	if !strings.Contains(res.Output, TimeoutMarker) {
		t.Errorf("output missing timeout marker: %q", res.Output)
	}
	if !strings.Contains(res.Output, "before") {
		t.Errorf("output captured before the kill was lost: %q", res.Output)
	}
}

func TestRunSpawnFailure(t *testing.T) {
	r := NewRunner("COMPARE_INPUT", []string{"/nonexistent/compare-binary"})
	res := r.Run(context.Background(), "s.aac", time.Second)

	if res.ExitCode != SpawnExitCode {
		t.Errorf("ExitCode = %d, want %d", res.ExitCode, SpawnExitCode)
	}
	if strings.TrimSpace(res.Output) == "" {
		t.Error("spawn failure should surface the error text as output")
	}
}
