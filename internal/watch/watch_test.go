package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const testDoc = `| 序号 | URL | 状态 | 失败原因 | Tao样本数 | FFmpeg样本数 | 样本数差异 | max_err | psnr(dB) | 精度(%) | 备注 |
| --- | --- | --- | --- | --- | --- | --- | --- | --- | --- | --- |
| 1 | a.aac | 成功 |  | 480 | 480 | 0 | 0.50 | 42.31 | 100.00 |  |
| 2 | b.aac |  |  |  |  |  |  |  |  |  |
`

// syncBuffer makes writes from the watcher's reload goroutine safe to read
// back from the test.
type syncBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

func writeDoc(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.md")
	if err := os.WriteFile(path, []byte(testDoc), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReportPrintsSummaryLine(t *testing.T) {
	var out syncBuffer
	w := New(writeDoc(t), &out)
	w.report()

	got := out.String()
	if !strings.Contains(got, "total=2 success=1(imprecise=0) failure=0 skipped=0 pending=1") {
		t.Errorf("output = %q", got)
	}
}

func TestReportLoadFailure(t *testing.T) {
	var out syncBuffer
	w := New(filepath.Join(t.TempDir(), "missing.md"), &out)
	w.report()

	if !strings.Contains(out.String(), "reload failed") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	var out syncBuffer
	w := New(writeDoc(t), &out)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The initial summary is printed synchronously before the event loop.
	deadline := time.After(5 * time.Second)
	for !strings.Contains(out.String(), "total=2") {
		select {
		case <-deadline:
			t.Fatal("initial summary never printed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v on cancel", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestRunObservesRewrite(t *testing.T) {
	path := writeDoc(t)
	var out syncBuffer
	w := New(path, &out)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Wait for the initial summary so the watch is established.
	deadline := time.After(5 * time.Second)
	for !strings.Contains(out.String(), "pending=1") {
		select {
		case <-deadline:
			t.Fatal("initial summary never printed")
		case <-time.After(10 * time.Millisecond):
		}
	}

	updated := strings.Replace(testDoc,
		"| 2 | b.aac |  |  |  |  |  |  |  |  |  |",
		"| 2 | b.aac | 失败 | 解析失败 |  |  |  |  |  |  |  |", 1)
	if err := os.WriteFile(path, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}

	deadline = time.After(5 * time.Second)
	for !strings.Contains(out.String(), "failure=1") {
		select {
		case <-deadline:
			t.Fatalf("updated summary never printed, output:\n%s", out.String())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done
}
