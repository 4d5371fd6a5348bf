// Package watch follows a coverage report while a run records rows, printing
// one summary line per observed change.
package watch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/tao-codec/coverage/internal/report"
	"github.com/tao-codec/coverage/internal/status"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher tails the report document via fsnotify. The report is replaced by
// rename on every recorded row, so the watch targets the directory and
// filters events down to the report's base name.
type Watcher struct {
	reportPath string
	out        io.Writer
	debounce   time.Duration

	// sf collapses reloads when rename bursts outpace a slow in-flight load.
	sf singleflight.Group
}

func New(reportPath string, out io.Writer) *Watcher {
	return &Watcher{
		reportPath: reportPath,
		out:        out,
		debounce:   defaultDebounce,
	}
}

// Run prints the current summary, then blocks printing a line per change
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.reportPath)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	w.report()

	base := filepath.Base(w.reportPath)
	debounce := time.NewTimer(w.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	armed := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if armed && !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(w.debounce)
			armed = true

		case <-debounce.C:
			armed = false
			go w.report()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

// report reloads the document and prints one summary line. Concurrent calls
// share a single load.
func (w *Watcher) report() {
	v, err, _ := w.sf.Do("reload", func() (any, error) {
		rep, err := report.Load(w.reportPath)
		if err != nil {
			return nil, err
		}
		return status.Summarize(rep), nil
	})
	ts := time.Now().Format(time.RFC3339)
	if err != nil {
		fmt.Fprintf(w.out, "%s reload failed: %v\n", ts, err)
		return
	}
	fmt.Fprintf(w.out, "%s %s\n", ts, v.(status.Summary).Line())
}
