// Package lock guards a report against concurrent runner invocations. Two
// runs interleaving their whole-document writes would silently drop each
// other's rows, so the run refuses to start instead.
package lock

import (
	"fmt"
	"os"
	"syscall"
)

// RunLock is an advisory flock on a sidecar file next to the report. The
// holder's PID is written into the file for operator diagnosis.
type RunLock struct {
	path string
	file *os.File
}

// ForReport returns the lock guarding reportPath.
func ForReport(reportPath string) *RunLock {
	return &RunLock{path: reportPath + ".lock"}
}

// Acquire takes the lock without blocking. It fails when another runner
// already holds it.
func (l *RunLock) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return fmt.Errorf("report is locked (another coverage run in progress?): %w", err)
	}
	if err := writePid(f); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return err
	}
	l.file = f
	return nil
}

func writePid(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("write pid to lock file: %w", err)
	}
	return f.Sync()
}

// Release unlocks and removes the sidecar file. Safe to call when the lock
// was never acquired.
func (l *RunLock) Release() error {
	if l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("release lock: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	os.Remove(l.path)
	l.file = nil
	return nil
}
