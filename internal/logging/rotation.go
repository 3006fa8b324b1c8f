package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Rotation bounds for the client log. The watch command can run for
// days against a busy service, so the log file is size-capped instead
// of growing without bound.
const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
)

// rotatingWriter is an io.Writer over a log file that renames the file
// aside and reopens it once it grows past the size cap. Backups are
// numbered client.log.1 (newest) through client.log.N. Safe for
// concurrent use.
type rotatingWriter struct {
	mu          sync.Mutex
	path        string
	maxBytes    int64
	maxBackups  int
	file        *os.File
	currentSize int64
}

// newRotatingWriter opens (or creates) the log file at path.
func newRotatingWriter(path string) (*rotatingWriter, error) {
	w := &rotatingWriter{
		path:       path,
		maxBytes:   maxLogSizeMB * 1024 * 1024,
		maxBackups: maxLogBackups,
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// open opens the log file and records its size. Caller holds the lock.
func (w *rotatingWriter) open() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	w.file = file
	w.currentSize = info.Size()
	return nil
}

// Write appends to the log file, rotating first when the write would
// push the file past the cap. A failed rotation is reported on stderr
// and the write proceeds on the current file; losing rotation is better
// than losing log lines.
func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, fmt.Errorf("log file is closed")
	}

	if w.currentSize+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: log rotation failed: %v\n", err)
		}
	}

	n, err := w.file.Write(p)
	w.currentSize += int64(n)
	return n, err
}

// rotate shifts backups up one slot, moves the live file to .1 and
// reopens a fresh one. Caller holds the lock.
func (w *rotatingWriter) rotate() error {
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	w.file = nil

	os.Remove(w.backupPath(w.maxBackups))
	for i := w.maxBackups - 1; i >= 1; i-- {
		if _, err := os.Stat(w.backupPath(i)); err == nil {
			os.Rename(w.backupPath(i), w.backupPath(i+1))
		}
	}

	if err := os.Rename(w.path, w.backupPath(1)); err != nil {
		if openErr := w.open(); openErr != nil {
			return fmt.Errorf("failed to rename log file and reopen: %w", openErr)
		}
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	return w.open()
}

func (w *rotatingWriter) backupPath(n int) string {
	return fmt.Sprintf("%s.%d", w.path, n)
}

// Close syncs and closes the underlying file.
func (w *rotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	w.file = nil
	return nil
}
