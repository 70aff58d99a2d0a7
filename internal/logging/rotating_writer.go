package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RotatingFileWriter is an io.WriteCloser that starts a new file once the
// current one would exceed maxSize bytes. Rotated files are renamed to
// <name>-<timestamp><ext> and only the newest maxBackups are kept.
type RotatingFileWriter struct {
	mu         sync.Mutex
	file       *os.File
	filePath   string
	maxSize    int64
	maxBackups int
	size       int64
	now        func() time.Time
}

// NewRotatingFileWriter opens (or creates) filePath for appending
func NewRotatingFileWriter(filePath string, maxSize int64, maxBackups int) (*RotatingFileWriter, error) {
	w := &RotatingFileWriter{
		filePath:   filePath,
		maxSize:    maxSize,
		maxBackups: maxBackups,
		now:        time.Now,
	}

	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements io.Writer
func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.maxSize > 0 && w.size > 0 && w.size+int64(len(p)) > w.maxSize {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the current file
func (w *RotatingFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingFileWriter) open() error {
	file, err := os.OpenFile(w.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return err
	}
	w.file = file
	w.size = info.Size()
	return nil
}

func (w *RotatingFileWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(w.filePath, w.backupName()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	if err := w.open(); err != nil {
		return err
	}
	return w.prune()
}

func (w *RotatingFileWriter) backupName() string {
	ext := filepath.Ext(w.filePath)
	base := strings.TrimSuffix(w.filePath, ext)
	return fmt.Sprintf("%s-%s%s", base, w.now().Format("20060102T150405.000000000"), ext)
}

// backups lists rotated files, oldest first
func (w *RotatingFileWriter) backups() ([]string, error) {
	ext := filepath.Ext(w.filePath)
	base := strings.TrimSuffix(w.filePath, ext)
	matches, err := filepath.Glob(base + "-*" + ext)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (w *RotatingFileWriter) prune() error {
	if w.maxBackups <= 0 {
		return nil
	}
	files, err := w.backups()
	if err != nil {
		return err
	}
	for len(files) > w.maxBackups {
		if err := os.Remove(files[0]); err != nil && !os.IsNotExist(err) {
			return err
		}
		files = files[1:]
	}
	return nil
}

var _ io.WriteCloser = (*RotatingFileWriter)(nil)
