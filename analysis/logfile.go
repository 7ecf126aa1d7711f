package analysis

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogFile appends formatted reports to a human readable log. Existing content is never rewritten.
// It is safe for concurrent use.
type LogFile struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *bufio.Writer
}

// NewLogFile returns a log appending to path, or nil for an empty path.
func NewLogFile(path string) *LogFile {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return &LogFile{path: path}
}

func (l *LogFile) Name() string {
	return "logfile"
}

func (l *LogFile) ensureOpenLocked() error {
	if l.file != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	l.file = f
	l.w = bufio.NewWriterSize(f, 64*1024)
	return nil
}

// WriteText appends text and flushes so tailers see complete entries.
func (l *LogFile) WriteText(text string) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureOpenLocked(); err != nil {
		return err
	}

	if _, err := l.w.WriteString(text); err != nil {
		return err
	}
	if !strings.HasSuffix(text, "\n") {
		if err := l.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	return l.w.Flush()
}

func (l *LogFile) Publish(ctx context.Context, report *Report) error {
	return l.WriteText(FormatReport(report))
}

func (l *LogFile) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	if l.w != nil {
		if err := l.w.Flush(); err != nil {
			firstErr = err
		}
	}
	if l.file != nil {
		if err := l.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.w = nil
	l.file = nil

	if firstErr != nil && errors.Is(firstErr, os.ErrClosed) {
		return nil
	}
	return firstErr
}
