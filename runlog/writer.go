// Package runlog provides the durable JSONL record of a run and its replay.
package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xiaot623/agentviz/domain"
)

// Writer appends one run's events to a JSONL file, one record per line.
// Single-writer while open; the file is immutable once Close returns.
type Writer struct {
	path string
	file *os.File
	buf  *bufio.Writer
}

// NewWriter opens a fresh log for a run under <root>/<demoID>/runs/,
// named with the run's start timestamp.
func NewWriter(root, demoID string, startedAt time.Time) (*Writer, error) {
	dir := filepath.Join(root, demoID, "runs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create runs dir: %w", err)
	}

	path := filepath.Join(dir, "run_"+startedAt.Format("20060102_150405")+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}

	return &Writer{
		path: path,
		file: file,
		buf:  bufio.NewWriter(file),
	}, nil
}

// Path returns the log file path.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one event and flushes it. Durability over throughput: the
// event rate is bounded by model latency, not by this write.
func (w *Writer) Append(event domain.Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := w.buf.Write(line); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close flushes and closes the log. The file is read-only from here on.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
