package runlog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xiaot623/agentviz/domain"
)

// ErrInvalidReplayPath is returned when a replay request resolves outside
// the runs root or does not name a .jsonl log. Validation happens before
// any file I/O.
var ErrInvalidReplayPath = errors.New("invalid replay path")

// Replay reads a closed run log fully and returns its events in file
// order. The slice is eagerly loaded; pacing is the caller's concern.
func Replay(root, path string) ([]domain.Event, error) {
	resolved, err := validatePath(root, path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log: %w", err)
	}
	defer file.Close()

	var events []domain.Event
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event domain.Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, fmt.Errorf("malformed run log line: %w", err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// validatePath resolves path and rejects anything that escapes the runs
// root or lacks the .jsonl extension.
func validatePath(root, path string) (string, error) {
	if path == "" {
		return "", ErrInvalidReplayPath
	}
	if filepath.Ext(path) != ".jsonl" {
		return "", ErrInvalidReplayPath
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", ErrInvalidReplayPath
	}
	if real, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = real
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(absRoot, path)
	}
	resolved := filepath.Clean(path)
	// A symlink under the root could point anywhere; the containment check
	// must see the real path. A missing file keeps the cleaned path so the
	// caller still gets ErrNotExist from the open.
	if real, err := filepath.EvalSymlinks(resolved); err == nil {
		resolved = real
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", ErrInvalidReplayPath
	}
	if resolved != absRoot && !strings.HasPrefix(resolved, absRoot+string(filepath.Separator)) {
		return "", ErrInvalidReplayPath
	}
	return resolved, nil
}

// Pace re-emits an eagerly loaded sequence on a channel with a fixed
// inter-event delay. Recorded gaps are deliberately not reproduced; the
// cadence exists for human legibility. The channel closes when the
// sequence ends or the context is cancelled.
func Pace(ctx context.Context, events []domain.Event, interval time.Duration) <-chan domain.Event {
	out := make(chan domain.Event)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for i, event := range events {
			if i > 0 {
				select {
				case <-ticker.C:
				case <-ctx.Done():
					return
				}
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
