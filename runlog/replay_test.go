package runlog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/xiaot623/agentviz/domain"
)

func writeTestLog(t *testing.T, root string, events []domain.Event) string {
	t.Helper()
	w, err := NewWriter(root, "maker_checker", time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	for _, event := range events {
		if err := w.Append(event); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return w.Path()
}

func testEvents() []domain.Event {
	return []domain.Event{
		{Type: domain.EventTypeRunStarted, Seq: 0, Timestamp: 100.5, DemoID: "maker_checker",
			Data: map[string]interface{}{"prompt": "review this"}},
		{Type: domain.EventTypeAgentMessage, Seq: 1, Timestamp: 101.25, DemoID: "maker_checker",
			Data: map[string]interface{}{"agent": "Worker", "message": "draft"}},
		{Type: domain.EventTypeRunCompleted, Seq: 2, Timestamp: 102.0, DemoID: "maker_checker",
			Data: map[string]interface{}{}},
	}
}

func TestReplayRoundTrip(t *testing.T) {
	root := t.TempDir()
	events := testEvents()
	path := writeTestLog(t, root, events)

	got, err := Replay(root, path)
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if !reflect.DeepEqual(got, events) {
		t.Fatalf("replay mismatch:\n got %+v\nwant %+v", got, events)
	}
}

func TestReplayDeterministic(t *testing.T) {
	root := t.TempDir()
	path := writeTestLog(t, root, testEvents())

	first, err := Replay(root, path)
	if err != nil {
		t.Fatalf("first replay failed: %v", err)
	}
	second, err := Replay(root, path)
	if err != nil {
		t.Fatalf("second replay failed: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("two replays of the same log differ")
	}
}

func TestReplayRelativePath(t *testing.T) {
	root := t.TempDir()
	path := writeTestLog(t, root, testEvents())

	rel, err := filepath.Rel(root, path)
	if err != nil {
		t.Fatalf("Rel failed: %v", err)
	}

	got, err := Replay(root, rel)
	if err != nil {
		t.Fatalf("Replay with relative path failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
}

func TestReplayPathValidation(t *testing.T) {
	root := t.TempDir()

	cases := []string{
		"../../etc/passwd",
		"../outside.jsonl",
		"run.txt",
		"",
		filepath.Join(root, "..", "escape.jsonl"),
	}
	for _, path := range cases {
		if _, err := Replay(root, path); !errors.Is(err, ErrInvalidReplayPath) {
			t.Fatalf("Replay(%q): expected ErrInvalidReplayPath, got %v", path, err)
		}
	}
}

func TestReplayRejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()

	outside := filepath.Join(t.TempDir(), "secret.jsonl")
	if err := os.WriteFile(outside, []byte(`{"type":"run-started","seq":0,"timestamp":1,"data":{}}`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "escape.jsonl")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := Replay(root, "escape.jsonl"); !errors.Is(err, ErrInvalidReplayPath) {
		t.Fatalf("expected ErrInvalidReplayPath for symlink escape, got %v", err)
	}
}

func TestReplayUnknownTypeFoldsToUnknown(t *testing.T) {
	root := t.TempDir()
	w, err := NewWriter(root, "maker_checker", time.Now())
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	event := domain.Event{Type: "mystery-event", Seq: 0, Timestamp: 1,
		Data: map[string]interface{}{"agent": "Worker"}}
	if err := w.Append(event); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	got, err := Replay(root, w.Path())
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if len(got) != 1 || got[0].Type != domain.EventTypeUnknown {
		t.Fatalf("expected unknown type, got %+v", got)
	}
}

func TestPaceDeliversInOrder(t *testing.T) {
	events := testEvents()

	var got []domain.Event
	for event := range Pace(context.Background(), events, time.Millisecond) {
		got = append(got, event)
	}
	if !reflect.DeepEqual(got, events) {
		t.Fatalf("paced delivery reordered events")
	}
}

func TestPaceCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ch := Pace(ctx, testEvents(), time.Hour)
	first, ok := <-ch
	if !ok || first.Seq != 0 {
		t.Fatalf("expected first event immediately, got %+v ok=%v", first, ok)
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected channel to close after cancel")
		}
	case <-time.After(time.Second):
		t.Fatalf("pacer did not stop after cancel")
	}
}
