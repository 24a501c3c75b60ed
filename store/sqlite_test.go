package store

import (
	"testing"
	"time"

	"github.com/xiaot623/agentviz/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestCreateAndfinishRun(t *testing.T) {
	s := newTestStore(t)

	record := &domain.RunRecord{
		RunID:     "run_abc123",
		DemoID:    "maker_checker",
		Status:    domain.RunStatusRunning,
		LogPath:   "demos/maker_checker/runs/run_20250301_120000.jsonl",
		StartedAt: time.Now(),
	}
	if err := s.CreateRun(record); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	got, err := s.GetRun("run_abc123")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil || got.Status != domain.RunStatusRunning || got.LogPath != record.LogPath {
		t.Fatalf("unexpected record: %+v", got)
	}

	endedAt := time.Now().Round(time.Millisecond)
	if err := s.FinishRun("run_abc123", domain.RunStatusFailed, endedAt, 7, "model unreachable"); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	got, err = s.GetRun("run_abc123")
	if err != nil {
		t.Fatalf("GetRun after finish failed: %v", err)
	}
	if got.Status != domain.RunStatusFailed || got.EventCount != 7 || got.Error != "model unreachable" {
		t.Fatalf("unexpected finished record: %+v", got)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(endedAt) {
		t.Fatalf("expected ended_at %v, got %v", endedAt, got.EndedAt)
	}
}

func TestGetRunMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetRun("nope")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing run, got %+v", got)
	}
}

func TestListRunsFilterAndOrder(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().Add(-time.Hour)
	records := []domain.RunRecord{
		{RunID: "r1", DemoID: "maker_checker", Status: domain.RunStatusCompleted, LogPath: "a.jsonl", StartedAt: base},
		{RunID: "r2", DemoID: "swarm_auditor", Status: domain.RunStatusCompleted, LogPath: "b.jsonl", StartedAt: base.Add(time.Minute)},
		{RunID: "r3", DemoID: "maker_checker", Status: domain.RunStatusRunning, LogPath: "c.jsonl", StartedAt: base.Add(2 * time.Minute)},
	}
	for i := range records {
		if err := s.CreateRun(&records[i]); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	all, err := s.ListRuns("", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 || all[0].RunID != "r3" {
		t.Fatalf("expected newest first, got %+v", all)
	}

	filtered, err := s.ListRuns("maker_checker", 10)
	if err != nil {
		t.Fatalf("ListRuns filtered failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("expected 2 maker_checker runs, got %d", len(filtered))
	}
}
