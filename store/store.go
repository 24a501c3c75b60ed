// Package store defines the run catalog interface and implementations.
package store

import (
	"time"

	"github.com/xiaot623/agentviz/domain"
)

// Store persists the run catalog: one record per run, pointing at its log
// file so the replay picker can list past runs. endedAt is the terminal
// event's own timestamp, keeping the catalog consistent with the log.
type Store interface {
	CreateRun(record *domain.RunRecord) error
	FinishRun(runID string, status domain.RunStatus, endedAt time.Time, eventCount int, errText string) error
	GetRun(runID string) (*domain.RunRecord, error)
	ListRuns(demoID string, limit int) ([]domain.RunRecord, error)
	Close() error
}
