package domain

import "time"

// RunStatus represents the status of a run in the catalog.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// RunRecord is one row in the run catalog: a finished or in-flight run and
// the log file that holds its event sequence.
type RunRecord struct {
	RunID      string     `json:"run_id"`
	DemoID     string     `json:"demo_id"`
	Status     RunStatus  `json:"status"`
	LogPath    string     `json:"log_path"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	EventCount int        `json:"event_count"`
	Error      string     `json:"error,omitempty"`
}
