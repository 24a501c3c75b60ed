package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/xiaot623/agentviz/domain"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			demo_id TEXT NOT NULL,
			status TEXT NOT NULL,
			log_path TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			ended_at DATETIME,
			event_count INTEGER NOT NULL DEFAULT 0,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_demo ON runs(demo_id, started_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateRun records a newly started run.
func (s *SQLiteStore) CreateRun(record *domain.RunRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, demo_id, status, log_path, started_at, event_count) VALUES (?, ?, ?, ?, ?, ?)`,
		record.RunID, record.DemoID, record.Status, record.LogPath, record.StartedAt, record.EventCount)
	return err
}

// FinishRun marks a run as completed or failed.
func (s *SQLiteStore) FinishRun(runID string, status domain.RunStatus, endedAt time.Time, eventCount int, errText string) error {
	var errVal sql.NullString
	if errText != "" {
		errVal = sql.NullString{String: errText, Valid: true}
	}
	_, err := s.db.Exec(
		`UPDATE runs SET status = ?, ended_at = ?, event_count = ?, error = ? WHERE run_id = ?`,
		status, endedAt, eventCount, errVal, runID)
	return err
}

// GetRun retrieves a run record by ID.
func (s *SQLiteStore) GetRun(runID string) (*domain.RunRecord, error) {
	var record domain.RunRecord
	var endedAt sql.NullTime
	var errText sql.NullString
	err := s.db.QueryRow(
		`SELECT run_id, demo_id, status, log_path, started_at, ended_at, event_count, error FROM runs WHERE run_id = ?`,
		runID).Scan(&record.RunID, &record.DemoID, &record.Status, &record.LogPath,
		&record.StartedAt, &endedAt, &record.EventCount, &errText)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		record.EndedAt = &endedAt.Time
	}
	if errText.Valid {
		record.Error = errText.String
	}
	return &record, nil
}

// ListRuns lists runs, newest first, optionally filtered by demo.
func (s *SQLiteStore) ListRuns(demoID string, limit int) ([]domain.RunRecord, error) {
	query := `SELECT run_id, demo_id, status, log_path, started_at, ended_at, event_count, error FROM runs`
	args := []interface{}{}

	if demoID != "" {
		query += ` WHERE demo_id = ?`
		args = append(args, demoID)
	}

	query += ` ORDER BY started_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.RunRecord
	for rows.Next() {
		var record domain.RunRecord
		var endedAt sql.NullTime
		var errText sql.NullString
		if err := rows.Scan(&record.RunID, &record.DemoID, &record.Status, &record.LogPath,
			&record.StartedAt, &endedAt, &record.EventCount, &errText); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			record.EndedAt = &endedAt.Time
		}
		if errText.Valid {
			record.Error = errText.String
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
