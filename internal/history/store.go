// Package history records which regions were played, when, and under which
// setlist, backed by SQLite. Performers review it after a show through the
// CLI; nothing in the live path depends on it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"stagepilot/internal/config"
)

// Entry is one recorded region play.
type Entry struct {
	ID         int64      `json:"id"`
	ProjectID  string     `json:"projectId,omitempty"`
	RegionID   string     `json:"regionId"`
	RegionName string     `json:"regionName"`
	SetlistID  string     `json:"setlistId,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
}

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.HistoryDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginPlay inserts an open entry and returns its id.
func (s *Store) BeginPlay(ctx context.Context, entry Entry) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO region_plays (project_id, region_id, region_name, setlist_id, started_at)
         VALUES (?, ?, ?, ?, ?)`,
		entry.ProjectID,
		entry.RegionID,
		entry.RegionName,
		entry.SetlistID,
		entry.StartedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert region play: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// EndPlay stamps the end time on an open entry. Ending an already closed
// entry is a no-op.
func (s *Store) EndPlay(ctx context.Context, id int64, endedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE region_plays SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		endedAt.UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("end region play: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, region_id, region_name, setlist_id, started_at, ended_at
         FROM region_plays ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query region plays: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry   Entry
			started string
			ended   sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.ProjectID, &entry.RegionID, &entry.RegionName, &entry.SetlistID, &started, &ended); err != nil {
			return nil, fmt.Errorf("scan region play: %w", err)
		}
		startedAt, err := time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		entry.StartedAt = startedAt
		if ended.Valid {
			endedAt, err := time.Parse(time.RFC3339Nano, ended.String)
			if err != nil {
				return nil, fmt.Errorf("parse ended_at: %w", err)
			}
			entry.EndedAt = &endedAt
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate region plays: %w", err)
	}
	return entries, nil
}
