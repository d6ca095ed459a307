package summary

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/kittiscan/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run is one recorded pass over a scan sequence.
type Run struct {
	RunID      string
	ScanDir    string
	FrameCount int
	CreatedAt  int64
}

// Store persists frame summaries.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies pending migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open summary database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	// m is not closed: closing it would close db.
	m.Log = migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (migrateLogger) Verbose() bool { return false }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun records a new run over scanDir and returns its ID.
func (s *Store) StartRun(scanDir string, frames int) (string, error) {
	id := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO scan_runs (run_id, scan_dir, frame_count, created_at)
		VALUES (?, ?, ?, ?)`,
		id, scanDir, frames, time.Now().UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// RecordFrame stores fs under runID, replacing an earlier summary of the
// same frame. Seeking back over a frame therefore does not duplicate it.
func (s *Store) RecordFrame(runID string, fs FrameSummary) error {
	labels, err := json.Marshal(fs.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO frame_summaries (
			run_id, frame_index, name, points, trailing_bytes, max_intensity, labels_json
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, fs.Index, fs.Name, fs.Points, fs.TrailingBytes, fs.MaxIntensity, string(labels),
	)
	if err != nil {
		return fmt.Errorf("insert frame %d: %w", fs.Index, err)
	}
	return nil
}

// Frames returns the summaries recorded for runID, ordered by frame index.
func (s *Store) Frames(runID string) ([]FrameSummary, error) {
	rows, err := s.db.Query(`
		SELECT frame_index, name, points, trailing_bytes, max_intensity, labels_json
		FROM frame_summaries
		WHERE run_id = ?
		ORDER BY frame_index`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var out []FrameSummary
	for rows.Next() {
		var fs FrameSummary
		var labels string
		if err := rows.Scan(&fs.Index, &fs.Name, &fs.Points, &fs.TrailingBytes, &fs.MaxIntensity, &labels); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if err := json.Unmarshal([]byte(labels), &fs.Labels); err != nil {
			return nil, fmt.Errorf("frame %d labels: %w", fs.Index, err)
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

// Runs returns all runs, newest first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT run_id, scan_dir, frame_count, created_at
		FROM scan_runs
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.ScanDir, &r.FrameCount, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
