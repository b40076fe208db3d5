// Package archive records sweep results in a SQLite database so convergence
// tables from different sweeps can be compared later.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"convsweep/internal/summary"
)

// Sweep status values
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Sweep is one archived sweep.
type Sweep struct {
	ID         string
	Project    string
	Exe        string
	Prm        string
	Degrees    []string
	Meshes     []string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Error      string
}

// Store is a SQLite-backed archive.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// Open creates or opens an archive at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; the sweep is sequential anyway.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sweeps (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		exe TEXT NOT NULL,
		prm TEXT NOT NULL,
		degrees_json TEXT NOT NULL,
		meshes_json TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		error TEXT
	);

	CREATE TABLE IF NOT EXISTS sweep_rows (
		sweep_id TEXT NOT NULL REFERENCES sweeps(id),
		seq INTEGER NOT NULL,
		degree TEXT NOT NULL,
		mesh TEXT NOT NULL,
		project TEXT NOT NULL,
		l2_json TEXT NOT NULL,
		linf_json TEXT NOT NULL,
		cost_per_dof REAL NOT NULL,
		wall_ns INTEGER NOT NULL,
		PRIMARY KEY (sweep_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_sweeps_project ON sweeps(project);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// BeginSweep inserts a sweep in running state.
func (s *Store) BeginSweep(ctx context.Context, sw Sweep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	degrees, err := json.Marshal(sw.Degrees)
	if err != nil {
		return err
	}
	meshes, err := json.Marshal(sw.Meshes)
	if err != nil {
		return err
	}
	if sw.StartedAt.IsZero() {
		sw.StartedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sweeps (id, project, exe, prm, degrees_json, meshes_json, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sw.ID, sw.Project, sw.Exe, sw.Prm, string(degrees), string(meshes), StatusRunning, sw.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert sweep: %w", err)
	}
	return nil
}

// RecordRow stores one summary row. seq is the 1-based position in the sweep.
func (s *Store) RecordRow(ctx context.Context, sweepID string, seq int, row summary.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l2, err := json.Marshal(row.L2)
	if err != nil {
		return err
	}
	linf, err := json.Marshal(row.Linf)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sweep_rows (sweep_id, seq, degree, mesh, project, l2_json, linf_json, cost_per_dof, wall_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sweepID, seq, row.Degree, row.MeshName, row.ProjectName, string(l2), string(linf), row.CostPerDOF, row.Wall.Nanoseconds())
	if err != nil {
		return fmt.Errorf("failed to insert row: %w", err)
	}
	return nil
}

// FinishSweep marks a sweep completed, or failed when runErr is non-nil.
func (s *Store) FinishSweep(ctx context.Context, sweepID string, runErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, msg := StatusCompleted, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sweeps SET status = ?, finished_at = ?, error = ? WHERE id = ?`,
		status, time.Now().UTC(), msg, sweepID)
	if err != nil {
		return fmt.Errorf("failed to update sweep: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sweep %s not found", sweepID)
	}
	return nil
}

// GetSweep loads a sweep by ID.
func (s *Store) GetSweep(ctx context.Context, sweepID string) (*Sweep, error) {
	var (
		sw              Sweep
		degrees, meshes string
		finished        sql.NullTime
		errMsg          sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project, exe, prm, degrees_json, meshes_json, status, started_at, finished_at, error
		 FROM sweeps WHERE id = ?`, sweepID).
		Scan(&sw.ID, &sw.Project, &sw.Exe, &sw.Prm, &degrees, &meshes, &sw.Status, &sw.StartedAt, &finished, &errMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to load sweep %s: %w", sweepID, err)
	}
	if err := json.Unmarshal([]byte(degrees), &sw.Degrees); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(meshes), &sw.Meshes); err != nil {
		return nil, err
	}
	if finished.Valid {
		sw.FinishedAt = finished.Time
	}
	sw.Error = errMsg.String
	return &sw, nil
}

// Rows returns the rows of a sweep in sweep order.
func (s *Store) Rows(ctx context.Context, sweepID string) ([]summary.Row, error) {
	rs, err := s.db.QueryContext(ctx,
		`SELECT degree, mesh, project, l2_json, linf_json, cost_per_dof, wall_ns
		 FROM sweep_rows WHERE sweep_id = ? ORDER BY seq`, sweepID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rows: %w", err)
	}
	defer rs.Close()

	var out []summary.Row
	for rs.Next() {
		var (
			r        summary.Row
			l2, linf string
			wallNs   int64
		)
		if err := rs.Scan(&r.Degree, &r.MeshName, &r.ProjectName, &l2, &linf, &r.CostPerDOF, &wallNs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(l2), &r.L2); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(linf), &r.Linf); err != nil {
			return nil, err
		}
		r.Wall = time.Duration(wallNs)
		out = append(out, r)
	}
	return out, rs.Err()
}

// LatestSweeps returns the most recent sweeps of a project, newest first.
func (s *Store) LatestSweeps(ctx context.Context, project string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rs, err := s.db.QueryContext(ctx,
		`SELECT id FROM sweeps WHERE project = ? ORDER BY started_at DESC, rowid DESC LIMIT ?`,
		strings.TrimSpace(project), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweeps: %w", err)
	}
	defer rs.Close()

	var ids []string
	for rs.Next() {
		var id string
		if err := rs.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rs.Err()
}
