// Package persistence provides SQLite-based run record storage: finished
// episodes, their step traces, and a small metadata table. Records are
// reporting artifacts; nothing here ever feeds belief state back into a
// live agent.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/wayfinder/internal/agent"
	"github.com/talgya/wayfinder/internal/engine"
	"github.com/talgya/wayfinder/internal/grid"
)

// MetaLastRunID is the metadata key holding the most recently saved run.
const MetaLastRunID = "last_run_id"

// Store wraps a SQLite connection for run records.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_unix INTEGER NOT NULL,
		scenario TEXT NOT NULL,
		grid_rows INTEGER NOT NULL,
		grid_cols INTEGER NOT NULL,
		start_row INTEGER NOT NULL,
		start_col INTEGER NOT NULL,
		goal_row INTEGER NOT NULL,
		goal_col INTEGER NOT NULL,
		exploration REAL NOT NULL,
		seed INTEGER NOT NULL,
		max_steps INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		steps INTEGER NOT NULL,
		blocked INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		obstacles_json TEXT NOT NULL,
		path_json TEXT NOT NULL,
		final_belief_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS steps (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		action INTEGER NOT NULL,
		target_row INTEGER NOT NULL,
		target_col INTEGER NOT NULL,
		observation INTEGER NOT NULL,
		pos_row INTEGER NOT NULL,
		pos_col INTEGER NOT NULL,
		entropy REAL NOT NULL,
		goal_mass REAL NOT NULL,
		PRIMARY KEY (run_id, step)
	);

	CREATE TABLE IF NOT EXISTS run_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_unix);
	CREATE INDEX IF NOT EXISTS idx_steps_run ON steps(run_id);
	`
	if _, err := s.conn.Exec(schema); err != nil {
		return err
	}
	return s.SaveMeta("schema_version", "1")
}

// RunRecord is everything persisted about one finished episode.
type RunRecord struct {
	ID          string
	StartedAt   time.Time
	Scenario    string
	World       *grid.World
	Start       grid.Position
	Goal        grid.Position
	Exploration float64
	Seed        int64
	MaxSteps    int
	Result      engine.Result
	Trace       []engine.StepRecord
}

// RunSummary is one row of the runs listing.
type RunSummary struct {
	ID          string  `db:"id"`
	StartedUnix int64   `db:"started_unix"`
	Scenario    string  `db:"scenario"`
	GridRows    int     `db:"grid_rows"`
	GridCols    int     `db:"grid_cols"`
	Outcome     string  `db:"outcome"`
	Steps       int     `db:"steps"`
	Blocked     int     `db:"blocked"`
	DurationMS  int64   `db:"duration_ms"`
	Exploration float64 `db:"exploration"`
}

// Started returns the wall-clock start time.
func (r RunSummary) Started() time.Time {
	return time.Unix(r.StartedUnix, 0)
}

// StoredRun is a fully hydrated record read back for replay.
type StoredRun struct {
	RunSummary
	Start       grid.Position
	Goal        grid.Position
	Seed        int64
	MaxSteps    int
	Obstacles   []grid.Position
	Path        []grid.Position
	FinalBelief []float64
	Trace       []engine.StepRecord
}

type runRow struct {
	RunSummary
	StartRow        int    `db:"start_row"`
	StartCol        int    `db:"start_col"`
	GoalRow         int    `db:"goal_row"`
	GoalCol         int    `db:"goal_col"`
	Seed            int64  `db:"seed"`
	MaxSteps        int    `db:"max_steps"`
	ObstaclesJSON   string `db:"obstacles_json"`
	PathJSON        string `db:"path_json"`
	FinalBeliefJSON string `db:"final_belief_json"`
}

type stepRow struct {
	RunID       string  `db:"run_id"`
	Step        int     `db:"step"`
	Action      uint8   `db:"action"`
	TargetRow   int     `db:"target_row"`
	TargetCol   int     `db:"target_col"`
	Observation uint8   `db:"observation"`
	PosRow      int     `db:"pos_row"`
	PosCol      int     `db:"pos_col"`
	Entropy     float64 `db:"entropy"`
	GoalMass    float64 `db:"goal_mass"`
}

// SaveRun writes one episode and its step trace in a single transaction.
func (s *Store) SaveRun(rec RunRecord) error {
	obstaclesJSON, err := json.Marshal(rec.World.Obstacles())
	if err != nil {
		return fmt.Errorf("marshal obstacles: %w", err)
	}
	pathJSON, err := json.Marshal(rec.Result.Path)
	if err != nil {
		return fmt.Errorf("marshal path: %w", err)
	}
	beliefJSON, err := json.Marshal(rec.Result.FinalBelief.Values())
	if err != nil {
		return fmt.Errorf("marshal belief: %w", err)
	}

	tx, err := s.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, started_unix, scenario, grid_rows, grid_cols,
		 start_row, start_col, goal_row, goal_col,
		 exploration, seed, max_steps, outcome, steps, blocked, duration_ms,
		 obstacles_json, path_json, final_belief_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.Unix(), rec.Scenario, rec.World.Rows(), rec.World.Cols(),
		rec.Start.Row, rec.Start.Col, rec.Goal.Row, rec.Goal.Col,
		rec.Exploration, rec.Seed, rec.MaxSteps,
		rec.Result.Outcome.String(), rec.Result.Steps, rec.Result.Blocked,
		rec.Result.Duration.Milliseconds(),
		string(obstaclesJSON), string(pathJSON), string(beliefJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}

	stmt, err := tx.Preparex(`INSERT INTO steps
		(run_id, step, action, target_row, target_col, observation,
		 pos_row, pos_col, entropy, goal_mass)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range rec.Trace {
		_, err := stmt.Exec(
			rec.ID, st.Step, uint8(st.Action),
			st.Target.Row, st.Target.Col, uint8(st.Observation),
			st.Position.Row, st.Position.Col, st.Entropy, st.GoalMass,
		)
		if err != nil {
			return fmt.Errorf("insert step %d of run %s: %w", st.Step, rec.ID, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		MetaLastRunID, rec.ID,
	); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("run saved", "id", rec.ID, "steps", rec.Result.Steps, "outcome", rec.Result.Outcome.String())
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	var out []RunSummary
	err := s.conn.Select(&out, `SELECT
		id, started_unix, scenario, grid_rows, grid_cols,
		outcome, steps, blocked, duration_ms, exploration
		FROM runs ORDER BY started_unix DESC, id LIMIT ?`, limit)
	return out, err
}

// LoadRun reads one run and its full step trace back.
func (s *Store) LoadRun(id string) (*StoredRun, error) {
	var row runRow
	err := s.conn.Get(&row, "SELECT * FROM runs WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	out := &StoredRun{
		RunSummary: row.RunSummary,
		Start:      grid.Position{Row: row.StartRow, Col: row.StartCol},
		Goal:       grid.Position{Row: row.GoalRow, Col: row.GoalCol},
		Seed:       row.Seed,
		MaxSteps:   row.MaxSteps,
	}
	if err := json.Unmarshal([]byte(row.ObstaclesJSON), &out.Obstacles); err != nil {
		return nil, fmt.Errorf("decode obstacles of run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(row.PathJSON), &out.Path); err != nil {
		return nil, fmt.Errorf("decode path of run %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(row.FinalBeliefJSON), &out.FinalBelief); err != nil {
		return nil, fmt.Errorf("decode belief of run %s: %w", id, err)
	}

	var stepRows []stepRow
	err = s.conn.Select(&stepRows, "SELECT * FROM steps WHERE run_id = ? ORDER BY step", id)
	if err != nil {
		return nil, fmt.Errorf("load steps of run %s: %w", id, err)
	}
	for _, sr := range stepRows {
		out.Trace = append(out.Trace, engine.StepRecord{
			Step:        sr.Step,
			Action:      agent.Action(sr.Action),
			Target:      grid.Position{Row: sr.TargetRow, Col: sr.TargetCol},
			Observation: grid.Observation(sr.Observation),
			Position:    grid.Position{Row: sr.PosRow, Col: sr.PosCol},
			Entropy:     sr.Entropy,
			GoalMass:    sr.GoalMass,
		})
	}

	return out, nil
}

// SaveMeta stores a key-value pair in run metadata.
func (s *Store) SaveMeta(key, value string) error {
	_, err := s.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.conn.Get(&value, "SELECT value FROM run_meta WHERE key = ?", key)
	return value, err
}
