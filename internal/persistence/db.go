// Package persistence stores run history in SQLite and writes compressed
// world snapshots and tick logs.
package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/talgya/fishery/internal/config"
	"github.com/talgya/fishery/internal/engine"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned when a run or key does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a SQLite connection for run history.
type DB struct {
	conn *sqlx.DB
}

// Run is one row of the runs table.
type Run struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	Seed       int64          `db:"seed" json:"seed"`
	ConfigJSON string         `db:"config_json" json:"-"`
	StartedAt  string         `db:"started_at" json:"started_at"`
	FinishedAt sql.NullString `db:"finished_at" json:"-"`
	FinalTick  int            `db:"final_tick" json:"final_tick"`
	Outcome    string         `db:"outcome" json:"outcome"`
}

// Config decodes the scenario the run was started with.
func (r Run) Config() (config.Config, error) {
	var cfg config.Config
	if err := json.Unmarshal([]byte(r.ConfigJSON), &cfg); err != nil {
		return cfg, fmt.Errorf("decode run config: %w", err)
	}
	return cfg, nil
}

type statRow struct {
	Tick        int     `db:"tick"`
	Season      int     `db:"season"`
	Population  int     `db:"population"`
	Mature      int     `db:"mature"`
	Births      int     `db:"births"`
	Deaths      int     `db:"deaths"`
	Caught      int     `db:"caught"`
	CaughtTotal int     `db:"caught_total"`
	Moved       int     `db:"moved"`
	Resource    float64 `db:"resource"`
	Grown       float64 `db:"grown"`
	Stocked     int     `db:"stocked"`
}

func (r statRow) stats() engine.Stats {
	return engine.Stats{
		Tick:        r.Tick,
		Season:      r.Season,
		Population:  r.Population,
		Mature:      r.Mature,
		Births:      r.Births,
		Deaths:      r.Deaths,
		Caught:      r.Caught,
		CaughtTotal: r.CaughtTotal,
		Moved:       r.Moved,
		Resource:    r.Resource,
		Grown:       r.Grown,
		Stocked:     r.Stocked,
	}
}

// Open opens or creates a SQLite database at the given path and applies
// pending migrations.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate(ctx context.Context) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.conn.DB, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// StartRun records a new run and returns its ID.
func (db *DB) StartRun(cfg config.Config) (string, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	id := uuid.NewString()
	_, err = db.conn.Exec(
		"INSERT INTO runs (id, name, seed, config_json, started_at) VALUES (?, ?, ?, ?, ?)",
		id, cfg.Name, cfg.Seed, string(raw), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	slog.Info("run started", "run", id, "scenario", cfg.Name, "seed", cfg.Seed)
	return id, nil
}

// FinishRun marks a run complete.
func (db *DB) FinishRun(runID string, finalTick int, outcome string) error {
	res, err := db.conn.Exec(
		"UPDATE runs SET finished_at = ?, final_tick = ?, outcome = ? WHERE id = ?",
		time.Now().UTC().Format(time.RFC3339Nano), finalTick, outcome, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotFound)
	}
	return nil
}

// GetRun loads one run.
func (db *DB) GetRun(runID string) (Run, error) {
	var r Run
	err := db.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", runID)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return r, err
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs, "SELECT * FROM runs ORDER BY started_at DESC LIMIT ?", limit)
	return runs, err
}

// RecordStats appends tick stats for a run in one transaction.
func (db *DB) RecordStats(runID string, stats []engine.Stats) error {
	if len(stats) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT OR REPLACE INTO tick_stats
		(run_id, tick, season, population, mature, births, deaths,
		 caught, caught_total, moved, resource, grown, stocked)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, st := range stats {
		_, err := stmt.Exec(runID, st.Tick, st.Season, st.Population, st.Mature,
			st.Births, st.Deaths, st.Caught, st.CaughtTotal, st.Moved,
			st.Resource, st.Grown, st.Stocked)
		if err != nil {
			return fmt.Errorf("insert tick %d: %w", st.Tick, err)
		}
	}
	return tx.Commit()
}

// History returns the last limit recorded ticks of a run, oldest first.
func (db *DB) History(runID string, limit int) ([]engine.Stats, error) {
	var rows []statRow
	err := db.conn.Select(&rows, `SELECT tick, season, population, mature, births, deaths,
		caught, caught_total, moved, resource, grown, stocked
		FROM (SELECT * FROM tick_stats WHERE run_id = ? ORDER BY tick DESC LIMIT ?)
		ORDER BY tick ASC`, runID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Stats, len(rows))
	for i, r := range rows {
		out[i] = r.stats()
	}
	return out, nil
}

// SaveMeta stores a key-value pair for a run.
func (db *DB) SaveMeta(runID, key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO run_meta (run_id, key, value) VALUES (?, ?, ?)",
		runID, key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(runID, key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM run_meta WHERE run_id = ? AND key = ?", runID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta %s: %w", key, ErrNotFound)
	}
	return value, err
}

// Recorder buffers tick stats and writes them in batches.
type Recorder struct {
	db    *DB
	runID string
	every int
	buf   []engine.Stats
}

// NewRecorder flushes to db every `every` ticks.
func NewRecorder(db *DB, runID string, every int) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{db: db, runID: runID, every: every}
}

// Add buffers one tick and flushes when the batch is full.
func (r *Recorder) Add(st engine.Stats) error {
	r.buf = append(r.buf, st)
	if len(r.buf) < r.every {
		return nil
	}
	return r.Flush()
}

// Flush writes any buffered ticks.
func (r *Recorder) Flush() error {
	if err := r.db.RecordStats(r.runID, r.buf); err != nil {
		return err
	}
	r.buf = r.buf[:0]
	return nil
}

// RunID returns the run the recorder writes to.
func (r *Recorder) RunID() string {
	return r.runID
}
