package ledger

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/composer"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

// ErrNoBaseline is returned by Baseline before any run has been marked.
var ErrNoBaseline = errors.New("ledger: no baseline run")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	registry_version TEXT NOT NULL,
	note             TEXT,
	created_at       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS compositions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	seed         INTEGER NOT NULL,
	context_json TEXT NOT NULL,
	result_json  TEXT,
	fingerprint  TEXT,
	error        TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_compositions_run ON compositions(run_id);

CREATE TABLE IF NOT EXISTS provenance_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	seed        INTEGER NOT NULL,
	fingerprint TEXT,
	event       TEXT NOT NULL,
	axis        TEXT,
	rule_id     TEXT,
	detail_json TEXT,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS baseline (
	id     INTEGER PRIMARY KEY CHECK (id = 1),
	run_id TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`
// #endregion schema

// #region store-struct
// Store records composition sweeps in SQLite.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return newStore(db)
}

// newStore prepares db and takes ownership of it; db is closed on failure.
func newStore(db *sql.DB) (*Store, error) {
	// Pragmas are per connection; one connection keeps foreign keys on.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region runs
// CreateRun starts a new run against the given registry version.
func (s *Store) CreateRun(registryVersion, note string) (Run, error) {
	run := Run{
		RunID:           uuid.New().String(),
		RegistryVersion: registryVersion,
		Note:            note,
		CreatedAt:       time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, registry_version, note, created_at) VALUES (?, ?, ?, ?)`,
		run.RunID, run.RegistryVersion, nullIfEmpty(note), run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (Run, error) {
	var run Run
	var note sql.NullString
	var createdStr string
	err := s.db.QueryRow(
		`SELECT run_id, registry_version, note, created_at FROM runs WHERE run_id = ?`, id,
	).Scan(&run.RunID, &run.RegistryVersion, &note, &createdStr)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	run.Note = note.String
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, registry_version, note, created_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var note sql.NullString
		var createdStr string
		if err := rows.Scan(&run.RunID, &run.RegistryVersion, &note, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		run.Note = note.String
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
// #endregion runs

// #region save
// SaveComposition stores a successful composition under runID.
func (s *Store) SaveComposition(runID string, res composer.CompositionResult) (int64, error) {
	ctxJSON, err := json.Marshal(res.Context)
	if err != nil {
		return 0, fmt.Errorf("marshal context: %w", err)
	}
	resJSON, err := json.Marshal(res)
	if err != nil {
		return 0, fmt.Errorf("marshal result: %w", err)
	}
	return s.insert(runID, res.Context.Seed, string(ctxJSON), string(resJSON), res.Fingerprint(), "")
}

// SaveFailure stores a composition that returned an error.
func (s *Store) SaveFailure(runID string, ctx specimen.Context, cause error) (int64, error) {
	ctxJSON, err := json.Marshal(ctx)
	if err != nil {
		return 0, fmt.Errorf("marshal context: %w", err)
	}
	return s.insert(runID, ctx.Seed, string(ctxJSON), "", "", cause.Error())
}

func (s *Store) insert(runID string, seed uint64, ctxJSON, resJSON, fingerprint, errText string) (int64, error) {
	r, err := s.db.Exec(
		`INSERT INTO compositions (run_id, seed, context_json, result_json, fingerprint, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, int64(seed), ctxJSON, nullIfEmpty(resJSON), nullIfEmpty(fingerprint), nullIfEmpty(errText),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert composition: %w", err)
	}
	return r.LastInsertId()
}
// #endregion save

// #region list-compositions
// ListCompositions returns a run's compositions in insertion order.
func (s *Store) ListCompositions(runID string) ([]CompositionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, context_json, result_json, fingerprint, error, created_at
		 FROM compositions WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list compositions: %w", err)
	}
	defer rows.Close()

	var records []CompositionRecord
	for rows.Next() {
		var rec CompositionRecord
		var ctxJSON, createdStr string
		var resJSON, fp, errText sql.NullString
		if err := rows.Scan(&rec.ID, &rec.RunID, &ctxJSON, &resJSON, &fp, &errText, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(ctxJSON), &rec.Context); err != nil {
			return nil, fmt.Errorf("unmarshal context %d: %w", rec.ID, err)
		}
		if resJSON.Valid {
			var res composer.CompositionResult
			if err := json.Unmarshal([]byte(resJSON.String), &res); err != nil {
				return nil, fmt.Errorf("unmarshal result %d: %w", rec.ID, err)
			}
			rec.Result = &res
		}
		rec.Fingerprint = fp.String
		rec.Error = errText.String
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Summarize counts the outcomes of a run.
func (s *Store) Summarize(runID string) (RunSummary, error) {
	run, err := s.GetRun(runID)
	if err != nil {
		return RunSummary{}, err
	}
	records, err := s.ListCompositions(runID)
	if err != nil {
		return RunSummary{}, err
	}
	sum := RunSummary{Run: run, Compositions: len(records)}
	for _, rec := range records {
		if rec.Failed() {
			sum.Failures++
			continue
		}
		r := rec.Result.Redraws()
		sum.Redraws += r
		sum.Fallbacks += len(rec.Result.Trace) - r
	}
	return sum, nil
}
// #endregion list-compositions

// #region baseline
// SetBaseline marks runID as the run later sweeps are compared against.
func (s *Store) SetBaseline(runID string) error {
	var exists int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check run: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("run %s not found", runID)
	}

	_, err = s.db.Exec(
		`INSERT INTO baseline (id, run_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET run_id = excluded.run_id`, runID,
	)
	if err != nil {
		return fmt.Errorf("set baseline: %w", err)
	}
	return nil
}

// Baseline returns the marked baseline run.
func (s *Store) Baseline() (Run, error) {
	var runID string
	err := s.db.QueryRow(`SELECT run_id FROM baseline WHERE id = 1`).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNoBaseline
	}
	if err != nil {
		return Run{}, fmt.Errorf("get baseline: %w", err)
	}
	return s.GetRun(runID)
}
// #endregion baseline

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
