package logging

import (
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/composer"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE provenance_log (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		seed        INTEGER NOT NULL,
		fingerprint TEXT,
		event       TEXT NOT NULL,
		axis        TEXT,
		rule_id     TEXT,
		detail_json TEXT,
		created_at  TEXT NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}

func sampleResult() composer.CompositionResult {
	return composer.CompositionResult{
		Context:  specimen.Context{Signature: "koan_paradox", Seed: 1 << 63},
		Mechanic: "defusion",
		HeatBand: "warm",
		Receipt:  "echo_line",
		Selections: map[registry.LibraryID]registry.VariantID{
			registry.LibScene:      "void",
			registry.LibTransition: "morph",
		},
		RegistryVersion: "v-test",
		Trace: []composer.TraceEvent{
			{Kind: composer.TraceRedraw, Axis: registry.LibTransition, Attempt: 1, Stream: 9, RuleID: "quiet-air-no-hard-exit", From: "hard_cut", To: "morph"},
			{Kind: composer.TraceFallback, Axis: registry.LibAtmosphere, Stream: 1, To: "hush"},
		},
	}
}

// #endregion helpers

// #region log-decision-tests
func TestLogDecision_Success(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	entry := ProvenanceEntry{
		RunID:       "run-1",
		Seed:        42,
		Fingerprint: "abc123",
		Event:       EventComposed,
		DetailJSON:  `{"mechanic":"defusion"}`,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := LogDecision(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM provenance_log").Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var runID, event string
	db.QueryRow("SELECT run_id, event FROM provenance_log").Scan(&runID, &event)
	if runID != "run-1" || event != EventComposed {
		t.Errorf("unexpected row run_id=%q event=%q", runID, event)
	}
}

func TestLogDecision_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	before := time.Now().UTC()
	if err := LogDecision(db, ProvenanceEntry{RunID: "run-2", Event: EventComposed}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var createdAtStr string
	db.QueryRow("SELECT created_at FROM provenance_log").Scan(&createdAtStr)
	createdAt, err := time.Parse(time.RFC3339Nano, createdAtStr)
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	if createdAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogDecision_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	if err := LogDecision(db, ProvenanceEntry{RunID: "run-3", Event: EventExhausted}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var fp, axis, ruleID, detail sql.NullString
	db.QueryRow("SELECT fingerprint, axis, rule_id, detail_json FROM provenance_log").Scan(&fp, &axis, &ruleID, &detail)
	if fp.Valid || axis.Valid || ruleID.Valid || detail.Valid {
		t.Error("expected NULL for empty optional fields")
	}
}

func TestLogDecision_Error(t *testing.T) {
	db := setupDB(t)
	db.Close() // close to force error

	if err := LogDecision(db, ProvenanceEntry{RunID: "run-4", Event: EventComposed}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-decision-tests

// #region entries-tests
func TestEntriesFor(t *testing.T) {
	res := sampleResult()
	entries, err := EntriesFor("run-5", res)
	if err != nil {
		t.Fatalf("EntriesFor: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected composed + 2 trace rows, got %d", len(entries))
	}
	if entries[0].Event != EventComposed || entries[1].Event != EventRedraw || entries[2].Event != EventFallback {
		t.Fatalf("unexpected event order %q %q %q", entries[0].Event, entries[1].Event, entries[2].Event)
	}
	for _, e := range entries {
		if e.Fingerprint != res.Fingerprint() || e.Seed != res.Context.Seed {
			t.Fatalf("row not linked to its composition: %+v", e)
		}
	}

	var rec ComposedRecord
	if err := json.Unmarshal([]byte(entries[0].DetailJSON), &rec); err != nil {
		t.Fatalf("unmarshal composed record: %v", err)
	}
	if rec.Mechanic != "defusion" || rec.Redraws != 1 || rec.Fallbacks != 1 || rec.RegistryVersion != "v-test" {
		t.Fatalf("unexpected composed record %+v", rec)
	}
	if entries[1].RuleID != "quiet-air-no-hard-exit" || entries[1].Axis != "transition" {
		t.Fatalf("unexpected redraw row %+v", entries[1])
	}
}

func TestFailureEntry(t *testing.T) {
	ctx := specimen.Context{Seed: 7}
	err := &composer.RetryExhaustedError{Context: ctx, RuleID: "nothing-goes", Axis: registry.LibTransition, Attempts: 7}
	e := FailureEntry("run-6", ctx, err)
	if e.Event != EventExhausted || e.RuleID != "nothing-goes" || e.Axis != "transition" || e.Seed != 7 {
		t.Fatalf("unexpected failure entry %+v", e)
	}

	plain := FailureEntry("run-6", ctx, errors.New("boom"))
	if plain.RuleID != "" || plain.DetailJSON == "" {
		t.Fatalf("unexpected plain failure entry %+v", plain)
	}
}

func TestLogCompositionRoundTrip(t *testing.T) {
	db := setupDB(t)
	defer db.Close()

	res := sampleResult()
	if err := LogComposition(db, "run-7", res); err != nil {
		t.Fatalf("LogComposition: %v", err)
	}
	if err := LogDecision(db, ProvenanceEntry{RunID: "other", Event: EventComposed}); err != nil {
		t.Fatalf("LogDecision: %v", err)
	}

	got, err := ListEntries(db, "run-7")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows for run-7, got %d", len(got))
	}
	if got[0].Seed != 1<<63 {
		t.Errorf("seed should survive the int64 column, got %d", got[0].Seed)
	}
	if got[1].Event != EventRedraw || got[2].Axis != "atmosphere" {
		t.Errorf("unexpected rows %+v", got)
	}
}

// #endregion entries-tests

// #region null-if-empty-tests
func TestNullIfEmpty_Empty(t *testing.T) {
	if result := nullIfEmpty(""); result != nil {
		t.Errorf("expected nil for empty string, got %v", result)
	}
}

func TestNullIfEmpty_NonEmpty(t *testing.T) {
	if result := nullIfEmpty("hello"); result != "hello" {
		t.Errorf("expected 'hello', got %v", result)
	}
}

// #endregion null-if-empty-tests
