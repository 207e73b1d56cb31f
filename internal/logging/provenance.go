package logging

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/composer"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

// #region log-decision
// LogDecision writes a provenance entry to the provenance_log table.
func LogDecision(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (run_id, seed, fingerprint, event, axis, rule_id, detail_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		int64(entry.Seed),
		nullIfEmpty(entry.Fingerprint),
		entry.Event,
		nullIfEmpty(entry.Axis),
		nullIfEmpty(entry.RuleID),
		nullIfEmpty(entry.DetailJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}
// #endregion log-decision

// #region entries
// EntriesFor returns the rows describing one composition: a composed row,
// then one row per trace event in trace order.
func EntriesFor(runID string, res composer.CompositionResult) ([]ProvenanceEntry, error) {
	fp := res.Fingerprint()
	rec := ComposedRecord{
		Mechanic:        string(res.Mechanic),
		HeatBand:        string(res.HeatBand),
		Receipt:         string(res.Receipt),
		RegistryVersion: res.RegistryVersion,
		Redraws:         res.Redraws(),
		Fallbacks:       len(res.Trace) - res.Redraws(),
	}
	detail, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal composed record: %w", err)
	}

	out := []ProvenanceEntry{{
		RunID:       runID,
		Seed:        res.Context.Seed,
		Fingerprint: fp,
		Event:       EventComposed,
		DetailJSON:  string(detail),
	}}
	for _, ev := range res.Trace {
		d, err := json.Marshal(ev)
		if err != nil {
			return nil, fmt.Errorf("marshal trace event: %w", err)
		}
		event := EventFallback
		if ev.Kind == composer.TraceRedraw {
			event = EventRedraw
		}
		out = append(out, ProvenanceEntry{
			RunID:       runID,
			Seed:        res.Context.Seed,
			Fingerprint: fp,
			Event:       event,
			Axis:        string(ev.Axis),
			RuleID:      ev.RuleID,
			DetailJSON:  string(d),
		})
	}
	return out, nil
}

// FailureEntry returns the row for a composition that returned err.
func FailureEntry(runID string, ctx specimen.Context, err error) ProvenanceEntry {
	entry := ProvenanceEntry{RunID: runID, Seed: ctx.Seed, Event: EventExhausted}
	var re *composer.RetryExhaustedError
	if errors.As(err, &re) {
		entry.Axis = string(re.Axis)
		entry.RuleID = re.RuleID
	}
	detail, _ := json.Marshal(FailureRecord{Context: ctx.String(), Error: err.Error()})
	entry.DetailJSON = string(detail)
	return entry
}

// LogComposition writes every row EntriesFor returns.
func LogComposition(db *sql.DB, runID string, res composer.CompositionResult) error {
	entries, err := EntriesFor(runID, res)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := LogDecision(db, e); err != nil {
			return err
		}
	}
	return nil
}
// #endregion entries

// #region list
// ListEntries returns a run's provenance rows in insertion order.
func ListEntries(db *sql.DB, runID string) ([]ProvenanceEntry, error) {
	rows, err := db.Query(
		`SELECT run_id, seed, fingerprint, event, axis, rule_id, detail_json, created_at
		 FROM provenance_log WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list provenance: %w", err)
	}
	defer rows.Close()

	var out []ProvenanceEntry
	for rows.Next() {
		var e ProvenanceEntry
		var seed int64
		var fp, axis, ruleID, detail sql.NullString
		var createdStr string
		if err := rows.Scan(&e.RunID, &seed, &fp, &e.Event, &axis, &ruleID, &detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		e.Seed = uint64(seed)
		e.Fingerprint = fp.String
		e.Axis = axis.String
		e.RuleID = ruleID.String
		e.DetailJSON = detail.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, e)
	}
	return out, rows.Err()
}
// #endregion list

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
// #endregion helpers
