package logging

import "time"

// #region events
// Provenance events, one row each.
const (
	EventComposed  = "composed"
	EventRedraw    = "redraw"
	EventFallback  = "fallback"
	EventExhausted = "exhausted"
)
// #endregion events

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table.
type ProvenanceEntry struct {
	RunID       string
	Seed        uint64
	Fingerprint string
	Event       string // "composed" | "redraw" | "fallback" | "exhausted"
	Axis        string
	RuleID      string
	DetailJSON  string
	CreatedAt   time.Time
}
// #endregion provenance-entry

// #region composed-record
// ComposedRecord is the detail of a composed row: the gated choices and the
// registry they came from, enough to explain the row without the result.
type ComposedRecord struct {
	Mechanic        string `json:"mechanic"`
	HeatBand        string `json:"heat_band"`
	Receipt         string `json:"receipt"`
	RegistryVersion string `json:"registry_version"`
	Redraws         int    `json:"redraws"`
	Fallbacks       int    `json:"fallbacks"`
}

// FailureRecord is the detail of an exhausted row.
type FailureRecord struct {
	Context string `json:"context"`
	Error   string `json:"error"`
}
// #endregion composed-record
