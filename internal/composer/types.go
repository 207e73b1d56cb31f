package composer

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/validate"
)

// #region trace

// TraceKind classifies a trace event.
type TraceKind string

const (
	TraceFallback TraceKind = "fallback" // all weights zero, sampled uniformly
	TraceRedraw   TraceKind = "redraw"   // axis re-derived after a rule fired
)

// TraceEvent records one notable step of a composition. Traces depend only on
// the context and registry, so two runs of the same input produce the same
// trace.
type TraceEvent struct {
	Kind    TraceKind          `json:"kind"`
	Axis    registry.LibraryID `json:"axis"`
	Attempt int                `json:"attempt,omitempty"`
	Stream  uint32             `json:"stream"`
	RuleID  string             `json:"rule_id,omitempty"`
	From    string             `json:"from,omitempty"`
	To      string             `json:"to"`
}

// #endregion trace

// #region result

// CompositionResult is one fully resolved specimen. It is built once per
// Compose call and never modified afterwards.
type CompositionResult struct {
	Context         specimen.Context                          `json:"context"`
	Mechanic        registry.MechanicID                       `json:"mechanic"`
	HeatBand        registry.BandID                           `json:"heat_band"`
	Receipt         registry.ReceiptID                        `json:"receipt"`
	Selections      map[registry.LibraryID]registry.VariantID `json:"selections"`
	RegistryVersion string                                    `json:"registry_version"`
	Trace           []TraceEvent                              `json:"trace,omitempty"`
}

// Draft returns the value of every axis, as the validator sees it.
func (r CompositionResult) Draft() validate.Draft {
	d := make(validate.Draft, len(r.Selections)+3)
	for lib, v := range r.Selections {
		d[lib] = string(v)
	}
	d[registry.LibMechanic] = string(r.Mechanic)
	d[registry.LibHeat] = string(r.HeatBand)
	d[registry.LibReceipt] = string(r.Receipt)
	return d
}

// Fingerprint is a hex sha256 of the chosen values only: mechanic, heat band,
// receipt, then every library selection sorted by library id. Context, trace
// and registry version are left out, so equal outputs fingerprint equally.
func (r CompositionResult) Fingerprint() string {
	var b strings.Builder
	b.WriteString("mechanic=" + string(r.Mechanic) + "\n")
	b.WriteString("heat=" + string(r.HeatBand) + "\n")
	b.WriteString("receipt=" + string(r.Receipt) + "\n")

	libs := make([]string, 0, len(r.Selections))
	for lib := range r.Selections {
		libs = append(libs, string(lib))
	}
	sort.Strings(libs)
	for _, lib := range libs {
		b.WriteString(lib + "=" + string(r.Selections[registry.LibraryID(lib)]) + "\n")
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Redraws counts the redraw events in the trace.
func (r CompositionResult) Redraws() int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Kind == TraceRedraw {
			n++
		}
	}
	return n
}

// #endregion result
