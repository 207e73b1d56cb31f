package registry

import (
	"fmt"
	"strings"
)

// #region ids

// LibraryID names one axis of variation. The pseudo-libraries mechanic, heat
// and receipt share the id space so affinities and rules can address them.
type LibraryID string

const (
	LibScene       LibraryID = "scene"
	LibAtmosphere  LibraryID = "atmosphere"
	LibEntry       LibraryID = "entry"
	LibInteraction LibraryID = "interaction"
	LibColorTemp   LibraryID = "color_temperature"
	LibTypography  LibraryID = "typography"
	LibTransition  LibraryID = "transition"

	LibMechanic LibraryID = "mechanic"
	LibHeat     LibraryID = "heat"
	LibReceipt  LibraryID = "receipt"
)

// IsPseudo reports whether id names the mechanic, heat or receipt axis.
func (id LibraryID) IsPseudo() bool {
	return id == LibMechanic || id == LibHeat || id == LibReceipt
}

type (
	VariantID  string
	MechanicID string
	BandID     string
	ReceiptID  string
)

// #endregion ids

// #region tags

// TagAxis is one dimension of a specimen's context.
type TagAxis string

const (
	AxisSignature TagAxis = "signature"
	AxisForm      TagAxis = "form"
	AxisChrono    TagAxis = "chrono"
	AxisKBE       TagAxis = "kbe"
	AxisHook      TagAxis = "hook"
	AxisSeal      TagAxis = "seal"
)

// TagAxes lists every axis in the fixed order tags are applied.
var TagAxes = []TagAxis{AxisSignature, AxisForm, AxisChrono, AxisKBE, AxisHook, AxisSeal}

// SealValue is the only value of the seal axis.
const SealValue = "true"

// Tag is one active context value, e.g. hook:draw.
type Tag struct {
	Axis  TagAxis
	Value string
}

func (t Tag) String() string {
	return string(t.Axis) + ":" + t.Value
}

// ParseTag parses the axis:value form.
func ParseTag(s string) (Tag, error) {
	axis, value, ok := strings.Cut(s, ":")
	if !ok || axis == "" || value == "" {
		return Tag{}, fmt.Errorf("malformed tag %q: want axis:value", s)
	}
	return Tag{Axis: TagAxis(axis), Value: value}, nil
}

// #endregion tags

// #region library

// Variant is one option within a library. Weight is in milli-units.
// A variant with Requires participates only when every listed tag is active.
type Variant struct {
	ID       VariantID
	Weight   uint64
	Requires []Tag
}

// Gated reports whether the variant depends on context tags to participate.
func (v Variant) Gated() bool {
	return len(v.Requires) > 0
}

// Library is an ordered list of variants. Order is declaration order and is
// the order sampling accumulates weight in.
type Library struct {
	ID       LibraryID
	Stream   uint32
	Variants []Variant
}

// Variant looks up a variant by id.
func (l Library) Variant(id VariantID) (Variant, bool) {
	for _, v := range l.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// #endregion library

// #region mechanic

// HeatBand is an intensity tier. Rank orders bands coldest first; it is a
// gating key only.
type HeatBand struct {
	ID   BandID
	Rank int
}

// BandRule declares one legal heat band of a mechanic and the receipts legal in it.
type BandRule struct {
	Band     BandID
	Weight   uint64
	Receipts []ReceiptID
}

// MechanicProfile is a therapeutic engine with its legal heat bands.
type MechanicProfile struct {
	ID     MechanicID
	Weight uint64
	Bands  []BandRule
}

// LegalBands returns the bands declared legal for the mechanic, in declaration order.
func (m MechanicProfile) LegalBands() []BandID {
	out := make([]BandID, len(m.Bands))
	for i, b := range m.Bands {
		out[i] = b.Band
	}
	return out
}

// Band returns the rule for band, if legal.
func (m MechanicProfile) Band(band BandID) (BandRule, bool) {
	for _, b := range m.Bands {
		if b.Band == band {
			return b, true
		}
	}
	return BandRule{}, false
}

// LegalReceipts returns the receipts legal for band, or nil if band is not legal.
func (m MechanicProfile) LegalReceipts(band BandID) []ReceiptID {
	rule, ok := m.Band(band)
	if !ok {
		return nil
	}
	return rule.Receipts
}

// AllowsReceipt reports whether receipt is legal for the mechanic in band.
func (m MechanicProfile) AllowsReceipt(band BandID, receipt ReceiptID) bool {
	for _, r := range m.LegalReceipts(band) {
		if r == receipt {
			return true
		}
	}
	return false
}

// ReceiptProfile is a completion/proof semantic.
type ReceiptProfile struct {
	ID        ReceiptID
	Weight    uint64
	Semantics string
}

// #endregion mechanic

// #region rule

// Clause matches when the value selected on Axis is one of Values.
type Clause struct {
	Axis   LibraryID
	Values []string
}

// Matches reports whether value is listed in the clause.
func (c Clause) Matches(value string) bool {
	for _, v := range c.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Rule forbids a combination. It fires when every When clause and every
// Forbid clause matches; Redraw names the axis the composer re-derives.
type Rule struct {
	ID     string
	When   []Clause
	Forbid []Clause
	Redraw LibraryID
}

// #endregion rule
