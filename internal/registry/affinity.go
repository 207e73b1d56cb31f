package registry

import (
	"math"
	"math/bits"
)

// #region fixed-point

// Milli is the fixed-point scale for weights and multipliers.
// A multiplier of Milli is neutral.
const Milli = 1000

const (
	// MaxWeight bounds a decimal base weight.
	MaxWeight = 1000.0
	// MaxMultiplier bounds a decimal affinity multiplier.
	MaxMultiplier = 10.0

	// weightCap keeps any effective weight, and the sum over a library, far
	// from uint64 overflow.
	weightCap = uint64(1) << 48
)

// toMilli converts a decimal to milli-units. ok is false for negative,
// non-finite or out-of-range input.
func toMilli(x, max float64) (uint64, bool) {
	if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 || x > max {
		return 0, false
	}
	return uint64(math.Round(x * Milli)), true
}

// scale returns w*m/Milli using a 128-bit intermediate, capped at weightCap.
func scale(w, m uint64) uint64 {
	hi, lo := bits.Mul64(w, m)
	if hi >= Milli {
		return weightCap
	}
	q, _ := bits.Div64(hi, lo, Milli)
	if q > weightCap {
		return weightCap
	}
	return q
}

// #endregion fixed-point

// #region matrix

type affinityKey struct {
	tag     Tag
	library LibraryID
	variant string
}

// AffinityMatrix is the sparse (tag, library, variant) → multiplier table.
// It is read-only once the registry is loaded.
type AffinityMatrix struct {
	entries map[affinityKey]uint64
}

func newAffinityMatrix() *AffinityMatrix {
	return &AffinityMatrix{entries: make(map[affinityKey]uint64)}
}

// Multiplier returns the milli-unit multiplier for the triple, Milli when absent.
func (a *AffinityMatrix) Multiplier(tag Tag, library LibraryID, variant string) uint64 {
	if m, ok := a.entries[affinityKey{tag, library, variant}]; ok {
		return m
	}
	return Milli
}

// Len returns the number of explicit entries.
func (a *AffinityMatrix) Len() int {
	return len(a.entries)
}

// EffectiveWeight applies every active tag's multiplier to base, in the
// order tags are given. Integer arithmetic keeps the result identical on
// every platform.
func (a *AffinityMatrix) EffectiveWeight(library LibraryID, variant string, base uint64, tags []Tag) uint64 {
	w := base
	for _, t := range tags {
		m := a.Multiplier(t, library, variant)
		if m == Milli {
			continue
		}
		if m == 0 {
			return 0
		}
		w = scale(w, m)
	}
	return w
}

// Vetoed reports whether any active tag carries a zero multiplier for the triple.
func (a *AffinityMatrix) Vetoed(library LibraryID, variant string, tags []Tag) bool {
	for _, t := range tags {
		if m, ok := a.entries[affinityKey{t, library, variant}]; ok && m == 0 {
			return true
		}
	}
	return false
}

// #endregion matrix
