package sampler

import (
	"errors"
	"math/bits"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
)

// ErrNoCandidates is returned for an empty candidate list. Registry loading
// rules it out for well-formed data.
var ErrNoCandidates = errors.New("sampler: no candidates")

// #region types

// Candidate is one option with its affinity-adjusted weight in milli-units.
// Vetoed marks a candidate an active tag gave a zero multiplier.
type Candidate struct {
	ID     string
	Weight uint64
	Vetoed bool
}

// Pick is the outcome of one sample. Fallback is set when every weight was
// zero and the pick was made uniformly; callers report it as a data-integrity
// warning.
type Pick struct {
	Index    int
	ID       string
	Fallback bool
}

// #endregion types

// #region sample

// Sample maps raw onto the cumulative weight of cands, accumulated in slice
// order. raw is scaled into [0, total) with a 64x64→128 multiply, keeping the
// high word, so there is no modulo bias.
//
// A zero-weight candidate is never chosen while any weight is positive. When
// all weights are zero the pick is uniform over the candidates no tag vetoed,
// or over all candidates if every one was vetoed.
//
// Weights are at most 2^48 each, so the total cannot overflow for fewer than
// 2^16 candidates.
func Sample(cands []Candidate, raw uint64) (Pick, error) {
	if len(cands) == 0 {
		return Pick{}, ErrNoCandidates
	}

	var total uint64
	for _, c := range cands {
		total += c.Weight
	}
	if total == 0 {
		return uniform(cands, raw), nil
	}

	target := scaleInto(raw, total)
	var cum uint64
	for i, c := range cands {
		cum += c.Weight
		if target < cum {
			return Pick{Index: i, ID: c.ID}, nil
		}
	}
	// target < total guarantees a hit above; keep the compiler and readers honest.
	last := len(cands) - 1
	for cands[last].Weight == 0 {
		last--
	}
	return Pick{Index: last, ID: cands[last].ID}, nil
}

func uniform(cands []Candidate, raw uint64) Pick {
	allowed := make([]int, 0, len(cands))
	for i, c := range cands {
		if !c.Vetoed {
			allowed = append(allowed, i)
		}
	}
	if len(allowed) == 0 {
		i := int(scaleInto(raw, uint64(len(cands))))
		return Pick{Index: i, ID: cands[i].ID, Fallback: true}
	}
	i := allowed[scaleInto(raw, uint64(len(allowed)))]
	return Pick{Index: i, ID: cands[i].ID, Fallback: true}
}

// scaleInto maps raw uniformly onto [0, n).
func scaleInto(raw, n uint64) uint64 {
	hi, _ := bits.Mul64(raw, n)
	return hi
}

// #endregion sample

// #region weigh

// Weigh builds the candidate for one option of axis lib.
func Weigh(aff *registry.AffinityMatrix, lib registry.LibraryID, id string, base uint64, tags []registry.Tag) Candidate {
	return Candidate{
		ID:     id,
		Weight: aff.EffectiveWeight(lib, id, base, tags),
		Vetoed: aff.Vetoed(lib, id, tags),
	}
}

// LibraryCandidates builds the candidates of lib for the active tags, in
// declaration order. Gated variants whose required tags are not all active
// are left out entirely, as are ids in exclude.
func LibraryCandidates(aff *registry.AffinityMatrix, lib registry.Library, tags []registry.Tag, exclude map[string]bool) []Candidate {
	active := make(map[registry.Tag]bool, len(tags))
	for _, t := range tags {
		active[t] = true
	}

	out := make([]Candidate, 0, len(lib.Variants))
	for _, v := range lib.Variants {
		if exclude[string(v.ID)] || !satisfied(v.Requires, active) {
			continue
		}
		out = append(out, Weigh(aff, lib.ID, string(v.ID), v.Weight, tags))
	}
	return out
}

func satisfied(requires []registry.Tag, active map[registry.Tag]bool) bool {
	for _, t := range requires {
		if !active[t] {
			return false
		}
	}
	return true
}

// Unvetoed returns the candidates no active tag vetoed, in order. Redraws
// sample from this set: a redraw that would otherwise fall back onto a vetoed
// candidate has nothing legal left and must fail instead.
func Unvetoed(cands []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if !c.Vetoed {
			out = append(out, c)
		}
	}
	return out
}

// #endregion weigh
