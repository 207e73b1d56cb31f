package receipt

import (
	"errors"
	"fmt"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/sampler"
)

// ErrIllegalBand is returned when asked for receipts of a band the mechanic
// does not declare.
var ErrIllegalBand = errors.New("receipt: heat band not legal for mechanic")

// Selection is the chosen receipt and whether weights fell back to uniform.
type Selection struct {
	Receipt  registry.ReceiptID
	Fallback bool
}

// Selector picks a receipt profile from the set a mechanic allows in a band.
type Selector struct {
	reg *registry.Registry
}

// NewSelector creates a selector over reg.
func NewSelector(reg *registry.Registry) *Selector {
	return &Selector{reg: reg}
}

// Select samples from mechanic.LegalReceipts(band) only, weighting each
// receipt by its base weight and the affinities of the active tags. Receipts
// in exclude are left out, and so is any vetoed receipt once exclude is
// non-empty; an exclusion that empties the set surfaces
// sampler.ErrNoCandidates.
func (s *Selector) Select(mechanic registry.MechanicProfile, band registry.BandID, tags []registry.Tag, raw uint64, exclude map[string]bool) (Selection, error) {
	legal := mechanic.LegalReceipts(band)
	if len(legal) == 0 {
		return Selection{}, fmt.Errorf("%w: %s/%s", ErrIllegalBand, mechanic.ID, band)
	}

	aff := s.reg.Affinity()
	cands := make([]sampler.Candidate, 0, len(legal))
	for _, id := range legal {
		if exclude[string(id)] {
			continue
		}
		profile, ok := s.reg.Receipt(id)
		if !ok {
			return Selection{}, fmt.Errorf("receipt %s not in registry %s", id, s.reg.Version())
		}
		cands = append(cands, sampler.Weigh(aff, registry.LibReceipt, string(id), profile.Weight, tags))
	}

	if len(exclude) > 0 {
		cands = sampler.Unvetoed(cands)
	}

	pick, err := sampler.Sample(cands, raw)
	if err != nil {
		return Selection{}, fmt.Errorf("select receipt for %s/%s: %w", mechanic.ID, band, err)
	}
	return Selection{Receipt: registry.ReceiptID(pick.ID), Fallback: pick.Fallback}, nil
}
