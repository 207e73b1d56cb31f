package gate

import (
	"fmt"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/sampler"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/seedstream"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

// #region gate
// Gate resolves the mechanic profile and heat band for a specimen.
type Gate struct {
	reg *registry.Registry
}

// NewGate creates a gate over reg.
func NewGate(reg *registry.Registry) *Gate {
	return &Gate{reg: reg}
}

// Resolve samples a mechanic, then one of that mechanic's legal heat bands.
// Both samples use the signature, form, chrono and kbe tags. The band sampler
// is only ever given the legal bands, so an illegal band cannot come out.
func (g *Gate) Resolve(ctx specimen.Context) (Resolution, error) {
	tags := ctx.GateTags()
	aff := g.reg.Affinity()
	mechanics := g.reg.Mechanics()

	// 1. Mechanic
	cands := make([]sampler.Candidate, len(mechanics))
	for i, m := range mechanics {
		cands[i] = sampler.Weigh(aff, registry.LibMechanic, string(m.ID), m.Weight, tags)
	}
	pick, err := sampler.Sample(cands, seedstream.Draw(ctx.Seed, seedstream.StreamGate, DrawMechanic))
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve mechanic: %w", err)
	}
	res := Resolution{Mechanic: mechanics[pick.Index]}
	if pick.Fallback {
		res.Fallbacks = append(res.Fallbacks, registry.LibMechanic)
	}

	// 2. Heat band, restricted to the mechanic's legal set
	bands := res.Mechanic.Bands
	cands = make([]sampler.Candidate, len(bands))
	for i, b := range bands {
		cands[i] = sampler.Weigh(aff, registry.LibHeat, string(b.Band), b.Weight, tags)
	}
	pick, err = sampler.Sample(cands, seedstream.Draw(ctx.Seed, seedstream.StreamGate, DrawBand))
	if err != nil {
		return Resolution{}, fmt.Errorf("resolve heat band for %s: %w", res.Mechanic.ID, err)
	}
	res.Band = bands[pick.Index].Band
	if pick.Fallback {
		res.Fallbacks = append(res.Fallbacks, registry.LibHeat)
	}

	return res, nil
}

// #endregion gate
