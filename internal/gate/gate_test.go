package gate

import (
	"testing"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/seedstream"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

func makeRegistry(t *testing.T, affinities ...registry.AffinitySpec) *registry.Registry {
	t.Helper()
	reg, err := registry.Load(registry.Source{
		Version: "gate-test",
		Vocabulary: map[registry.TagAxis][]string{
			registry.AxisSignature: {"poetic_precision", "sensory_cinema"},
			registry.AxisHook:      {"draw", "tap"},
		},
		Libraries: []registry.LibrarySpec{{
			ID: registry.LibScene, Stream: seedstream.StreamScene,
			Variants: []registry.VariantSpec{{ID: "dunes", Weight: 1}},
		}},
		HeatBands: []registry.BandID{"cold", "warm", "hot"},
		Receipts:  []registry.ReceiptSpec{{ID: "rep_counter", Weight: 1}, {ID: "ember", Weight: 1}},
		Mechanics: []registry.MechanicSpec{
			{ID: "defusion", Weight: 1, Bands: []registry.BandSpec{
				{Band: "cold", Weight: 1, Receipts: []registry.ReceiptID{"rep_counter"}},
				{Band: "warm", Weight: 3, Receipts: []registry.ReceiptID{"rep_counter", "ember"}},
			}},
			{ID: "exposure", Weight: 1, Bands: []registry.BandSpec{
				{Band: "hot", Weight: 1, Receipts: []registry.ReceiptID{"ember"}},
			}},
		},
		Affinities: affinities,
	}, registry.WithoutCoreLibraries())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return reg
}

func TestResolveBandAlwaysLegal(t *testing.T) {
	g := NewGate(makeRegistry(t))
	seen := map[registry.MechanicID]int{}
	for seed := uint64(0); seed < 5000; seed++ {
		res, err := g.Resolve(specimen.Context{Seed: seed})
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if _, ok := res.Mechanic.Band(res.Band); !ok {
			t.Fatalf("seed %d: band %s not legal for %s", seed, res.Band, res.Mechanic.ID)
		}
		if res.Mechanic.ID == "exposure" && res.Band != "hot" {
			t.Fatalf("seed %d: exposure only runs hot, got %s", seed, res.Band)
		}
		seen[res.Mechanic.ID]++
	}
	if seen["defusion"] == 0 || seen["exposure"] == 0 {
		t.Fatalf("expected both mechanics over 5000 seeds, got %v", seen)
	}
}

func TestResolveDeterministic(t *testing.T) {
	g := NewGate(makeRegistry(t))
	ctx := specimen.Context{Signature: "poetic_precision", Hook: specimen.HookDraw, Seed: 1232}
	first, err := g.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, _ := g.Resolve(ctx)
		if again.Mechanic.ID != first.Mechanic.ID || again.Band != first.Band {
			t.Fatalf("run %d: got %s/%s, want %s/%s", i, again.Mechanic.ID, again.Band, first.Mechanic.ID, first.Band)
		}
	}
}

func TestResolveZeroAffinityExcludesMechanic(t *testing.T) {
	reg := makeRegistry(t, registry.AffinitySpec{
		Tag:        registry.Tag{Axis: registry.AxisSignature, Value: "poetic_precision"},
		Library:    registry.LibMechanic,
		Variant:    "exposure",
		Multiplier: 0,
	})
	g := NewGate(reg)
	for seed := uint64(0); seed < 3000; seed++ {
		res, err := g.Resolve(specimen.Context{Signature: "poetic_precision", Seed: seed})
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if res.Mechanic.ID == "exposure" {
			t.Fatalf("seed %d: vetoed mechanic resolved", seed)
		}
		if len(res.Fallbacks) != 0 {
			t.Fatalf("seed %d: unexpected fallback %v", seed, res.Fallbacks)
		}
	}
}

func TestResolveIgnoresHookAffinity(t *testing.T) {
	reg := makeRegistry(t, registry.AffinitySpec{
		Tag:        registry.Tag{Axis: registry.AxisHook, Value: "draw"},
		Library:    registry.LibMechanic,
		Variant:    "exposure",
		Multiplier: 0,
	})
	g := NewGate(reg)
	withHook := 0
	for seed := uint64(0); seed < 2000; seed++ {
		res, _ := g.Resolve(specimen.Context{Hook: specimen.HookDraw, Seed: seed})
		if res.Mechanic.ID == "exposure" {
			withHook++
		}
	}
	if withHook == 0 {
		t.Fatal("hook is not a gate tag; its affinity must not veto a mechanic")
	}
}

func TestResolveHeatAffinity(t *testing.T) {
	reg := makeRegistry(t, registry.AffinitySpec{
		Tag:        registry.Tag{Axis: registry.AxisSignature, Value: "sensory_cinema"},
		Library:    registry.LibHeat,
		Variant:    "warm",
		Multiplier: 0,
	})
	g := NewGate(reg)
	for seed := uint64(0); seed < 2000; seed++ {
		res, _ := g.Resolve(specimen.Context{Signature: "sensory_cinema", Seed: seed})
		if res.Band == "warm" {
			t.Fatalf("seed %d: warm vetoed by affinity but resolved", seed)
		}
	}
}
