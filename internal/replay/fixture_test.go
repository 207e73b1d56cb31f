package replay

import (
	"path/filepath"
	"testing"
)

// #region fixture-tests

// TestFixture_DefaultCatalog replays outputs recorded from the embedded
// catalogue. The values are pinned in a file rather than recomputed, so a
// change to stream derivation, fixed-point weighting or redraw order fails
// here even though every in-process determinism test still passes.
func TestFixture_DefaultCatalog(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "default_catalog.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	e := testEngine(t)
	if f.RegistryVersion != e.Registry().Version() {
		t.Fatalf("fixture recorded against %s, catalogue is %s", f.RegistryVersion, e.Registry().Version())
	}

	results := Replay(e, f.Cases)
	if len(results) != len(f.Cases) {
		t.Fatalf("expected %d results, got %d", len(f.Cases), len(results))
	}
	for i, r := range results {
		if r.Action != ActionMatch {
			t.Errorf("case %d (%s): expected match, got %s (reason: %s, diffs: %v)",
				i, r.Name, r.Action, r.Reason, r.Diffs)
		}
	}

	s := Summarize(results)
	if !s.Clean() {
		t.Fatalf("summary: %+v", s)
	}
}

// TestFixture_DefaultCatalogRedraws checks that the fixture exercises the
// redraw path and not only first draws.
func TestFixture_DefaultCatalogRedraws(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "default_catalog.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}

	redraws := 0
	for _, r := range Replay(testEngine(t), f.Cases) {
		if r.Got == nil {
			t.Fatalf("case %s: %s", r.Name, r.Reason)
		}
		redraws += r.Got.Redraws()
	}
	if redraws == 0 {
		t.Fatal("expected at least one case to redraw")
	}
}

// #endregion fixture-tests
