package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/composer"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/ledger"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string        `json:"description"`
	RegistryVersion string        `json:"registry_version"`
	Cases           []FixtureCase `json:"cases"`
}

// FixtureCase is one context and what composing it must produce. A case
// pins its outcome with a fingerprint, the full expected values, or both.
// ExpectedError names the rule a case is expected to exhaust on.
type FixtureCase struct {
	Name                string           `json:"name,omitempty"`
	Context             specimen.Context `json:"context"`
	ExpectedFingerprint string           `json:"expected_fingerprint,omitempty"`
	Expected            *FixtureExpected `json:"expected,omitempty"`
	ExpectedError       string           `json:"expected_error,omitempty"`
}

// FixtureExpected mirrors the chosen values of a CompositionResult with
// plain string keys.
type FixtureExpected struct {
	Mechanic   string            `json:"mechanic"`
	HeatBand   string            `json:"heat_band"`
	Receipt    string            `json:"receipt"`
	Selections map[string]string `json:"selections"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Save writes the fixture as indented JSON.
func (f *Fixture) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture %s: %w", path, err)
	}
	return nil
}

// #endregion fixture-loader

// #region conversions

// ExpectedFromResult captures the chosen values of res.
func ExpectedFromResult(res composer.CompositionResult) *FixtureExpected {
	sel := make(map[string]string, len(res.Selections))
	for lib, v := range res.Selections {
		sel[string(lib)] = string(v)
	}
	return &FixtureExpected{
		Mechanic:   string(res.Mechanic),
		HeatBand:   string(res.HeatBand),
		Receipt:    string(res.Receipt),
		Selections: sel,
	}
}

// CaseFromResult pins res as the expected outcome of its context.
func CaseFromResult(name string, res composer.CompositionResult) FixtureCase {
	return FixtureCase{
		Name:                name,
		Context:             res.Context,
		ExpectedFingerprint: res.Fingerprint(),
		Expected:            ExpectedFromResult(res),
	}
}

// FromRecords builds a fixture from a ledger run. Failed records become
// expected-error cases when the failure names a rule.
func FromRecords(description string, run ledger.Run, records []ledger.CompositionRecord) *Fixture {
	f := &Fixture{Description: description, RegistryVersion: run.RegistryVersion}
	for _, rec := range records {
		name := fmt.Sprintf("seed-%d", rec.Context.Seed)
		if rec.Failed() {
			f.Cases = append(f.Cases, FixtureCase{Name: name, Context: rec.Context, ExpectedError: rec.Error})
			continue
		}
		f.Cases = append(f.Cases, CaseFromResult(name, *rec.Result))
	}
	return f
}

// Diff lists every value of got that differs from exp, in a stable order.
func (exp *FixtureExpected) Diff(got composer.CompositionResult) []string {
	var diffs []string
	check := func(axis, want, have string) {
		if want != have {
			diffs = append(diffs, fmt.Sprintf("%s: expected %s, got %s", axis, want, have))
		}
	}
	check(string(registry.LibMechanic), exp.Mechanic, string(got.Mechanic))
	check(string(registry.LibHeat), exp.HeatBand, string(got.HeatBand))
	check(string(registry.LibReceipt), exp.Receipt, string(got.Receipt))

	libs := make(map[string]bool, len(exp.Selections)+len(got.Selections))
	for lib := range exp.Selections {
		libs[lib] = true
	}
	for lib := range got.Selections {
		libs[string(lib)] = true
	}
	keys := make([]string, 0, len(libs))
	for lib := range libs {
		keys = append(keys, lib)
	}
	sort.Strings(keys)
	for _, lib := range keys {
		check(lib, exp.Selections[lib], string(got.Selections[registry.LibraryID(lib)]))
	}
	return diffs
}

// #endregion conversions
