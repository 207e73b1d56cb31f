package catalog

import (
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/composer"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/specimen"
	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/validate"
)

func TestDefaultLoads(t *testing.T) {
	reg, err := Open("")
	if err != nil {
		t.Fatalf("default catalogue: %v", err)
	}
	if reg.Version() == "" {
		t.Fatal("expected a version")
	}
	if got := len(reg.Libraries()); got != len(registry.CoreLibraries) {
		t.Errorf("expected %d libraries, got %d", len(registry.CoreLibraries), got)
	}
	for _, lib := range reg.Libraries() {
		if len(lib.Variants) != 10 {
			t.Errorf("library %s: expected 10 variants, got %d", lib.ID, len(lib.Variants))
		}
	}
	if got := len(reg.Mechanics()); got != 6 {
		t.Errorf("expected 6 mechanics, got %d", got)
	}
	if got := len(reg.Receipts()); got != 8 {
		t.Errorf("expected 8 receipts, got %d", got)
	}
	if len(reg.Rules()) == 0 {
		t.Error("expected combination rules")
	}
	if len(reg.Vocabulary(registry.AxisSignature)) != 8 {
		t.Errorf("expected 8 signatures, got %v", reg.Vocabulary(registry.AxisSignature))
	}
}

func TestDefaultIsolated(t *testing.T) {
	a, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	a.Libraries[0].Variants[0].Weight = 999
	b, _ := Default()
	if b.Libraries[0].Variants[0].Weight == 999 {
		t.Fatal("edits to one Default result leaked into the next")
	}
}

// Every rule in the default catalogue must be satisfiable inside the retry
// budget for every context the vocabulary can express.
func TestDefaultRulesSatisfiable(t *testing.T) {
	reg, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	c := composer.New(reg, composer.WithLogger(log.New(io.Discard, "", 0)))
	val := validate.NewValidator(reg)

	hooks := reg.Vocabulary(registry.AxisHook)
	kbes := reg.Vocabulary(registry.AxisKBE)
	for _, sig := range reg.Vocabulary(registry.AxisSignature) {
		for _, hook := range hooks {
			for _, kbe := range kbes {
				for _, seal := range []bool{false, true} {
					for seed := uint64(0); seed < 40; seed++ {
						ctx := specimen.Context{Signature: sig, Hook: hook, KBE: kbe, IsSeal: seal, Seed: seed}
						res, err := c.Compose(ctx)
						if err != nil {
							t.Fatalf("%s: %v", ctx, err)
						}
						if v := val.Violations(res.Draft()); len(v) != 0 {
							t.Fatalf("%s: result still violates %+v", ctx, v)
						}
						m, _ := reg.Mechanic(res.Mechanic)
						if !m.AllowsReceipt(res.HeatBand, res.Receipt) {
							t.Fatalf("%s: illegal receipt %s for %s/%s", ctx, res.Receipt, res.Mechanic, res.HeatBand)
						}
					}
				}
			}
		}
	}
}

func TestParseRejectsMalformedTag(t *testing.T) {
	_, err := Parse([]byte(`
version: t
affinities:
  - {tag: "hookdraw", library: interaction, variant: x, multiplier: 1}
`))
	if err == nil || !strings.Contains(err.Error(), "malformed tag") {
		t.Fatalf("expected malformed tag error, got %v", err)
	}
}

func TestParseRejectsBadYAML(t *testing.T) {
	if _, err := Parse([]byte("libraries: [")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadFileIntegrity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	data := strings.Replace(string(defaultYAML), "receipts: [pebble_drop, rep_counter]", "receipts: [pebble_drop, missing_receipt]", 1)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := Open(path)
	if !errors.Is(err, registry.ErrIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	var ie *registry.IntegrityError
	if !errors.As(err, &ie) || !ie.Has(registry.DefectUnknown, "band:exposure/cold") {
		t.Fatalf("expected unknown receipt defect on exposure/cold, got %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}
