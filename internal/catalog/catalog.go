// Package catalog reads composition catalogues: the YAML form of the static
// data a registry is loaded from.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/registry"
)

//go:embed data/default.yaml
var defaultYAML []byte

// #region document

type document struct {
	Version    string              `yaml:"version"`
	Vocabulary map[string][]string `yaml:"vocabulary"`
	HeatBands  []string            `yaml:"heat_bands"`
	Libraries  []libraryYAML       `yaml:"libraries"`
	Receipts   []receiptYAML       `yaml:"receipts"`
	Mechanics  []mechanicYAML      `yaml:"mechanics"`
	Affinities []affinityYAML      `yaml:"affinities"`
	Rules      []ruleYAML          `yaml:"rules"`
}

type libraryYAML struct {
	ID       string        `yaml:"id"`
	Stream   uint32        `yaml:"stream"`
	Variants []variantYAML `yaml:"variants"`
}

type variantYAML struct {
	ID       string   `yaml:"id"`
	Weight   float64  `yaml:"weight"`
	Requires []string `yaml:"requires"`
}

type receiptYAML struct {
	ID        string  `yaml:"id"`
	Weight    float64 `yaml:"weight"`
	Semantics string  `yaml:"semantics"`
}

type mechanicYAML struct {
	ID     string     `yaml:"id"`
	Weight float64    `yaml:"weight"`
	Bands  []bandYAML `yaml:"bands"`
}

type bandYAML struct {
	Band     string   `yaml:"band"`
	Weight   float64  `yaml:"weight"`
	Receipts []string `yaml:"receipts"`
}

type affinityYAML struct {
	Tag        string  `yaml:"tag"`
	Library    string  `yaml:"library"`
	Variant    string  `yaml:"variant"`
	Multiplier float64 `yaml:"multiplier"`
}

type ruleYAML struct {
	ID     string              `yaml:"id"`
	When   map[string][]string `yaml:"when"`
	Forbid map[string][]string `yaml:"forbid"`
	Redraw string              `yaml:"redraw"`
}

// #endregion document

// #region load

// Default returns the embedded catalogue. Each call parses a fresh copy, so
// callers may edit the result.
func Default() (registry.Source, error) {
	return Parse(defaultYAML)
}

// LoadFile parses the catalogue at path.
func LoadFile(path string) (registry.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return registry.Source{}, fmt.Errorf("read catalogue: %w", err)
	}
	src, err := Parse(data)
	if err != nil {
		return registry.Source{}, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// Open loads the catalogue at path into a registry, or the embedded default
// when path is empty. Integrity defects come back as *registry.IntegrityError.
func Open(path string) (*registry.Registry, error) {
	var (
		src registry.Source
		err error
	)
	if path == "" {
		src, err = Default()
	} else {
		src, err = LoadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return registry.Load(src)
}

// Parse decodes a YAML catalogue. It checks syntax only; referential checks
// belong to registry.Load.
func Parse(data []byte) (registry.Source, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return registry.Source{}, fmt.Errorf("parse catalogue: %w", err)
	}
	return doc.source()
}

// #endregion load

// #region convert

func (d document) source() (registry.Source, error) {
	src := registry.Source{
		Version:    d.Version,
		Vocabulary: make(map[registry.TagAxis][]string, len(d.Vocabulary)),
	}
	for axis, values := range d.Vocabulary {
		src.Vocabulary[registry.TagAxis(axis)] = values
	}
	for _, b := range d.HeatBands {
		src.HeatBands = append(src.HeatBands, registry.BandID(b))
	}

	for _, l := range d.Libraries {
		spec := registry.LibrarySpec{ID: registry.LibraryID(l.ID), Stream: l.Stream}
		for _, v := range l.Variants {
			vs := registry.VariantSpec{ID: registry.VariantID(v.ID), Weight: v.Weight}
			for _, raw := range v.Requires {
				tag, err := registry.ParseTag(raw)
				if err != nil {
					return registry.Source{}, fmt.Errorf("variant %s/%s: %w", l.ID, v.ID, err)
				}
				vs.Requires = append(vs.Requires, tag)
			}
			spec.Variants = append(spec.Variants, vs)
		}
		src.Libraries = append(src.Libraries, spec)
	}

	for _, r := range d.Receipts {
		src.Receipts = append(src.Receipts, registry.ReceiptSpec{
			ID:        registry.ReceiptID(r.ID),
			Weight:    r.Weight,
			Semantics: r.Semantics,
		})
	}

	for _, m := range d.Mechanics {
		spec := registry.MechanicSpec{ID: registry.MechanicID(m.ID), Weight: m.Weight}
		for _, b := range m.Bands {
			bs := registry.BandSpec{Band: registry.BandID(b.Band), Weight: b.Weight}
			for _, r := range b.Receipts {
				bs.Receipts = append(bs.Receipts, registry.ReceiptID(r))
			}
			spec.Bands = append(spec.Bands, bs)
		}
		src.Mechanics = append(src.Mechanics, spec)
	}

	for _, a := range d.Affinities {
		tag, err := registry.ParseTag(a.Tag)
		if err != nil {
			return registry.Source{}, fmt.Errorf("affinity %s/%s: %w", a.Library, a.Variant, err)
		}
		src.Affinities = append(src.Affinities, registry.AffinitySpec{
			Tag:        tag,
			Library:    registry.LibraryID(a.Library),
			Variant:    a.Variant,
			Multiplier: a.Multiplier,
		})
	}

	for _, r := range d.Rules {
		src.Rules = append(src.Rules, registry.RuleSpec{
			ID:     r.ID,
			When:   axisMap(r.When),
			Forbid: axisMap(r.Forbid),
			Redraw: registry.LibraryID(r.Redraw),
		})
	}
	return src, nil
}

func axisMap(in map[string][]string) map[registry.LibraryID][]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[registry.LibraryID][]string, len(in))
	for axis, values := range in {
		out[registry.LibraryID(axis)] = values
	}
	return out
}

// #endregion convert
