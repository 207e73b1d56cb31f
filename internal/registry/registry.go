package registry

import (
	"fmt"
	"sort"

	"github.com/Finchy23/recoverlution-nextgen-sub016/internal/seedstream"
)

// #region core-libraries

// CoreLibrary is a library the rendering layer requires, with its reserved stream.
type CoreLibrary struct {
	ID     LibraryID
	Stream uint32
}

// CoreLibraries are the seven libraries every production registry declares.
var CoreLibraries = []CoreLibrary{
	{LibScene, seedstream.StreamScene},
	{LibAtmosphere, seedstream.StreamAtmosphere},
	{LibEntry, seedstream.StreamEntry},
	{LibInteraction, seedstream.StreamInteraction},
	{LibColorTemp, seedstream.StreamColorTemp},
	{LibTypography, seedstream.StreamTypography},
	{LibTransition, seedstream.StreamTransition},
}

// #endregion core-libraries

// #region registry

// Registry is the immutable, validated static data the engine samples from.
// It is safe for concurrent use because nothing mutates it after Load.
// Slices reachable from accessors must be treated as read-only.
type Registry struct {
	version    string
	vocabulary map[TagAxis]map[string]bool
	libraries  []Library
	libIndex   map[LibraryID]int
	bands      []HeatBand
	bandIndex  map[BandID]int
	mechanics  []MechanicProfile
	mechIndex  map[MechanicID]int
	receipts   []ReceiptProfile
	rcptIndex  map[ReceiptID]int
	affinity   *AffinityMatrix
	rules      []Rule
}

// Version returns the data version the registry was loaded from.
func (r *Registry) Version() string { return r.version }

// Libraries returns the libraries in declaration order.
func (r *Registry) Libraries() []Library {
	return append([]Library(nil), r.libraries...)
}

// Library looks up a library by id.
func (r *Registry) Library(id LibraryID) (Library, bool) {
	i, ok := r.libIndex[id]
	if !ok {
		return Library{}, false
	}
	return r.libraries[i], true
}

// HeatBands returns the bands coldest first.
func (r *Registry) HeatBands() []HeatBand {
	return append([]HeatBand(nil), r.bands...)
}

// Band looks up a heat band by id.
func (r *Registry) Band(id BandID) (HeatBand, bool) {
	i, ok := r.bandIndex[id]
	if !ok {
		return HeatBand{}, false
	}
	return r.bands[i], true
}

// Mechanics returns the mechanic profiles in declaration order.
func (r *Registry) Mechanics() []MechanicProfile {
	return append([]MechanicProfile(nil), r.mechanics...)
}

// Mechanic looks up a mechanic profile by id.
func (r *Registry) Mechanic(id MechanicID) (MechanicProfile, bool) {
	i, ok := r.mechIndex[id]
	if !ok {
		return MechanicProfile{}, false
	}
	return r.mechanics[i], true
}

// Receipts returns the receipt profiles in declaration order.
func (r *Registry) Receipts() []ReceiptProfile {
	return append([]ReceiptProfile(nil), r.receipts...)
}

// Receipt looks up a receipt profile by id.
func (r *Registry) Receipt(id ReceiptID) (ReceiptProfile, bool) {
	i, ok := r.rcptIndex[id]
	if !ok {
		return ReceiptProfile{}, false
	}
	return r.receipts[i], true
}

// Affinity returns the affinity matrix.
func (r *Registry) Affinity() *AffinityMatrix { return r.affinity }

// Rules returns the combination rules in declaration order.
func (r *Registry) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// KnownTag reports whether tag is part of the declared vocabulary.
func (r *Registry) KnownTag(tag Tag) bool {
	return r.vocabulary[tag.Axis][tag.Value]
}

// Vocabulary returns the declared values of axis, sorted.
func (r *Registry) Vocabulary(axis TagAxis) []string {
	out := make([]string, 0, len(r.vocabulary[axis]))
	for v := range r.vocabulary[axis] {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// HasValue reports whether value names a selectable option on axis.
func (r *Registry) HasValue(axis LibraryID, value string) bool {
	switch axis {
	case LibMechanic:
		_, ok := r.mechIndex[MechanicID(value)]
		return ok
	case LibHeat:
		_, ok := r.bandIndex[BandID(value)]
		return ok
	case LibReceipt:
		_, ok := r.rcptIndex[ReceiptID(value)]
		return ok
	}
	lib, ok := r.Library(axis)
	if !ok {
		return false
	}
	_, ok = lib.Variant(VariantID(value))
	return ok
}

// HasAxis reports whether axis is a library or a pseudo-library.
func (r *Registry) HasAxis(axis LibraryID) bool {
	if axis.IsPseudo() {
		return true
	}
	_, ok := r.libIndex[axis]
	return ok
}

// #endregion registry

// #region load

// Option adjusts how Load validates a source.
type Option func(*loadConfig)

type loadConfig struct {
	requireCore bool
}

// WithoutCoreLibraries drops the requirement that the seven core libraries
// are declared. Used for alternate content sets and tests.
func WithoutCoreLibraries() Option {
	return func(c *loadConfig) { c.requireCore = false }
}

// Load validates src exhaustively and builds a registry. Any defect makes
// Load fail with an *IntegrityError listing all of them; a registry is never
// returned for defective data.
func Load(src Source, opts ...Option) (*Registry, error) {
	cfg := loadConfig{requireCore: true}
	for _, o := range opts {
		o(&cfg)
	}

	l := &loader{
		src: src,
		cfg: cfg,
		reg: &Registry{
			version:    src.Version,
			vocabulary: make(map[TagAxis]map[string]bool),
			libIndex:   make(map[LibraryID]int),
			bandIndex:  make(map[BandID]int),
			mechIndex:  make(map[MechanicID]int),
			rcptIndex:  make(map[ReceiptID]int),
			affinity:   newAffinityMatrix(),
		},
	}

	if src.Version == "" {
		l.defect(DefectEmpty, "version", "registry version is required")
	}
	l.loadVocabulary()
	l.loadLibraries()
	l.loadBands()
	l.loadReceipts()
	l.loadMechanics()
	l.loadAffinities()
	l.loadRules()

	if len(l.defects) > 0 {
		return nil, &IntegrityError{Version: src.Version, Defects: l.defects}
	}
	return l.reg, nil
}

type loader struct {
	src     Source
	cfg     loadConfig
	reg     *Registry
	defects []Defect
}

func (l *loader) defect(kind DefectKind, subject, format string, args ...any) {
	l.defects = append(l.defects, Defect{Kind: kind, Subject: subject, Detail: fmt.Sprintf(format, args...)})
}

func (l *loader) loadVocabulary() {
	known := make(map[TagAxis]bool, len(TagAxes))
	for _, a := range TagAxes {
		known[a] = true
	}
	axes := make([]string, 0, len(l.src.Vocabulary))
	for a := range l.src.Vocabulary {
		axes = append(axes, string(a))
	}
	sort.Strings(axes)
	for _, a := range axes {
		axis := TagAxis(a)
		subject := "vocab:" + a
		if !known[axis] {
			l.defect(DefectUnknown, subject, "unknown tag axis")
			continue
		}
		if axis == AxisSeal {
			l.defect(DefectDuplicate, subject, "seal values are implicit")
			continue
		}
		values := make(map[string]bool)
		for _, v := range l.src.Vocabulary[axis] {
			if v == "" {
				l.defect(DefectEmpty, subject, "empty value")
				continue
			}
			if values[v] {
				l.defect(DefectDuplicate, subject, "value %q declared twice", v)
				continue
			}
			values[v] = true
		}
		l.reg.vocabulary[axis] = values
	}
	l.reg.vocabulary[AxisSeal] = map[string]bool{SealValue: true}
}

func (l *loader) loadLibraries() {
	if len(l.src.Libraries) == 0 {
		l.defect(DefectEmpty, "libraries", "at least one library is required")
	}
	core := make(map[LibraryID]uint32, len(CoreLibraries))
	for _, c := range CoreLibraries {
		core[c.ID] = c.Stream
	}
	streams := make(map[uint32]LibraryID)

	for _, spec := range l.src.Libraries {
		subject := "library:" + string(spec.ID)
		if spec.ID == "" {
			l.defect(DefectEmpty, subject, "library id is required")
			continue
		}
		if spec.ID.IsPseudo() {
			l.defect(DefectDuplicate, subject, "id collides with a pseudo-library")
			continue
		}
		if _, dup := l.reg.libIndex[spec.ID]; dup {
			l.defect(DefectDuplicate, subject, "declared twice")
			continue
		}
		l.checkStream(spec, core, streams)

		lib := Library{ID: spec.ID, Stream: spec.Stream}
		seen := make(map[VariantID]bool)
		ungated := 0
		for _, vs := range spec.Variants {
			vsubject := "variant:" + string(spec.ID) + "/" + string(vs.ID)
			if vs.ID == "" {
				l.defect(DefectEmpty, vsubject, "variant id is required")
				continue
			}
			if seen[vs.ID] {
				l.defect(DefectDuplicate, vsubject, "declared twice")
				continue
			}
			seen[vs.ID] = true
			w, ok := l.weight(vsubject, vs.Weight)
			if !ok {
				continue
			}
			for _, t := range vs.Requires {
				if !l.reg.KnownTag(t) {
					l.defect(DefectUnknown, vsubject, "requires unknown tag %s", t)
				}
			}
			if len(vs.Requires) == 0 {
				ungated++
			}
			lib.Variants = append(lib.Variants, Variant{
				ID:       vs.ID,
				Weight:   w,
				Requires: append([]Tag(nil), vs.Requires...),
			})
		}
		if len(spec.Variants) == 0 {
			l.defect(DefectEmpty, subject, "library has no variants")
		} else if ungated == 0 {
			l.defect(DefectUnreachable, subject, "every variant is gated; some contexts would have no candidates")
		}

		l.reg.libIndex[spec.ID] = len(l.reg.libraries)
		l.reg.libraries = append(l.reg.libraries, lib)
	}

	if l.cfg.requireCore {
		for _, c := range CoreLibraries {
			if _, ok := l.reg.libIndex[c.ID]; !ok {
				l.defect(DefectMissing, "library:"+string(c.ID), "core library not declared")
			}
		}
	}
}

func (l *loader) checkStream(spec LibrarySpec, core map[LibraryID]uint32, streams map[uint32]LibraryID) {
	subject := "library:" + string(spec.ID)
	s := spec.Stream
	if other, dup := streams[s]; dup {
		l.defect(DefectStream, subject, "stream %d already used by %s", s, other)
		return
	}
	streams[s] = spec.ID

	if s == seedstream.StreamGate || s == seedstream.StreamReceipt || seedstream.IsRetry(s) {
		l.defect(DefectStream, subject, "stream %d is reserved for the gate, receipt or retry block", s)
		return
	}
	if !l.cfg.requireCore {
		return
	}
	if want, isCore := core[spec.ID]; isCore {
		if s != want {
			l.defect(DefectStream, subject, "core library must use stream %d, got %d", want, s)
		}
		return
	}
	if s < seedstream.StreamExtraFirst {
		l.defect(DefectStream, subject, "extra libraries must use stream >= %d, got %d", seedstream.StreamExtraFirst, s)
	}
}

func (l *loader) weight(subject string, x float64) (uint64, bool) {
	w, ok := toMilli(x, MaxWeight)
	if !ok || w == 0 {
		l.defect(DefectWeight, subject, "weight %v must be in (0, %v] at milli precision", x, MaxWeight)
		return 0, false
	}
	return w, true
}

func (l *loader) loadBands() {
	if len(l.src.HeatBands) == 0 {
		l.defect(DefectEmpty, "heat_bands", "at least one heat band is required")
	}
	for i, id := range l.src.HeatBands {
		subject := "band:" + string(id)
		if id == "" {
			l.defect(DefectEmpty, subject, "band id is required")
			continue
		}
		if _, dup := l.reg.bandIndex[id]; dup {
			l.defect(DefectDuplicate, subject, "declared twice")
			continue
		}
		l.reg.bandIndex[id] = len(l.reg.bands)
		l.reg.bands = append(l.reg.bands, HeatBand{ID: id, Rank: i})
	}
}

func (l *loader) loadReceipts() {
	if len(l.src.Receipts) == 0 {
		l.defect(DefectEmpty, "receipts", "at least one receipt profile is required")
	}
	for _, spec := range l.src.Receipts {
		subject := "receipt:" + string(spec.ID)
		if spec.ID == "" {
			l.defect(DefectEmpty, subject, "receipt id is required")
			continue
		}
		if _, dup := l.reg.rcptIndex[spec.ID]; dup {
			l.defect(DefectDuplicate, subject, "declared twice")
			continue
		}
		w, ok := l.weight(subject, spec.Weight)
		if !ok {
			continue
		}
		l.reg.rcptIndex[spec.ID] = len(l.reg.receipts)
		l.reg.receipts = append(l.reg.receipts, ReceiptProfile{ID: spec.ID, Weight: w, Semantics: spec.Semantics})
	}
}

// loadMechanics checks the full Mechanic × legal HeatBand product: every
// declared pair must carry a non-empty set of known receipts.
func (l *loader) loadMechanics() {
	if len(l.src.Mechanics) == 0 {
		l.defect(DefectEmpty, "mechanics", "at least one mechanic profile is required")
	}
	for _, spec := range l.src.Mechanics {
		subject := "mechanic:" + string(spec.ID)
		if spec.ID == "" {
			l.defect(DefectEmpty, subject, "mechanic id is required")
			continue
		}
		if _, dup := l.reg.mechIndex[spec.ID]; dup {
			l.defect(DefectDuplicate, subject, "declared twice")
			continue
		}
		w, ok := l.weight(subject, spec.Weight)
		if !ok {
			continue
		}
		m := MechanicProfile{ID: spec.ID, Weight: w}
		if len(spec.Bands) == 0 {
			l.defect(DefectNoLegalSet, subject, "no legal heat bands")
		}
		seenBand := make(map[BandID]bool)
		for _, bs := range spec.Bands {
			bsubject := "band:" + string(spec.ID) + "/" + string(bs.Band)
			if _, known := l.reg.bandIndex[bs.Band]; !known {
				l.defect(DefectUnknown, bsubject, "unknown heat band")
				continue
			}
			if seenBand[bs.Band] {
				l.defect(DefectDuplicate, bsubject, "band declared twice")
				continue
			}
			seenBand[bs.Band] = true
			bw, ok := l.weight(bsubject, bs.Weight)
			if !ok {
				continue
			}
			rule := BandRule{Band: bs.Band, Weight: bw}
			seenRcpt := make(map[ReceiptID]bool)
			for _, rid := range bs.Receipts {
				if _, known := l.reg.rcptIndex[rid]; !known {
					l.defect(DefectUnknown, bsubject, "unknown receipt %q", rid)
					continue
				}
				if seenRcpt[rid] {
					l.defect(DefectDuplicate, bsubject, "receipt %q listed twice", rid)
					continue
				}
				seenRcpt[rid] = true
				rule.Receipts = append(rule.Receipts, rid)
			}
			if len(rule.Receipts) == 0 {
				l.defect(DefectNoLegalSet, bsubject, "no legal receipts")
			}
			m.Bands = append(m.Bands, rule)
		}
		l.reg.mechIndex[spec.ID] = len(l.reg.mechanics)
		l.reg.mechanics = append(l.reg.mechanics, m)
	}
}

func (l *loader) loadAffinities() {
	for _, spec := range l.src.Affinities {
		subject := fmt.Sprintf("affinity:%s/%s/%s", spec.Tag, spec.Library, spec.Variant)
		if !l.reg.KnownTag(spec.Tag) {
			l.defect(DefectUnknown, subject, "unknown tag")
			continue
		}
		if !l.reg.HasAxis(spec.Library) {
			l.defect(DefectUnknown, subject, "unknown library")
			continue
		}
		if !l.reg.HasValue(spec.Library, spec.Variant) {
			l.defect(DefectUnknown, subject, "unknown variant")
			continue
		}
		m, ok := toMilli(spec.Multiplier, MaxMultiplier)
		if !ok {
			l.defect(DefectWeight, subject, "multiplier %v must be in [0, %v]", spec.Multiplier, MaxMultiplier)
			continue
		}
		if m == 0 && spec.Multiplier != 0 {
			l.defect(DefectWeight, subject, "multiplier %v rounds to a veto at milli precision; use 0 to veto", spec.Multiplier)
			continue
		}
		key := affinityKey{spec.Tag, spec.Library, spec.Variant}
		if _, dup := l.reg.affinity.entries[key]; dup {
			l.defect(DefectDuplicate, subject, "declared twice")
			continue
		}
		l.reg.affinity.entries[key] = m
	}
}

func (l *loader) loadRules() {
	seen := make(map[string]bool)
	for _, spec := range l.src.Rules {
		subject := "rule:" + spec.ID
		if spec.ID == "" {
			l.defect(DefectEmpty, subject, "rule id is required")
			continue
		}
		if seen[spec.ID] {
			l.defect(DefectDuplicate, subject, "declared twice")
			continue
		}
		seen[spec.ID] = true
		if len(spec.Forbid) == 0 {
			l.defect(DefectEmpty, subject, "rule forbids nothing")
			continue
		}

		when, okWhen := l.clauses(subject, spec.When)
		forbid, okForbid := l.clauses(subject, spec.Forbid)
		if !okWhen || !okForbid {
			continue
		}

		redraw := spec.Redraw
		switch {
		case redraw == LibMechanic || redraw == LibHeat:
			l.defect(DefectInvalidRedraw, subject, "%s gates other axes and cannot be redrawn alone", redraw)
			continue
		case !l.reg.HasAxis(redraw):
			l.defect(DefectUnknown, subject, "unknown redraw axis %q", redraw)
			continue
		case !implicates(redraw, when, forbid):
			l.defect(DefectInvalidRedraw, subject, "redraw axis %q does not appear in the rule", redraw)
			continue
		}
		l.reg.rules = append(l.reg.rules, Rule{ID: spec.ID, When: when, Forbid: forbid, Redraw: redraw})
	}
}

func (l *loader) clauses(subject string, in map[LibraryID][]string) ([]Clause, bool) {
	axes := make([]string, 0, len(in))
	for a := range in {
		axes = append(axes, string(a))
	}
	sort.Strings(axes)

	ok := true
	out := make([]Clause, 0, len(axes))
	for _, a := range axes {
		axis := LibraryID(a)
		if !l.reg.HasAxis(axis) {
			l.defect(DefectUnknown, subject, "unknown axis %q", axis)
			ok = false
			continue
		}
		values := in[axis]
		if len(values) == 0 {
			l.defect(DefectEmpty, subject, "axis %q lists no values", axis)
			ok = false
			continue
		}
		for _, v := range values {
			if !l.reg.HasValue(axis, v) {
				l.defect(DefectUnknown, subject, "unknown value %q on axis %q", v, axis)
				ok = false
			}
		}
		out = append(out, Clause{Axis: axis, Values: append([]string(nil), values...)})
	}
	return out, ok
}

func implicates(axis LibraryID, groups ...[]Clause) bool {
	for _, g := range groups {
		for _, c := range g {
			if c.Axis == axis {
				return true
			}
		}
	}
	return false
}

// #endregion load
