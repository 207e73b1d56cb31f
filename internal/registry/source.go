package registry

// #region source

// Source is the raw static data a registry is built from. Weights and
// multipliers are decimals here; Load converts them to milli-units.
type Source struct {
	Version    string
	Vocabulary map[TagAxis][]string
	Libraries  []LibrarySpec
	HeatBands  []BandID // coldest first
	Mechanics  []MechanicSpec
	Receipts   []ReceiptSpec
	Affinities []AffinitySpec
	Rules      []RuleSpec
}

// LibrarySpec declares a library and the stream index it samples from.
type LibrarySpec struct {
	ID       LibraryID
	Stream   uint32
	Variants []VariantSpec
}

// VariantSpec declares a variant with its base weight.
type VariantSpec struct {
	ID       VariantID
	Weight   float64
	Requires []Tag
}

// MechanicSpec declares a mechanic and its legal bands.
type MechanicSpec struct {
	ID     MechanicID
	Weight float64
	Bands  []BandSpec
}

// BandSpec declares a legal band of a mechanic.
type BandSpec struct {
	Band     BandID
	Weight   float64
	Receipts []ReceiptID
}

// ReceiptSpec declares a receipt profile.
type ReceiptSpec struct {
	ID        ReceiptID
	Weight    float64
	Semantics string
}

// AffinitySpec biases Variant of Library whenever Tag is active.
// A multiplier of 0 excludes the variant outright.
type AffinitySpec struct {
	Tag        Tag
	Library    LibraryID
	Variant    string
	Multiplier float64
}

// RuleSpec declares a forbidden combination. Clauses map an axis to the
// values that match on it.
type RuleSpec struct {
	ID     string
	When   map[LibraryID][]string
	Forbid map[LibraryID][]string
	Redraw LibraryID
}

// #endregion source
