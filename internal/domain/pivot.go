package domain

// PivotKind is the direction of a pivot: a local high or a local low.
type PivotKind int

const (
	PivotHigh PivotKind = iota
	PivotLow
)

func (k PivotKind) String() string {
	if k == PivotHigh {
		return "HIGH"
	}
	return "LOW"
}

// PivotVariant classifies the surrounding-triplet shape of a pivot, per
// Synthetic pivots are inserted by the detector itself and
// are not produced by the variant classifier.
type PivotVariant int

const (
	VariantNone PivotVariant = iota
	PH1
	PH2
	PH3
	PL1
	PL2
	PL3
	VariantSynthetic
)

func (v PivotVariant) String() string {
	switch v {
	case PH1:
		return "PH1"
	case PH2:
		return "PH2"
	case PH3:
		return "PH3"
	case PL1:
		return "PL1"
	case PL2:
		return "PL2"
	case PL3:
		return "PL3"
	case VariantSynthetic:
		return "SYNTHETIC"
	default:
		return "NONE"
	}
}

// Pivot is a point associated with a bar index within the current scan
// window. It is owned by the per-(symbol, timeframe) state and is
// destroyed on the next rebuild.
type Pivot struct {
	BarIndex  int
	Price     float64
	High      float64
	Low       float64
	Volume    float64
	Kind      PivotKind
	Variant   PivotVariant
	Synthetic bool
}

// VariantFilter controls which classified variants the detector accepts.
// A variant excluded here causes the detector to discard the pivot
// entirely (it is never stored, never considered for synthetic insertion).
type VariantFilter struct {
	Enabled bool // use_variant_filter
	AllowPH1 bool
	AllowPH2 bool
	AllowPH3 bool
	AllowPL1 bool
	AllowPL2 bool
	AllowPL3 bool
}

// DefaultVariantFilter allows every variant.
func DefaultVariantFilter() VariantFilter {
	return VariantFilter{
		Enabled:  true,
		AllowPH1: true,
		AllowPH2: true,
		AllowPH3: true,
		AllowPL1: true,
		AllowPL2: true,
		AllowPL3: true,
	}
}

// Allows reports whether the filter accepts the given variant. Synthetic
// pivots bypass the filter — they are inserted by the detector itself to
// preserve alternation, not classified from the variant table.
func (f VariantFilter) Allows(v PivotVariant) bool {
	if !f.Enabled {
		return true
	}
	switch v {
	case PH1:
		return f.AllowPH1
	case PH2:
		return f.AllowPH2
	case PH3:
		return f.AllowPH3
	case PL1:
		return f.AllowPL1
	case PL2:
		return f.AllowPL2
	case PL3:
		return f.AllowPL3
	default:
		return true
	}
}
