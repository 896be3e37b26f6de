// Package pattern implements the pivot detector, eight-pivot validator and
// CHoCH confirmer — the geometric core of the reversal-detection engine.
package pattern

import (
	"choch_detector/internal/domain"
)

// DetectorConfig is the immutable, process-wide configuration for pivot
// detection. It is shared read-only across every (symbol, timeframe) key.
type DetectorConfig struct {
	Left            int
	Right           int
	KeepPivots      int
	Filter          domain.VariantFilter
	InsertSynthetic bool
}

// DefaultDetectorConfig matches the defaults in the configuration table:
// left = right = 1, keep_pivots = 200, variant filter enabled and allowing
// every variant, synthetic-pivot insertion enabled.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Left:            1,
		Right:           1,
		KeepPivots:      200,
		Filter:          domain.DefaultVariantFilter(),
		InsertSynthetic: true,
	}
}

// PivotDetector reconstructs a (symbol, timeframe) pivot history from
// scratch on every scan. It holds no candle data between calls — the
// orchestrator always hands it a fresh window.
type PivotDetector struct {
	cfg DetectorConfig
}

// NewPivotDetector builds a detector bound to cfg. cfg is shared (by value)
// across every key's detector instance — it is never mutated after
// construction.
func NewPivotDetector(cfg DetectorConfig) *PivotDetector {
	return &PivotDetector{cfg: cfg}
}

// Rebuild resets state's pivot history and reconstructs it from candles,
// classifying pivots, applying the variant filter, and inserting synthetic
// pivots to preserve alternation. candles must already be closed and
// ordered by open time ascending.
func (d *PivotDetector) Rebuild(state *domain.TimeframeState, candles []domain.Candle) {
	state.Reset()

	left, right := d.cfg.Left, d.cfg.Right
	n := len(candles)
	if n < left+right+1 {
		return
	}

	for i := left; i < n-right; i++ {
		kind, ok := classifyExtreme(candles, i, left, right)
		if !ok {
			continue
		}
		variant := classifyVariant(candles, i, kind)
		if variant == domain.VariantNone {
			continue
		}
		if !d.cfg.Filter.Allows(variant) {
			continue
		}
		d.store(state, candles, domain.Pivot{
			BarIndex: i,
			Price:    pivotPrice(candles[i], kind),
			High:     candles[i].High,
			Low:      candles[i].Low,
			Volume:   candles[i].Volume,
			Kind:     kind,
			Variant:  variant,
		})
	}
}

// classifyExtreme reports whether bar i is a strict local high or low over
// the [i-left, i+right] window.
func classifyExtreme(candles []domain.Candle, i, left, right int) (domain.PivotKind, bool) {
	hi, lo := candles[i].High, candles[i].Low

	isHigh := true
	for j := i - left; j < i; j++ {
		if hi <= candles[j].High {
			isHigh = false
			break
		}
	}
	if isHigh {
		for j := i + 1; j <= i+right; j++ {
			if hi <= candles[j].High {
				isHigh = false
				break
			}
		}
	}
	if isHigh {
		return domain.PivotHigh, true
	}

	isLow := true
	for j := i - left; j < i; j++ {
		if lo >= candles[j].Low {
			isLow = false
			break
		}
	}
	if isLow {
		for j := i + 1; j <= i+right; j++ {
			if lo >= candles[j].Low {
				isLow = false
				break
			}
		}
	}
	if isLow {
		return domain.PivotLow, true
	}

	return domain.PivotHigh, false
}

// classifyVariant applies the six-way triplet table to the
// bars {i-1, i, i+1}. kind is the extreme already established by
// classifyExtreme and narrows which half of the table applies.
func classifyVariant(candles []domain.Candle, i int, kind domain.PivotKind) domain.PivotVariant {
	h1, l1 := candles[i-1].High, candles[i-1].Low
	h2, l2 := candles[i].High, candles[i].Low
	h3, l3 := candles[i+1].High, candles[i+1].Low

	if kind == domain.PivotHigh {
		switch {
		case h2 > h1 && h2 > h3 && l2 > l1 && l2 > l3:
			return domain.PH1
		case h2 >= h1 && h2 > h3 && l2 > l3 && l2 < l1:
			return domain.PH2
		case h2 > h1 && h2 >= h3 && l2 < l3 && l2 > l1:
			return domain.PH3
		default:
			return domain.VariantNone
		}
	}

	switch {
	case l2 < l1 && l2 < l3 && h2 < h1 && h2 < h3:
		return domain.PL1
	case h2 >= h1 && h2 < h3 && l2 < l3 && l2 <= l1:
		return domain.PL2
	case l2 < l1 && l2 < l3 && h2 < h1 && h2 > h3:
		return domain.PL3
	default:
		return domain.VariantNone
	}
}

func pivotPrice(c domain.Candle, kind domain.PivotKind) float64 {
	if kind == domain.PivotHigh {
		return c.High
	}
	return c.Low
}

// store appends pivot to state's history, inserting a synthetic pivot of
// the opposite kind first when pivot repeats the kind of the previously
// stored pivot and the bar gap between them is in [1, 3]. The ring caps
// at cfg.KeepPivots, dropping the oldest entries.
func (d *PivotDetector) store(state *domain.TimeframeState, candles []domain.Candle, pivot domain.Pivot) {
	if d.cfg.InsertSynthetic {
		if prev, ok := lastPivot(state); ok && prev.Kind == pivot.Kind {
			if synthetic, ok := syntheticBetween(candles, prev, pivot); ok {
				d.append(state, synthetic)
			}
		}
	}
	d.append(state, pivot)
}

func lastPivot(state *domain.TimeframeState) (domain.Pivot, bool) {
	if len(state.Pivots) == 0 {
		return domain.Pivot{}, false
	}
	return state.Pivots[len(state.Pivots)-1], true
}

// syntheticBetween scans the bars strictly between prev and next for the
// opposite extreme (minimum low between two highs, maximum high between
// two lows). Caller guarantees
// prev and next share a kind.
func syntheticBetween(candles []domain.Candle, prev, next domain.Pivot) (domain.Pivot, bool) {
	gap := next.BarIndex - prev.BarIndex - 1
	if gap < 1 || gap > 3 {
		return domain.Pivot{}, false
	}

	bestIdx := -1
	var bestLow, bestHigh float64
	for idx := prev.BarIndex + 1; idx < next.BarIndex; idx++ {
		c := candles[idx]
		if prev.Kind == domain.PivotHigh {
			if bestIdx == -1 || c.Low < bestLow {
				bestIdx, bestLow = idx, c.Low
			}
		} else {
			if bestIdx == -1 || c.High > bestHigh {
				bestIdx, bestHigh = idx, c.High
			}
		}
	}
	if bestIdx == -1 {
		return domain.Pivot{}, false
	}

	c := candles[bestIdx]
	oppositeKind := domain.PivotLow
	price := c.Low
	if prev.Kind == domain.PivotLow {
		oppositeKind = domain.PivotHigh
		price = c.High
	}
	return domain.Pivot{
		BarIndex:  bestIdx,
		Price:     price,
		High:      c.High,
		Low:       c.Low,
		Volume:    c.Volume,
		Kind:      oppositeKind,
		Variant:   domain.VariantSynthetic,
		Synthetic: true,
	}, true
}

// append stores pivot in bar-index order and enforces the ring cap.
func (d *PivotDetector) append(state *domain.TimeframeState, pivot domain.Pivot) {
	state.Pivots = append(state.Pivots, pivot)
	keep := d.cfg.KeepPivots
	if keep > 0 && len(state.Pivots) > keep {
		state.Pivots = state.Pivots[len(state.Pivots)-keep:]
	}
}
