package pattern

import "choch_detector/internal/domain"

// Validator tests whether the last eight stored pivots form a valid
// up or down eight-pivot pattern under one of three group orderings.
type Validator struct{}

// NewValidator builds a stateless eight-pivot validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate first applies the unlock rule, then inspects state.Pivots'
// trailing eight entries. On success it updates state's group tag,
// breakout references, directional flags and last-eight bar index. It
// reports false when fewer than eight pivots are stored or any of the
// structural/retest/extreme/breakout/group conditions fails.
func (v *Validator) Validate(state *domain.TimeframeState) bool {
	applyUnlockRule(state)

	if len(state.Pivots) < 8 {
		return false
	}
	pivots := state.Pivots[len(state.Pivots)-8:]

	up := isAlternating(pivots, domain.PivotLow)
	down := isAlternating(pivots, domain.PivotHigh)
	if !up && !down {
		return false
	}

	p := make([]float64, 8)
	for i, pv := range pivots {
		p[i] = pv.Price
	}

	var direction domain.Direction
	var group domain.Group

	switch {
	case up && validUp(pivots, p):
		direction = domain.DirectionUp
		group = groupUp(p)
	case down && validDown(pivots, p):
		direction = domain.DirectionDown
		group = groupDown(p)
	default:
		return false
	}
	if group == domain.GroupNone {
		return false
	}

	state.Group = group
	state.P2Ref = p[1]
	state.P5Ref = p[4]
	state.P6Ref = p[5]
	state.LastEightUp = direction == domain.DirectionUp
	state.LastEightDown = direction == domain.DirectionDown
	state.LastEightBarIdx = pivots[7].BarIndex
	copy(state.PatternPivots[:], pivots)
	return true
}

// applyUnlockRule clears ChochLocked when a pivot strictly newer than the
// previously recorded pattern's last bar has since been stored
// §4.4's unlock rule. It runs ahead of (and independent from) this scan's
// validation attempt, against whatever pattern state carried in from the
// last successful validation.
func applyUnlockRule(state *domain.TimeframeState) {
	if len(state.Pivots) == 0 {
		return
	}
	newest := state.Pivots[len(state.Pivots)-1]
	if newest.BarIndex > state.LastEightBarIdx {
		state.ChochLocked = false
	}
}

// isAlternating reports whether pivots is a strict kind alternation
// starting with firstKind — L,H,L,H,... for an uptrend (firstKind=LOW),
// H,L,H,L,... for a downtrend (firstKind=HIGH).
func isAlternating(pivots []domain.Pivot, firstKind domain.PivotKind) bool {
	want := firstKind
	for _, pv := range pivots {
		if pv.Kind != want {
			return false
		}
		if want == domain.PivotHigh {
			want = domain.PivotLow
		} else {
			want = domain.PivotHigh
		}
	}
	return true
}

// validUp checks the retest, extreme and breakout conditions for an
// uptrend pattern: lo7 < hi4, p8 = max(p1..p8), lo5 > hi2 and lo3 > lo1.
func validUp(pivots []domain.Pivot, p []float64) bool {
	lo7, hi4 := pivots[6].Low, pivots[3].High
	lo5, hi2 := pivots[4].Low, pivots[1].High
	lo3, lo1 := pivots[2].Low, pivots[0].Low

	if lo7 >= hi4 {
		return false
	}
	if p[7] != maxOf(p) {
		return false
	}
	if !(lo5 > hi2 && lo3 > lo1) {
		return false
	}
	return true
}

// validDown is the symmetric mirror of validUp for downtrend patterns.
func validDown(pivots []domain.Pivot, p []float64) bool {
	hi7, lo4 := pivots[6].High, pivots[3].Low
	hi5, lo2 := pivots[4].High, pivots[1].Low
	hi3, hi1 := pivots[2].High, pivots[0].High

	if hi7 <= lo4 {
		return false
	}
	if p[7] != minOf(p) {
		return false
	}
	if !(hi5 < lo2 && hi3 < hi1) {
		return false
	}
	return true
}

// groupUp selects the first satisfied ordering among G1, G2, G3 in that
// precedence order — precedence must be
// documented on the selector.
func groupUp(p []float64) domain.Group {
	p2, p3, p4, p5, p6, p7, p8 := p[1], p[2], p[3], p[4], p[5], p[6], p[7]
	switch {
	case p2 < p4 && p4 < p6 && p6 < p8 && p3 < p5 && p5 < p7:
		return domain.GroupG1
	case p3 < p7 && p7 < p5 && p2 < p6 && p6 < p4 && p4 < p8 && p2 < p5:
		return domain.GroupG2
	case p3 < p5 && p5 < p7 && p2 < p6 && p6 < p4 && p4 < p8 && p2 < p5:
		return domain.GroupG3
	default:
		return domain.GroupNone
	}
}

// groupDown is the symmetric mirror of groupUp for downtrend patterns.
func groupDown(p []float64) domain.Group {
	p2, p3, p4, p5, p6, p7, p8 := p[1], p[2], p[3], p[4], p[5], p[6], p[7]
	switch {
	case p2 > p4 && p4 > p6 && p6 > p8 && p3 > p5 && p5 > p7:
		return domain.GroupG1
	case p3 > p7 && p7 > p5 && p2 > p6 && p6 > p4 && p4 > p8 && p2 > p5:
		return domain.GroupG2
	case p3 > p5 && p5 > p7 && p2 > p6 && p6 > p4 && p4 > p8 && p2 > p5:
		return domain.GroupG3
	default:
		return domain.GroupNone
	}
}

func maxOf(p []float64) float64 {
	m := p[0]
	for _, v := range p[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(p []float64) float64 {
	m := p[0]
	for _, v := range p[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
