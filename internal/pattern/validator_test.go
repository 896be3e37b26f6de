package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"choch_detector/internal/domain"
)

// alternatingPivots builds eight bar-ordered pivots with prices p[0..7],
// alternating kind starting at firstKind, at bar indices base..base+7.
func alternatingPivots(prices [8]float64, firstKind domain.PivotKind, base int) []domain.Pivot {
	kind := firstKind
	pivots := make([]domain.Pivot, 8)
	for i, price := range prices {
		pivots[i] = domain.Pivot{
			BarIndex: base + i,
			Price:    price,
			High:     price,
			Low:      price,
			Kind:     kind,
		}
		if kind == domain.PivotHigh {
			kind = domain.PivotLow
		} else {
			kind = domain.PivotHigh
		}
	}
	return pivots
}

// downtrendG1State builds an eight-pivot downtrend pattern:
// p1..p8 = 110, 108, 106, 101, 102, 100, 101.5, 96 (H,L,H,L,...), retest
// hi7=101.5 > lo4=101, breakout hi5=103 < lo2=107.5, extreme p8=96=min.
func downtrendG1State() *domain.TimeframeState {
	pivots := alternatingPivots([8]float64{110, 108, 106, 101, 102, 100, 101.5, 96}, domain.PivotHigh, 0)

	pivots[0].High, pivots[0].Low = 110, 109.5  // p1 H
	pivots[1].High, pivots[1].Low = 108.5, 107.5 // p2 L, hi2=108.5
	pivots[2].High, pivots[2].Low = 106, 105.5  // p3 H
	pivots[3].High, pivots[3].Low = 101.8, 101   // p4 L, lo4=101
	pivots[4].High, pivots[4].Low = 103, 101.5  // p5 H, hi5=103
	pivots[5].High, pivots[5].Low = 100.5, 100  // p6 L
	pivots[6].High, pivots[6].Low = 101.5, 100.5 // p7 H, hi7=101.5
	pivots[7].High, pivots[7].Low = 96.5, 96    // p8 L, extreme min

	return &domain.TimeframeState{
		Symbol:    "BTCUSD",
		Timeframe: "5m",
		Pivots:    pivots,
	}
}

func TestValidate_DowntrendG1_StructuralConditionsHold(t *testing.T) {
	state := downtrendG1State()
	v := NewValidator()

	a := assert.New(t)
	a.True(v.Validate(state), "downtrend G1 pattern should validate")
	a.Equal(domain.GroupG1, state.Group)
	a.True(state.LastEightDown)
	a.False(state.LastEightUp)
	a.Equal(108.0, state.P2Ref)
	a.Equal(102.0, state.P5Ref)
	a.Equal(100.0, state.P6Ref)
	a.Equal(7, state.LastEightBarIdx)
}

func TestValidate_FewerThanEightPivots_Fails(t *testing.T) {
	state := &domain.TimeframeState{Pivots: alternatingPivots([8]float64{1, 2, 3, 4, 5, 6, 7, 8}, domain.PivotHigh, 0)[:7]}
	assert.False(t, NewValidator().Validate(state))
}

func TestValidate_NonAlternatingKinds_Fails(t *testing.T) {
	pivots := alternatingPivots([8]float64{110, 108, 106, 104, 102, 100, 98, 96}, domain.PivotHigh, 0)
	pivots[3].Kind = domain.PivotHigh // breaks strict alternation
	state := &domain.TimeframeState{Pivots: pivots}
	assert.False(t, NewValidator().Validate(state))
}

// TestValidate_GroupPrecedence_G1BeatsG2AndG3 checks that
// exactly one of {G1,G2,G3} is selected, G1 checked first.
func TestValidate_GroupPrecedence_G1BeatsG2AndG3(t *testing.T) {
	state := downtrendG1State()
	assert.True(t, NewValidator().Validate(state))
	assert.Equal(t, domain.GroupG1, state.Group)
}

func TestValidate_ExtremeViolation_Up_Fails(t *testing.T) {
	// Uptrend requires p8 = max(p1..p8); break it by making p8 smaller
	// than p6.
	pivots := alternatingPivots([8]float64{96, 100, 98, 104, 102, 110, 106, 105}, domain.PivotLow, 0)
	state := &domain.TimeframeState{Pivots: pivots}
	assert.False(t, NewValidator().Validate(state))
}

// TestApplyUnlockRule_ClearsLock_OnNewerPivot pins the unlock rule from
// a pivot strictly newer than last_eight_bar_idx clears the
// lock ahead of this scan's validation attempt.
func TestApplyUnlockRule_ClearsLock_OnNewerPivot(t *testing.T) {
	state := &domain.TimeframeState{
		LastEightBarIdx: 7,
		ChochLocked:     true,
		Pivots:          []domain.Pivot{{BarIndex: 8, Kind: domain.PivotLow}},
	}
	applyUnlockRule(state)
	assert.False(t, state.ChochLocked)
}

func TestApplyUnlockRule_LeavesLock_WhenNoNewerPivot(t *testing.T) {
	state := &domain.TimeframeState{
		LastEightBarIdx: 7,
		ChochLocked:     true,
		Pivots:          []domain.Pivot{{BarIndex: 7, Kind: domain.PivotLow}},
	}
	applyUnlockRule(state)
	assert.True(t, state.ChochLocked)
}

func TestApplyUnlockRule_NoPivotsStored_NoOp(t *testing.T) {
	state := &domain.TimeframeState{ChochLocked: true}
	applyUnlockRule(state)
	assert.True(t, state.ChochLocked)
}
