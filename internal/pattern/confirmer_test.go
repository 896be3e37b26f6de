package pattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"choch_detector/internal/domain"
)

// g1DowntrendPattern builds a downtrend G1 pattern:
// p1..p8 = 110, 108, 106, 104, 102, 100, 98, 96 with a volume
// series v1..v8 = 10, 10, 10, 20, 10, 30, 10, 40 shaped to satisfy the
// volume clustering rule.
func g1DowntrendPattern() [8]domain.Pivot {
	prices := [8]float64{110, 108, 106, 104, 102, 100, 98, 96}
	volumes := [8]float64{10, 10, 10, 20, 10, 30, 10, 40}
	var p [8]domain.Pivot
	for i := range p {
		p[i] = domain.Pivot{BarIndex: i, Price: prices[i], Volume: volumes[i]}
	}
	return p
}

func g1State(p6Ref float64) *domain.TimeframeState {
	return &domain.TimeframeState{
		Symbol:          "BTCUSD",
		Timeframe:       "5m",
		Group:           domain.GroupG1,
		P2Ref:           108,
		P5Ref:           102,
		P6Ref:           p6Ref,
		LastEightDown:   true,
		LastEightBarIdx: 7,
		PatternPivots:   g1DowntrendPattern(),
	}
}

// confirmationCandles returns a pre/mid/cur triplet for the downtrend
// G1 fixture above.
func confirmationCandles() (pre, mid, cur domain.Candle) {
	pre = domain.Candle{Open: 98.3, High: 98.5, Low: 97.0, Close: 97.2, Volume: 5}
	mid = domain.Candle{Open: 97.2, High: 99.1, Low: 97.1, Close: 99.0, Volume: 50}
	cur = domain.Candle{Open: 99.0, High: 99.2, Low: 98.6, Close: 99.0, Volume: 45}
	return
}

// TestConfirm_DirectionalBaseCondition_FailsWhenCloseDoesNotClearP6Ref
// covers P6_ref=100: mid.close(99) > P6_ref is false, so the directional
// base condition never holds and the confirmer declines to fire.
func TestConfirm_DirectionalBaseCondition_FailsWhenCloseDoesNotClearP6Ref(t *testing.T) {
	state := g1State(100)
	pre, mid, cur := confirmationCandles()

	result := NewConfirmer().Confirm(state, pre, mid, cur, 10)

	assert.False(t, result.Fired)
	assert.False(t, state.ChochLocked)
}

// TestConfirm_AllConditionsHold_FiresG1UpAndLocks covers P6_ref=98: the
// base, basic, group-price and volume conditions all hold, so the
// confirmer fires an UP/G1 signal at mid.close and locks the state.
func TestConfirm_AllConditionsHold_FiresG1UpAndLocks(t *testing.T) {
	state := g1State(98)
	pre, mid, cur := confirmationCandles()

	result := NewConfirmer().Confirm(state, pre, mid, cur, 10)

	assert.True(t, result.Fired)
	assert.Equal(t, domain.DirectionUp, result.Direction)
	assert.Equal(t, domain.GroupG1, result.Group)
	assert.Equal(t, 99.0, result.Price)
	assert.True(t, state.ChochLocked)
}

// TestConfirm_LockPreventsDuplicateFire re-runs Confirm against the same
// already-locked state and expects it never fires a second signal.
func TestConfirm_LockPreventsDuplicateFire(t *testing.T) {
	state := g1State(98)
	pre, mid, cur := confirmationCandles()
	confirmer := NewConfirmer()

	first := confirmer.Confirm(state, pre, mid, cur, 10)
	require := assert.New(t)
	require.True(first.Fired)

	second := confirmer.Confirm(state, pre, mid, cur, 10)
	require.False(second.Fired, "a locked state must never re-fire the same pattern")
}

// TestConfirm_CurBarNotPastLastEight_Declines guards the curBarIdx
// precondition: the confirmation bar must be strictly newer than the
// pattern's anchor (P8) bar, or Confirm declines without inspecting
// prices at all.
func TestConfirm_CurBarNotPastLastEight_Declines(t *testing.T) {
	state := g1State(98)
	pre, mid, cur := confirmationCandles()

	result := NewConfirmer().Confirm(state, pre, mid, cur, state.LastEightBarIdx)
	assert.False(t, result.Fired)
}

// g2UptrendPattern builds an uptrend G2 pattern:
// p1..p8 with p2=100, p3=101, p4=104, p5=107, p6=103, p7=106, p8=110.
func g2UptrendPattern() [8]domain.Pivot {
	prices := [8]float64{95, 100, 101, 104, 107, 103, 106, 110}
	volumes := [8]float64{5, 5, 5, 10, 20, 15, 5, 5}
	var p [8]domain.Pivot
	for i := range p {
		p[i] = domain.Pivot{BarIndex: i, Price: prices[i], Volume: volumes[i]}
	}
	return p
}

// TestConfirm_G2UsesP7NotP5_FiresDown confirms an uptrend G2 pattern
// reverses with a DOWN signal at mid.close, gated by p7 rather than p5.
func TestConfirm_G2UsesP7NotP5_FiresDown(t *testing.T) {
	state := &domain.TimeframeState{
		Symbol:          "ETHUSD",
		Timeframe:       "15m",
		Group:           domain.GroupG2,
		P2Ref:           100,
		P5Ref:           107,
		P6Ref:           103,
		LastEightUp:     true,
		LastEightBarIdx: 7,
		PatternPivots:   g2UptrendPattern(),
	}

	pre := domain.Candle{Open: 109, High: 110, Low: 105, Close: 106, Volume: 10}
	mid := domain.Candle{Open: 108, High: 109, Low: 101, Close: 102, Volume: 20}
	cur := domain.Candle{Open: 104, High: 104, Low: 103, Close: 106, Volume: 5}

	result := NewConfirmer().Confirm(state, pre, mid, cur, 10)

	assert.True(t, result.Fired)
	assert.Equal(t, domain.DirectionDown, result.Direction)
	assert.Equal(t, domain.GroupG2, result.Group)
	assert.Equal(t, mid.Close, result.Price)
	assert.Equal(t, cur.OpenTime, result.SignalTime)
}

func TestConfirm_SignalTimeIsConfirmationBarOpenTime(t *testing.T) {
	state := g1State(98)
	pre, mid, cur := confirmationCandles()
	cur.OpenTime = time.Date(2026, 1, 2, 10, 5, 0, 0, time.UTC)

	result := NewConfirmer().Confirm(state, pre, mid, cur, 10)

	assert.True(t, result.Fired)
	assert.Equal(t, cur.OpenTime, result.SignalTime)
}

func TestConfirm_NoGroup_Declines(t *testing.T) {
	state := g1State(98)
	state.Group = domain.GroupNone
	pre, mid, cur := confirmationCandles()

	result := NewConfirmer().Confirm(state, pre, mid, cur, 10)
	assert.False(t, result.Fired)
}
