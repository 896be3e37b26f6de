package pattern

import "choch_detector/internal/domain"

// Confirmer applies the three-candle reversal test on top of a validated
// eight-pivot pattern and manages the choch_locked state transition.
type Confirmer struct{}

// NewConfirmer builds a stateless CHoCH confirmer.
func NewConfirmer() *Confirmer {
	return &Confirmer{}
}

// Confirm evaluates pre/mid/cur — the three most recently closed candles,
// with cur the last closed bar — against state's most recent valid
// eight-pattern. It returns a fired DetectionResult when the base, basic,
// group-price and volume conditions all hold for the direction consistent
// with state's last_eight flags and the lock is currently clear; it locks
// state on success. curBarIdx must be strictly greater than
// state.LastEightBarIdx or Confirm declines without inspecting prices.
func (c *Confirmer) Confirm(state *domain.TimeframeState, pre, mid, cur domain.Candle, curBarIdx int) domain.DetectionResult {
	if state.ChochLocked {
		return domain.DetectionResult{}
	}
	if state.Group == domain.GroupNone {
		return domain.DetectionResult{}
	}
	if curBarIdx <= state.LastEightBarIdx {
		return domain.DetectionResult{}
	}

	p := state.PatternPivots
	p2, p5, p6, p7 := state.P2Ref, state.P5Ref, state.P6Ref, p[6].Price

	switch {
	case state.LastEightDown && upBase(pre, mid, p2, p6) && upBasic(pre, cur, p2) && upGroupPrice(state.Group, cur, p5, p7) && upVolume(state.Group, p, mid):
		state.ChochLocked = true
		return domain.DetectionResult{
			Fired:      true,
			Direction:  domain.DirectionUp,
			Group:      state.Group,
			Price:      mid.Close,
			SignalTime: cur.OpenTime,
			Pivots:     p,
		}
	case state.LastEightUp && downBase(pre, mid, p2, p6) && downBasic(pre, cur, p2) && downGroupPrice(state.Group, cur, p5, p7) && downVolume(state.Group, p, mid):
		state.ChochLocked = true
		return domain.DetectionResult{
			Fired:      true,
			Direction:  domain.DirectionDown,
			Group:      state.Group,
			Price:      mid.Close,
			SignalTime: cur.OpenTime,
			Pivots:     p,
		}
	default:
		return domain.DetectionResult{}
	}
}

// upBase is the directional-base condition for an UP reversal of a
// downtrend, evaluated on the CHoCH bar (mid) against the pre-CHoCH bar.
func upBase(pre, mid domain.Candle, p2Ref, p6Ref float64) bool {
	return mid.Low > pre.Low && mid.Close > pre.High && mid.Close > p6Ref && mid.Close < p2Ref
}

func downBase(pre, mid domain.Candle, p2Ref, p6Ref float64) bool {
	return mid.High < pre.High && mid.Close < pre.Low && mid.Close < p6Ref && mid.Close > p2Ref
}

func upBasic(pre, cur domain.Candle, p2Ref float64) bool {
	return cur.Low > pre.High && cur.Close <= p2Ref
}

func downBasic(pre, cur domain.Candle, p2Ref float64) bool {
	return cur.High < pre.Low && cur.Close >= p2Ref
}

// upGroupPrice applies the group-specific confirmation: G1 and G3 compare
// against p5, G2 against p7.
func upGroupPrice(group domain.Group, cur domain.Candle, p5, p7 float64) bool {
	switch group {
	case domain.GroupG2:
		return cur.Close <= p7
	default:
		return cur.Close <= p5
	}
}

func downGroupPrice(group domain.Group, cur domain.Candle, p5, p7 float64) bool {
	switch group {
	case domain.GroupG2:
		return cur.Close >= p7
	default:
		return cur.Close >= p5
	}
}

// upVolume applies the volume rule. pattern holds the
// eight pattern pivots in bar order (index 0 = p1 ... index 7 = p8);
// v_i is the volume of the candle the pivot was formed on.
func upVolume(group domain.Group, pattern [8]domain.Pivot, mid domain.Candle) bool {
	return volumeRule(group, pattern, mid)
}

func downVolume(group domain.Group, pattern [8]domain.Pivot, mid domain.Candle) bool {
	return volumeRule(group, pattern, mid)
}

// volumeRule is shared between directions: the clusters it inspects are
// defined purely in terms of pivot ordinal (4,5,6,7,8), not direction.
func volumeRule(group domain.Group, pattern [8]domain.Pivot, mid domain.Candle) bool {
	v4, v5, v6, v7, v8 := pattern[3].Volume, pattern[4].Volume, pattern[5].Volume, pattern[6].Volume, pattern[7].Volume
	vMid := mid.Volume

	if group == domain.GroupG1 {
		maxA := maxOf([]float64{v6, v7, v8})
		a := maxA == v6 || maxA == v8 || maxA == vMid
		maxB := maxOf([]float64{v4, v5, v6})
		b := maxB == v4 || maxB == v6
		maxC := maxOf([]float64{v4, v5, v6, v7, v8})
		c := maxC == v8 || maxC == vMid
		return (a && b) || c
	}

	maxCluster := maxOf([]float64{v4, v5, v6})
	return maxCluster == v4 || maxCluster == v5 || maxCluster == vMid
}
