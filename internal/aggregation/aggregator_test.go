package aggregation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"choch_detector/internal/domain"
)

func fiveMinCandle(openTime time.Time, open, high, low, close, volume float64) domain.Candle {
	return domain.Candle{
		Symbol:    "BTCUSD",
		Timeframe: "5m",
		OpenTime:  openTime,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
}

// TestAggregate_AlignsAcrossMidnight covers a 25m aggregation of 5m
// candles opening 2025-10-25 23:30 through 2025-10-26 01:30, against a
// reference of 2025-10-24 17:05: it must emit period boundaries
// 23:30/23:55/00:20/00:45/01:10 — none of them midnight-aligned.
func TestAggregate_AlignsAcrossMidnight(t *testing.T) {
	start := time.Date(2025, 10, 25, 23, 30, 0, 0, time.UTC)
	var fiveMin []domain.Candle
	for i := 0; i < 25; i++ { // 23:30 .. 01:30 inclusive, 5 periods x 5 bars
		openTime := start.Add(time.Duration(i) * 5 * time.Minute)
		fiveMin = append(fiveMin, fiveMinCandle(openTime,
			100+float64(i), 101+float64(i), 99+float64(i), 100.5+float64(i), 10))
	}

	out, err := NewAggregator().Aggregate("BTCUSD", "25m", fiveMin)
	require.NoError(t, err)
	require.Len(t, out, 5)

	wantOpenTimes := []time.Time{
		time.Date(2025, 10, 25, 23, 30, 0, 0, time.UTC),
		time.Date(2025, 10, 25, 23, 55, 0, 0, time.UTC),
		time.Date(2025, 10, 26, 0, 20, 0, 0, time.UTC),
		time.Date(2025, 10, 26, 0, 45, 0, 0, time.UTC),
		time.Date(2025, 10, 26, 1, 10, 0, 0, time.UTC),
	}
	for i, c := range out {
		assert.True(t, c.OpenTime.Equal(wantOpenTimes[i]), "period %d: got %v want %v", i, c.OpenTime, wantOpenTimes[i])
		isMidnight := c.OpenTime.Hour() == 0 && c.OpenTime.Minute() == 0
		assert.False(t, isMidnight, "aggregated candle should not land on midnight")
	}

	// The 00:20 period rolls up 5m[00:20..00:40]: open=first.open,
	// close=last.close, volume=sum.
	midnightPeriod := out[2]
	assert.Equal(t, fiveMin[10].Open, midnightPeriod.Open)
	assert.Equal(t, fiveMin[14].Close, midnightPeriod.Close)
	wantVolume := 0.0
	for _, c := range fiveMin[10:15] {
		wantVolume += c.Volume
	}
	assert.Equal(t, wantVolume, midnightPeriod.Volume)
}

func TestAggregate_PartialTrailingGroup_Dropped(t *testing.T) {
	rp := ReferenceMap["10m"]
	fiveMin := []domain.Candle{
		fiveMinCandle(rp.Reference, 1, 2, 0, 1, 10),
		fiveMinCandle(rp.Reference.Add(5*time.Minute), 1, 2, 0, 1, 10),
		fiveMinCandle(rp.Reference.Add(10*time.Minute), 1, 2, 0, 1, 10), // starts a new, incomplete period
	}

	out, err := NewAggregator().Aggregate("BTCUSD", "10m", fiveMin)
	require.NoError(t, err)
	require.Len(t, out, 1, "the trailing partial period must be dropped, not interpolated")
	assert.True(t, out[0].OpenTime.Equal(rp.Reference))
}

func TestAggregate_GapInInput_OmitsAffectedPeriod(t *testing.T) {
	rp := ReferenceMap["10m"]
	// Period 0 complete, period 1 missing entirely, period 2 complete.
	fiveMin := []domain.Candle{
		fiveMinCandle(rp.Reference, 1, 2, 0, 1, 10),
		fiveMinCandle(rp.Reference.Add(5*time.Minute), 1, 2, 0, 1, 10),
		fiveMinCandle(rp.Reference.Add(20*time.Minute), 1, 2, 0, 1, 10),
		fiveMinCandle(rp.Reference.Add(25*time.Minute), 1, 2, 0, 1, 10),
	}

	out, err := NewAggregator().Aggregate("BTCUSD", "10m", fiveMin)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[1].OpenTime.Equal(rp.Reference.Add(20*time.Minute)))
}

func TestAggregate_UnsupportedTimeframe_Errors(t *testing.T) {
	_, err := NewAggregator().Aggregate("BTCUSD", "7m", nil)
	assert.Error(t, err)
}

// TestAggregate_Idempotent_AppendingIncompletePeriod covers the round-trip
// property: appending further 5m candles that do not
// complete a new period must not change previously emitted output.
func TestAggregate_Idempotent_AppendingIncompletePeriod(t *testing.T) {
	rp := ReferenceMap["10m"]
	base := []domain.Candle{
		fiveMinCandle(rp.Reference, 1, 2, 0, 1, 10),
		fiveMinCandle(rp.Reference.Add(5*time.Minute), 2, 3, 1, 2, 10),
	}
	before, err := NewAggregator().Aggregate("BTCUSD", "10m", base)
	require.NoError(t, err)

	extended := append(append([]domain.Candle{}, base...), fiveMinCandle(rp.Reference.Add(10*time.Minute), 3, 4, 2, 3, 10))
	after, err := NewAggregator().Aggregate("BTCUSD", "10m", extended)
	require.NoError(t, err)

	require.Len(t, before, 1)
	require.Len(t, after, 1)
	assert.Equal(t, before[0], after[0])
}

// TestReferenceMap_EveryOutputCandleOnArithmeticProgression checks
// directly against the aggregator's own reference map, for every
// supported timeframe, that every emitted candle lands on the
// reference instant's arithmetic progression.
func TestReferenceMap_EveryOutputCandleOnArithmeticProgression(t *testing.T) {
	for tf, rp := range ReferenceMap {
		interval := time.Duration(rp.IntervalMinutes) * time.Minute
		start := rp.Reference.Add(-3 * interval)
		var fiveMin []domain.Candle
		for i := 0; i < (rp.IntervalMinutes/5)*6; i++ {
			fiveMin = append(fiveMin, fiveMinCandle(start.Add(time.Duration(i)*5*time.Minute), 1, 2, 0, 1, 1))
		}

		out, err := NewAggregator().Aggregate("BTCUSD", tf, fiveMin)
		require.NoError(t, err, tf)
		for _, c := range out {
			delta := c.OpenTime.Sub(rp.Reference)
			assert.Zero(t, delta%interval, "%s candle at %v is not on the reference progression", tf, c.OpenTime)
		}
	}
}
