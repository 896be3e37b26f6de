package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlertFromSignal_MapsDirectionAndGroup(t *testing.T) {
	signalTime := time.Date(2026, 1, 2, 10, 5, 0, 0, time.UTC)
	signal := Signal{
		Symbol:     "BTCUSD",
		Timeframe:  "5m",
		Direction:  DirectionUp,
		Group:      GroupG1,
		Price:      99.0,
		SignalTime: signalTime,
	}

	alert := AlertFromSignal(signal)

	a := assert.New(t)
	a.Equal("BTCUSD", alert.Symbol)
	a.Equal("5m", alert.Timeframe)
	a.Equal("Long", alert.Direction)
	a.Equal("CHoCH Up", alert.SignalType)
	a.Equal(99.0, alert.Price)
	a.True(alert.SignalTime.Equal(signalTime))
	a.True(alert.PatternGroup.Valid)
	a.Equal("G1", alert.PatternGroup.String)
}

func TestAlertFromSignal_DownDirection(t *testing.T) {
	signal := Signal{Direction: DirectionDown, Group: GroupG2}
	alert := AlertFromSignal(signal)

	assert.Equal(t, "Short", alert.Direction)
	assert.Equal(t, "CHoCH Down", alert.SignalType)
	assert.Equal(t, "G2", alert.PatternGroup.String)
}

// TestAlertFromSignal_NoGroup_NullsOut pins the "dashboards show N/A for
// missing group" behavior: an unset group surfaces as a
// NULL column rather than the zero-value "NONE" string.
func TestAlertFromSignal_NoGroup_NullsOut(t *testing.T) {
	signal := Signal{Direction: DirectionUp, Group: GroupNone}
	alert := AlertFromSignal(signal)

	assert.False(t, alert.PatternGroup.Valid)
}

func TestAlert_TableName(t *testing.T) {
	assert.Equal(t, "alerts", Alert{}.TableName())
}
