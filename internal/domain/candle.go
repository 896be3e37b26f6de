package domain

import (
	"context"
	"fmt"
	"time"
)

// Candle represents a single closed OHLCV bar for an instrument at a
// specific timeframe. It is never mutated after creation — the fetcher
// and the aggregator both produce Candles by value.
type Candle struct {
	Symbol     string    `json:"symbol"`
	Timeframe  string    `json:"timeframe"`
	OpenTime   time.Time `json:"open_time"`
	Open       float64   `json:"open"`
	High       float64   `json:"high"`
	Low        float64   `json:"low"`
	Close      float64   `json:"close"`
	Volume     float64   `json:"volume"`
}

// Validate checks the OHLC invariant from the data model: low <= min(open,
// close) <= max(open, close) <= high, and volume >= 0.
func (c Candle) Validate() error {
	lowOK := c.Low <= c.Open && c.Low <= c.Close
	highOK := c.High >= c.Open && c.High >= c.Close
	if !lowOK || !highOK {
		return fmt.Errorf("candle %s@%s %s: OHLC invariant violated (O=%v H=%v L=%v C=%v)",
			c.Symbol, c.Timeframe, c.OpenTime.Format(time.RFC3339), c.Open, c.High, c.Low, c.Close)
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle %s@%s %s: negative volume %v", c.Symbol, c.Timeframe, c.OpenTime.Format(time.RFC3339), c.Volume)
	}
	return nil
}

// CandleFetcher is the external collaborator that supplies closed candles.
// Implementations must exclude any candle still in formation.
type CandleFetcher interface {
	FetchClosedCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
}
