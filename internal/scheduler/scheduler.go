// Package scheduler decides, at wall-clock time, which (symbol, timeframe)
// keys have a newly closed candle eligible for scanning.
package scheduler

import (
	"sync"
	"time"

	"choch_detector/internal/aggregation"
)

// midnightAlignedMinutes lists the natively supported timeframes whose
// close boundaries are midnight-modular rather than reference-anchored.
var midnightAlignedMinutes = map[string]int{
	"5m":  5,
	"15m": 15,
	"30m": 30,
	"1h":  60,
}

// Key identifies one schedulable (symbol, timeframe) pair.
type Key struct {
	Symbol    string
	Timeframe string
}

// DefaultGrace is the default grace period after a candle's close before
// it becomes scannable, permitting the exchange's own write-through to
// settle. Configurable via the scan_grace_seconds option.
const DefaultGrace = 30 * time.Second

// Scheduler tracks the last scanned close time per key and reports which
// keys have closed a new candle since.
type Scheduler struct {
	mu          sync.Mutex
	grace       time.Duration
	lastScanned map[Key]time.Time
}

// NewScheduler builds a Scheduler with the given grace period.
func NewScheduler(grace time.Duration) *Scheduler {
	return &Scheduler{
		grace:       grace,
		lastScanned: make(map[Key]time.Time),
	}
}

// GetScannable returns the subset of keys whose most recent candle close
// at or before now is newer than the key's last_scanned_close_time and
// has cleared the grace period.
// Matching keys have their last_scanned_close_time advanced to the close
// time found — a missed tick does not cause a repeat scan of the same
// close once it has been served (coalescing).
func (s *Scheduler) GetScannable(keys []Key, now time.Time) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ready []Key
	for _, k := range keys {
		closeTime, ok := CloseTime(k.Timeframe, now)
		if !ok {
			continue
		}
		last := s.lastScanned[k]
		if !closeTime.After(last) {
			continue
		}
		if now.Before(closeTime.Add(s.grace)) {
			continue
		}
		s.lastScanned[k] = closeTime
		ready = append(ready, k)
	}
	return ready
}

// CloseTime computes the most recent close_time <= now for timeframe,
// using the same alignment as the aggregator: reference-based for
// 10m/20m/25m/40m/50m, midnight-modular for 5m/15m/30m/1h.
func CloseTime(timeframe string, now time.Time) (time.Time, bool) {
	if rp, ok := aggregation.ReferenceMap[timeframe]; ok {
		interval := time.Duration(rp.IntervalMinutes) * time.Minute
		offset := now.Sub(rp.Reference)
		periodIdx := int64(offset / interval)
		if offset%interval < 0 {
			periodIdx-- // floor rather than truncate before the reference
		}
		return rp.Reference.Add(time.Duration(periodIdx) * interval), true
	}
	if minutes, ok := midnightAlignedMinutes[timeframe]; ok {
		interval := time.Duration(minutes) * time.Minute
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		periodIdx := int64(now.Sub(midnight) / interval)
		return midnight.Add(time.Duration(periodIdx) * interval), true
	}
	return time.Time{}, false
}
