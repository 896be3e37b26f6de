// Package orchestrator wires the fetcher, aggregator, pattern detector,
// validator, confirmer and signal sink into one per-(symbol, timeframe)
// scan, and runs scans concurrently via a keyed worker pool.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"choch_detector/internal/aggregation"
	"choch_detector/internal/domain"
	"choch_detector/internal/pattern"
	"choch_detector/pkg/apperrors"
	"choch_detector/pkg/log"
)

// WindowSize is the number of closed candles requested per scan. It is a
// fixed constant; the engine.window_size configuration value is loaded
// but not consulted here.
const WindowSize = 50

// Orchestrator owns every (symbol, timeframe) TimeframeState and drives
// one scan cycle per scheduled close.
type Orchestrator struct {
	fetcher    domain.CandleFetcher
	sink       domain.SignalSink
	aggregator *aggregation.Aggregator
	detector   *pattern.PivotDetector
	validator  *pattern.Validator
	confirmer  *pattern.Confirmer

	mu     sync.Mutex
	states map[scanKey]*domain.TimeframeState
}

type scanKey struct {
	symbol    string
	timeframe string
}

// New builds an Orchestrator wired to the given collaborators and
// detector configuration.
func New(fetcher domain.CandleFetcher, sink domain.SignalSink, detectorCfg pattern.DetectorConfig) *Orchestrator {
	return &Orchestrator{
		fetcher:    fetcher,
		sink:       sink,
		aggregator: aggregation.NewAggregator(),
		detector:   pattern.NewPivotDetector(detectorCfg),
		validator:  pattern.NewValidator(),
		confirmer:  pattern.NewConfirmer(),
		states:     make(map[scanKey]*domain.TimeframeState),
	}
}

// stateFor returns the TimeframeState owned by (symbol, timeframe),
// creating it lazily on first access. Each state is only ever touched by
// the worker running that key's task, so no lock is held once returned.
func (o *Orchestrator) stateFor(symbol, timeframe string) *domain.TimeframeState {
	o.mu.Lock()
	defer o.mu.Unlock()

	key := scanKey{symbol: symbol, timeframe: timeframe}
	state, ok := o.states[key]
	if !ok {
		state = &domain.TimeframeState{Symbol: symbol, Timeframe: timeframe}
		o.states[key] = state
	}
	return state
}

// Snapshot returns a copy of the current TimeframeState for symbol and
// timeframe, for the ops debug endpoint. It reports false if no scan has
// run for that key yet.
func (o *Orchestrator) Snapshot(symbol, timeframe string) (domain.TimeframeState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	state, ok := o.states[scanKey{symbol: symbol, timeframe: timeframe}]
	if !ok {
		return domain.TimeframeState{}, false
	}
	return *state, true
}

// ScanTask is the unit of work submitted to the worker pool for one
// (symbol, timeframe) scheduled close.
type ScanTask struct {
	o         *Orchestrator
	symbol    string
	timeframe string
	onSignal  func(domain.Signal)
}

// NewScanTask builds a task that, when executed, runs one full scan
// cycle for (symbol, timeframe) and invokes onSignal if a Signal fires.
func (o *Orchestrator) NewScanTask(symbol, timeframe string, onSignal func(domain.Signal)) *ScanTask {
	return &ScanTask{o: o, symbol: symbol, timeframe: timeframe, onSignal: onSignal}
}

// Key identifies this task for worker-pool serialization.
func (t *ScanTask) Key() Key {
	return Key{Symbol: t.symbol, Timeframe: t.timeframe}
}

// Execute runs the five-step scan cycle: fetch, rebuild
// pivots, validate, confirm, publish.
func (t *ScanTask) Execute(ctx context.Context) error {
	return t.o.Scan(ctx, t.symbol, t.timeframe, t.onSignal)
}

// Scan runs one full scan cycle for (symbol, timeframe):
//  1. Fetch WindowSize closed candles at timeframe (via the aggregator
//     for aggregated timeframes, requesting WindowSize*multiplier base
//     5m candles and trimming the aggregated output to the trailing
//     WindowSize).
//  2. Reset the state's pivot history and run the pivot detector.
//  3. Run the eight-pivot validator on the trailing eight pivots.
//  4. If a pattern is valid, run the CHoCH confirmer against the last
//     three closed candles.
//  5. Publish a fired signal to the sink.
//
// Errors that represent "not yet satisfied" conditions are never
// returned — Scan simply no-ops. Malformed input is logged and the scan
// skipped without an error; only fetcher, aggregator and sink failures
// return an error for the supervisor.
func (o *Orchestrator) Scan(ctx context.Context, symbol, timeframe string, onSignal func(domain.Signal)) error {
	candles, err := o.fetchWindow(ctx, symbol, timeframe)
	if err != nil {
		return err
	}
	if len(candles) < WindowSize {
		return nil // InsufficientData: silently no-op, retried on the next scan.
	}
	for _, c := range candles {
		if verr := c.Validate(); verr != nil {
			log.PivotDebug(symbol, timeframe, "input malformed, skipping scan: %v", verr)
			return nil // InputMalformed: skip scan, log, do not crash.
		}
	}

	state := o.stateFor(symbol, timeframe)
	o.detector.Rebuild(state, candles)

	if !o.validator.Validate(state) {
		return nil
	}
	if state.Group == domain.GroupNone {
		log.SchedulerInfo(symbol, timeframe, "logic assertion: group unset after validator success")
		return nil // LogicAssertion: treat as bug, skip cycle.
	}

	n := len(candles)
	if n < 3 {
		return nil
	}
	pre, mid, cur := candles[n-3], candles[n-2], candles[n-1]
	curBarIdx := n - 1

	result := o.confirmer.Confirm(state, pre, mid, cur, curBarIdx)
	if !result.Fired {
		return nil
	}

	signal := toSignal(symbol, timeframe, result)
	if err := o.sink.Publish(ctx, signal); err != nil {
		return o.classifySinkError(symbol, timeframe, state, err)
	}

	log.SignalInfo(symbol, timeframe, "CHoCH %s fired group=%s price=%v", result.Direction, result.Group, result.Price)
	if onSignal != nil {
		onSignal(signal)
	}
	return nil
}

// classifySinkError applies the SinkTransient/SinkFatal split: a
// transient failure retains the lock (the caller already locked the
// state before publishing) so the pattern is never re-announced, and is
// surfaced to the supervisor for a possible replay; a fatal failure
// propagates to stop the orchestrator.
func (o *Orchestrator) classifySinkError(symbol, timeframe string, state *domain.TimeframeState, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Kind == apperrors.KindSinkFatal {
		log.SignalError(symbol, timeframe, "fatal sink error, stopping: %v", err)
		return err
	}
	log.SignalError(symbol, timeframe, "transient sink error, will not re-fire until new pivots form: %v", err)
	return fmt.Errorf("sink publish failed for %s/%s: %w", symbol, timeframe, err)
}

// fetchWindow retrieves WindowSize closed candles at timeframe, routing
// through the aggregator for non-native timeframes.
func (o *Orchestrator) fetchWindow(ctx context.Context, symbol, timeframe string) ([]domain.Candle, error) {
	multiplier, isAggregated := aggregation.Multiplier(timeframe)
	if !isAggregated {
		return o.fetcher.FetchClosedCandles(ctx, symbol, timeframe, WindowSize)
	}

	base, err := o.fetcher.FetchClosedCandles(ctx, symbol, "5m", WindowSize*multiplier)
	if err != nil {
		return nil, err
	}
	aggregated, err := o.aggregator.Aggregate(symbol, timeframe, base)
	if err != nil {
		return nil, err
	}
	if len(aggregated) > WindowSize {
		aggregated = aggregated[len(aggregated)-WindowSize:]
	}
	return aggregated, nil
}

func toSignal(symbol, timeframe string, result domain.DetectionResult) domain.Signal {
	signal := domain.Signal{
		Symbol:     symbol,
		Timeframe:  timeframe,
		Direction:  result.Direction,
		Group:      result.Group,
		Price:      result.Price,
		SignalTime: result.SignalTime,
	}
	for i, p := range result.Pivots {
		signal.PatternPivotPrices[i] = p.Price
		signal.PatternBarIndices[i] = p.BarIndex
	}
	return signal
}
