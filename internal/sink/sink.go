// Package sink provides a reference implementation of domain.SignalSink
// that durably persists every fired signal as an alert row.
package sink

import (
	"context"

	"choch_detector/internal/domain"
	"choch_detector/internal/repository"
	"choch_detector/pkg/apperrors"
	"choch_detector/pkg/log"
)

// PersistentSink publishes signals by writing them to AlertRepository.
// A repository error is always classified as KindSinkTransient: a write
// failure against MySQL (connection blip, lock wait timeout) is assumed
// recoverable at the next scan, since the confirmer's lock already
// guards against a duplicate fire in the meantime.
type PersistentSink struct {
	alerts repository.AlertRepository
}

// NewPersistentSink builds a PersistentSink backed by alerts.
func NewPersistentSink(alerts repository.AlertRepository) *PersistentSink {
	return &PersistentSink{alerts: alerts}
}

// Publish persists signal as an Alert row.
func (s *PersistentSink) Publish(ctx context.Context, signal domain.Signal) error {
	alert := domain.AlertFromSignal(signal)

	if err := s.alerts.Save(ctx, &alert); err != nil {
		log.SignalError(signal.Symbol, signal.Timeframe, "failed to persist signal: %v", err)
		return apperrors.NewEngineError(apperrors.KindSinkTransient, "failed to persist signal", err)
	}

	log.SignalInfo(signal.Symbol, signal.Timeframe, "persisted %s signal at %.4f (group=%s)",
		signal.Direction, signal.Price, signal.Group)
	return nil
}
