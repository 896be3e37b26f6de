package repository

import (
	"context"

	"choch_detector/internal/domain"
)

// AlertRepository defines persistence operations for confirmed CHoCH
// signals. Storage adapters (e.g. mysql.AlertRepository) implement this
// interface; callers depend on repository.AlertRepository rather than a
// concrete storage package.
type AlertRepository interface {
	// Save persists a single confirmed alert.
	Save(ctx context.Context, alert *domain.Alert) error

	// FindBySymbolAndTimeframe retrieves the most recent alerts for a
	// given symbol/timeframe pair, newest first.
	FindBySymbolAndTimeframe(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Alert, error)

	// FindRecent retrieves the most recent alerts across all symbols
	// and timeframes, newest first.
	FindRecent(ctx context.Context, limit int) ([]domain.Alert, error)
}
