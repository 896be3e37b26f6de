package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"choch_detector/internal/domain"
	"choch_detector/internal/repository"
)

// AlertRepository implements repository.AlertRepository using MySQL via gorm.
type AlertRepository struct {
	db *gorm.DB
}

// NewAlertRepository creates a new AlertRepository.
func NewAlertRepository(db *gorm.DB) repository.AlertRepository {
	return &AlertRepository{db: db}
}

// Save persists alert. A duplicate (symbol, timeframe, signal_time) is
// treated as a no-op rather than an error, since the confirmer's lock
// already guarantees at most one fire per pattern.
func (r *AlertRepository) Save(ctx context.Context, alert *domain.Alert) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("id").
		Create(alert)

	if result.Error != nil {
		return fmt.Errorf("failed to save alert: %w", result.Error)
	}
	return nil
}

// FindBySymbolAndTimeframe retrieves the most recent alerts for a
// symbol/timeframe pair, newest first.
func (r *AlertRepository) FindBySymbolAndTimeframe(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Alert, error) {
	var alerts []domain.Alert

	result := r.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", symbol, timeframe).
		Order("signal_time DESC").
		Limit(limit).
		Find(&alerts)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to find alerts by symbol and timeframe: %w", result.Error)
	}
	return alerts, nil
}

// FindRecent retrieves the most recent alerts across all symbols and
// timeframes, newest first.
func (r *AlertRepository) FindRecent(ctx context.Context, limit int) ([]domain.Alert, error) {
	var alerts []domain.Alert

	result := r.db.WithContext(ctx).
		Order("signal_time DESC").
		Limit(limit).
		Find(&alerts)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to find recent alerts: %w", result.Error)
	}
	return alerts, nil
}
