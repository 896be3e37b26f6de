package domain

import (
	"database/sql"
	"time"
)

// Alert is the durable row persisted for every fired Signal, per the
// persistence layout.
type Alert struct {
	ID           uint64         `json:"id" gorm:"primaryKey;autoIncrement"`
	Symbol       string         `json:"symbol" gorm:"column:symbol;index:idx_alerts_symbol_timeframe"`
	Timeframe    string         `json:"timeframe" gorm:"column:timeframe;index:idx_alerts_symbol_timeframe"`
	Direction    string         `json:"direction" gorm:"column:direction"` // "Long" | "Short"
	PatternGroup sql.NullString `json:"pattern_group" gorm:"column:pattern_group;index:idx_alerts_pattern_group"`
	SignalType   string         `json:"signal_type" gorm:"column:signal_type"` // "CHoCH Up" | "CHoCH Down"
	Price        float64        `json:"price" gorm:"column:price"`
	SignalTime   time.Time      `json:"signal_time" gorm:"column:signal_time"`
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
}

// TableName returns the table name for the Alert model.
func (Alert) TableName() string {
	return "alerts"
}

// AlertFromSignal maps an engine Signal onto its persisted row shape.
// Unknown/absent group surfaces as NULL, rendered "N/A" by dashboards.
func AlertFromSignal(s Signal) Alert {
	a := Alert{
		Symbol:     s.Symbol,
		Timeframe:  s.Timeframe,
		Price:      s.Price,
		SignalTime: s.SignalTime,
	}
	switch s.Direction {
	case DirectionUp:
		a.Direction = "Long"
		a.SignalType = "CHoCH Up"
	case DirectionDown:
		a.Direction = "Short"
		a.SignalType = "CHoCH Down"
	}
	if s.Group != GroupNone {
		a.PatternGroup = sql.NullString{String: s.Group.String(), Valid: true}
	}
	return a
}
