// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/spindle/internal/domain/catalog"
)

// Operation names used by the recorder. Aggregation and fairness queries
// filter on these, so they are fixed strings rather than free text.
const (
	OpCaseOpen    = "case_open"
	OpTransaction = "currency_transaction"
	OpPersistence = "persistence"
)

// Context keys carried in OperationRecord.Context.
const (
	FieldUserID = "user_id"
	FieldCaseID = "case_id"
	FieldItemID = "item_id"
	FieldRarity = "rarity"
	FieldAmount = "amount"
	FieldError  = "error"
	FieldTarget = "target"
)

// OperationRecord is a single recorded operation outcome. Immutable after
// creation; owned by the metric buffer until flushed, then by the store.
type OperationRecord struct {
	ID         string            `json:"id"`
	Operation  string            `json:"operation"`
	Timestamp  time.Time         `json:"timestamp"`
	DurationMS float64           `json:"duration_ms"` // rounded to 2 decimals
	Success    bool              `json:"success"`
	Context    map[string]string `json:"context,omitempty"`
}

// Window labels a trailing aggregation window.
type Window string

const (
	WindowHour Window = "1h"
	WindowDay  Window = "24h"
	WindowWeek Window = "7d"
)

// Duration returns the window length, or false for an unknown label.
func (w Window) Duration() (time.Duration, bool) {
	switch w {
	case WindowHour:
		return time.Hour, true
	case WindowDay:
		return 24 * time.Hour, true
	case WindowWeek:
		return 7 * 24 * time.Hour, true
	}
	return 0, false
}

// PerformanceAggregate is a rolling performance view of one operation.
// Derived on demand, never persisted.
type PerformanceAggregate struct {
	Operation     string  `json:"operation"`
	Window        Window  `json:"window"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
	MinDurationMS float64 `json:"min_duration_ms"`
	MaxDurationMS float64 `json:"max_duration_ms"`
	TotalCount    int     `json:"total_count"`
	ErrorCount    int     `json:"error_count"`
	SuccessRate   float64 `json:"success_rate"` // percentage
}

// HealthStatus classifies the system health.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// SystemHealth is the health classification with its underlying metrics.
// Recomputed on every query, never cached.
type SystemHealth struct {
	Status          HealthStatus `json:"status"`
	AvgDurationMS   float64      `json:"avg_duration_ms"`
	ErrorRate       float64      `json:"error_rate"` // percentage
	TotalOperations int          `json:"total_operations"`
	Issues          []string     `json:"issues,omitempty"`
	CheckedAt       time.Time    `json:"checked_at"`
}

// FairnessReport compares the empirical rarity distribution of one case's
// completed draws against its declared distribution.
type FairnessReport struct {
	CaseID     string                   `json:"case_id"`
	TotalDraws int                      `json:"total_draws"`
	Observed   map[catalog.Tier]float64 `json:"observed"` // percentages
	Expected   map[catalog.Tier]float64 `json:"expected"` // percentages
	ChiSquare  float64                  `json:"chi_square"`
	Fair       bool                     `json:"fair"`
	ComputedAt time.Time                `json:"computed_at"`
}
