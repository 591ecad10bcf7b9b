// Package repository provides persistence adapters for operation records and
// the reward catalog.
package repository

import (
	"context"
	"time"

	"github.com/okian/spindle/internal/domain/model"
)

// Filter narrows a record query. Zero-valued fields match everything.
type Filter struct {
	// Operation matches records with this exact operation name.
	Operation string

	// CaseID matches records whose context carries this case id.
	CaseID string

	// Since excludes records with an earlier timestamp.
	Since time.Time

	// Success, when set, matches only records with this outcome.
	Success *bool
}

// Matches reports whether rec satisfies the filter.
func (f Filter) Matches(rec model.OperationRecord) bool {
	if f.Operation != "" && rec.Operation != f.Operation {
		return false
	}
	if f.CaseID != "" && rec.Context[model.FieldCaseID] != f.CaseID {
		return false
	}
	if !f.Since.IsZero() && rec.Timestamp.Before(f.Since) {
		return false
	}
	if f.Success != nil && rec.Success != *f.Success {
		return false
	}
	return true
}

// Store persists operation records. The flusher writes whole batches; the
// aggregation engine and fairness auditor read them back.
type Store interface {
	// InsertRecords persists a batch atomically: it either fully lands or
	// fails as a whole so the flusher can retry it.
	InsertRecords(ctx context.Context, recs []model.OperationRecord) error

	// QueryRecords returns records matching the filter.
	QueryRecords(ctx context.Context, f Filter) ([]model.OperationRecord, error)
}
