// Package recorder turns operation outcomes into structured metric records.
// Recording is a side channel: it never fails the underlying business
// operation, and the structured record, not the log line, is what feeds
// aggregation and fairness auditing.
package recorder

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/okian/spindle/internal/domain/catalog"
	"github.com/okian/spindle/internal/domain/draw"
	"github.com/okian/spindle/internal/domain/model"
	"github.com/okian/spindle/pkg/logger"
	"github.com/okian/spindle/pkg/metrics"
)

// Appender receives finished records. The metric buffer implements it.
type Appender interface {
	Append(ctx context.Context, rec model.OperationRecord)
}

// Clock returns the current time. Injected so tests can pin durations.
type Clock func() time.Time

// Recorder builds operation records and hands them to the buffer.
type Recorder struct {
	buf    Appender
	now    Clock
	logger logger.Logger
}

// New creates a recorder appending to buf.
func New(buf Appender, opts ...Option) *Recorder {
	r := &Recorder{
		buf:    buf,
		now:    time.Now,
		logger: logger.Get().Named("recorder"),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start returns the timestamp to measure an operation from.
func (r *Recorder) Start() time.Time {
	return r.now()
}

// Record builds and buffers a record for an operation that began at start.
// Duration is milliseconds rounded to 2 decimals. The fields map is copied;
// the resulting record is never mutated.
func (r *Recorder) Record(ctx context.Context, operation string, start time.Time, success bool, fields map[string]string) {
	now := r.now()
	durMS := round2(float64(now.Sub(start).Nanoseconds()) / 1e6)

	rec := model.OperationRecord{
		ID:         uuid.NewString(),
		Operation:  operation,
		Timestamp:  now,
		DurationMS: durMS,
		Success:    success,
		Context:    cloneFields(fields),
	}
	r.buf.Append(ctx, rec)
	metrics.RecordOperation(operation, success, durMS)

	logFields := []logger.Field{
		logger.String("operation", operation),
		logger.Float64("duration_ms", durMS),
		logger.Bool("success", success),
	}
	for k, v := range rec.Context {
		logFields = append(logFields, logger.String(k, v))
	}
	if success {
		r.logger.Debug(ctx, "operation completed", logFields...)
	} else {
		r.logger.Warn(ctx, "operation failed", logFields...)
	}
}

// CaseOpenSucceeded records a completed case opening.
func (r *Recorder) CaseOpenSucceeded(ctx context.Context, start time.Time, userID, caseID string, res draw.Result) {
	r.Record(ctx, model.OpCaseOpen, start, true, map[string]string{
		model.FieldUserID: userID,
		model.FieldCaseID: caseID,
		model.FieldItemID: res.Item.ID,
		model.FieldRarity: string(res.Tier),
		model.FieldAmount: strconv.FormatInt(res.Value, 10),
	})
}

// CaseOpenFailed records a failed case opening. The caller must not debit
// the user when the draw failed.
func (r *Recorder) CaseOpenFailed(ctx context.Context, start time.Time, userID, caseID string, err error) {
	fields := map[string]string{
		model.FieldUserID: userID,
		model.FieldCaseID: caseID,
	}
	if err != nil {
		fields[model.FieldError] = err.Error()
	}
	r.Record(ctx, model.OpCaseOpen, start, false, fields)
}

// Transaction records a currency debit or credit performed by the caller's
// ledger.
func (r *Recorder) Transaction(ctx context.Context, start time.Time, userID string, amount int64, success bool, err error) {
	fields := map[string]string{
		model.FieldUserID: userID,
		model.FieldAmount: strconv.FormatInt(amount, 10),
	}
	if err != nil {
		fields[model.FieldError] = err.Error()
	}
	r.Record(ctx, model.OpTransaction, start, success, fields)
}

// Persistence records a persistence-layer call against the named target.
func (r *Recorder) Persistence(ctx context.Context, start time.Time, target string, success bool, err error) {
	fields := map[string]string{
		model.FieldTarget: target,
	}
	if err != nil {
		fields[model.FieldError] = err.Error()
	}
	r.Record(ctx, model.OpPersistence, start, success, fields)
}

// RarityOf extracts the rarity tier from a record's context.
func RarityOf(rec model.OperationRecord) catalog.Tier {
	return catalog.Tier(rec.Context[model.FieldRarity])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func cloneFields(fields map[string]string) map[string]string {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
