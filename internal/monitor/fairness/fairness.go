// Package fairness audits the empirical rarity distribution of completed
// draws against a case's declared distribution with a Pearson chi-square
// goodness-of-fit test.
package fairness

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/okian/spindle/internal/adapters/repository"
	"github.com/okian/spindle/internal/domain/catalog"
	"github.com/okian/spindle/internal/domain/model"
	"github.com/okian/spindle/internal/monitor/recorder"
	"github.com/okian/spindle/pkg/logger"
)

const (
	// chiSquareCritical is the critical value for alpha=0.05 with 4 degrees
	// of freedom (five tiers). Fixed, not configurable; the verdict boundary
	// must stay reproducible.
	chiSquareCritical = 9.488

	// auditWindow is the trailing sample window for fairness reports.
	auditWindow = 30 * 24 * time.Hour
)

// Querier reads back persisted records.
type Querier interface {
	QueryRecords(ctx context.Context, f repository.Filter) ([]model.OperationRecord, error)
}

// Clock returns the current time.
type Clock func() time.Time

// Auditor computes fairness reports for individual cases.
type Auditor struct {
	store   Querier
	catalog catalog.Reader
	now     Clock
	logger  logger.Logger
}

// New creates an auditor reading draws from store and declared
// distributions from the catalog.
func New(store Querier, cat catalog.Reader, opts ...Option) *Auditor {
	a := &Auditor{
		store:   store,
		catalog: cat,
		now:     time.Now,
		logger:  logger.Get().Named("fairness"),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Report audits the case's successful draws in the trailing 30-day window.
// Returns nil (without error) when the declared distribution cannot be
// loaded or no qualifying draw exists.
func (a *Auditor) Report(ctx context.Context, caseID string) (*model.FairnessReport, error) {
	def, err := a.catalog.GetCaseDefinition(ctx, caseID)
	if err != nil {
		a.logger.Warn(ctx, "fairness audit skipped, case definition unavailable",
			logger.String("case_id", caseID),
			logger.Error(err),
		)
		return nil, nil
	}

	success := true
	recs, err := a.store.QueryRecords(ctx, repository.Filter{
		Operation: model.OpCaseOpen,
		CaseID:    caseID,
		Since:     a.now().Add(-auditWindow),
		Success:   &success,
	})
	if err != nil {
		return nil, fmt.Errorf("query draws for case %s: %w", caseID, err)
	}
	total := len(recs)
	if total == 0 {
		return nil, nil
	}

	counts := make(map[catalog.Tier]int, len(catalog.TiersByRarity))
	for _, rec := range recs {
		counts[recorder.RarityOf(rec)]++
	}

	report := &model.FairnessReport{
		CaseID:     caseID,
		TotalDraws: total,
		Observed:   make(map[catalog.Tier]float64, len(catalog.TiersByRarity)),
		Expected:   make(map[catalog.Tier]float64, len(catalog.TiersByRarity)),
		ComputedAt: a.now(),
	}

	var chi float64
	for _, tier := range catalog.TiersByRarity {
		observedCount := float64(counts[tier])
		expectedPct := def.Distribution[tier]

		report.Observed[tier] = observedCount / float64(total) * 100
		report.Expected[tier] = expectedPct

		// Tiers with zero expected count carry no term; a tier expected but
		// never observed does contribute.
		expectedCount := expectedPct / 100 * float64(total)
		if expectedCount <= 0 {
			continue
		}
		diff := observedCount - expectedCount
		chi += diff * diff / expectedCount
	}
	report.ChiSquare = chi
	report.Fair = chi < chiSquareCritical

	if !report.Fair {
		a.logger.Warn(ctx, "case distribution deviates from declared",
			logger.String("case_id", caseID),
			logger.Int("draws", total),
			logger.Float64("chi_square", math.Round(chi*100)/100),
		)
	}

	return report, nil
}
