// Package draw implements the two-stage weighted reward draw: a rarity tier
// is picked from the case's declared distribution, then an item is picked
// from that tier's pool by selection weight.
package draw

import (
	"fmt"
	"math"

	"github.com/okian/spindle/internal/domain/catalog"
)

// Result is the outcome of a single draw. Immutable once produced; the
// caller credits Value through the external ledger exactly once.
type Result struct {
	Item  catalog.WeightedItem
	Tier  catalog.Tier
	Value int64
}

// Selector performs weighted reward draws. Pure in-memory computation; safe
// for concurrent use when the configured RandomSource is.
type Selector struct {
	rng RandomSource
}

// NewSelector creates a selector with configuration options. The default
// random source is crypto-backed.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		rng: DefaultSource(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Select draws one item for the given case. It validates the declared
// distribution first and fails without drawing when it is malformed; an
// empty tier pool also fails the draw. Callers must not debit or credit
// anything when an error is returned.
func (s *Selector) Select(c catalog.CaseDefinition, pool []catalog.WeightedItem) (Result, error) {
	if err := c.ValidateDistribution(); err != nil {
		return Result{}, err
	}

	tier := s.pickTier(c.Distribution)

	items := make([]catalog.WeightedItem, 0, len(pool))
	for _, it := range pool {
		if it.Rarity == tier {
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return Result{}, fmt.Errorf("%w: case %s has no %s items", ErrEmptyPool, c.ID, tier)
	}

	item := s.pickItem(items)

	return Result{
		Item:  item,
		Tier:  tier,
		Value: ItemValue(item.BaseValue, item.ValueMultiplier),
	}, nil
}

// pickTier maps a roll in [0,100) onto the cumulative percentages, checked
// rarest-first so a roll landing exactly on a cumulative boundary resolves
// to the rarer tier.
func (s *Selector) pickTier(dist map[catalog.Tier]float64) catalog.Tier {
	roll := s.rng.Float64() * 100

	var cum float64
	var last catalog.Tier
	for _, tier := range catalog.TiersByRarity {
		pct := dist[tier]
		if pct <= 0 {
			continue
		}
		cum += pct
		last = tier
		if roll <= cum {
			return tier
		}
	}
	// Float accumulation can leave roll a hair past the final boundary.
	return last
}

// pickItem performs a cumulative weighted draw over the tier's items: the
// first item whose cumulative weight reaches the target wins, with the last
// item as the rounding fallback.
func (s *Selector) pickItem(items []catalog.WeightedItem) catalog.WeightedItem {
	var total float64
	for _, it := range items {
		if it.Weight > 0 {
			total += it.Weight
		}
	}
	if total <= 0 {
		return items[0]
	}

	target := s.rng.Float64() * total

	var cum float64
	for _, it := range items {
		if it.Weight <= 0 {
			continue
		}
		cum += it.Weight
		if cum >= target {
			return it
		}
	}
	return items[len(items)-1]
}

// ItemValue computes the effective value of an item: floor(base * multiplier).
// Pure and deterministic. A non-positive multiplier is a caller error and is
// not clamped here; callers validate their catalog.
func ItemValue(base int64, multiplier float64) int64 {
	return int64(math.Floor(float64(base) * multiplier))
}
