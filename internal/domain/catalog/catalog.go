// Package catalog defines the reward catalog reference data: case
// definitions, their rarity distributions and weighted item pools.
package catalog

import (
	"context"
	"fmt"
	"math"
)

// Tier is one of the five fixed rarity categories.
type Tier string

const (
	TierCommon    Tier = "common"
	TierUncommon  Tier = "uncommon"
	TierRare      Tier = "rare"
	TierEpic      Tier = "epic"
	TierLegendary Tier = "legendary"
)

// TiersByRarity lists the tiers from rarest to most common. The draw maps a
// roll onto cumulative percentages in this order so a roll landing exactly on
// a cumulative boundary resolves to the rarer tier. Reordering it changes
// observable draw behavior.
var TiersByRarity = []Tier{TierLegendary, TierEpic, TierRare, TierUncommon, TierCommon}

// distributionTolerance absorbs float accumulation noise when checking that
// percentages sum to 100.
const distributionTolerance = 1e-9

// Valid reports whether t is one of the five known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierCommon, TierUncommon, TierRare, TierEpic, TierLegendary:
		return true
	}
	return false
}

// CaseDefinition describes an openable case and its declared rarity
// distribution. Reference data, read-only to this service.
type CaseDefinition struct {
	ID           string
	Name         string
	Price        int64
	Distribution map[Tier]float64 // tier -> percentage; must sum to 100
}

// ValidateDistribution checks the declared rarity distribution: every tier
// known, no negative percentage, and the sum exactly 100. A sum that is off
// is a configuration error and is never silently corrected.
func (c CaseDefinition) ValidateDistribution() error {
	var sum float64
	for tier, pct := range c.Distribution {
		if !tier.Valid() {
			return fmt.Errorf("%w: case %s declares unknown tier %q", ErrInvalidDistribution, c.ID, tier)
		}
		if pct < 0 {
			return fmt.Errorf("%w: case %s declares negative percentage %.2f for tier %s", ErrInvalidDistribution, c.ID, pct, tier)
		}
		sum += pct
	}
	if math.Abs(sum-100) > distributionTolerance {
		return fmt.Errorf("%w: case %s percentages sum to %.4f, want 100", ErrInvalidDistribution, c.ID, sum)
	}
	return nil
}

// WeightedItem is a rewardable item with its selection weight and value
// multiplier. Weight and ValueMultiplier must be positive; callers validate.
type WeightedItem struct {
	ID              string
	Name            string
	Rarity          Tier
	BaseValue       int64
	Category        string
	Weight          float64
	ValueMultiplier float64
}

// Reader provides read access to the externally owned catalog.
type Reader interface {
	GetCaseDefinition(ctx context.Context, id string) (CaseDefinition, error)
	GetWeightedItemPool(ctx context.Context, caseID string) ([]WeightedItem, error)
}
