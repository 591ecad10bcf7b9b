// Command simulate runs a batch of reward draws against the demo
// distribution and prints the empirical per-tier percentages next to the
// declared ones, with the chi-square verdict the fairness auditor would
// reach. Useful for eyeballing selector fidelity after changes.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/okian/spindle/internal/domain/catalog"
	"github.com/okian/spindle/internal/domain/draw"
)

const chiSquareCritical = 9.488 // alpha=0.05, 4 degrees of freedom

func main() {
	var (
		draws = flag.Int("n", 100_000, "number of draws to simulate")
		seed  = flag.Uint64("seed", 0, "PCG seed; 0 uses the crypto source")
	)
	flag.Parse()

	def := catalog.CaseDefinition{
		ID:   "sim",
		Name: "Simulated Case",
		Distribution: map[catalog.Tier]float64{
			catalog.TierCommon:    60,
			catalog.TierUncommon:  25,
			catalog.TierRare:      10,
			catalog.TierEpic:      4,
			catalog.TierLegendary: 1,
		},
	}
	pool := make([]catalog.WeightedItem, 0, len(catalog.TiersByRarity))
	for _, tier := range catalog.TiersByRarity {
		pool = append(pool, catalog.WeightedItem{
			ID: string(tier), Name: string(tier), Rarity: tier,
			BaseValue: 100, Weight: 1, ValueMultiplier: 1,
		})
	}

	opts := []draw.Option{}
	if *seed != 0 {
		opts = append(opts, draw.WithSeed(*seed))
	}
	selector := draw.NewSelector(opts...)

	counts := make(map[catalog.Tier]int, len(catalog.TiersByRarity))
	for i := 0; i < *draws; i++ {
		res, err := selector.Select(def, pool)
		if err != nil {
			fmt.Fprintln(os.Stderr, "draw failed:", err)
			os.Exit(1)
		}
		counts[res.Tier]++
	}

	fmt.Printf("draws: %d\n", *draws)
	fmt.Printf("%-10s %10s %10s %10s\n", "tier", "expected%", "observed%", "delta")
	var chi float64
	for _, tier := range catalog.TiersByRarity {
		expectedPct := def.Distribution[tier]
		observedPct := float64(counts[tier]) / float64(*draws) * 100
		fmt.Printf("%-10s %10.2f %10.4f %+10.4f\n", tier, expectedPct, observedPct, observedPct-expectedPct)

		expectedCount := expectedPct / 100 * float64(*draws)
		if expectedCount > 0 {
			diff := float64(counts[tier]) - expectedCount
			chi += diff * diff / expectedCount
		}
	}

	verdict := "FAIR"
	if chi >= chiSquareCritical {
		verdict = "UNFAIR"
	}
	fmt.Printf("chi-square: %.4f (critical %.3f) -> %s\n", chi, chiSquareCritical, verdict)
}
