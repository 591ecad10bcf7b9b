package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/spindle/internal/domain/catalog"
)

// MemoryCatalog is an in-memory catalog.Reader seeded by tests, the
// simulator, or demo wiring.
type MemoryCatalog struct {
	mu    sync.RWMutex
	cases map[string]catalog.CaseDefinition
	pools map[string][]catalog.WeightedItem
}

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		cases: make(map[string]catalog.CaseDefinition),
		pools: make(map[string][]catalog.WeightedItem),
	}
}

// AddCase registers a case definition and its item pool.
func (c *MemoryCatalog) AddCase(def catalog.CaseDefinition, pool []catalog.WeightedItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cases[def.ID] = def
	c.pools[def.ID] = append([]catalog.WeightedItem(nil), pool...)
}

// GetCaseDefinition returns the case with the given id.
func (c *MemoryCatalog) GetCaseDefinition(_ context.Context, id string) (catalog.CaseDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.cases[id]
	if !ok {
		return catalog.CaseDefinition{}, fmt.Errorf("%w: %s", catalog.ErrCaseNotFound, id)
	}
	return def, nil
}

// GetWeightedItemPool returns a copy of the case's item pool.
func (c *MemoryCatalog) GetWeightedItemPool(_ context.Context, caseID string) ([]catalog.WeightedItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pool, ok := c.pools[caseID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", catalog.ErrCaseNotFound, caseID)
	}
	return append([]catalog.WeightedItem(nil), pool...), nil
}

// PostgresCatalog reads reference data from the cases and case_items tables.
type PostgresCatalog struct {
	pool *pgxpool.Pool
}

// NewPostgresCatalog builds a catalog reader on an existing store's pool.
func NewPostgresCatalog(store *PostgresStore) *PostgresCatalog {
	return &PostgresCatalog{pool: store.pool}
}

// GetCaseDefinition loads a case and its five-tier distribution.
func (c *PostgresCatalog) GetCaseDefinition(ctx context.Context, id string) (catalog.CaseDefinition, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT c.name, c.price, d.tier, d.percentage
		 FROM cases c JOIN case_distributions d ON d.case_id = c.id
		 WHERE c.id = $1`, id)
	if err != nil {
		return catalog.CaseDefinition{}, fmt.Errorf("load case %s: %w", id, err)
	}
	defer rows.Close()

	def := catalog.CaseDefinition{ID: id, Distribution: make(map[catalog.Tier]float64)}
	found := false
	for rows.Next() {
		var (
			tier string
			pct  float64
		)
		if err := rows.Scan(&def.Name, &def.Price, &tier, &pct); err != nil {
			return catalog.CaseDefinition{}, fmt.Errorf("scan case %s: %w", id, err)
		}
		def.Distribution[catalog.Tier(tier)] = pct
		found = true
	}
	if err := rows.Err(); err != nil {
		return catalog.CaseDefinition{}, fmt.Errorf("load case %s: %w", id, err)
	}
	if !found {
		return catalog.CaseDefinition{}, fmt.Errorf("%w: %s", catalog.ErrCaseNotFound, id)
	}
	return def, nil
}

// GetWeightedItemPool loads the case's weighted item pool.
func (c *PostgresCatalog) GetWeightedItemPool(ctx context.Context, caseID string) ([]catalog.WeightedItem, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, name, rarity, base_value, category, weight, value_multiplier
		 FROM case_items WHERE case_id = $1`, caseID)
	if err != nil {
		return nil, fmt.Errorf("load pool for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var pool []catalog.WeightedItem
	for rows.Next() {
		var (
			it     catalog.WeightedItem
			rarity string
		)
		if err := rows.Scan(&it.ID, &it.Name, &rarity, &it.BaseValue, &it.Category, &it.Weight, &it.ValueMultiplier); err != nil {
			return nil, fmt.Errorf("scan item for case %s: %w", caseID, err)
		}
		it.Rarity = catalog.Tier(rarity)
		pool = append(pool, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load pool for case %s: %w", caseID, err)
	}
	if pool == nil {
		return nil, fmt.Errorf("%w: %s", catalog.ErrCaseNotFound, caseID)
	}
	return pool, nil
}
