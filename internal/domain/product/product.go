package product

import (
	"encoding/json"
	"fmt"
)

// Product is read-only master data for this service: the catalog is
// loaded once at startup and never mutated at runtime.
type Product struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	InterestRate int64  `json:"interest_rate"` // percent per period, integer
	MaxDuration  int    `json:"max_duration"`  // periods
	FundID       uint64 `json:"fund_id"`
}

type Catalog struct {
	byID map[uint64]Product
}

func NewCatalog(products []Product) *Catalog {
	m := make(map[uint64]Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &Catalog{byID: m}
}

// ParseCatalog builds a catalog from its JSON representation, as
// supplied through configuration.
func ParseCatalog(raw string) (*Catalog, error) {
	var products []Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		return nil, fmt.Errorf("parse product catalog: %w", err)
	}
	return NewCatalog(products), nil
}

func (c *Catalog) Get(id uint64) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

func (c *Catalog) Len() int { return len(c.byID) }
