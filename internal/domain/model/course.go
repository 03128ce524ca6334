package model

import "time"

// Course is the purchasable catalog entry. Inventory is an optional finite
// stock counter: nil means unlimited seats. It must never go below zero; the
// decrement is a guarded single-statement UPDATE in the repository.
type Course struct {
	ID         string // UUID
	Title      string
	Slug       string
	PriceCents int64
	Currency   string
	Inventory  *int // nil = unlimited
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (c *Course) IsZero() bool { return c == nil || c.ID == "" }

// HasFiniteStock reports whether settlement must consume inventory.
func (c *Course) HasFiniteStock() bool { return c != nil && c.Inventory != nil }
