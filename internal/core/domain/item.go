package domain

import "time"

// Item is a sellable catalog entry. Prices are integer minor units (cents)
// so totals never accumulate float drift. Quantity never goes below zero.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	PriceCents  int64     `json:"price_cents"`
	Quantity    int       `json:"quantity"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ItemPatch carries the descriptive fields an update may merge. Nil means
// "leave unchanged". Quantity is absent on purpose: stock moves only through
// the ledger engine.
type ItemPatch struct {
	Name        *string `json:"name"`
	Category    *string `json:"category"`
	PriceCents  *int64  `json:"price_cents"`
	Description *string `json:"description"`
	ImageURL    *string `json:"image_url"`
}

// ItemFilter narrows a catalog search. Zero values match everything.
type ItemFilter struct {
	Name          string
	Category      string
	MinPriceCents *int64
	MaxPriceCents *int64
}
