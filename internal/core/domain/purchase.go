package domain

import "time"

// Purchase is one completed sale, written exactly once per successful
// purchase and never updated or deleted afterwards. TotalCents is computed
// from the unit price read inside the purchase transaction, so a later price
// change never rewrites history. ItemID is a plain reference: deleting the
// item leaves its purchase records intact.
type Purchase struct {
	ID         string    `json:"id"`
	BuyerID    string    `json:"buyer_id"`
	ItemID     string    `json:"item_id"`
	Quantity   int       `json:"quantity"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}
