package models

import "time"

// Cart represents the storefront shopping cart kept in the session
type Cart struct {
	Items       []CartItem `json:"items"`
	TotalAmount int        `json:"total_amount"`
	ExpiresAt   int64      `json:"expires_at"` // Unix timestamp
}

// CartItem represents one configured invitation package in the cart
type CartItem struct {
	EventTitle string           `json:"event_title"`
	EventCity  string           `json:"event_city"`
	EventDate  time.Time        `json:"event_date"`
	Selection  PricingSelection `json:"selection"`
	Subtotal   int              `json:"subtotal"`
}

// IsEmpty returns true if the cart has no items
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// IsExpired returns true if the cart has outlived its session TTL
func (c *Cart) IsExpired() bool {
	return c.ExpiresAt > 0 && time.Now().Unix() > c.ExpiresAt
}

// Recalculate re-sums the cart total from item subtotals.
func (c *Cart) Recalculate() {
	total := 0
	for _, item := range c.Items {
		total += item.Subtotal
	}
	c.TotalAmount = total
}
