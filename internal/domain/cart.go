package domain

import "time"

// Cart holds the shopping cart of a single user. There is at most one cart
// per user; it is created lazily on first access and survives clearing
// (only its items are removed).
type Cart struct {
	UserID    int64      `json:"user_id"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartItem struct {
	ProductID       int64     `json:"product_id"`
	Quantity        int       `json:"quantity"`
	PriceAtAddition float64   `json:"price_at_addition"`
	AddedAt         time.Time `json:"added_at"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
