package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	// OrderStatusPending is set when the order is built from the cart,
	// before the payment attempt resolves.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusPaymentFailed is terminal for the creation flow: the
	// payment service declined and the order row stays visible.
	OrderStatusPaymentFailed OrderStatus = "PAYMENT_FAILED"
)

// PaymentStatusCompleted is the one settlement value the orchestrator
// special-cases: it triggers the confirmation email. Any other settlement
// status returned by the payment service is stored verbatim.
const PaymentStatusCompleted = "COMPLETED"

func (s OrderStatus) String() string {
	return string(s)
}

// OrderItem is an immutable snapshot of a cart line captured at order
// creation time. UnitPrice is the price at the moment the item was added to
// the cart, not the catalog's current price; ProductName is resolved from
// the catalog at creation.
type OrderItem struct {
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Subtotal    float64 `json:"subtotal"`
}

type Order struct {
	ID              uuid.UUID   `json:"id"`
	UserID          int64       `json:"user_id"`
	Status          OrderStatus `json:"status"`
	ShippingAddress string      `json:"shipping_address"`
	PaymentMethod   string      `json:"payment_method"`
	TotalAmount     float64     `json:"total_amount"`
	TransactionID   *string     `json:"transaction_id,omitempty"`
	Items           []OrderItem `json:"items"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
