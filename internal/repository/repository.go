package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ecomarket/order-cart-service/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrCartNotFound  = errors.New("cart not found")
	ErrItemNotFound  = errors.New("item not found in cart")
	ErrOrderNotFound = errors.New("order not found")
)

// CartRepository defines cart data operations. Consumers define this
// interface, not the Postgres implementation.
type CartRepository interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, userID int64, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, userID int64, productID int64, quantity int) error
	RemoveItem(ctx context.Context, userID int64, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

type OrderRepository interface {
	// CreateOrderAndClearCart persists the order, writes an ORDER_CREATED
	// outbox row and deletes the user's cart items in a single transaction.
	CreateOrderAndClearCart(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID int64) ([]*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus, transactionID *string) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

const EventTypeOrderCreated = "ORDER_CREATED"
