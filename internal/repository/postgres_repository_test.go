package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ecomarket/order-cart-service/internal/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newTestOrder(userID int64) *domain.Order {
	return &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		ShippingAddress: "1 Main St",
		PaymentMethod:   "Credit Card",
		TotalAmount:     39.98,
		Items: []domain.OrderItem{
			{ProductID: 7, ProductName: "Widget", Quantity: 2, UnitPrice: 19.99, Subtotal: 39.98},
		},
	}
}

func TestGetCart_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetCart(context.Background(), 42)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestGetOrCreateCart_CreatesAndPersists(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	cart, err := repo.GetOrCreateCart(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), cart.UserID)
	assert.Empty(t, cart.Items)

	// The empty cart survives as a row, not just a response.
	fetched, err := repo.GetCart(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), fetched.UserID)
}

func TestAddItem_CreatesCartImplicitly(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	err := repo.AddItem(ctx, 42, domain.CartItem{ProductID: 7, Quantity: 2, PriceAtAddition: 19.99})
	require.NoError(t, err)

	cart, err := repo.GetCart(ctx, 42)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(7), cart.Items[0].ProductID)
	assert.Equal(t, 2, cart.Items[0].Quantity)
}

func TestAddItem_MergesQuantityKeepsFirstPrice(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, 42, domain.CartItem{ProductID: 7, Quantity: 2, PriceAtAddition: 19.99}))
	require.NoError(t, repo.AddItem(ctx, 42, domain.CartItem{ProductID: 7, Quantity: 3, PriceAtAddition: 24.99}))

	cart, err := repo.GetCart(ctx, 42)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.InDelta(t, 19.99, cart.Items[0].PriceAtAddition, 1e-9)
}

func TestUpdateItemQuantity(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, 42, domain.CartItem{ProductID: 7, Quantity: 2, PriceAtAddition: 19.99}))
	require.NoError(t, repo.UpdateItemQuantity(ctx, 42, 7, 9))

	cart, err := repo.GetCart(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 9, cart.Items[0].Quantity)
}

func TestUpdateItemQuantity_MissingItem(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.UpdateItemQuantity(context.Background(), 42, 7, 9)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, 42, domain.CartItem{ProductID: 7, Quantity: 2, PriceAtAddition: 19.99}))
	require.NoError(t, repo.RemoveItem(ctx, 42, 7))

	cart, err := repo.GetCart(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestClearCart_KeepsCartRow(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, 42, domain.CartItem{ProductID: 7, Quantity: 2, PriceAtAddition: 19.99}))
	require.NoError(t, repo.ClearCart(ctx, 42))

	cart, err := repo.GetCart(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestClearCart_NoCart(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.ClearCart(context.Background(), 42)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestCreateOrderAndClearCart(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, 42, domain.CartItem{ProductID: 7, Quantity: 2, PriceAtAddition: 19.99}))

	order := newTestOrder(42)
	require.NoError(t, repo.CreateOrderAndClearCart(ctx, order))

	fetched, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)
	assert.Equal(t, domain.OrderStatusPending, fetched.Status)
	assert.Nil(t, fetched.TransactionID)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, "Widget", fetched.Items[0].ProductName)

	// Cart items went away in the same transaction.
	cart, err := repo.GetCart(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	// And the outbox recorded the creation.
	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID.String(), events[0].AggregateID)
	assert.Equal(t, EventTypeOrderCreated, events[0].EventType)

	var payload struct {
		OrderID     string  `json:"order_id"`
		UserID      int64   `json:"user_id"`
		TotalAmount float64 `json:"total_amount"`
	}
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, order.ID.String(), payload.OrderID)
	assert.Equal(t, int64(42), payload.UserID)
	assert.InDelta(t, 39.98, payload.TotalAmount, 1e-9)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrdersByUserID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	order1 := newTestOrder(42)
	require.NoError(t, repo.CreateOrderAndClearCart(ctx, order1))

	// Small sleep to ensure different created_at timestamps
	time.Sleep(10 * time.Millisecond)

	order2 := newTestOrder(42)
	require.NoError(t, repo.CreateOrderAndClearCart(ctx, order2))

	orders, err := repo.ListOrdersByUserID(ctx, 42)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	// Newest first
	assert.Equal(t, order2.ID, orders[0].ID)
	assert.Equal(t, order1.ID, orders[1].ID)
}

func TestUpdateOrderStatus_SetsTransactionID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	order := newTestOrder(42)
	require.NoError(t, repo.CreateOrderAndClearCart(ctx, order))

	txID := "tx-1"
	updated, err := repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatus("COMPLETED"), &txID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatus("COMPLETED"), updated.Status)
	require.NotNil(t, updated.TransactionID)
	assert.Equal(t, "tx-1", *updated.TransactionID)

	// A nil transaction id keeps the stored one.
	updated, err = repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPaymentFailed, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentFailed, updated.Status)
	require.NotNil(t, updated.TransactionID)
	assert.Equal(t, "tx-1", *updated.TransactionID)
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.UpdateOrderStatus(context.Background(), uuid.New(), domain.OrderStatusPending, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDeleteOrder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	order := newTestOrder(42)
	require.NoError(t, repo.CreateOrderAndClearCart(ctx, order))
	require.NoError(t, repo.DeleteOrder(ctx, order.ID))

	_, err := repo.GetOrderByID(ctx, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	assert.ErrorIs(t, repo.DeleteOrder(ctx, order.ID), ErrOrderNotFound)
}

func TestMarkEventAsProcessed(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()

	order := newTestOrder(42)
	require.NoError(t, repo.CreateOrderAndClearCart(ctx, order))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
