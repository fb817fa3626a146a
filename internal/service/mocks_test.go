package service

import (
	"context"
	"sync"
	"time"

	"github.com/ecomarket/order-cart-service/internal/client"
	"github.com/ecomarket/order-cart-service/internal/domain"
	"github.com/ecomarket/order-cart-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MockOrderRepository implements repository.OrderRepository for testing
type MockOrderRepository struct {
	mu             sync.Mutex
	Orders         map[uuid.UUID]*domain.Order
	ClearedUserIDs []int64
	CreateCalls    int
	CreateErr      error
	UpdateErr      error
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{Orders: make(map[uuid.UUID]*domain.Order)}
}

func (m *MockOrderRepository) CreateOrderAndClearCart(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return m.CreateErr
	}
	stored := *order
	m.Orders[order.ID] = &stored
	m.ClearedUserIDs = append(m.ClearedUserIDs, order.UserID)
	return nil
}

func (m *MockOrderRepository) GetOrderByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.Orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *MockOrderRepository) ListOrdersByUserID(_ context.Context, userID int64) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []*domain.Order
	for _, order := range m.Orders {
		if order.UserID == userID {
			copied := *order
			orders = append(orders, &copied)
		}
	}
	return orders, nil
}

func (m *MockOrderRepository) UpdateOrderStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus, transactionID *string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	order, ok := m.Orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	order.Status = status
	if transactionID != nil {
		order.TransactionID = transactionID
	}
	copied := *order
	return &copied, nil
}

func (m *MockOrderRepository) DeleteOrder(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.Orders, id)
	return nil
}

// MockCartProvider implements CartProvider for testing
type MockCartProvider struct {
	Cart           *domain.Cart
	Err            error
	InvalidatedIDs []int64
}

func (m *MockCartProvider) GetOrCreateCart(context.Context, int64) (*domain.Cart, error) {
	return m.Cart, m.Err
}

func (m *MockCartProvider) Invalidate(userID int64) {
	m.InvalidatedIDs = append(m.InvalidatedIDs, userID)
}

// MockCatalogGateway implements CatalogGateway for testing
type MockCatalogGateway struct {
	Products map[int64]*client.Product // Map of product ID to product
	Err      error
}

func (m *MockCatalogGateway) GetProductByID(_ context.Context, productID int64) (*client.Product, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	product, exists := m.Products[productID]
	if !exists {
		return nil, client.ErrNotFound
	}
	return product, nil
}

// MockUserGateway implements UserGateway for testing
type MockUserGateway struct {
	User *client.User
	Err  error
}

func (m *MockUserGateway) GetUserByID(context.Context, int64) (*client.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.User, nil
}

// MockPaymentGateway implements PaymentGateway for testing. A nil Response
// with nil Err models a gateway-level decline (no outcome).
type MockPaymentGateway struct {
	mu       sync.Mutex
	Response *client.PaymentResponse
	Err      error
	Delay    time.Duration
	Requests []client.PaymentRequest
}

func (m *MockPaymentGateway) ProcessPayment(ctx context.Context, request client.PaymentRequest) (*client.PaymentResponse, error) {
	// A real transport fails immediately on a cancelled context.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}
	m.mu.Lock()
	m.Requests = append(m.Requests, request)
	m.mu.Unlock()
	return m.Response, m.Err
}

func (m *MockPaymentGateway) GetPaymentStatusByOrderID(context.Context, string) (*client.PaymentResponse, error) {
	return m.Response, m.Err
}

// MockNotificationGateway implements NotificationGateway for testing
type MockNotificationGateway struct {
	Sent     bool
	Err      error
	Requests []client.NotificationRequest
}

func (m *MockNotificationGateway) SendEmailNotification(_ context.Context, request client.NotificationRequest) (bool, error) {
	m.Requests = append(m.Requests, request)
	return m.Sent, m.Err
}

// newTestOrderService creates a fully wired OrderService for testing
func newTestOrderService(
	repo *MockOrderRepository,
	carts *MockCartProvider,
	catalog *MockCatalogGateway,
	users *MockUserGateway,
	payments *MockPaymentGateway,
	notifications *MockNotificationGateway,
) *OrderService {
	return NewOrderService(repo, carts, catalog, users, payments, notifications, zap.NewNop())
}
