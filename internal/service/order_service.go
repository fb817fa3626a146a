package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ecomarket/order-cart-service/internal/client"
	"github.com/ecomarket/order-cart-service/internal/domain"
	"github.com/ecomarket/order-cart-service/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Gateways to the remote collaborators, defined here by the consumer. The
// concrete implementations live in internal/client.
type CatalogGateway interface {
	GetProductByID(ctx context.Context, productID int64) (*client.Product, error)
}

type UserGateway interface {
	GetUserByID(ctx context.Context, userID int64) (*client.User, error)
}

type PaymentGateway interface {
	ProcessPayment(ctx context.Context, request client.PaymentRequest) (*client.PaymentResponse, error)
	GetPaymentStatusByOrderID(ctx context.Context, orderID string) (*client.PaymentResponse, error)
}

type NotificationGateway interface {
	SendEmailNotification(ctx context.Context, request client.NotificationRequest) (bool, error)
}

// CartProvider is the slice of CartService the orchestrator needs: reading
// the cart snapshot and dropping its cache entry after the order-creation
// transaction has cleared the items.
type CartProvider interface {
	GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error)
	Invalidate(userID int64)
}

type OrderService struct {
	repo          repository.OrderRepository
	carts         CartProvider
	catalog       CatalogGateway
	users         UserGateway
	payments      PaymentGateway
	notifications NotificationGateway
	logger        *zap.Logger
	createGroup   singleflight.Group // one in-flight creation per user
}

func NewOrderService(
	repo repository.OrderRepository,
	carts CartProvider,
	catalog CatalogGateway,
	users UserGateway,
	payments PaymentGateway,
	notifications NotificationGateway,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		repo:          repo,
		carts:         carts,
		catalog:       catalog,
		users:         users,
		payments:      payments,
		notifications: notifications,
		logger:        logger.With(zap.String("component", "order_service")),
	}
}

// CreateOrderFromCart converts the user's cart into a durable order:
// snapshot the cart, resolve user and product data, persist the order and
// clear the cart atomically, charge the payment service, record the
// settlement on the order and send a best-effort confirmation email.
//
// Concurrent invocations for the same user coalesce into a single
// execution, so one cart state cannot produce two orders.
func (s *OrderService) CreateOrderFromCart(ctx context.Context, userID int64, shippingAddress, paymentMethod string) (*domain.Order, error) {
	// The coalesced execution is shared by every concurrent caller, so it
	// is detached from the first caller's cancellation: one dropped
	// connection must not strand a shared creation mid-pipeline. Values
	// (request id) still flow through; the per-call gateway timeouts bound
	// each remote step.
	sagaCtx := context.WithoutCancel(ctx)
	v, err, _ := s.createGroup.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		return s.createOrder(sagaCtx, userID, shippingAddress, paymentMethod)
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Order), nil
}

func (s *OrderService) createOrder(ctx context.Context, userID int64, shippingAddress, paymentMethod string) (*domain.Order, error) {
	cart, err := s.carts.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if cart.IsEmpty() {
		return nil, fmt.Errorf("user %d: %w", userID, ErrEmptyCart)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrUserNotFound)
		}
		return nil, fmt.Errorf("resolve user %d: %w", userID, err)
	}

	// Resolve every product before touching storage: any unknown product
	// aborts the whole attempt with nothing persisted.
	productNames := make(map[int64]string, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.catalog.GetProductByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, client.ErrNotFound) {
				return nil, fmt.Errorf("product %d: %w", item.ProductID, ErrProductNotFound)
			}
			return nil, fmt.Errorf("resolve product %d: %w", item.ProductID, err)
		}
		productNames[item.ProductID] = product.Name
	}

	order := buildOrder(userID, shippingAddress, paymentMethod, cart, productNames)

	// Irrevocable point: order insert, outbox event and cart clearing
	// commit together. From here on no failure removes the order row.
	if err := s.repo.CreateOrderAndClearCart(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	s.carts.Invalidate(userID)
	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.Int64("user_id", userID),
		zap.Float64("total_amount", order.TotalAmount))

	outcome, err := s.payments.ProcessPayment(ctx, client.PaymentRequest{
		OrderID:              order.ID.String(),
		Amount:               order.TotalAmount,
		PaymentMethodDetails: order.PaymentMethod,
	})
	if err != nil {
		// Connectivity failure: remote state is indeterminate, the order
		// stays PENDING and the error propagates.
		return nil, fmt.Errorf("process payment for order %s: %w", order.ID, err)
	}

	if outcome == nil {
		s.logger.Error("payment declined", zap.String("order_id", order.ID.String()))
		if _, uerr := s.repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatusPaymentFailed, nil); uerr != nil {
			return nil, fmt.Errorf("record payment failure for order %s: %w", order.ID, uerr)
		}
		return nil, fmt.Errorf("order %s: %w", order.ID, ErrPaymentFailed)
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, order.ID, domain.OrderStatus(outcome.PaymentStatus), &outcome.TransactionID)
	if err != nil {
		return nil, fmt.Errorf("record payment outcome for order %s: %w", order.ID, err)
	}
	s.logger.Info("payment processed",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_status", outcome.PaymentStatus),
		zap.String("transaction_id", outcome.TransactionID))

	if outcome.PaymentStatus == domain.PaymentStatusCompleted {
		s.sendOrderConfirmation(ctx, user, updated)
	}

	return updated, nil
}

func buildOrder(userID int64, shippingAddress, paymentMethod string, cart *domain.Cart, productNames map[int64]string) *domain.Order {
	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		ShippingAddress: shippingAddress,
		PaymentMethod:   paymentMethod,
		Items:           make([]domain.OrderItem, 0, len(cart.Items)),
	}

	for _, item := range cart.Items {
		// Price and quantity come from the cart line, not the catalog:
		// the customer pays what they saw when they added the item.
		subtotal := item.PriceAtAddition * float64(item.Quantity)
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: productNames[item.ProductID],
			Quantity:    item.Quantity,
			UnitPrice:   item.PriceAtAddition,
			Subtotal:    subtotal,
		})
		order.TotalAmount += subtotal
	}

	return order
}

// sendOrderConfirmation is strictly best-effort: any failure is logged and
// swallowed, it never changes order state or the caller's result.
func (s *OrderService) sendOrderConfirmation(ctx context.Context, user *client.User, order *domain.Order) {
	subject := fmt.Sprintf("Order Confirmation #%s", order.ID)
	body := fmt.Sprintf(
		"Dear %s,\n\nThank you for your purchase. Your order #%s has been confirmed and your payment processed successfully. Total: %.2f\n\nBest regards,\nThe EcoMarket team",
		user.DisplayName(), order.ID, order.TotalAmount)

	sent, err := s.notifications.SendEmailNotification(ctx, client.NotificationRequest{
		RecipientEmail: user.Email,
		Subject:        subject,
		MessageBody:    body,
		Type:           client.NotificationTypeOrderConfirmation,
	})
	if err != nil {
		s.logger.Warn("order confirmation email failed",
			zap.String("order_id", order.ID.String()),
			zap.String("recipient", user.Email),
			zap.Error(err))
		return
	}
	if !sent {
		s.logger.Warn("order confirmation email rejected",
			zap.String("order_id", order.ID.String()),
			zap.String("recipient", user.Email))
		return
	}
	s.logger.Info("order confirmation email sent",
		zap.String("order_id", order.ID.String()),
		zap.String("recipient", user.Email))
}

func (s *OrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.repo.GetOrderByID(ctx, id)
}

// GetOrdersByUserID returns the user's orders, newest first.
func (s *OrderService) GetOrdersByUserID(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.repo.ListOrdersByUserID(ctx, userID)
}

// UpdateOrderStatus covers post-creation transitions (shipping,
// cancellation); it is not part of the creation flow.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	return s.repo.UpdateOrderStatus(ctx, id, status, nil)
}

func (s *OrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteOrder(ctx, id)
}

// GetPaymentStatus passes the payment lookup through to the payment
// service for an order that exists locally.
func (s *OrderService) GetPaymentStatus(ctx context.Context, id uuid.UUID) (*client.PaymentResponse, error) {
	if _, err := s.repo.GetOrderByID(ctx, id); err != nil {
		return nil, err
	}
	return s.payments.GetPaymentStatusByOrderID(ctx, id.String())
}
