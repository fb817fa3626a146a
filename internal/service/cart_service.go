package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ecomarket/order-cart-service/internal/cache"
	"github.com/ecomarket/order-cart-service/internal/domain"
	"github.com/ecomarket/order-cart-service/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type CartService struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	logger *zap.Logger
	sfg    singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache, logger *zap.Logger) *CartService {
	return &CartService{
		repo:   repo,
		cache:  cache,
		logger: logger.With(zap.String("component", "cart_service")),
	}
}

// GetOrCreateCart never fails with "not found": an absent cart is created
// empty. Cache errors are logged and the repository is consulted instead.
func (s *CartService) GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.Int64("user_id", userID), zap.Error(err))
		}

		cart, errGet := s.repo.GetOrCreateCart(ctx, userID)
		if errGet != nil {
			return nil, fmt.Errorf("get or create cart: %w", errGet)
		}

		// The cache write completes before the cart is returned: a caller
		// that clears the cart and invalidates right after this read must
		// not be overtaken by a still-in-flight write of the old snapshot.
		setCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if errSet := s.cache.Set(setCtx, userID, cart); errSet != nil {
			s.logger.Warn("cache set failed", zap.Int64("user_id", userID), zap.Error(errSet))
		}

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddProductToCart adds a product with the price captured at this moment.
// Adding a product already in the cart merges quantities and keeps the
// original price.
func (s *CartService) AddProductToCart(ctx context.Context, userID, productID int64, quantity int, priceAtAddition float64) (*domain.Cart, error) {
	item := domain.CartItem{
		ProductID:       productID,
		Quantity:        quantity,
		PriceAtAddition: priceAtAddition,
		AddedAt:         time.Now(),
	}
	if err := s.repo.AddItem(ctx, userID, item); err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}

	s.Invalidate(userID)
	return s.repo.GetCart(ctx, userID)
}

// UpdateProductQuantity sets a new quantity for a cart line. A quantity of
// zero or less removes the line; a line is never stored with quantity <= 0.
func (s *CartService) UpdateProductQuantity(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error) {
	var err error
	if quantity <= 0 {
		err = s.repo.RemoveItem(ctx, userID, productID)
	} else {
		err = s.repo.UpdateItemQuantity(ctx, userID, productID, quantity)
	}
	if err != nil {
		return nil, fmt.Errorf("update item quantity: %w", err)
	}

	s.Invalidate(userID)
	return s.repo.GetCart(ctx, userID)
}

func (s *CartService) RemoveProductFromCart(ctx context.Context, userID, productID int64) (*domain.Cart, error) {
	if err := s.repo.RemoveItem(ctx, userID, productID); err != nil {
		return nil, fmt.Errorf("remove item: %w", err)
	}

	s.Invalidate(userID)
	return s.repo.GetCart(ctx, userID)
}

// ClearCart removes every item but keeps the cart itself.
func (s *CartService) ClearCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	if err := s.repo.ClearCart(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	s.Invalidate(userID)
	return s.repo.GetCart(ctx, userID)
}

// Invalidate drops the cached cart for a user. Failure is logged only; the
// jittered TTL bounds staleness.
func (s *CartService) Invalidate(userID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
