package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ecomarket/order-cart-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

// CartService is the slice of the cart service the handlers consume.
type CartService interface {
	GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddProductToCart(ctx context.Context, userID, productID int64, quantity int, priceAtAddition float64) (*domain.Cart, error)
	UpdateProductQuantity(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error)
	RemoveProductFromCart(ctx context.Context, userID, productID int64) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID int64) (*domain.Cart, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID       int64   `json:"product_id"`
	Quantity        int     `json:"quantity"`
	PriceAtAddition float64 `json:"price_at_addition"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

// GET /api/v1/carts/{userID}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := pathID(w, r, "userID", "invalid_user_id")
	if !ok {
		return
	}

	cart, err := h.carts.GetOrCreateCart(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

// POST /api/v1/carts/{userID}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := pathID(w, r, "userID", "invalid_user_id")
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}
	if req.PriceAtAddition < 0 {
		respondError(w, http.StatusBadRequest, "invalid_price", "price_at_addition must not be negative")
		return
	}

	cart, err := h.carts.AddProductToCart(ctx, userID, req.ProductID, req.Quantity, req.PriceAtAddition)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, cart)
}

// PUT /api/v1/carts/{userID}/items/{productID}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := pathID(w, r, "userID", "invalid_user_id")
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID", "invalid_product_id")
	if !ok {
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// A quantity of zero or less removes the line item.
	cart, err := h.carts.UpdateProductQuantity(ctx, userID, productID, req.Quantity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

// DELETE /api/v1/carts/{userID}/items/{productID}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := pathID(w, r, "userID", "invalid_user_id")
	if !ok {
		return
	}
	productID, ok := pathID(w, r, "productID", "invalid_product_id")
	if !ok {
		return
	}

	cart, err := h.carts.RemoveProductFromCart(ctx, userID, productID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

// DELETE /api/v1/carts/{userID}/clear
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := pathID(w, r, "userID", "invalid_user_id")
	if !ok {
		return
	}

	cart, err := h.carts.ClearCart(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func pathID(w http.ResponseWriter, r *http.Request, param, code string) (int64, bool) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, code, param+" must be a positive integer")
		return 0, false
	}
	return id, true
}
