package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ecomarket/order-cart-service/internal/domain"
)

func (r *Repository) GetCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	cart, err := scanCart(ctx, r.db, userID)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// GetOrCreateCart never fails with "not found": an absent cart is created
// empty and persisted before being returned.
func (r *Repository) GetOrCreateCart(ctx context.Context, userID int64) (*domain.Cart, error) {
	query := `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return nil, fmt.Errorf("create cart: %w", err)
	}
	return r.GetCart(ctx, userID)
}

// AddItem upserts a cart line: adding a product already in the cart adds to
// its quantity and keeps the original price_at_addition.
func (r *Repository) AddItem(ctx context.Context, userID int64, item domain.CartItem) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add item tx: %w", err)
	}
	defer tx.Rollback()

	ensureCart := `INSERT INTO carts (user_id) VALUES ($1)
	               ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()`
	if _, err := tx.ExecContext(ctx, ensureCart, userID); err != nil {
		return fmt.Errorf("ensure cart: %w", err)
	}

	upsertItem := `INSERT INTO cart_items (user_id, product_id, quantity, price_at_addition)
	               VALUES ($1, $2, $3, $4)
	               ON CONFLICT (user_id, product_id)
	               DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`
	if _, err := tx.ExecContext(ctx, upsertItem, userID, item.ProductID, item.Quantity, item.PriceAtAddition); err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add item tx: %w", err)
	}
	return nil
}

func (r *Repository) UpdateItemQuantity(ctx context.Context, userID int64, productID int64, quantity int) error {
	query := `UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND product_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, productID, quantity)
	if err != nil {
		return fmt.Errorf("update item quantity: %w", err)
	}
	return requireRow(res, ErrItemNotFound)
}

func (r *Repository) RemoveItem(ctx context.Context, userID int64, productID int64) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`
	res, err := r.db.ExecContext(ctx, query, userID, productID)
	if err != nil {
		return fmt.Errorf("remove cart item: %w", err)
	}
	return requireRow(res, ErrItemNotFound)
}

// ClearCart removes all items but keeps the cart row. Fails with
// ErrCartNotFound if no cart exists for the user.
func (r *Repository) ClearCart(ctx context.Context, userID int64) error {
	update := `UPDATE carts SET updated_at = NOW() WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, update, userID)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	if err := requireRow(res, ErrCartNotFound); err != nil {
		return err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func scanCart(ctx context.Context, q queryer, userID int64) (*domain.Cart, error) {
	cart := &domain.Cart{UserID: userID}

	head := `SELECT created_at, updated_at FROM carts WHERE user_id = $1`
	err := q.QueryRowContext(ctx, head, userID).Scan(&cart.CreatedAt, &cart.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}

	items := `SELECT product_id, quantity, price_at_addition, added_at
	          FROM cart_items WHERE user_id = $1 ORDER BY added_at`
	rows, err := q.QueryContext(ctx, items, userID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.PriceAtAddition, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		cart.Items = append(cart.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cart item iteration: %w", err)
	}

	return cart, nil
}

func requireRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
