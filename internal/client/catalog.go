package client

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Product is the catalog's view of a product at resolution time.
type Product struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

type CatalogClient struct {
	gateway
}

func NewCatalogClient(baseURL string, httpClient *http.Client, timeout time.Duration) *CatalogClient {
	return &CatalogClient{newGateway("catalog", baseURL, httpClient, timeout)}
}

// GetProductByID resolves a product id to its current catalog snapshot.
// Returns ErrNotFound when the catalog answers 404.
func (c *CatalogClient) GetProductByID(ctx context.Context, productID int64) (*Product, error) {
	url := fmt.Sprintf("%s/api/products/%d", c.baseURL, productID)

	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		drain(resp)
		return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		drain(resp)
		return nil, fmt.Errorf("catalog service returned status %d for product %d: %w", resp.StatusCode, productID, ErrUnavailable)
	}

	var product Product
	if err := decodeJSON(resp, &product); err != nil {
		return nil, err
	}
	return &product, nil
}
