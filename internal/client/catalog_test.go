package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProductByID_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products/7", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"name":"Widget","description":"A widget","price":19.99}`))
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, srv.Client(), time.Second)
	product, err := c.GetProductByID(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, int64(7), product.ID)
	assert.Equal(t, "Widget", product.Name)
	assert.InDelta(t, 19.99, product.Price, 1e-9)
}

func TestGetProductByID_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, srv.Client(), time.Second)
	product, err := c.GetProductByID(context.Background(), 99)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, product)
}

func TestGetProductByID_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, srv.Client(), time.Second)
	_, err := c.GetProductByID(context.Background(), 7)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestGetProductByID_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, srv.Client(), 20*time.Millisecond)
	_, err := c.GetProductByID(context.Background(), 7)

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetProductByID_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewCatalogClient(srv.URL, srv.Client(), 5*time.Millisecond)
	for i := 0; i < 5; i++ {
		_, err := c.GetProductByID(context.Background(), 7)
		require.Error(t, err)
	}

	// Breaker is open now: the call fails without reaching the server.
	start := time.Now()
	_, err := c.GetProductByID(context.Background(), 7)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 20*time.Millisecond)
}
