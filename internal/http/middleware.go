package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ecomarket/order-cart-service/internal/client"
)

// RequestIDMiddleware adds a unique request ID to each request. The id is
// echoed in the response and propagated to downstream service calls.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := client.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
