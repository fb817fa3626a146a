// Package client holds the HTTP clients for the remote collaborators:
// product catalog, user, payment and notification services. Each client
// applies a bounded per-call timeout and routes requests through a circuit
// breaker; a timeout, transport failure or open breaker surfaces as an
// error, while remote rejections map to each client's contract.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrNotFound reports that the remote service answered 404 for the
// requested resource.
var ErrNotFound = errors.New("resource not found")

// ErrUnavailable marks connectivity-class failures: transport errors,
// timeouts, an open circuit breaker, or a server-side (5xx) response. The
// remote state is indeterminate and the caller must not treat it as a
// definitive rejection.
var ErrUnavailable = errors.New("remote service unavailable")

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID stores the inbound request id so outbound calls carry it in
// their X-Request-ID header.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFrom(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

const defaultBreakerTimeout = 30 * time.Second

func newBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:    name,
		Timeout: defaultBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

type gateway struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
	breaker    *gobreaker.CircuitBreaker[*http.Response]
}

func newGateway(name, baseURL string, httpClient *http.Client, timeout time.Duration) gateway {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return gateway{
		httpClient: httpClient,
		baseURL:    baseURL,
		timeout:    timeout,
		breaker:    newBreaker(name),
	}
}

// do executes the request through the breaker. Only transport-level
// failures count against the breaker; any received response is returned to
// the caller for status classification.
func (g *gateway) do(ctx context.Context, method, url string, body io.Reader) (*http.Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requestID := requestIDFrom(ctx); requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := g.breaker.Execute(func() (*http.Response, error) {
		return g.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", url, errors.Join(ErrUnavailable, err))
	}
	return resp, nil
}

func decodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
