package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func noRetryClient() *Client {
	cfg := fastConfig()
	cfg.MaxRetries = 0
	return New(cfg)
}

func tripFastConfig(name string) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig(name)
	cfg.MinRequests = 2
	cfg.Timeout = time.Hour
	return cfg
}

func TestCircuitBreaker_PassesThroughSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"products":[]}`)
	}))
	defer srv.Close()

	cb := NewCircuitBreakerClient(noRetryClient(), tripFastConfig("cb-success"), testLogger())
	resp, err := cb.Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_ServerErrorBecomesStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"database is down"}`)
	}))
	defer srv.Close()

	cb := NewCircuitBreakerClient(noRetryClient(), tripFastConfig("cb-status"), testLogger())
	_, err := cb.Get(context.Background(), srv.URL, nil)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.JSONEq(t, `{"error":"database is down"}`, string(statusErr.Body))
}

func TestCircuitBreaker_TripsAndRejects(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cb := NewCircuitBreakerClient(noRetryClient(), tripFastConfig("cb-trip"), testLogger())
	for i := 0; i < 2; i++ {
		_, err := cb.Get(context.Background(), srv.URL, nil)
		require.Error(t, err)
	}

	assert.Equal(t, gobreaker.StateOpen, cb.State())
	assert.Equal(t, float64(2), testutil.ToFloat64(circuitBreakerState.WithLabelValues("cb-trip")))

	_, err := cb.Get(context.Background(), srv.URL, nil)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cb := NewCircuitBreakerClient(noRetryClient(), tripFastConfig("cb-4xx"), testLogger())
	for i := 0; i < 5; i++ {
		resp, err := cb.Get(context.Background(), srv.URL, nil)
		require.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_CallerCancellationDoesNotTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	cb := NewCircuitBreakerClient(noRetryClient(), tripFastConfig("cb-cancel"), testLogger())
	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()
		_, err := cb.Get(ctx, srv.URL, nil)
		require.Error(t, err)
		cancel()
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestStateToFloat(t *testing.T) {
	assert.Equal(t, float64(0), stateToFloat(gobreaker.StateClosed))
	assert.Equal(t, float64(1), stateToFloat(gobreaker.StateHalfOpen))
	assert.Equal(t, float64(2), stateToFloat(gobreaker.StateOpen))
}
