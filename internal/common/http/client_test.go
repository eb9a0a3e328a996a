package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoWithContext_PassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewRateLimitedClient(time.Second, 100, 1)
	req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := c.DoWithContext(context.Background(), req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, 3*time.Second, RetryAfter(resp))
}

func TestWait_CancelledContext(t *testing.T) {
	c := NewRateLimitedClient(time.Second, 0.001, 1)
	require.NoError(t, c.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, c.Wait(ctx))
}

func TestWait_NoLimiter(t *testing.T) {
	c := NewClient(time.Second)
	assert.NoError(t, c.Wait(context.Background()))
	assert.Equal(t, time.Duration(0), RetryAfter(nil))
}
