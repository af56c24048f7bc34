package restclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trade-alert-relay/internal/config"
)

// setupTestServer creates a new test server and a Client configured to use it.
func setupTestServer(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewWithLimiter(resty.New().SetBaseURL(server.URL), rate.NewLimiter(rate.Inf, 1), zap.NewNop())
	return client, server
}

func TestDo(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/ping", r.URL.Path)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		c, server := setupTestServer(handler)
		defer server.Close()

		resp, err := c.Do(context.Background(), http.MethodGet, "/ping", c.R(context.Background()))

		require.NoError(t, err)
		assert.Equal(t, `{"ok":true}`, resp.String())
	})

	t.Run("DecodesResult", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		c, server := setupTestServer(handler)
		defer server.Close()

		var out struct {
			OK bool `json:"ok"`
		}
		_, err := c.Do(context.Background(), http.MethodGet, "/ping", c.R(context.Background()).SetResult(&out))

		require.NoError(t, err)
		assert.True(t, out.OK)
	})

	t.Run("UndecodableSuccessBody", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":`))
		})
		c, server := setupTestServer(handler)
		defer server.Close()

		var out struct {
			OK bool `json:"ok"`
		}
		_, err := c.Do(context.Background(), http.MethodGet, "/ping", c.R(context.Background()).SetResult(&out))

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusOK, apiErr.StatusCode)
		assert.Equal(t, `{"ok":`, apiErr.Body)
		assert.Contains(t, err.Error(), "malformed response")
	})

	t.Run("ErrorStatusIsNotRetried", func(t *testing.T) {
		calls := 0
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("down"))
		})
		c, server := setupTestServer(handler)
		defer server.Close()

		_, err := c.Do(context.Background(), http.MethodGet, "/ping", c.R(context.Background()))

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
		assert.Equal(t, "down", apiErr.Body)
		assert.Contains(t, err.Error(), "request failed with status 503")
		assert.Equal(t, 1, calls)
	})

	t.Run("TransportError", func(t *testing.T) {
		c, server := setupTestServer(http.NotFoundHandler())
		server.Close()

		_, err := c.Do(context.Background(), http.MethodGet, "/ping", c.R(context.Background()))

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, 0, apiErr.StatusCode)
		assert.Error(t, errors.Unwrap(err))
	})

	t.Run("CancelledContext", func(t *testing.T) {
		c := NewWithLimiter(resty.New(), rate.NewLimiter(rate.Every(time.Hour), 1), zap.NewNop())
		require.True(t, c.limiter.Allow())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Do(ctx, http.MethodGet, "/ping", c.R(ctx))
		assert.ErrorContains(t, err, "rate limiter wait failed")
	})
}

func TestNew(t *testing.T) {
	c := New("https://example.test", &config.HTTP{Timeout: time.Second}, nil, zap.NewNop())
	assert.NotNil(t, c)
	assert.Equal(t, "https://example.test", c.client.BaseURL)
	assert.Equal(t, rate.Inf, c.limiter.Limit())

	c = New("https://example.test", &config.HTTP{RateLimit: 2, RateLimitBurst: 3}, &http.Client{}, zap.NewNop())
	assert.Equal(t, rate.Limit(2), c.limiter.Limit())
	assert.Equal(t, 3, c.limiter.Burst())
}
