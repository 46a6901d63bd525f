package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	return cfg
}

func TestNew(t *testing.T) {
	t.Run("with default config", func(t *testing.T) {
		client := New(DefaultConfig())
		assert.NotNil(t, client.client)
		assert.NotNil(t, client.logger)
		assert.Equal(t, DefaultRetryAttempts, client.config.RetryAttempts)
	})

	t.Run("normalises invalid values", func(t *testing.T) {
		client := New(Config{RetryAttempts: -1, BackoffMultiplier: 0})
		assert.Equal(t, 0, client.config.RetryAttempts)
		assert.Equal(t, DefaultBackoffMultiplier, client.config.BackoffMultiplier)
	})

	t.Run("with custom base client", func(t *testing.T) {
		baseClient := &http.Client{Timeout: 5 * time.Second}
		cfg := DefaultConfig()
		cfg.BaseClient = baseClient
		client := New(cfg)
		assert.Equal(t, baseClient, client.client)
	})
}

func TestClient_Get(t *testing.T) {
	t.Run("successful request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, DefaultUserAgentHeader, r.Header.Get(HeaderUserAgent))
			assert.Equal(t, DefaultAcceptEncodingHeader, r.Header.Get(HeaderAcceptEncoding))
			w.Write([]byte(`{"status":"ok"}`))
		}))
		defer server.Close()

		resp, err := New(fastConfig()).Get(context.Background(), server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		assert.Equal(t, `{"status":"ok"}`, string(body))
	})

	t.Run("retries retryable status", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("ok"))
		}))
		defer server.Close()

		resp, err := New(fastConfig()).Get(context.Background(), server.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("gives up after retries", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		_, err := New(fastConfig()).Get(context.Background(), server.URL)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMaxRetries)
		assert.Equal(t, int32(DefaultRetryAttempts+1), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		resp, err := New(fastConfig()).Get(context.Background(), server.URL)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("cancelled context", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		cfg := fastConfig()
		cfg.RetryDelay = time.Second
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(cfg).Get(ctx, server.URL)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClient_Decompression(t *testing.T) {
	payload := "203.0.113.7"

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write([]byte(payload))
	require.NoError(t, gw.Close())

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	_, _ = bw.Write([]byte(payload))
	require.NoError(t, bw.Close())

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"identity", "", []byte(payload)},
		{"gzip", EncodingGzip, gz.Bytes()},
		{"brotli", EncodingBrotli, br.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.encoding != "" {
					w.Header().Set(HeaderContentEncoding, tt.encoding)
				}
				w.Write(tt.body)
			}))
			defer server.Close()

			text, err := New(fastConfig()).GetText(context.Background(), server.URL, 64)
			require.NoError(t, err)
			assert.Equal(t, payload, text)
		})
	}
}

func TestClient_GetText(t *testing.T) {
	t.Run("trims whitespace", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("  1.2.3.4\n"))
		}))
		defer server.Close()

		text, err := New(fastConfig()).GetText(context.Background(), server.URL, 64)
		require.NoError(t, err)
		assert.Equal(t, "1.2.3.4", text)
	})

	t.Run("non 2xx", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		_, err := New(fastConfig()).GetText(context.Background(), server.URL, 64)
		assert.ErrorIs(t, err, ErrUnexpected)
	})

	t.Run("too large", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(strings.Repeat("x", 100)))
		}))
		defer server.Close()

		_, err := New(fastConfig()).GetText(context.Background(), server.URL, 10)
		assert.ErrorIs(t, err, ErrBodyTooLarge)
	})
}

func TestObfuscateURL(t *testing.T) {
	u, err := url.Parse("https://example.com/ip?token=abc&format=text")
	require.NoError(t, err)

	got := obfuscateURL(u)
	assert.NotContains(t, got, "abc")
	assert.Contains(t, got, "format=text")
	assert.Equal(t, "", obfuscateURL(nil))
}

func TestIsRetryableStatus(t *testing.T) {
	assert.True(t, isRetryableStatus(http.StatusTooManyRequests))
	assert.True(t, isRetryableStatus(http.StatusGatewayTimeout))
	assert.False(t, isRetryableStatus(http.StatusOK))
	assert.False(t, isRetryableStatus(http.StatusInternalServerError))
}
