package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/carebook-api/pkg/config"
	appErrors "github.com/carebook/carebook-api/pkg/errors"
)

type stubRateCache struct {
	value  float64
	hasHit bool
	sets   map[string]float64
}

func (c *stubRateCache) Get(_ context.Context, _ string, dest interface{}) error {
	if !c.hasHit {
		return appErrors.ErrCacheMiss
	}
	ptr, ok := dest.(*float64)
	if !ok {
		return fmt.Errorf("unexpected dest type %T", dest)
	}
	*ptr = c.value
	return nil
}

func (c *stubRateCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if c.sets == nil {
		c.sets = map[string]float64{}
	}
	c.sets[key] = value.(float64)
	return nil
}

func TestCurrencyServiceFetchesAndCachesRate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		assert.Equal(t, "INR,USD", r.URL.Query().Get("symbols"))
		fmt.Fprint(w, `{"rates":{"USD":"1","INR":"80"}}`)
	}))
	defer server.Close()

	cache := &stubRateCache{}
	svc := NewCurrencyService(config.CurrencyConfig{ProviderURL: server.URL, APIKey: "test-key"}, cache, nil, nil)

	rate, err := svc.INRToUSDRate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.0125, rate, 1e-9)
	assert.InDelta(t, 0.0125, cache.sets["currency:inr_usd"], 1e-9)
}

func TestCurrencyServiceCacheHitSkipsProvider(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		fmt.Fprint(w, `{"rates":{"USD":"1","INR":"80"}}`)
	}))
	defer server.Close()

	cache := &stubRateCache{hasHit: true, value: 0.012}
	svc := NewCurrencyService(config.CurrencyConfig{ProviderURL: server.URL}, cache, nil, nil)

	rate, err := svc.INRToUSDRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.012, rate)
	assert.False(t, called)
}

func TestCurrencyServiceProviderFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"provider error status", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}},
		{"missing rates", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"rates":{"USD":"1"}}`)
		}},
		{"non numeric rate", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"rates":{"USD":"1","INR":"n/a"}}`)
		}},
		{"zero rate", func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, `{"rates":{"USD":"0","INR":"80"}}`)
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			svc := NewCurrencyService(config.CurrencyConfig{ProviderURL: server.URL}, nil, nil, nil)
			_, err := svc.INRToUSDRate(context.Background())
			assert.True(t, appErrors.Is(err, appErrors.ErrRateUnavailable), "expected rate unavailable, got %v", err)
		})
	}
}
