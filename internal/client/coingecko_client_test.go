package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCoinGeckoGetCoinParsesMarketData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/tbtc", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("market_data"))
		assert.Equal(t, "false", r.URL.Query().Get("localization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"tbtc","market_data":{
			"current_price":{"usd":103000.5,"eur":95000.1},
			"circulating_supply":102.5,
			"total_supply":102.5}}`))
	}))
	defer server.Close()

	c := NewCoinGeckoClient(server.URL, "", time.Second, zap.NewNop())
	quote, err := c.GetCoin(context.Background(), "tbtc")

	require.NoError(t, err)
	assert.Equal(t, "103000.5", quote.PriceUsd.String())
	assert.Equal(t, "102.5", quote.CirculatingSupply.String())
	assert.Equal(t, "102.5", quote.TotalSupply.String())
}

func TestCoinGeckoGetCoinWithoutMarketData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"tbtc"}`))
	}))
	defer server.Close()

	c := NewCoinGeckoClient(server.URL, "", time.Second, zap.NewNop())
	_, err := c.GetCoin(context.Background(), "tbtc")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no market_data")
}

func TestCoinGeckoGetMarketsTakesFirstRow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/markets", r.URL.Path)
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currency"))
		assert.Equal(t, "tbtc", r.URL.Query().Get("ids"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"tbtc","current_price":103000.5,"circulating_supply":102.5,"total_supply":null},
			{"id":"other","current_price":1}
		]`))
	}))
	defer server.Close()

	c := NewCoinGeckoClient(server.URL, "", time.Second, zap.NewNop())
	quote, err := c.GetMarkets(context.Background(), "tbtc")

	require.NoError(t, err)
	assert.Equal(t, "103000.5", quote.PriceUsd.String())
	assert.Equal(t, "102.5", quote.CirculatingSupply.String())
	assert.Nil(t, quote.TotalSupply)
}

func TestCoinGeckoGetMarketsEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := NewCoinGeckoClient(server.URL, "", time.Second, zap.NewNop())
	_, err := c.GetMarkets(context.Background(), "tbtc")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no rows")
}

func TestCoinGeckoGetSimplePrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tbtc":{"usd":103000.5}}`))
	}))
	defer server.Close()

	c := NewCoinGeckoClient(server.URL, "", time.Second, zap.NewNop())
	quote, err := c.GetSimplePrice(context.Background(), "tbtc")

	require.NoError(t, err)
	assert.Equal(t, "103000.5", quote.PriceUsd.String())
	assert.Nil(t, quote.CirculatingSupply)
	assert.Nil(t, quote.TotalSupply)
}

func TestCoinGeckoKeyHeaderSelection(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		wantHeader string
	}{
		{"demo key", "CG-abc123", "x-cg-demo-api-key"},
		{"pro key", "pro-abc123", "x-cg-pro-api-key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotDemo, gotPro string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotDemo = r.Header.Get("x-cg-demo-api-key")
				gotPro = r.Header.Get("x-cg-pro-api-key")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"tbtc":{"usd":1}}`))
			}))
			defer server.Close()

			c := NewCoinGeckoClient(server.URL, tt.apiKey, time.Second, zap.NewNop())
			_, err := c.GetSimplePrice(context.Background(), "tbtc")
			require.NoError(t, err)

			if tt.wantHeader == "x-cg-demo-api-key" {
				assert.Equal(t, tt.apiKey, gotDemo)
				assert.Empty(t, gotPro)
			} else {
				assert.Equal(t, tt.apiKey, gotPro)
				assert.Empty(t, gotDemo)
			}
		})
	}
}
