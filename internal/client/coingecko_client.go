package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GhostQS/alphalend-supply/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// CoinGeckoClient fetches price/supply data for a coin from the CoinGecko
// v3 API. The three methods correspond to progressively coarser endpoints;
// callers chain them as independent fallback sources.
type CoinGeckoClient interface {
	GetCoin(ctx context.Context, coinID string) (*entity.PriceSupplyQuote, error)
	GetMarkets(ctx context.Context, coinID string) (*entity.PriceSupplyQuote, error)
	GetSimplePrice(ctx context.Context, coinID string) (*entity.PriceSupplyQuote, error)
}

// coinGeckoClientImpl is the implementation of CoinGeckoClient.
type coinGeckoClientImpl struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewCoinGeckoClient creates a new instance of coinGeckoClientImpl. The key
// is optional; when present, demo keys (prefix "CG-") are sent in the
// x-cg-demo-api-key header, others in x-cg-pro-api-key.
func NewCoinGeckoClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) CoinGeckoClient {
	return &coinGeckoClientImpl{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		logger:  logger.Named("CoinGeckoClient"),
	}
}

func (c *coinGeckoClientImpl) get(ctx context.Context, requestURL string, out interface{}) error {
	c.logger.Debug("Requesting data from CoinGecko", zap.String("url", requestURL))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.Header.SetUserAgent(defaultUserAgent)
	if key := strings.TrimSpace(c.apiKey); key != "" {
		if strings.HasPrefix(key, "CG-") {
			req.Header.Set("x-cg-demo-api-key", key)
		} else {
			req.Header.Set("x-cg-pro-api-key", key)
		}
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.logger.Warn("CoinGecko request failed", zap.String("url", requestURL), zap.Error(err))
		return fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
	}

	rawBody := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Warn("CoinGecko API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", rawBody))
		return fmt.Errorf("coingecko request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	if err := json.Unmarshal(rawBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal CoinGecko response from %s: %w", requestURL, err)
	}
	return nil
}

type coinGeckoMarketData struct {
	CurrentPrice      map[string]decimal.Decimal `json:"current_price"`
	CirculatingSupply *decimal.Decimal           `json:"circulating_supply"`
	TotalSupply       *decimal.Decimal           `json:"total_supply"`
}

type coinGeckoCoin struct {
	MarketData *coinGeckoMarketData `json:"market_data"`
}

// GetCoin implements the /coins/{id} lookup with market data enabled.
func (c *coinGeckoClientImpl) GetCoin(ctx context.Context, coinID string) (*entity.PriceSupplyQuote, error) {
	requestURL := fmt.Sprintf(
		"%s/coins/%s?localization=false&tickers=false&market_data=true&community_data=false&developer_data=false&sparkline=false",
		c.baseURL, coinID)

	var coin coinGeckoCoin
	if err := c.get(ctx, requestURL, &coin); err != nil {
		return nil, err
	}
	if coin.MarketData == nil {
		return nil, fmt.Errorf("coingecko /coins/%s response carries no market_data", coinID)
	}

	quote := &entity.PriceSupplyQuote{
		CirculatingSupply: coin.MarketData.CirculatingSupply,
		TotalSupply:       coin.MarketData.TotalSupply,
	}
	if usd, ok := coin.MarketData.CurrentPrice["usd"]; ok {
		quote.PriceUsd = &usd
	}
	return quote, nil
}

type coinGeckoMarketRow struct {
	CurrentPrice      *decimal.Decimal `json:"current_price"`
	CirculatingSupply *decimal.Decimal `json:"circulating_supply"`
	TotalSupply       *decimal.Decimal `json:"total_supply"`
}

// GetMarkets implements the /coins/markets lookup, taking the first row.
func (c *coinGeckoClientImpl) GetMarkets(ctx context.Context, coinID string) (*entity.PriceSupplyQuote, error) {
	requestURL := fmt.Sprintf("%s/coins/markets?vs_currency=usd&ids=%s", c.baseURL, coinID)

	var rows []coinGeckoMarketRow
	if err := c.get(ctx, requestURL, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("coingecko /coins/markets returned no rows for %s", coinID)
	}

	return &entity.PriceSupplyQuote{
		PriceUsd:          rows[0].CurrentPrice,
		CirculatingSupply: rows[0].CirculatingSupply,
		TotalSupply:       rows[0].TotalSupply,
	}, nil
}

// GetSimplePrice implements the /simple/price lookup; price only.
func (c *coinGeckoClientImpl) GetSimplePrice(ctx context.Context, coinID string) (*entity.PriceSupplyQuote, error) {
	requestURL := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, coinID)

	var data map[string]map[string]decimal.Decimal
	if err := c.get(ctx, requestURL, &data); err != nil {
		return nil, err
	}
	usd, ok := data[coinID]["usd"]
	if !ok {
		return nil, fmt.Errorf("coingecko /simple/price returned no usd price for %s", coinID)
	}

	return &entity.PriceSupplyQuote{PriceUsd: &usd}, nil
}
