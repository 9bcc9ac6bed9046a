package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/GhostQS/alphalend-supply/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// ErrMissingAPIKey marks a source that cannot be consulted because no
// credential is configured. Callers treat it as a per-source failure, never
// as a fatal configuration error.
var ErrMissingAPIKey = errors.New("api key is not set")

const defaultUserAgent = "alphalend-supply/1.0 (+https://github.com/GhostQS/alphalend-supply)"

// BlockberryClient fetches coin price/supply data from Blockberry.
type BlockberryClient interface {
	GetCoin(ctx context.Context, coinType string) (*entity.PriceSupplyQuote, error)
}

// blockberryClientImpl is the implementation of BlockberryClient.
type blockberryClientImpl struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewBlockberryClient creates a new instance of blockberryClientImpl. An
// empty apiKey leaves the client constructed but unusable; GetCoin then
// returns ErrMissingAPIKey.
func NewBlockberryClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) BlockberryClient {
	return &blockberryClientImpl{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		timeout: timeout,
		logger:  logger.Named("BlockberryClient"),
	}
}

// blockberryCoin mirrors GET /sui/v1/coins/{coinType}.
type blockberryCoin struct {
	Price             *decimal.Decimal `json:"price"`
	CirculatingSupply *decimal.Decimal `json:"circulatingSupply"`
	Supply            *decimal.Decimal `json:"supply"`
}

// GetCoin implements the BlockberryClient interface.
func (c *blockberryClientImpl) GetCoin(ctx context.Context, coinType string) (*entity.PriceSupplyQuote, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("blockberry: %w", ErrMissingAPIKey)
	}

	requestURL := fmt.Sprintf("%s/sui/v1/coins/%s", c.baseURL, url.PathEscape(coinType))
	c.logger.Debug("Requesting coin data from Blockberry", zap.String("url", requestURL))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.SetUserAgent(defaultUserAgent)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.logger.Warn("Blockberry request failed", zap.String("url", requestURL), zap.Error(err))
		return nil, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
	}

	rawBody := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Warn("Blockberry API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", rawBody))
		return nil, fmt.Errorf("blockberry request to %s failed with status %d", requestURL, resp.StatusCode())
	}

	var coin blockberryCoin
	if err := json.Unmarshal(rawBody, &coin); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Blockberry response from %s: %w", requestURL, err)
	}

	return &entity.PriceSupplyQuote{
		PriceUsd:          coin.Price,
		CirculatingSupply: coin.CirculatingSupply,
		TotalSupply:       coin.Supply,
	}, nil
}
