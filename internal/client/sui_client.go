package client

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"
	"time"

	"github.com/GhostQS/alphalend-supply/internal/domain/entity"
	"github.com/GhostQS/alphalend-supply/internal/pkg/metrics"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RPCError is a node-side protocol error: the call reached the node but the
// node answered with an explicit error object. Always fatal for that call.
type RPCError struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    jsoniter.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// DynamicFieldInfo is one child descriptor from a dynamic-field page.
type DynamicFieldInfo struct {
	Name       entity.Value `json:"name"`
	ObjectID   string       `json:"objectId"`
	ObjectType string       `json:"objectType"`
}

// DynamicFieldPage is one page of a container's children.
type DynamicFieldPage struct {
	Data        []DynamicFieldInfo `json:"data"`
	NextCursor  *string            `json:"nextCursor"`
	HasNextPage bool               `json:"hasNextPage"`
}

// ObjectData is the resolved content of an on-chain object.
type ObjectData struct {
	ObjectID string       `json:"objectId"`
	Type     string       `json:"type"`
	Content  entity.Value `json:"content"`
}

// SuiClient defines the node query surface used by the scanning services.
type SuiClient interface {
	GetDynamicFields(ctx context.Context, parentID string, cursor *string, limit int) (*DynamicFieldPage, error)
	GetDynamicFieldObject(ctx context.Context, parentID string, name entity.Value) (*ObjectData, error)
	GetObject(ctx context.Context, objectID string) (*ObjectData, error)
	GetCoinMetadata(ctx context.Context, coinType string) (*entity.CoinMetadata, error)
	GetTotalSupply(ctx context.Context, coinType string) (*big.Int, error)
	GetBalance(ctx context.Context, owner, coinType string) (*big.Int, error)
}

// suiClientImpl is the fasthttp-backed implementation of SuiClient.
type suiClientImpl struct {
	client    *fasthttp.Client
	endpoint  string
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *zap.Logger
	requestID atomic.Int64
}

// NewSuiClient creates a new Sui JSON-RPC client. rateLimit/burst of zero
// disables client-side rate limiting.
func NewSuiClient(endpoint string, timeout time.Duration, rateLimit, burst int, logger *zap.Logger) SuiClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if rateLimit > 0 {
		if burst <= 0 {
			burst = rateLimit
		}
		limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
	}
	return &suiClientImpl{
		client:   &fasthttp.Client{},
		endpoint: strings.TrimRight(endpoint, "/"),
		timeout:  timeout,
		limiter:  limiter,
		logger:   logger.Named("SuiClient"),
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result jsoniter.RawMessage `json:"result"`
	Error  *RPCError           `json:"error"`
}

// call performs one JSON-RPC request and decodes the result envelope.
// Transport failures, malformed responses, and node error objects all
// surface as errors; node error objects keep their *RPCError type.
func (c *suiClientImpl) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", method, err)
	}

	payload := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(c.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	start := time.Now()
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	metrics.RPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RPCCalls.WithLabelValues(method, "transport_error").Inc()
		c.logger.Error("Sui RPC request failed", zap.String("method", method), zap.Error(err))
		return fmt.Errorf("failed to execute %s against %s: %w", method, c.endpoint, err)
	}

	rawBody := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		metrics.RPCCalls.WithLabelValues(method, "http_error").Inc()
		c.logger.Error("Sui RPC returned non-OK status",
			zap.String("method", method),
			zap.Int("statusCode", resp.StatusCode()))
		return fmt.Errorf("%s against %s failed with status %d: %s", method, c.endpoint, resp.StatusCode(), string(rawBody))
	}

	var envelope rpcResponse
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		metrics.RPCCalls.WithLabelValues(method, "malformed").Inc()
		c.logger.Error("Sui RPC returned malformed JSON", zap.String("method", method), zap.Error(err))
		return fmt.Errorf("invalid JSON response for %s: %w", method, err)
	}
	if envelope.Error != nil {
		metrics.RPCCalls.WithLabelValues(method, "rpc_error").Inc()
		c.logger.Warn("Sui RPC returned error object",
			zap.String("method", method),
			zap.Int("code", envelope.Error.Code),
			zap.String("message", envelope.Error.Message))
		return envelope.Error
	}

	metrics.RPCCalls.WithLabelValues(method, "ok").Inc()
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("unexpected %s result format: %w", method, err)
	}
	return nil
}

var objectDataOptions = map[string]bool{
	"showType":                true,
	"showContent":             true,
	"showOwner":               false,
	"showDisplay":             false,
	"showBcs":                 false,
	"showPreviousTransaction": false,
	"showStorageRebate":       false,
}

// GetDynamicFields lists one page of a container's children.
func (c *suiClientImpl) GetDynamicFields(ctx context.Context, parentID string, cursor *string, limit int) (*DynamicFieldPage, error) {
	var page DynamicFieldPage
	params := []interface{}{parentID, cursor, limit}
	if err := c.call(ctx, "suix_getDynamicFields", params, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

type objectEnvelope struct {
	Data *ObjectData `json:"data"`
}

// GetDynamicFieldObject resolves one child object by its dynamic field
// name. Returns nil (without error) when the node reports no data.
func (c *suiClientImpl) GetDynamicFieldObject(ctx context.Context, parentID string, name entity.Value) (*ObjectData, error) {
	var envelope objectEnvelope
	params := []interface{}{parentID, name}
	if err := c.call(ctx, "suix_getDynamicFieldObject", params, &envelope); err != nil {
		return nil, err
	}
	return envelope.Data, nil
}

// GetObject fetches a single object with type and content shown.
func (c *suiClientImpl) GetObject(ctx context.Context, objectID string) (*ObjectData, error) {
	var envelope objectEnvelope
	params := []interface{}{map[string]interface{}{"id": objectID, "options": objectDataOptions}}
	if err := c.call(ctx, "sui_getObject", params, &envelope); err != nil {
		return nil, err
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("unexpected sui_getObject response format for %s", objectID)
	}
	return envelope.Data, nil
}

// GetCoinMetadata fetches symbol/name/decimals for a coin type.
func (c *suiClientImpl) GetCoinMetadata(ctx context.Context, coinType string) (*entity.CoinMetadata, error) {
	var raw *struct {
		Decimals    uint8  `json:"decimals"`
		Name        string `json:"name"`
		Symbol      string `json:"symbol"`
		Description string `json:"description"`
		IconURL     string `json:"iconUrl"`
	}
	if err := c.call(ctx, "suix_getCoinMetadata", []interface{}{coinType}, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("coin metadata not found for %s", coinType)
	}
	return &entity.CoinMetadata{
		Decimals:    raw.Decimals,
		Name:        raw.Name,
		Symbol:      raw.Symbol,
		Description: raw.Description,
		IconURL:     raw.IconURL,
	}, nil
}

// GetTotalSupply fetches the on-chain total supply for a coin type.
func (c *suiClientImpl) GetTotalSupply(ctx context.Context, coinType string) (*big.Int, error) {
	var result struct {
		Value string `json:"value"`
	}
	if err := c.call(ctx, "suix_getTotalSupply", []interface{}{coinType}, &result); err != nil {
		return nil, err
	}
	supply, ok := new(big.Int).SetString(result.Value, 10)
	if !ok {
		return nil, fmt.Errorf("unexpected total supply response format: %q", result.Value)
	}
	return supply, nil
}

// GetBalance fetches an address's aggregate balance of a coin type.
func (c *suiClientImpl) GetBalance(ctx context.Context, owner, coinType string) (*big.Int, error) {
	var result struct {
		TotalBalance string `json:"totalBalance"`
	}
	if err := c.call(ctx, "suix_getBalance", []interface{}{owner, coinType}, &result); err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(result.TotalBalance, 10)
	if !ok {
		return nil, fmt.Errorf("unexpected balance response format: %q", result.TotalBalance)
	}
	return balance, nil
}
