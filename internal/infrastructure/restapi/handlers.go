package restapi

import (
	"errors"
	"net/http"

	"github.com/GhostQS/alphalend-supply/internal/client"
	"github.com/GhostQS/alphalend-supply/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// APIError is the uniform error body for every endpoint.
type APIError struct {
	Error string `json:"error"`
}

// PooledResponse is the condensed answer of the pooled endpoint: just the
// locked total, without per-entry detail.
type PooledResponse struct {
	CoinType         string           `json:"coinType"`
	Protocol         string           `json:"protocol"`
	EntriesFound     int              `json:"entriesFound"`
	LockedTotalRaw   string           `json:"lockedTotalRaw"`
	LockedTotalHuman string           `json:"lockedTotalHuman"`
	TvlUsdEstimate   *decimal.Decimal `json:"tvlUsdEstimate,omitempty"`
}

// ScanHandler serves the per-protocol scan endpoints.
type ScanHandler struct {
	scans  service.ScanService
	logger *zap.Logger
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(scans service.ScanService, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		scans:  scans,
		logger: logger.Named("ScanHandler"),
	}
}

func scanOptionsFromQuery(c *gin.Context) service.ScanOptions {
	return service.ScanOptions{
		IncludeMisses: c.Query("inspect") == "true",
		NoFallback:    c.Query("no_fallback") == "true",
	}
}

// ScanHandlerFunc answers with the full scan report for one protocol.
func (h *ScanHandler) ScanHandlerFunc(protocolID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.scans.Scan(c.Request.Context(), protocolID, scanOptionsFromQuery(c))
		if err != nil {
			h.respondScanError(c, protocolID, err)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// PooledHandlerFunc answers with the locked-total summary for one
// protocol. A scan that finds no entries is a 404: the coin is simply not
// there, which the original consumers treat as an absence, not an error.
func (h *ScanHandler) PooledHandlerFunc(protocolID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := h.scans.Scan(c.Request.Context(), protocolID, scanOptionsFromQuery(c))
		if err != nil {
			h.respondScanError(c, protocolID, err)
			return
		}
		if report.EntriesFound == 0 {
			c.JSON(http.StatusNotFound, APIError{Error: "coin not found in protocol containers"})
			return
		}
		c.JSON(http.StatusOK, PooledResponse{
			CoinType:         report.CoinType,
			Protocol:         report.Protocol,
			EntriesFound:     report.EntriesFound,
			LockedTotalRaw:   report.LockedTotalRaw.String(),
			LockedTotalHuman: report.LockedTotalHuman,
			TvlUsdEstimate:   report.TvlUsdEstimate,
		})
	}
}

// ProtocolsHandlerFunc lists the configured protocol ids.
func (h *ScanHandler) ProtocolsHandlerFunc(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"protocols": h.scans.Protocols()})
}

func (h *ScanHandler) respondScanError(c *gin.Context, protocolID string, err error) {
	h.logger.Error("Scan request failed", zap.String("protocol", protocolID), zap.Error(err))
	var rpcErr *client.RPCError
	if errors.As(err, &rpcErr) {
		c.JSON(http.StatusBadGateway, APIError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, APIError{Error: err.Error()})
}

// CoinHandler serves the coin metadata/supply endpoint.
type CoinHandler struct {
	coins  service.CoinService
	logger *zap.Logger
}

// NewCoinHandler creates a new CoinHandler.
func NewCoinHandler(coins service.CoinService, logger *zap.Logger) *CoinHandler {
	return &CoinHandler{
		coins:  coins,
		logger: logger.Named("CoinHandler"),
	}
}

// ReportHandlerFunc answers with metadata, total supply, and the optional
// owner balance of the target coin.
func (h *CoinHandler) ReportHandlerFunc(c *gin.Context) {
	opts := service.CoinOptions{
		Owner:      c.Query("owner"),
		NoFallback: c.Query("no_fallback") == "true",
	}
	report, err := h.coins.Report(c.Request.Context(), opts)
	if err != nil {
		h.logger.Error("Coin report request failed", zap.Error(err))
		var rpcErr *client.RPCError
		if errors.As(err, &rpcErr) {
			c.JSON(http.StatusBadGateway, APIError{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, APIError{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}
