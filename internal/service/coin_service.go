package service

import (
	"context"
	"fmt"

	"github.com/GhostQS/alphalend-supply/internal/client"
	"github.com/GhostQS/alphalend-supply/internal/config"
	"github.com/GhostQS/alphalend-supply/internal/domain/entity"
	"github.com/GhostQS/alphalend-supply/internal/pkg/utils"

	"go.uber.org/zap"
)

// CoinOptions tune a single coin report.
type CoinOptions struct {
	// Owner, when set, adds that address's balance of the target coin.
	Owner string
	// NoFallback skips the external supply chain when the node cannot
	// answer the total-supply query.
	NoFallback bool
}

// CoinService assembles metadata, supply, and optional owner balance for
// the target coin.
type CoinService interface {
	Report(ctx context.Context, opts CoinOptions) (*entity.CoinReport, error)
}

// coinServiceImpl is the implementation of CoinService.
type coinServiceImpl struct {
	cfg    *config.Config
	rpc    client.SuiClient
	prices PriceService
	logger *zap.Logger
}

// NewCoinService creates a CoinService.
func NewCoinService(cfg *config.Config, rpc client.SuiClient, prices PriceService, logger *zap.Logger) CoinService {
	return &coinServiceImpl{
		cfg:    cfg,
		rpc:    rpc,
		prices: prices,
		logger: logger.Named("CoinService"),
	}
}

// Report builds the coin report. Missing metadata is fatal; a failed
// total-supply query degrades to an unavailable section, optionally
// backed by the external source chain.
func (s *coinServiceImpl) Report(ctx context.Context, opts CoinOptions) (*entity.CoinReport, error) {
	coinType := s.cfg.Coin.Type

	metadata, err := s.rpc.GetCoinMetadata(ctx, coinType)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch coin metadata for %s: %w", coinType, err)
	}

	report := &entity.CoinReport{
		CoinType: coinType,
		Metadata: metadata,
	}

	supply, err := s.rpc.GetTotalSupply(ctx, coinType)
	if err != nil {
		s.logger.Warn("On-chain total supply unavailable", zap.String("coinType", coinType), zap.Error(err))
		report.TotalSupply = entity.SupplySection{
			Status: entity.StatusUnavailable,
			Error:  err.Error(),
		}
		if !opts.NoFallback {
			report.SupplyFallback = s.prices.Snapshot(ctx)
		}
	} else {
		report.TotalSupply = entity.SupplySection{
			Raw:    supply.String(),
			Human:  utils.HumanizeAmount(supply, int(metadata.Decimals)),
			Status: entity.StatusOK,
		}
	}

	if opts.Owner != "" {
		balance, err := s.rpc.GetBalance(ctx, opts.Owner, coinType)
		if err != nil {
			s.logger.Warn("Owner balance query failed",
				zap.String("owner", opts.Owner),
				zap.Error(err))
			report.OwnerBalanceError = err.Error()
		} else {
			report.OwnerBalance = &entity.BalanceSection{
				Owner: opts.Owner,
				Raw:   balance.String(),
				Human: utils.HumanizeAmount(balance, int(metadata.Decimals)),
			}
		}
	}

	return report, nil
}
