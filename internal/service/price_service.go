package service

import (
	"context"
	"errors"
	"time"

	"github.com/GhostQS/alphalend-supply/internal/client"
	"github.com/GhostQS/alphalend-supply/internal/config"
	"github.com/GhostQS/alphalend-supply/internal/domain/entity"
	"github.com/GhostQS/alphalend-supply/internal/pkg/metrics"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const snapshotCacheKey = "price_supply_snapshot"

// SourceSpec is one external price/supply provider: a fetch callable with
// an identity tag, consulted in precedence order.
type SourceSpec struct {
	Name  string
	Fetch func(ctx context.Context) (*entity.PriceSupplyQuote, error)
}

// PriceService aggregates price/supply context from a precedence-ordered
// chain of external sources. Its result is optional enrichment: it never
// fails the caller, it degrades to a snapshot with status "unavailable".
type PriceService interface {
	Snapshot(ctx context.Context) *entity.PriceSupplySnapshot
}

// priceServiceImpl is the implementation of PriceService.
type priceServiceImpl struct {
	logger     *zap.Logger
	sources    []SourceSpec
	retries    int
	backoffCap time.Duration
	snapshots  *cache.Cache
	cacheTTL   time.Duration
	sleep      func(time.Duration)
}

// NewPriceService creates a PriceService over the given source chain.
// retries is the number of retries per source (each source is attempted
// retries+1 times); cacheTTL of zero disables snapshot caching.
func NewPriceService(sources []SourceSpec, retries, backoffCapSeconds int, cacheTTL time.Duration, logger *zap.Logger) PriceService {
	return &priceServiceImpl{
		logger:     logger.Named("PriceService"),
		sources:    sources,
		retries:    retries,
		backoffCap: time.Duration(backoffCapSeconds) * time.Second,
		snapshots:  cache.New(cacheTTL, 10*time.Minute),
		cacheTTL:   cacheTTL,
		sleep:      time.Sleep,
	}
}

// DefaultPriceSources builds the standard fallback chain: Blockberry
// first, then the CoinGecko endpoints from richest to coarsest.
func DefaultPriceSources(cfg *config.Config, blockberry client.BlockberryClient, coingecko client.CoinGeckoClient) []SourceSpec {
	coinType := cfg.Coin.Type
	coinID := cfg.Coin.CoinGeckoID
	return []SourceSpec{
		{Name: "blockberry", Fetch: func(ctx context.Context) (*entity.PriceSupplyQuote, error) {
			return blockberry.GetCoin(ctx, coinType)
		}},
		{Name: "coingecko", Fetch: func(ctx context.Context) (*entity.PriceSupplyQuote, error) {
			return coingecko.GetCoin(ctx, coinID)
		}},
		{Name: "coingecko_markets", Fetch: func(ctx context.Context) (*entity.PriceSupplyQuote, error) {
			return coingecko.GetMarkets(ctx, coinID)
		}},
		{Name: "coingecko_simple", Fetch: func(ctx context.Context) (*entity.PriceSupplyQuote, error) {
			return coingecko.GetSimplePrice(ctx, coinID)
		}},
	}
}

// Snapshot returns the merged price/supply snapshot, serving a cached copy
// when one is fresh enough.
func (s *priceServiceImpl) Snapshot(ctx context.Context) *entity.PriceSupplySnapshot {
	if s.cacheTTL > 0 {
		if cached, found := s.snapshots.Get(snapshotCacheKey); found {
			if snapshot, ok := cached.(*entity.PriceSupplySnapshot); ok {
				return snapshot
			}
		}
	}

	snapshot := s.aggregate(ctx)

	if s.cacheTTL > 0 && snapshot.Status == entity.StatusOK {
		s.snapshots.Set(snapshotCacheKey, snapshot, cache.DefaultExpiration)
	}
	return snapshot
}

// aggregate walks the precedence chain. Fields already filled by an
// earlier source are never overwritten; later sources only fill gaps. The
// chain stops early once every field is filled.
func (s *priceServiceImpl) aggregate(ctx context.Context) *entity.PriceSupplySnapshot {
	snapshot := &entity.PriceSupplySnapshot{Status: entity.StatusUnavailable}
	var lastErr error

	for _, source := range s.sources {
		quote, err := s.attempt(ctx, source)
		if err != nil {
			lastErr = err
			continue
		}
		if quote.Empty() {
			continue
		}

		if snapshot.PriceUsd == nil && quote.PriceUsd != nil {
			snapshot.PriceUsd = quote.PriceUsd
		}
		if snapshot.CirculatingSupply == nil && quote.CirculatingSupply != nil {
			snapshot.CirculatingSupply = quote.CirculatingSupply
		}
		if snapshot.TotalSupply == nil && quote.TotalSupply != nil {
			snapshot.TotalSupply = quote.TotalSupply
		}
		if snapshot.Source == "" {
			snapshot.Source = source.Name
		}
		if snapshot.Complete() {
			break
		}
	}

	if snapshot.PriceUsd != nil || snapshot.CirculatingSupply != nil || snapshot.TotalSupply != nil {
		snapshot.Status = entity.StatusOK
	} else {
		if snapshot.Source == "" {
			snapshot.Source = "external"
		}
		if lastErr != nil {
			snapshot.Error = lastErr.Error()
		}
		s.logger.Warn("Every external price/supply source failed", zap.Error(lastErr))
	}
	return snapshot
}

// attempt exercises a single source with bounded retry: retries+1 tries,
// sleeping min(2^attempt, cap) between them. A missing credential skips
// the source immediately; unlike a transient fetch failure it cannot
// change between attempts.
func (s *priceServiceImpl) attempt(ctx context.Context, source SourceSpec) (*entity.PriceSupplyQuote, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		quote, err := source.Fetch(ctx)
		if err == nil {
			metrics.PriceSourceAttempts.WithLabelValues(source.Name, "ok").Inc()
			return quote, nil
		}
		lastErr = err

		if errors.Is(err, client.ErrMissingAPIKey) {
			metrics.PriceSourceAttempts.WithLabelValues(source.Name, "no_credential").Inc()
			s.logger.Debug("Skipping source without credential", zap.String("source", source.Name))
			return nil, err
		}

		metrics.PriceSourceAttempts.WithLabelValues(source.Name, "error").Inc()
		s.logger.Warn("Price source attempt failed",
			zap.String("source", source.Name),
			zap.Int("attempt", attempt+1),
			zap.Int("maxAttempts", s.retries+1),
			zap.Error(err))

		if attempt < s.retries {
			s.sleep(s.backoff(attempt))
		}
	}
	return nil, lastErr
}

func (s *priceServiceImpl) backoff(attempt int) time.Duration {
	d := time.Second
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= s.backoffCap {
			return s.backoffCap
		}
	}
	if d > s.backoffCap {
		return s.backoffCap
	}
	return d
}
