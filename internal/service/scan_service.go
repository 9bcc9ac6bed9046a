package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/GhostQS/alphalend-supply/internal/client"
	"github.com/GhostQS/alphalend-supply/internal/config"
	"github.com/GhostQS/alphalend-supply/internal/domain/entity"
	"github.com/GhostQS/alphalend-supply/internal/pkg/metrics"
	"github.com/GhostQS/alphalend-supply/internal/pkg/utils"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ScanOptions tune a single protocol scan.
type ScanOptions struct {
	// IncludeMisses records every non-matching container entry in the
	// report's inspections section.
	IncludeMisses bool
	// NoFallback skips the external price/supply chain entirely.
	NoFallback bool
}

// ScanService locates the target coin inside a protocol's on-chain
// containers and assembles the locked-amount report.
type ScanService interface {
	Scan(ctx context.Context, protocolID string, opts ScanOptions) (*entity.ScanReport, error)
	Protocols() []string
}

// scanServiceImpl is the implementation of ScanService.
type scanServiceImpl struct {
	cfg       *config.Config
	walker    *ContainerWalker
	prices    PriceService
	logger    *zap.Logger
	reports   *cache.Cache
	reportTTL time.Duration
	scanGroup singleflight.Group
}

// NewScanService creates a ScanService. reportTTL of zero disables report
// caching; concurrent scans of the same protocol are collapsed either way.
func NewScanService(cfg *config.Config, rpc client.SuiClient, prices PriceService, reportTTL time.Duration, logger *zap.Logger) ScanService {
	return &scanServiceImpl{
		cfg:       cfg,
		walker:    NewContainerWalker(rpc, cfg.Sui.PageSize, logger),
		prices:    prices,
		logger:    logger.Named("ScanService"),
		reports:   cache.New(reportTTL, 10*time.Minute),
		reportTTL: reportTTL,
	}
}

// Protocols lists the configured protocol ids.
func (s *scanServiceImpl) Protocols() []string {
	ids := make([]string, 0, len(s.cfg.Protocols))
	for _, p := range s.cfg.Protocols {
		ids = append(ids, p.ID)
	}
	return ids
}

// Scan runs one full scan for the given protocol. Identical concurrent
// requests share a single underlying scan.
func (s *scanServiceImpl) Scan(ctx context.Context, protocolID string, opts ScanOptions) (*entity.ScanReport, error) {
	spec, ok := s.cfg.Protocol(protocolID)
	if !ok {
		return nil, fmt.Errorf("unknown protocol %q", protocolID)
	}

	key := fmt.Sprintf("scan:%s:misses=%t:nofallback=%t", protocolID, opts.IncludeMisses, opts.NoFallback)
	if s.reportTTL > 0 {
		if cached, found := s.reports.Get(key); found {
			if report, ok := cached.(*entity.ScanReport); ok {
				return report, nil
			}
		}
	}

	result, err, _ := s.scanGroup.Do(key, func() (interface{}, error) {
		report, err := s.scan(ctx, spec, opts)
		if err != nil {
			return nil, err
		}
		if s.reportTTL > 0 {
			s.reports.Set(key, report, cache.DefaultExpiration)
		}
		return report, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*entity.ScanReport), nil
}

func (s *scanServiceImpl) scan(ctx context.Context, spec config.ProtocolSpec, opts ScanOptions) (*entity.ScanReport, error) {
	start := time.Now()
	coinType := s.cfg.Coin.Type
	candidates := NewCandidateSet(spec.CandidateFields)

	report := &entity.ScanReport{
		CoinType:          coinType,
		Protocol:          spec.ID,
		ContainersScanned: spec.Containers,
		Entries:           []entity.ScannedEntry{},
		LockedTotalRaw:    big.NewInt(0),
	}

	total := big.NewInt(0)
	for _, containerID := range spec.Containers {
		entries, err := s.walker.Enumerate(ctx, containerID)
		if err != nil {
			return nil, fmt.Errorf("failed to enumerate container %s: %w", containerID, err)
		}

		for _, entry := range entries {
			match := FindTypeMarker(entry.Content, coinType)
			if match == nil {
				metrics.ScanEntries.WithLabelValues(spec.ID, "miss").Inc()
				if opts.IncludeMisses {
					report.Inspections = append(report.Inspections, entity.InspectedEntry{
						ContainerID: entry.ContainerID,
						FieldName:   entry.FieldName,
						ObjectID:    entry.ObjectID,
						ObjectType:  entry.ObjectType,
					})
				}
				continue
			}
			metrics.ScanEntries.WithLabelValues(spec.ID, "match").Inc()

			// Amounts live on the entry itself, not necessarily inside
			// the subtree that carried the identity marker.
			amounts := HarvestAmounts(entry.Content, candidates)
			pickedField, pickedValue := pickPreferred(amounts, spec.PreferredFields)
			if pickedValue != nil {
				total.Add(total, pickedValue)
			} else {
				s.logger.Warn("Matched entry without a preferred amount field",
					zap.String("protocol", spec.ID),
					zap.String("objectId", entry.ObjectID))
			}

			report.Entries = append(report.Entries, entity.ScannedEntry{
				ContainerID:    entry.ContainerID,
				FieldName:      entry.FieldName,
				ObjectID:       entry.ObjectID,
				ObjectType:     entry.ObjectType,
				CoinType:       match.CoinType,
				Amounts:        amounts,
				PickedField:    pickedField,
				PickedValueRaw: pickedValue,
			})
		}
	}

	report.EntriesFound = len(report.Entries)
	report.LockedTotalRaw = total
	report.LockedTotalHuman = utils.HumanizeAmount(total, s.cfg.Coin.Decimals)

	if !opts.NoFallback {
		snapshot := s.prices.Snapshot(ctx)
		report.Fallback = snapshot
		report.TvlUsdEstimate = utils.UsdValue(total, s.cfg.Coin.Decimals, snapshot.PriceUsd)
	}

	s.logger.Info("Protocol scan finished",
		zap.String("protocol", spec.ID),
		zap.Int("containers", len(spec.Containers)),
		zap.Int("entriesFound", report.EntriesFound),
		zap.String("lockedTotal", report.LockedTotalHuman),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

// pickPreferred selects the entry's contribution to the locked total: the
// first preferred field name that the harvest actually produced.
func pickPreferred(amounts map[string]*big.Int, preferred []string) (string, *big.Int) {
	for _, name := range preferred {
		if value, ok := amounts[name]; ok {
			return name, value
		}
	}
	return "", nil
}
