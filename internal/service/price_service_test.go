package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/GhostQS/alphalend-supply/internal/client"
	"github.com/GhostQS/alphalend-supply/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func newTestPriceService(t *testing.T, sources []SourceSpec, retries int) (*priceServiceImpl, *[]time.Duration) {
	t.Helper()
	svc, ok := NewPriceService(sources, retries, 3, 0, zap.NewNop()).(*priceServiceImpl)
	require.True(t, ok)
	var slept []time.Duration
	svc.sleep = func(d time.Duration) { slept = append(slept, d) }
	return svc, &slept
}

func TestSnapshotEarlierSourceWinsPerField(t *testing.T) {
	sources := []SourceSpec{
		{Name: "primary", Fetch: func(context.Context) (*entity.PriceSupplyQuote, error) {
			return &entity.PriceSupplyQuote{PriceUsd: decimalPtr("103000.5")}, nil
		}},
		{Name: "secondary", Fetch: func(context.Context) (*entity.PriceSupplyQuote, error) {
			return &entity.PriceSupplyQuote{
				PriceUsd:          decimalPtr("99000"),
				CirculatingSupply: decimalPtr("5000"),
				TotalSupply:       decimalPtr("6000"),
			}, nil
		}},
	}
	svc, _ := newTestPriceService(t, sources, 0)

	snapshot := svc.Snapshot(context.Background())

	assert.Equal(t, entity.StatusOK, snapshot.Status)
	assert.Equal(t, "primary", snapshot.Source)
	assert.Equal(t, "103000.5", snapshot.PriceUsd.String())
	assert.Equal(t, "5000", snapshot.CirculatingSupply.String())
	assert.Equal(t, "6000", snapshot.TotalSupply.String())
}

func TestSnapshotStopsOnceEveryFieldIsFilled(t *testing.T) {
	var thirdCalled bool
	sources := []SourceSpec{
		{Name: "first", Fetch: func(context.Context) (*entity.PriceSupplyQuote, error) {
			return &entity.PriceSupplyQuote{
				PriceUsd:          decimalPtr("1"),
				CirculatingSupply: decimalPtr("2"),
				TotalSupply:       decimalPtr("3"),
			}, nil
		}},
		{Name: "never", Fetch: func(context.Context) (*entity.PriceSupplyQuote, error) {
			thirdCalled = true
			return nil, errors.New("should not be consulted")
		}},
	}
	svc, _ := newTestPriceService(t, sources, 0)

	snapshot := svc.Snapshot(context.Background())

	assert.True(t, snapshot.Complete())
	assert.False(t, thirdCalled)
}

func TestSnapshotRetriesWithBoundedBackoff(t *testing.T) {
	var attempts int
	sources := []SourceSpec{
		{Name: "flaky", Fetch: func(context.Context) (*entity.PriceSupplyQuote, error) {
			attempts++
			if attempts < 4 {
				return nil, fmt.Errorf("transient failure %d", attempts)
			}
			return &entity.PriceSupplyQuote{PriceUsd: decimalPtr("5")}, nil
		}},
	}
	svc, slept := newTestPriceService(t, sources, 3)

	snapshot := svc.Snapshot(context.Background())

	assert.Equal(t, entity.StatusOK, snapshot.Status)
	assert.Equal(t, 4, attempts)
	// Backoff doubles per attempt and is capped at 3s.
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second, 3 * time.Second}, *slept)
}

func TestSnapshotGivesUpAfterRetryBudget(t *testing.T) {
	var attempts int
	sources := []SourceSpec{
		{Name: "down", Fetch: func(context.Context) (*entity.PriceSupplyQuote, error) {
			attempts++
			return nil, errors.New("service down")
		}},
	}
	svc, _ := newTestPriceService(t, sources, 2)

	snapshot := svc.Snapshot(context.Background())

	assert.Equal(t, 3, attempts)
	assert.Equal(t, entity.StatusUnavailable, snapshot.Status)
	assert.Contains(t, snapshot.Error, "service down")
	assert.Nil(t, snapshot.PriceUsd)
}

func TestSnapshotSkipsSourceWithoutCredential(t *testing.T) {
	var keyedAttempts int
	sources := []SourceSpec{
		{Name: "keyed", Fetch: func(context.Context) (*entity.PriceSupplyQuote, error) {
			keyedAttempts++
			return nil, fmt.Errorf("keyed: %w", client.ErrMissingAPIKey)
		}},
		{Name: "open", Fetch: func(context.Context) (*entity.PriceSupplyQuote, error) {
			return &entity.PriceSupplyQuote{PriceUsd: decimalPtr("10")}, nil
		}},
	}
	svc, slept := newTestPriceService(t, sources, 5)

	snapshot := svc.Snapshot(context.Background())

	// Missing credentials cannot heal between attempts, so one try is enough.
	assert.Equal(t, 1, keyedAttempts)
	assert.Empty(t, *slept)
	assert.Equal(t, entity.StatusOK, snapshot.Status)
	assert.Equal(t, "open", snapshot.Source)
}

func TestSnapshotIgnoresEmptyQuotes(t *testing.T) {
	sources := []SourceSpec{
		{Name: "hollow", Fetch: func(context.Context) (*entity.PriceSupplyQuote, error) {
			return &entity.PriceSupplyQuote{}, nil
		}},
		{Name: "real", Fetch: func(context.Context) (*entity.PriceSupplyQuote, error) {
			return &entity.PriceSupplyQuote{PriceUsd: decimalPtr("10")}, nil
		}},
	}
	svc, _ := newTestPriceService(t, sources, 0)

	snapshot := svc.Snapshot(context.Background())

	assert.Equal(t, "real", snapshot.Source)
}

func TestSnapshotCachesCompleteResults(t *testing.T) {
	var calls int
	sources := []SourceSpec{
		{Name: "counted", Fetch: func(context.Context) (*entity.PriceSupplyQuote, error) {
			calls++
			return &entity.PriceSupplyQuote{
				PriceUsd:          decimalPtr("1"),
				CirculatingSupply: decimalPtr("2"),
				TotalSupply:       decimalPtr("3"),
			}, nil
		}},
	}
	svc, ok := NewPriceService(sources, 0, 3, time.Minute, zap.NewNop()).(*priceServiceImpl)
	require.True(t, ok)

	first := svc.Snapshot(context.Background())
	second := svc.Snapshot(context.Background())

	assert.Equal(t, 1, calls)
	assert.Same(t, first, second)
}
