package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/GhostQS/alphalend-supply/internal/client"
	"github.com/GhostQS/alphalend-supply/internal/config"
	"github.com/GhostQS/alphalend-supply/internal/pkg/metrics"
	"github.com/GhostQS/alphalend-supply/internal/service"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML configuration file")
	protocol := flag.String("protocol", "alphalend", "protocol to scan")
	rpcEndpoint := flag.String("rpc", "", "override the Sui RPC endpoint")
	owner := flag.String("owner", "", "include this address's coin balance (implies -coin)")
	coinReport := flag.Bool("coin", false, "print the coin metadata/supply report instead of a protocol scan")
	inspect := flag.Bool("inspect", false, "record non-matching container entries in the report")
	noFallback := flag.Bool("no-fallback", false, "skip the external price/supply sources")
	pretty := flag.Bool("pretty", false, "indent the JSON output")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	if *rpcEndpoint != "" {
		cfg.Sui.Endpoint = *rpcEndpoint
	}

	metrics.MustRegisterMetrics()

	suiClient := client.NewSuiClient(
		cfg.Sui.Endpoint,
		time.Duration(cfg.Sui.RequestTimeoutMillis)*time.Millisecond,
		cfg.Sui.RateLimit,
		cfg.Sui.BurstLimit,
		logger,
	)
	blockberryClient := client.NewBlockberryClient(
		cfg.Blockberry.BaseURL,
		cfg.Blockberry.ApiKey,
		time.Duration(cfg.Blockberry.RequestTimeoutMillis)*time.Millisecond,
		logger,
	)
	coinGeckoClient := client.NewCoinGeckoClient(
		cfg.CoinGecko.BaseURL,
		cfg.CoinGecko.ApiKey,
		time.Duration(cfg.CoinGecko.RequestTimeoutMillis)*time.Millisecond,
		logger,
	)
	priceService := service.NewPriceService(
		service.DefaultPriceSources(cfg, blockberryClient, coinGeckoClient),
		cfg.Fallback.Retries,
		cfg.Fallback.BackoffCapSeconds,
		0, // one-shot run, nothing to cache
		logger,
	)

	ctx := context.Background()
	var result interface{}

	if *coinReport || *owner != "" {
		coinService := service.NewCoinService(cfg, suiClient, priceService, logger)
		result, err = coinService.Report(ctx, service.CoinOptions{
			Owner:      *owner,
			NoFallback: *noFallback,
		})
	} else {
		scanService := service.NewScanService(cfg, suiClient, priceService, 0, logger)
		result, err = scanService.Scan(ctx, *protocol, service.ScanOptions{
			IncludeMisses: *inspect,
			NoFallback:    *noFallback,
		})
	}
	if err != nil {
		logger.Fatal("Run failed", zap.Error(err))
	}

	var out []byte
	if *pretty {
		out, err = json.MarshalIndent(result, "", "  ")
	} else {
		out, err = json.Marshal(result)
	}
	if err != nil {
		logger.Fatal("Failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))
}
