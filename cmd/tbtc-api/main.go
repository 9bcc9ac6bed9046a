package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GhostQS/alphalend-supply/internal/client"
	"github.com/GhostQS/alphalend-supply/internal/config"
	"github.com/GhostQS/alphalend-supply/internal/infrastructure/restapi"
	"github.com/GhostQS/alphalend-supply/internal/pkg/metrics"
	"github.com/GhostQS/alphalend-supply/internal/service"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(logrus.InfoLevel)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize zap logger: %v", err)
	}
	defer zapLogger.Sync()

	cfgPath := getEnv("CONFIG_PATH", "config/config.yaml")
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Warnf("Invalid log level in config: %s. Defaulting to Info.", cfg.Logging.Level)
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	zapLogger.Info("Configuration loaded",
		zap.String("path", cfgPath),
		zap.String("coinType", cfg.Coin.Type),
		zap.Int("protocols", len(cfg.Protocols)))

	metrics.MustRegisterMetrics()

	suiClient := client.NewSuiClient(
		cfg.Sui.Endpoint,
		time.Duration(cfg.Sui.RequestTimeoutMillis)*time.Millisecond,
		cfg.Sui.RateLimit,
		cfg.Sui.BurstLimit,
		zapLogger,
	)
	zapLogger.Info("Sui RPC client initialized", zap.String("endpoint", cfg.Sui.Endpoint))

	blockberryClient := client.NewBlockberryClient(
		cfg.Blockberry.BaseURL,
		cfg.Blockberry.ApiKey,
		time.Duration(cfg.Blockberry.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
	)
	coinGeckoClient := client.NewCoinGeckoClient(
		cfg.CoinGecko.BaseURL,
		cfg.CoinGecko.ApiKey,
		time.Duration(cfg.CoinGecko.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
	)
	zapLogger.Info("External price/supply clients initialized")

	priceService := service.NewPriceService(
		service.DefaultPriceSources(cfg, blockberryClient, coinGeckoClient),
		cfg.Fallback.Retries,
		cfg.Fallback.BackoffCapSeconds,
		time.Duration(cfg.Cache.SnapshotTTLSeconds)*time.Second,
		zapLogger,
	)
	scanService := service.NewScanService(
		cfg,
		suiClient,
		priceService,
		time.Duration(cfg.Cache.ReportTTLSeconds)*time.Second,
		zapLogger,
	)
	coinService := service.NewCoinService(cfg, suiClient, priceService, zapLogger)
	zapLogger.Info("Services initialized")

	router := restapi.SetupRouter(
		restapi.NewScanHandler(scanService, zapLogger),
		restapi.NewCoinHandler(coinService, zapLogger),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info(fmt.Sprintf("Server starting on port %s", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zapLogger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exiting")
}
