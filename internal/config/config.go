package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Sui        SuiConfig        `yaml:"sui"`
	Coin       CoinConfig       `yaml:"coin"`
	Blockberry BlockberryConfig `yaml:"blockberry"`
	CoinGecko  CoinGeckoConfig  `yaml:"coinGecko"`
	Fallback   FallbackConfig   `yaml:"fallback"`
	Cache      CacheConfig      `yaml:"cache"`
	Protocols  []ProtocolSpec   `yaml:"protocols"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
}

// SuiConfig holds the configuration for the Sui JSON-RPC client.
type SuiConfig struct {
	Endpoint             string `yaml:"endpoint"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
	PageSize             int    `yaml:"pageSize"`
	RateLimit            int    `yaml:"rateLimit"`
	BurstLimit           int    `yaml:"burstLimit"`
}

// CoinConfig identifies the target coin being located.
type CoinConfig struct {
	Type        string `yaml:"type"`
	Decimals    int    `yaml:"decimals"`
	CoinGeckoID string `yaml:"coinGeckoId"`
}

// BlockberryConfig holds the configuration for the Blockberry client.
type BlockberryConfig struct {
	BaseURL              string `yaml:"baseURL"`
	ApiKey               string `yaml:"apiKey"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// CoinGeckoConfig holds the configuration for the CoinGecko client.
type CoinGeckoConfig struct {
	BaseURL              string `yaml:"baseURL"`
	ApiKey               string `yaml:"apiKey"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// FallbackConfig bounds the retry behavior of the external source chain.
type FallbackConfig struct {
	Retries           int `yaml:"retries"`
	BackoffCapSeconds int `yaml:"backoffCapSeconds"`
}

// CacheConfig holds TTLs for derived-result caching. A TTL of 0 disables
// the corresponding cache.
type CacheConfig struct {
	ReportTTLSeconds   int `yaml:"reportTTLSeconds"`
	SnapshotTTLSeconds int `yaml:"snapshotTTLSeconds"`
}

// ProtocolSpec declares one protocol integration: which containers to walk
// and which heuristic field names apply to its objects.
type ProtocolSpec struct {
	ID              string   `yaml:"id"`
	Containers      []string `yaml:"containers"`
	CandidateFields []string `yaml:"candidateFields"`
	PreferredFields []string `yaml:"preferredFields"`
}

// LoadConfig loads configuration from a YAML file and applies defaults and
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	if cfg.Coin.Type == "" {
		return nil, fmt.Errorf("coin.type must be set in %s", path)
	}
	for _, p := range cfg.Protocols {
		if p.ID == "" {
			return nil, fmt.Errorf("every protocols entry needs an id in %s", path)
		}
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

// Protocol returns the spec for the given protocol id, if configured.
func (c *Config) Protocol(id string) (ProtocolSpec, bool) {
	for _, p := range c.Protocols {
		if p.ID == id {
			return p, true
		}
	}
	return ProtocolSpec{}, false
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60
	}
	if c.Sui.Endpoint == "" {
		c.Sui.Endpoint = "https://fullnode.mainnet.sui.io:443"
		logrus.Infof("sui.endpoint not set, defaulting to %s", c.Sui.Endpoint)
	}
	if c.Sui.RequestTimeoutMillis == 0 {
		c.Sui.RequestTimeoutMillis = 30000
	}
	if c.Sui.PageSize == 0 {
		c.Sui.PageSize = 50
	}
	if c.Coin.Decimals == 0 {
		c.Coin.Decimals = 8
		logrus.Infof("coin.decimals not set, defaulting to %d", c.Coin.Decimals)
	}
	if c.Blockberry.BaseURL == "" {
		c.Blockberry.BaseURL = "https://api.blockberry.one"
	}
	if c.Blockberry.RequestTimeoutMillis == 0 {
		c.Blockberry.RequestTimeoutMillis = 15000
	}
	if c.CoinGecko.BaseURL == "" {
		c.CoinGecko.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if c.CoinGecko.RequestTimeoutMillis == 0 {
		c.CoinGecko.RequestTimeoutMillis = 30000
	}
	if c.Fallback.Retries == 0 {
		c.Fallback.Retries = 3
	}
	if c.Fallback.BackoffCapSeconds == 0 {
		c.Fallback.BackoffCapSeconds = 3
	}
	if c.Cache.ReportTTLSeconds == 0 {
		c.Cache.ReportTTLSeconds = 60
	}
	if c.Cache.SnapshotTTLSeconds == 0 {
		c.Cache.SnapshotTTLSeconds = 60
	}
}

// applyEnvOverrides keeps the original deployment contract: API keys and
// retry tuning come from the environment on cloud hosts.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("BLOCKBERRY_API_KEY"); v != "" {
		c.Blockberry.ApiKey = v
	} else if v := os.Getenv("BLOCKBERRY_TOKEN"); v != "" && c.Blockberry.ApiKey == "" {
		c.Blockberry.ApiKey = v
	}
	if v := os.Getenv("BLOCKBERRY_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			c.Blockberry.RequestTimeoutMillis = int64(secs) * 1000
		} else {
			logrus.Warnf("Ignoring invalid BLOCKBERRY_TIMEOUT_SECONDS value: %q", v)
		}
	}
	if v := os.Getenv("BLOCKBERRY_RETRIES"); v != "" {
		if retries, err := strconv.Atoi(v); err == nil && retries >= 0 {
			c.Fallback.Retries = retries
		} else {
			logrus.Warnf("Ignoring invalid BLOCKBERRY_RETRIES value: %q", v)
		}
	}
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.CoinGecko.ApiKey = v
	}
	if v := os.Getenv("ALPHAFI_PARENT_ID"); v != "" {
		for i := range c.Protocols {
			if c.Protocols[i].ID == "alphafi" {
				c.Protocols[i].Containers = append(c.Protocols[i].Containers, v)
			}
		}
	}
}
