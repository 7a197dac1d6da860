// Package config handles loading and validating configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// Config holds all configuration values for the curatewatch engine.
type Config struct {
	// Subgraph
	SubgraphURL  string
	PollInterval time.Duration
	PageSize     int

	// Blockchain RPC
	RPCURL    string
	RPCWSURL  string
	RPCAPIKey string

	// Registry
	RegistryAddress     string
	RegistriesFile      string
	ParamsRefreshBlocks int

	// Database
	DBPath string

	// Workers
	WorkerCount int

	// UI
	EnableTUI     bool
	UIRefreshRate time.Duration

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with fallback to .env file.
// Priority order: Environment variables > .env file > hardcoded defaults
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		// Subgraph
		SubgraphURL:  getEnv("SUBGRAPH_URL", "https://api.studio.thegraph.com/query/61738/legacy-curate-gnosis/version/latest"),
		PollInterval: time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 15)) * time.Second,
		PageSize:     getEnvInt("PAGE_SIZE", 100),

		// RPC
		RPCURL:    getEnv("RPC_URL", "https://rpc.gnosischain.com"),
		RPCWSURL:  getEnv("RPC_WS_URL", ""),
		RPCAPIKey: getEnv("RPC_API_KEY", ""),

		// Registry
		RegistryAddress:     getEnv("REGISTRY_ADDRESS", ""),
		RegistriesFile:      getEnv("REGISTRIES_FILE", ""),
		ParamsRefreshBlocks: getEnvInt("PARAMS_REFRESH_BLOCKS", 20),

		// Database
		DBPath: getEnv("DB_PATH", "./data/history.db"),

		// Workers
		WorkerCount: getEnvInt("WORKER_COUNT", 4),

		// UI
		EnableTUI:     getEnvBool("ENABLE_TUI", true),
		UIRefreshRate: time.Duration(getEnvInt("UI_REFRESH_MS", 500)) * time.Millisecond,

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
		LogFile:  getEnv("LOG_FILE", "./data/curatewatch.log"),
	}

	if cfg.RegistryAddress == "" && cfg.RegistriesFile != "" {
		registries, err := LoadRegistries(cfg.RegistriesFile)
		if err != nil {
			return nil, fmt.Errorf("load registries: %w", err)
		}
		if len(registries) > 0 {
			cfg.RegistryAddress = registries[0].Address
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and valid.
func (c *Config) Validate() error {
	if c.SubgraphURL == "" {
		return fmt.Errorf("SUBGRAPH_URL is required")
	}

	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}

	if c.RegistryAddress == "" {
		return fmt.Errorf("REGISTRY_ADDRESS is required (or a REGISTRIES_FILE with at least one entry)")
	}

	if !common.IsHexAddress(c.RegistryAddress) {
		return fmt.Errorf("REGISTRY_ADDRESS %q is not a valid address", c.RegistryAddress)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive")
	}

	if c.PageSize < 1 || c.PageSize > 1000 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 1000")
	}

	if c.WorkerCount < 1 {
		return fmt.Errorf("WORKER_COUNT must be at least 1")
	}

	if c.ParamsRefreshBlocks < 1 {
		return fmt.Errorf("PARAMS_REFRESH_BLOCKS must be at least 1")
	}

	return nil
}

// Registry returns the configured registry address in canonical form.
func (c *Config) Registry() common.Address {
	return common.HexToAddress(c.RegistryAddress)
}

// RPCEndpoint returns the HTTP RPC URL with the API key appended when the
// provider expects it in the path.
func (c *Config) RPCEndpoint() string {
	return withKey(c.RPCURL, c.RPCAPIKey)
}

// WSEndpoint returns the websocket RPC URL, or "" when heads are not streamed.
func (c *Config) WSEndpoint() string {
	if c.RPCWSURL == "" {
		return ""
	}
	return withKey(c.RPCWSURL, c.RPCAPIKey)
}

// MaskedRPCKey returns the API key with most characters hidden for logging.
func (c *Config) MaskedRPCKey() string {
	return maskSecret(c.RPCAPIKey)
}

func withKey(url, key string) string {
	if key == "" || !strings.HasSuffix(url, "/") {
		return url
	}
	return url + key
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
