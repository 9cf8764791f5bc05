package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Admin    AdminConfig    `yaml:"admin"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig NATS message server configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`
	ReconnectWait int    `yaml:"reconnect_wait"`
	MaxReconnects int    `yaml:"max_reconnects"`
	StreamName    string `yaml:"stream_name"`
}

// BridgeConfig bridge and reserve ledger bootstrap configuration
type BridgeConfig struct {
	ReserveAsset  string `yaml:"reserve_asset"`   // BTC or ZEC
	MaxMintPerTx  uint64 `yaml:"max_mint_per_tx"` // per-transaction mint cap
	BootstrapBTC  uint64 `yaml:"bootstrap_btc"`   // initial BTC reserve (satoshis)
	BootstrapZEC  uint64 `yaml:"bootstrap_zec"`   // initial ZEC reserve
	RelayerLanes  uint64 `yaml:"relayer_lanes"`   // lanes for relayer lottery
	OwnerKeyHex   string `yaml:"owner_key"`       // default owner sealing key (hex, 32 bytes)
	RelayerKeyHex string `yaml:"relayer_key"`     // relayer capability key
	ComplianceKey string `yaml:"compliance_key"`  // compliance officer capability key
}

// AdminConfig admin API access control configuration
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// AppConfig global configuration instance
var AppConfig *Config

// LoadConfig loads the YAML configuration file and applies environment
// variable overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	AppConfig = cfg
	log.Printf("Configuration loaded from %s", path)
	return cfg, nil
}

// applyEnvOverrides applies environment variables, which take priority over
// file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("ADMIN_JWT_SECRET"); v != "" {
		cfg.Admin.JWTSecret = v
	}
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.NATS.StreamName == "" {
		c.NATS.StreamName = "BRIDGE_EVENTS"
	}
	if c.Bridge.ReserveAsset == "" {
		c.Bridge.ReserveAsset = "BTC"
	}
	if c.Bridge.ReserveAsset != "BTC" && c.Bridge.ReserveAsset != "ZEC" {
		return fmt.Errorf("bridge.reserve_asset must be BTC or ZEC, got %s", c.Bridge.ReserveAsset)
	}
	if c.Bridge.MaxMintPerTx == 0 {
		return fmt.Errorf("bridge.max_mint_per_tx is required")
	}
	if c.Bridge.RelayerLanes == 0 {
		c.Bridge.RelayerLanes = 8
	}
	return nil
}
