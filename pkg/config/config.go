// Package config loads the bridge coordinator's configuration from a
// YAML file, environment variable overrides (§6's PG_/BRIDGE_ prefixes),
// and struct-tag defaults, then validates the result.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the coordinator's full configuration tree.
type Config struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Database DatabaseConfig `yaml:"database"`
	Bridge   BridgeConfig   `yaml:"bridge"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GatewayConfig configures the HTTP API surface (§4.8).
type GatewayConfig struct {
	Addr            string        `yaml:"addr" default:"0.0.0.0:8080" validate:"required"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
}

// DatabaseConfig configures the Postgres connection, loaded from
// PG_-prefixed environment variables per §6.
type DatabaseConfig struct {
	Host     string `yaml:"host" default:"localhost" validate:"required"`
	Port     uint16 `yaml:"port" default:"5432"`
	User     string `yaml:"user" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"database" validate:"required"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

// BridgeConfig configures the coordinator's contest window and
// connector set (§4.6, §4.7).
type BridgeConfig struct {
	TxPendingTime time.Duration `yaml:"tx_pending_time" default:"10s"`
	Connectors    []string      `yaml:"connectors"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json"`
	OutputPath string `yaml:"output_path" default:"stdout"`
}

// Load reads configPath, applies struct-tag defaults, overrides with
// environment variables, and validates the result.
func Load(configPath string) (*Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("failed to set config defaults: %w", err)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	overrideEnv(&cfg)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func overrideEnv(cfg *Config) {
	if v := os.Getenv("BRIDGE_GATEWAY_ADDR"); v != "" {
		cfg.Gateway.Addr = v
	}
	if v := os.Getenv("BRIDGE_TX_PENDING_TIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Bridge.TxPendingTime = d
		}
	}

	if v := os.Getenv("PG_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("PG_PORT"); v != "" {
		if port, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.Database.Port = uint16(port)
		}
	}
	if v := os.Getenv("PG_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("PG_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("PG_DATABASE"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("PG_SSL_MODE"); v != "" {
		cfg.Database.SSLMode = v
	}

	if v := os.Getenv("BRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BRIDGE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
