// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/ethwns/database/plugin/metadata"
	"github.com/blinklabs-io/ethwns/namehash"
	"github.com/blinklabs-io/ethwns/registrar"
)

type ctxKey string

const configContextKey ctxKey = "ethwns.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultMetadataPlugin  = metadata.DefaultPlugin
	DefaultRootName        = "ethw"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     uint   `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslMode"  split_words:"true"`
	TimeZone string `yaml:"timeZone" split_words:"true"`
}

type NameLookupConfig struct {
	// RedisUrl enables the Redis lookup, e.g. redis://localhost:6379/0
	RedisUrl  string `yaml:"redisUrl"  split_words:"true"`
	NamesFile string `yaml:"namesFile" split_words:"true"`
	CacheSize int    `yaml:"cacheSize" split_words:"true"`
}

type RpcConfig struct {
	Url               string `yaml:"url"`
	RegistrarAddress  string `yaml:"registrarAddress"  split_words:"true"`
	ControllerAddress string `yaml:"controllerAddress" split_words:"true"`
	RegistryAddress   string `yaml:"registryAddress"   split_words:"true"`
	StartBlock        uint64 `yaml:"startBlock"        split_words:"true"`
	BatchSize         uint64 `yaml:"batchSize"         split_words:"true"`
	PollInterval      string `yaml:"pollInterval"      split_words:"true"`
	Confirmations     uint64 `yaml:"confirmations"`
}

type Config struct {
	DatabasePath    string             `yaml:"databasePath"    split_words:"true"`
	MetadataPlugin  string             `yaml:"metadataPlugin"  split_words:"true"`
	Postgres        PostgresConfig     `yaml:"postgres"`
	BlobGc          bool               `yaml:"blobGc"          split_words:"true"`
	RootName        string             `yaml:"rootName"        split_words:"true"`
	RootNode        string             `yaml:"rootNode"        split_words:"true"`
	Suffix          string             `yaml:"suffix"`
	BindAddr        string             `yaml:"bindAddr"        split_words:"true"`
	MetricsPort     uint               `yaml:"metricsPort"     split_words:"true"`
	ShutdownTimeout string             `yaml:"shutdownTimeout" split_words:"true"`
	Tracing         bool               `yaml:"tracing"`
	TracingStdout   bool               `yaml:"tracingStdout"   split_words:"true"`
	NameLookup      NameLookupConfig   `yaml:"nameLookup"      split_words:"true"`
	Rpc             RpcConfig          `yaml:"rpc"`
	Policies        registrar.Policies `yaml:"policies"        envconfig:"POLICY"`
}

// DefaultConfig returns the settings used when neither a config file nor
// the environment provide a value
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:    ".ethwns",
		MetadataPlugin:  DefaultMetadataPlugin,
		BlobGc:          true,
		RootName:        DefaultRootName,
		BindAddr:        "0.0.0.0",
		MetricsPort:     12799,
		ShutdownTimeout: DefaultShutdownTimeout,
		NameLookup: NameLookupConfig{
			CacheSize: 10000,
		},
		Rpc: RpcConfig{
			Url:           "http://localhost:8545",
			BatchSize:     2000,
			PollInterval:  "12s",
			Confirmations: 12,
		},
		Policies: registrar.DefaultPolicies(),
	}
}

// LoadConfig reads the config file, then applies ETHWNS_* environment
// variables. Without an explicit path, ~/.ethwns/ethwns.yaml and
// /etc/ethwns/ethwns.yaml are tried in order.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		// Check for config file in this path: ~/.ethwns/ethwns.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".ethwns", "ethwns.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/ethwns/ethwns.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/ethwns/ethwns.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Overlay config values onto existing defaults
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process("ethwns", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.MetadataPlugin {
	case "", "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown metadata plugin: %q", c.MetadataPlugin))
	}
	if c.RootName == "" && c.RootNode == "" {
		errs = append(errs, errors.New("one of rootName or rootNode is required"))
	}
	if _, err := c.RootNodeHash(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.PollIntervalDuration(); err != nil {
		errs = append(errs, err)
	}
	for name, addr := range map[string]string{
		"rpc.registrarAddress":  c.Rpc.RegistrarAddress,
		"rpc.controllerAddress": c.Rpc.ControllerAddress,
		"rpc.registryAddress":   c.Rpc.RegistryAddress,
	} {
		if addr != "" && !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Errorf("invalid %s: %q", name, addr))
		}
	}
	if err := c.Policies.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RootNodeHash returns the configured root node, or the namehash of the
// root name when no node is given
func (c *Config) RootNodeHash() (common.Hash, error) {
	if c.RootNode != "" {
		buf, err := hexutil.Decode(c.RootNode)
		if err != nil || len(buf) != common.HashLength {
			return common.Hash{}, fmt.Errorf("invalid rootNode: %q", c.RootNode)
		}
		return common.BytesToHash(buf), nil
	}
	return namehash.Namehash(c.RootName), nil
}

// NameSuffix returns the suffix appended to registrar labels
func (c *Config) NameSuffix() string {
	if c.Suffix != "" {
		return c.Suffix
	}
	return c.RootName
}

func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return time.ParseDuration(DefaultShutdownTimeout)
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdownTimeout: %w", err)
	}
	return d, nil
}

func (c *Config) PollIntervalDuration() (time.Duration, error) {
	if c.Rpc.PollInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Rpc.PollInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid rpc.pollInterval: %w", err)
	}
	return d, nil
}

// MetadataPostgres converts the postgres settings for the metadata store
func (c *Config) MetadataPostgres() metadata.PostgresConfig {
	return metadata.PostgresConfig{
		Host:     c.Postgres.Host,
		Port:     c.Postgres.Port,
		User:     c.Postgres.User,
		Password: c.Postgres.Password,
		Database: c.Postgres.Database,
		SSLMode:  c.Postgres.SSLMode,
		TimeZone: c.Postgres.TimeZone,
		DSN:      c.Postgres.DSN,
	}
}
