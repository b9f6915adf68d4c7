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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/ethwns/namehash"
	"github.com/blinklabs-io/ethwns/registrar"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ethwns.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfigFile(t, `
databasePath: /var/lib/ethwns
metadataPlugin: postgres
postgres:
  host: db.internal
  port: 5433
  sslMode: require
blobGc: false
metricsPort: 9100
shutdownTimeout: 5s
nameLookup:
  redisUrl: redis://localhost:6379/1
  namesFile: /etc/ethwns/names.txt
rpc:
  url: https://rpc.example
  registrarAddress: "0x1000000000000000000000000000000000000001"
  startBlock: 1234
  pollInterval: 3s
policies:
  transferMissingRegistration: fail
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	expected := DefaultConfig()
	expected.DatabasePath = "/var/lib/ethwns"
	expected.MetadataPlugin = "postgres"
	expected.Postgres = PostgresConfig{
		Host:    "db.internal",
		Port:    5433,
		SSLMode: "require",
	}
	expected.BlobGc = false
	expected.MetricsPort = 9100
	expected.ShutdownTimeout = "5s"
	expected.NameLookup.RedisUrl = "redis://localhost:6379/1"
	expected.NameLookup.NamesFile = "/etc/ethwns/names.txt"
	expected.Rpc.Url = "https://rpc.example"
	expected.Rpc.RegistrarAddress = "0x1000000000000000000000000000000000000001"
	expected.Rpc.StartBlock = 1234
	expected.Rpc.PollInterval = "3s"
	expected.Policies.TransferMissingRegistration = registrar.PolicyFail
	assert.Equal(t, expected, cfg)

	timeout, err := cfg.ShutdownTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, timeout)
	assert.Equal(t, "db.internal", cfg.MetadataPostgres().Host)
}

func TestLoadConfigEnv(t *testing.T) {
	path := writeConfigFile(t, "metricsPort: 9100\n")
	t.Setenv("ETHWNS_METRICS_PORT", "9200")
	t.Setenv("ETHWNS_DATABASE_PATH", "/tmp/ethwns")
	t.Setenv("ETHWNS_RPC_URL", "ws://node:8546")
	t.Setenv("ETHWNS_NAME_LOOKUP_REDIS_URL", "redis://cache:6379")
	t.Setenv("ETHWNS_POSTGRES_PASSWORD", "secret")
	t.Setenv("ETHWNS_POLICY_RENEWAL_MISSING_REGISTRATION", "skip")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint(9200), cfg.MetricsPort)
	assert.Equal(t, "/tmp/ethwns", cfg.DatabasePath)
	assert.Equal(t, "ws://node:8546", cfg.Rpc.Url)
	assert.Equal(t, "redis://cache:6379", cfg.NameLookup.RedisUrl)
	assert.Equal(t, "secret", cfg.Postgres.Password)
	assert.Equal(t, registrar.PolicySkip, cfg.Policies.RenewalMissingRegistration)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfigFile(t, "metricsPort: [\n"))
	require.Error(t, err)

	_, err = LoadConfig(writeConfigFile(t, "policies:\n  preimageMissingDomain: ignore\n"))
	require.ErrorIs(t, err, registrar.ErrInvalidPolicy)
}

func TestValidate(t *testing.T) {
	testDefs := []struct {
		name   string
		modify func(*Config)
	}{
		{name: "metadata plugin", modify: func(c *Config) { c.MetadataPlugin = "mysql" }},
		{name: "no root", modify: func(c *Config) { c.RootName = "" }},
		{name: "root node", modify: func(c *Config) { c.RootNode = "0x1234" }},
		{name: "shutdown timeout", modify: func(c *Config) { c.ShutdownTimeout = "soon" }},
		{name: "poll interval", modify: func(c *Config) { c.Rpc.PollInterval = "often" }},
		{name: "address", modify: func(c *Config) { c.Rpc.RegistryAddress = "0xzz" }},
		{name: "policy", modify: func(c *Config) { c.Policies.PreimageMissingDomain = "maybe" }},
	}
	require.NoError(t, DefaultConfig().Validate())
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			cfg := DefaultConfig()
			testDef.modify(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestRootNode(t *testing.T) {
	cfg := DefaultConfig()
	node, err := cfg.RootNodeHash()
	require.NoError(t, err)
	assert.Equal(t, namehash.RootNode, node)
	assert.Equal(t, namehash.DefaultSuffix, cfg.NameSuffix())

	cfg.RootName = "test"
	node, err = cfg.RootNodeHash()
	require.NoError(t, err)
	assert.Equal(t, namehash.Namehash("test"), node)
	assert.Equal(t, "test", cfg.NameSuffix())

	cfg.RootNode = namehash.RootNode.Hex()
	cfg.Suffix = "ethw"
	node, err = cfg.RootNodeHash()
	require.NoError(t, err)
	assert.Equal(t, namehash.RootNode, node)
	assert.Equal(t, "ethw", cfg.NameSuffix())
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
