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

package metadata

import (
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/ethwns/database/models"
	"github.com/blinklabs-io/ethwns/database/plugin/metadata/postgres"
	"github.com/blinklabs-io/ethwns/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/ethwns/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const DefaultPlugin = "sqlite"

type MetadataStore interface {
	// matches gorm.DB
	Close() error
	// Ref: https://pkg.go.dev/gorm.io/gorm#DB.Transaction
	Transaction() types.Txn
	DB() *gorm.DB

	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error

	// Accounts
	GetAccount(string, types.Txn) (*models.Account, error)
	SetAccount(string, types.Txn) error

	// Domains
	GetDomain(string, types.Txn) (*models.Domain, error)
	SetDomain(*models.Domain, types.Txn) error
	SetDomainName(string, string, string, types.Txn) error

	// Registrations
	GetRegistration(string, types.Txn) (*models.Registration, error)
	SetRegistration(*models.Registration, types.Txn) error

	// Verified label preimages
	GetLabelPreimage(string, types.Txn) (*models.LabelPreimage, error)
	SetLabelPreimage(*models.LabelPreimage, types.Txn) error

	// Registrar history
	AddNameRegistered(*models.NameRegistered, types.Txn) error
	AddNameRenewed(*models.NameRenewed, types.Txn) error
	AddNameTransferred(*models.NameTransferred, types.Txn) error
	GetNameRegistered(string, types.Txn) ([]models.NameRegistered, error)
	GetNameRenewed(string, types.Txn) ([]models.NameRenewed, error)
	GetNameTransferred(string, types.Txn) ([]models.NameTransferred, error)

	// Sync state
	GetSyncState(string, types.Txn) (string, error)
	SetSyncState(string, string, types.Txn) error
	DeleteSyncState(string, types.Txn) error

	// ResetState removes all indexed state
	ResetState(types.Txn) error
}

// PostgresConfig holds connection settings for the postgres plugin
type PostgresConfig struct {
	Host     string
	Port     uint
	User     string
	Password string
	Database string
	SSLMode  string
	TimeZone string
	DSN      string
}

// Config holds the settings shared by all metadata plugins
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DataDir      string
	Postgres     PostgresConfig
}

// New returns the metadata plugin selected by name
func New(pluginName string, cfg Config) (MetadataStore, error) {
	switch pluginName {
	case "", DefaultPlugin:
		store, err := sqlite.New(
			sqlite.WithLogger(cfg.Logger),
			sqlite.WithPromRegistry(cfg.PromRegistry),
			sqlite.WithDataDir(cfg.DataDir),
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := postgres.New(
			postgres.WithLogger(cfg.Logger),
			postgres.WithPromRegistry(cfg.PromRegistry),
			postgres.WithHost(cfg.Postgres.Host),
			postgres.WithPort(cfg.Postgres.Port),
			postgres.WithUser(cfg.Postgres.User),
			postgres.WithPassword(cfg.Postgres.Password),
			postgres.WithDatabase(cfg.Postgres.Database),
			postgres.WithSSLMode(cfg.Postgres.SSLMode),
			postgres.WithTimeZone(cfg.Postgres.TimeZone),
			postgres.WithDSN(cfg.Postgres.DSN),
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("metadata plugin '%s' not found", pluginName)
	}
}
