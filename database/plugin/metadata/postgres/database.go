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

package postgres

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/blinklabs-io/ethwns/database/plugin/metadata/internal/gormstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type MetadataStorePostgres struct {
	*gormstore.Store
	promRegistry prometheus.Registerer
	logger       *slog.Logger

	host     string
	port     uint
	user     string
	password string
	database string
	sslMode  string
	timeZone string
	dsn      string // Data source name (postgres connection string)
}

// New connects to postgres and applies migrations
func New(opts ...PostgresOptionFunc) (*MetadataStorePostgres, error) {
	d := newUnconnected(opts...)
	metadataDb, err := gorm.Open(
		postgres.Open(d.DSN()),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	sqlDb, err := metadataDb.DB()
	if err != nil {
		return nil, err
	}
	store, err := gormstore.New(metadataDb, d.logger)
	if err != nil {
		_ = sqlDb.Close()
		return nil, err
	}
	d.Store = store
	if d.promRegistry != nil {
		d.promRegistry.MustRegister(
			collectors.NewDBStatsCollector(sqlDb, "metadata_postgres"),
		)
	}
	return d, nil
}

// newUnconnected applies options and defaults without opening a connection
func newUnconnected(opts ...PostgresOptionFunc) *MetadataStorePostgres {
	d := &MetadataStorePostgres{}
	for _, opt := range opts {
		opt(d)
	}
	if d.host == "" {
		d.host = "localhost"
	}
	if d.port == 0 {
		d.port = 5432
	}
	if d.user == "" {
		d.user = "postgres"
	}
	if d.database == "" {
		d.database = "postgres"
	}
	if d.sslMode == "" {
		d.sslMode = "disable"
	}
	if d.timeZone == "" {
		d.timeZone = "UTC"
	}
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return d
}

// DSN returns the configured connection string, or one built from the
// individual connection options
func (d *MetadataStorePostgres) DSN() string {
	if d.dsn != "" {
		return d.dsn
	}
	parts := []string{
		"host=" + quoteDSNValue(d.host),
		fmt.Sprintf("port=%d", d.port),
		"user=" + quoteDSNValue(d.user),
		"dbname=" + quoteDSNValue(d.database),
		"sslmode=" + quoteDSNValue(d.sslMode),
		"TimeZone=" + quoteDSNValue(d.timeZone),
	}
	if d.password != "" {
		parts = append(parts, "password="+quoteDSNValue(d.password))
	}
	return strings.Join(parts, " ")
}

// quoteDSNValue quotes a keyword/value DSN value when it contains spaces,
// quotes or backslashes
func quoteDSNValue(val string) string {
	if val != "" && !strings.ContainsAny(val, ` '\`) {
		return val
	}
	val = strings.ReplaceAll(val, `\`, `\\`)
	val = strings.ReplaceAll(val, `'`, `\'`)
	return "'" + val + "'"
}
