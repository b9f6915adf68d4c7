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

package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/ethwns/database"
	"github.com/blinklabs-io/ethwns/event"
	"github.com/blinklabs-io/ethwns/indexer"
	"github.com/blinklabs-io/ethwns/internal/config"
	"github.com/blinklabs-io/ethwns/namelookup"
	"github.com/blinklabs-io/ethwns/registrar"
	"github.com/blinklabs-io/ethwns/registry"
)

// Node owns the database and the indexing pipeline built from the config
type Node struct {
	cfg           *config.Config
	logger        *slog.Logger
	promRegistry  prometheus.Registerer
	db            *database.Database
	eventBus      *event.EventBus
	indexer       *indexer.Indexer
	redis         *namelookup.Redis
	needsRecovery bool
}

func New(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*Node, error) {
	if cfg == nil {
		return nil, errors.New("no config provided")
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	n := &Node{
		cfg:          cfg,
		logger:       logger,
		promRegistry: promRegistry,
	}
	rootNode, err := cfg.RootNodeHash()
	if err != nil {
		return nil, err
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		Logger:         logger,
		PromRegistry:   promRegistry,
		MetadataPlugin: cfg.MetadataPlugin,
		BlobGc:         cfg.BlobGc,
		Postgres:       cfg.MetadataPostgres(),
	})
	if db == nil {
		if err == nil {
			err = errors.New("empty database returned")
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			_ = db.Close()
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		logger.Warn(
			"database initialization error, needs recovery",
			"error", err,
			"component", "node",
		)
		n.needsRecovery = true
	}
	nameLookup, err := n.buildNameLookup(ctx)
	if err != nil {
		_ = n.Close()
		return nil, err
	}
	reg, err := registrar.NewRegistrar(registrar.RegistrarConfig{
		Logger:       logger,
		PromRegistry: promRegistry,
		NameLookup:   nameLookup,
		RootNode:     rootNode,
		Suffix:       cfg.NameSuffix(),
		Policies:     cfg.Policies,
	})
	if err != nil {
		_ = n.Close()
		return nil, err
	}
	n.eventBus = event.NewEventBus(promRegistry, logger)
	n.eventBus.SubscribeFunc(
		event.IndexerAppliedEventType,
		func(evt event.Event) {
			data, ok := evt.Data.(event.IndexerEvent)
			if !ok {
				return
			}
			logger.Debug(
				"applied event",
				"kind", data.Kind,
				"block", data.Position.BlockNumber,
				"log_index", data.Position.LogIndex,
				"tx", data.TxHash.Hex(),
				"component", "node",
			)
		},
	)
	idx, err := indexer.NewIndexer(db, indexer.IndexerConfig{
		Logger:       logger,
		PromRegistry: promRegistry,
		EventBus:     n.eventBus,
		Registrar:    reg,
		Registry: registry.NewRegistry(registry.RegistryConfig{
			Logger:       logger,
			PromRegistry: promRegistry,
		}),
	})
	if err != nil {
		_ = n.Close()
		return nil, err
	}
	n.indexer = idx
	return n, nil
}

// buildNameLookup chains the names file and Redis behind an LRU cache.
// Without either source there is no lookup.
func (n *Node) buildNameLookup(ctx context.Context) (registrar.NameLookup, error) {
	var chain namelookup.Chain
	if path := n.cfg.NameLookup.NamesFile; path != "" {
		static, err := namelookup.LoadNamesFile(path)
		if err != nil {
			return nil, fmt.Errorf("load names file: %w", err)
		}
		n.logger.Info(
			"loaded names file",
			"path", path,
			"names", static.Len(),
			"component", "node",
		)
		chain = append(chain, static)
	}
	if url := n.cfg.NameLookup.RedisUrl; url != "" {
		r, err := namelookup.NewRedis(ctx, namelookup.RedisConfig{
			Logger: n.logger,
			URL:    url,
		})
		if err != nil {
			return nil, err
		}
		n.redis = r
		chain = append(chain, r)
	}
	if len(chain) == 0 {
		return nil, nil
	}
	size := n.cfg.NameLookup.CacheSize
	if size <= 0 {
		return chain, nil
	}
	cached, err := namelookup.NewCached(chain, size)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

func (n *Node) Database() *database.Database {
	return n.db
}

func (n *Node) Indexer() *indexer.Indexer {
	return n.indexer
}

func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// Recover rebuilds entity state from the journal when the stores were
// found out of sync on open
func (n *Node) Recover(ctx context.Context) error {
	if !n.needsRecovery {
		return nil
	}
	n.logger.Warn("rebuilding state from event journal", "component", "node")
	count, err := n.indexer.Replay(ctx)
	if err != nil {
		return fmt.Errorf("database recovery failed: %w", err)
	}
	n.logger.Info(
		"database recovery complete",
		"events", count,
		"component", "node",
	)
	n.needsRecovery = false
	return nil
}

func (n *Node) Close() error {
	var errs []error
	if n.eventBus != nil {
		n.eventBus.Stop()
	}
	if n.redis != nil {
		if err := n.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
