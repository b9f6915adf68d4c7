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

package blob

import (
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/ethwns/database/plugin/blob/badger"
	"github.com/blinklabs-io/ethwns/database/types"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultPlugin = "badger"

type BlobStore interface {
	Close() error
	NewTransaction(bool) types.Txn
	Get(types.Txn, []byte) ([]byte, error)
	Set(types.Txn, []byte, []byte) error
	Delete(types.Txn, []byte) error
	NewIterator(types.Txn, types.BlobIteratorOptions) types.BlobIterator

	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
}

// Config holds the settings shared by all blob plugins
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	DataDir      string
	Gc           bool
}

// New returns the blob plugin selected by name
func New(pluginName string, cfg Config) (BlobStore, error) {
	switch pluginName {
	case "", DefaultPlugin:
		store, err := badger.New(
			badger.WithLogger(cfg.Logger),
			badger.WithPromRegistry(cfg.PromRegistry),
			badger.WithDataDir(cfg.DataDir),
			badger.WithGc(cfg.Gc),
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("blob plugin '%s' not found", pluginName)
	}
}
