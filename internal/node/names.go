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
	"log/slog"

	"github.com/blinklabs-io/ethwns/internal/config"
	"github.com/blinklabs-io/ethwns/namelookup"
)

// pushBatchSize is the number of names written per Redis pipeline
const pushBatchSize = 1000

// PushNames loads a names file into the Redis reverse lookup
func PushNames(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	path string,
) error {
	if cfg.NameLookup.RedisUrl == "" {
		return errors.New("nameLookup.redisUrl is not configured")
	}
	static, err := namelookup.LoadNamesFile(path)
	if err != nil {
		return fmt.Errorf("load names file: %w", err)
	}
	r, err := namelookup.NewRedis(ctx, namelookup.RedisConfig{
		Logger: logger,
		URL:    cfg.NameLookup.RedisUrl,
	})
	if err != nil {
		return err
	}
	defer r.Close()
	names := static.Names()
	for start := 0; start < len(names); start += pushBatchSize {
		end := min(start+pushBatchSize, len(names))
		if err := r.Add(ctx, names[start:end]...); err != nil {
			return fmt.Errorf("push names: %w", err)
		}
	}
	logger.Info(
		"pushed names to redis",
		"path", path,
		"names", len(names),
		"component", "node",
	)
	return nil
}
