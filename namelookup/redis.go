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

package namelookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/blinklabs-io/ethwns/namehash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultRedisKeyPrefix = "ethwns:label:"
	DefaultRedisTimeout   = 2 * time.Second
)

type RedisConfig struct {
	Logger    *slog.Logger
	URL       string
	KeyPrefix string
	// Timeout bounds each lookup so that a slow server does not stall
	// indexing
	Timeout time.Duration
}

// Redis answers lookups from a shared Redis keyspace mapping label hash to
// name
type Redis struct {
	client    *redis.Client
	logger    *slog.Logger
	keyPrefix string
	timeout   time.Duration
}

// NewRedis connects to the server at config.URL and checks that it responds
func NewRedis(ctx context.Context, config RedisConfig) (*Redis, error) {
	opts, err := redis.ParseURL(config.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisFromClient(client, config), nil
}

// NewRedisFromClient wraps an existing client. Only the logger, key prefix
// and timeout of config are used.
func NewRedisFromClient(client *redis.Client, config RedisConfig) *Redis {
	r := &Redis{
		client:    client,
		keyPrefix: config.KeyPrefix,
		timeout:   config.Timeout,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		r.logger = config.Logger
	}
	r.logger = r.logger.With("component", "namelookup")
	if r.keyPrefix == "" {
		r.keyPrefix = DefaultRedisKeyPrefix
	}
	if r.timeout == 0 {
		r.timeout = DefaultRedisTimeout
	}
	return r
}

func (r *Redis) key(label common.Hash) string {
	return r.keyPrefix + label.Hex()
}

// LookupName treats server errors as a miss
func (r *Redis) LookupName(ctx context.Context, label common.Hash) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	name, err := r.client.Get(ctx, r.key(label)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn(
				"redis name lookup failed",
				"label", label.Hex(),
				"error", err,
			)
		}
		return "", false
	}
	return name, true
}

// Add stores names under their label hashes using a single pipeline
func (r *Redis) Add(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, name := range names {
		pipe.Set(ctx, r.key(namehash.LabelHash(name)), name, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store names: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
