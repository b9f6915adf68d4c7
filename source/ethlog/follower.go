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

package ethlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"slices"
	"time"

	"github.com/blinklabs-io/ethwns/event"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	DefaultBatchSize       = 2000
	DefaultPollInterval    = 12 * time.Second
	DefaultHeaderCacheSize = 1024
)

// Client is the subset of the JSON-RPC client used by the follower.
// *ethclient.Client implements it.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// HandlerFunc receives decoded events in chain order. An error stops the
// follower.
type HandlerFunc func(context.Context, event.RegistrarEvent) error

type FollowerConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Client       Client
	Decoder      *Decoder
	Addresses    Addresses
	// BatchSize is the number of blocks requested per log filter
	BatchSize uint64
	// PollInterval is the wait between head checks once caught up
	PollInterval time.Duration
	// Confirmations is the number of blocks to stay behind the head
	Confirmations   uint64
	HeaderCacheSize int
}

type Follower struct {
	config      FollowerConfig
	logger      *slog.Logger
	headerCache *lru.Cache[uint64, uint64]
	metrics     struct {
		logsFetched   prometheus.Counter
		logsSkipped   prometheus.Counter
		rpcErrors     prometheus.Counter
		followedBlock prometheus.Gauge
	}
}

func NewFollower(config FollowerConfig) (*Follower, error) {
	if config.Client == nil {
		return nil, errors.New("no RPC client configured")
	}
	if config.Decoder == nil {
		decoder, err := NewDecoder(config.Addresses)
		if err != nil {
			return nil, err
		}
		config.Decoder = decoder
	}
	if config.BatchSize == 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.HeaderCacheSize <= 0 {
		config.HeaderCacheSize = DefaultHeaderCacheSize
	}
	headerCache, err := lru.New[uint64, uint64](config.HeaderCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create header cache: %w", err)
	}
	f := &Follower{
		config:      config,
		headerCache: headerCache,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		f.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		f.logger = config.Logger
	}
	f.logger = f.logger.With("component", "follower")
	promautoFactory := promauto.With(config.PromRegistry)
	f.metrics.logsFetched = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "ethwns_follower_logs_fetched_total",
		Help: "contract logs returned by the RPC endpoint",
	})
	f.metrics.logsSkipped = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "ethwns_follower_logs_skipped_total",
		Help: "removed or unrecognized logs",
	})
	f.metrics.rpcErrors = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "ethwns_follower_rpc_errors_total",
		Help: "failed RPC requests",
	})
	f.metrics.followedBlock = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "ethwns_follower_block",
		Help: "last block whose logs were handed to the indexer",
	})
	return f, nil
}

// Run follows logs starting at fromBlock until ctx is cancelled or handler
// returns an error. RPC failures are retried after the poll interval.
func (f *Follower) Run(ctx context.Context, fromBlock uint64, handler HandlerFunc) error {
	next := fromBlock
	batchSize := f.config.BatchSize
	for {
		head, err := f.safeHead(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.metrics.rpcErrors.Inc()
			f.logger.Warn("failed to get chain head", "error", err)
			if err := f.wait(ctx); err != nil {
				return err
			}
			continue
		}
		if next > head {
			if err := f.wait(ctx); err != nil {
				return err
			}
			continue
		}
		to := min(next+batchSize-1, head)
		if err := f.processRange(ctx, next, to, handler); err != nil {
			var handlerErr *HandlerError
			if errors.As(err, &handlerErr) {
				return handlerErr.Err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.metrics.rpcErrors.Inc()
			// Providers cap the size of a log query, so narrow the range
			if batchSize > 1 {
				batchSize = max(batchSize/2, 1)
			}
			f.logger.Warn(
				"failed to fetch logs",
				"from", next,
				"to", to,
				"batch_size", batchSize,
				"error", err,
			)
			if err := f.wait(ctx); err != nil {
				return err
			}
			continue
		}
		next = to + 1
		batchSize = f.config.BatchSize
		f.metrics.followedBlock.Set(float64(to))
	}
}

// HandlerError carries an error returned by the handler so that it is not
// retried
type HandlerError struct {
	Err error
}

func (e *HandlerError) Error() string {
	return e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

func (f *Follower) safeHead(ctx context.Context) (uint64, error) {
	head, err := f.config.Client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	if head < f.config.Confirmations {
		return 0, nil
	}
	return head - f.config.Confirmations, nil
}

func (f *Follower) wait(ctx context.Context) error {
	t := time.NewTimer(f.config.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *Follower) processRange(
	ctx context.Context,
	from uint64,
	to uint64,
	handler HandlerFunc,
) error {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: f.config.Addresses.List(),
		Topics:    [][]common.Hash{f.config.Decoder.Topics()},
	}
	logs, err := f.config.Client.FilterLogs(ctx, query)
	if err != nil {
		return err
	}
	f.metrics.logsFetched.Add(float64(len(logs)))
	slices.SortFunc(logs, func(a, b types.Log) int {
		if a.BlockNumber != b.BlockNumber {
			if a.BlockNumber < b.BlockNumber {
				return -1
			}
			return 1
		}
		if a.Index < b.Index {
			return -1
		}
		if a.Index > b.Index {
			return 1
		}
		return 0
	})
	for _, log := range logs {
		if log.Removed {
			f.metrics.logsSkipped.Inc()
			continue
		}
		blockTimestamp, err := f.blockTimestamp(ctx, log.BlockNumber)
		if err != nil {
			return fmt.Errorf("get block %d: %w", log.BlockNumber, err)
		}
		evt, err := f.config.Decoder.Decode(log, blockTimestamp)
		if err != nil {
			if errors.Is(err, ErrUnknownLog) {
				f.metrics.logsSkipped.Inc()
				continue
			}
			return &HandlerError{Err: err}
		}
		if err := handler(ctx, evt); err != nil {
			return &HandlerError{Err: err}
		}
	}
	return nil
}

func (f *Follower) blockTimestamp(ctx context.Context, blockNumber uint64) (uint64, error) {
	if ts, ok := f.headerCache.Get(blockNumber); ok {
		return ts, nil
	}
	header, err := f.config.Client.HeaderByNumber(
		ctx,
		new(big.Int).SetUint64(blockNumber),
	)
	if err != nil {
		return 0, err
	}
	f.headerCache.Add(blockNumber, header.Time)
	return header.Time, nil
}
