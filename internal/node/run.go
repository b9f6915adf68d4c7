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
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/blinklabs-io/ethwns/internal/config"
	"github.com/blinklabs-io/ethwns/source/ethlog"
	"github.com/blinklabs-io/ethwns/source/jsonl"
)

type runner struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// Enable metrics with default prometheus registry
var defaultRunner = runner{
	registerer: prometheus.DefaultRegisterer,
	gatherer:   prometheus.DefaultGatherer,
}

type runOptions struct {
	serveMetrics bool
	recover      bool
}

// Ingest applies a JSON-lines file of decoded events
func Ingest(ctx context.Context, cfg *config.Config, logger *slog.Logger, path string) error {
	return defaultRunner.ingest(ctx, cfg, logger, path)
}

// Follow indexes contract logs from the configured JSON-RPC endpoint until
// interrupted
func Follow(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	return defaultRunner.follow(ctx, cfg, logger)
}

// Replay rebuilds entity state from the event journal
func Replay(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	return defaultRunner.replay(ctx, cfg, logger)
}

func (r runner) ingest(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	path string,
) error {
	return r.run(
		ctx,
		cfg,
		logger,
		runOptions{serveMetrics: true, recover: true},
		func(ctx context.Context, n *Node) error {
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open events file: %w", err)
			}
			defer f.Close()
			start := time.Now()
			count, err := n.Indexer().ApplyStream(ctx, jsonl.NewReader(f))
			if err != nil {
				return err
			}
			logger.Info(
				"ingest complete",
				"path", path,
				"events", count,
				"duration", time.Since(start).String(),
				"component", "node",
			)
			return nil
		},
	)
}

func (r runner) follow(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) error {
	return r.run(
		ctx,
		cfg,
		logger,
		runOptions{serveMetrics: true, recover: true},
		func(ctx context.Context, n *Node) error {
			pollInterval, err := cfg.PollIntervalDuration()
			if err != nil {
				return err
			}
			client, err := ethclient.DialContext(ctx, cfg.Rpc.Url)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", cfg.Rpc.Url, err)
			}
			defer client.Close()
			follower, err := ethlog.NewFollower(ethlog.FollowerConfig{
				Logger:        logger,
				PromRegistry:  n.promRegistry,
				Client:        client,
				Addresses:     rpcAddresses(cfg),
				BatchSize:     cfg.Rpc.BatchSize,
				PollInterval:  pollInterval,
				Confirmations: cfg.Rpc.Confirmations,
			})
			if err != nil {
				return err
			}
			from, err := n.Indexer().ResumeBlock(cfg.Rpc.StartBlock)
			if err != nil {
				return err
			}
			logger.Info(
				"following contract logs",
				"url", cfg.Rpc.Url,
				"from_block", from,
				"component", "node",
			)
			return follower.Run(ctx, from, n.Indexer().Apply)
		},
	)
}

func (r runner) replay(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
) error {
	return r.run(
		ctx,
		cfg,
		logger,
		runOptions{},
		func(ctx context.Context, n *Node) error {
			count, err := n.Indexer().Replay(ctx)
			if err != nil {
				return err
			}
			logger.Info(
				"replay complete",
				"events", count,
				"component", "node",
			)
			return nil
		},
	)
}

func rpcAddresses(cfg *config.Config) ethlog.Addresses {
	var ret ethlog.Addresses
	if cfg.Rpc.RegistrarAddress != "" {
		ret.Registrar = common.HexToAddress(cfg.Rpc.RegistrarAddress)
	}
	if cfg.Rpc.ControllerAddress != "" {
		ret.Controller = common.HexToAddress(cfg.Rpc.ControllerAddress)
	}
	if cfg.Rpc.RegistryAddress != "" {
		ret.Registry = common.HexToAddress(cfg.Rpc.RegistryAddress)
	}
	return ret
}

// run builds a node and calls fn with it. The metrics listener, when
// enabled, lives as long as fn. A signal cancels the context passed to fn
// and is not reported as an error.
func (r runner) run(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	opts runOptions,
	fn func(context.Context, *Node) error,
) error {
	logger.Debug(fmt.Sprintf("config: %+v", redacted(cfg)), "component", "node")
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return err
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		ctx,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Configure tracing
	if cfg.Tracing {
		shutdownTracing, err := setupTracing(signalCtx, cfg.TracingStdout)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				shutdownTimeout,
			)
			defer cancel()
			if err := shutdownTracing(shutdownCtx); err != nil {
				logger.Error("tracing shutdown error", "error", err)
			}
		}()
	}

	n, err := New(signalCtx, cfg, logger, r.registerer)
	if err != nil {
		return err
	}
	defer func() {
		if err := n.Close(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
		}
	}()
	if opts.recover {
		if err := n.Recover(signalCtx); err != nil {
			return err
		}
	}

	runCtx, cancelRun := context.WithCancel(signalCtx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)
	if opts.serveMetrics && cfg.MetricsPort > 0 {
		addr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{}))
		metricsServer := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		logger.Info(
			"serving prometheus metrics on "+addr,
			"component", "node",
		)
		g.Go(func() error {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to start metrics listener: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(
				context.Background(),
				shutdownTimeout,
			)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown error", "error", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer cancelRun()
		return fn(gctx, n)
	})
	err = g.Wait()
	if signalCtx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		logger.Info("signal received, shutdown complete", "component", "node")
		return nil
	}
	return err
}

// redacted hides credentials before the config is logged
func redacted(cfg *config.Config) config.Config {
	ret := *cfg
	if ret.Postgres.Password != "" {
		ret.Postgres.Password = "REDACTED"
	}
	if ret.Postgres.DSN != "" {
		ret.Postgres.DSN = "REDACTED"
	}
	if ret.NameLookup.RedisUrl != "" {
		ret.NameLookup.RedisUrl = "REDACTED"
	}
	return ret
}
