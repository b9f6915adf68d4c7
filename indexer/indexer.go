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

// Package indexer applies decoded registrar events to the database, one
// transaction per event
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/blinklabs-io/ethwns/database"
	"github.com/blinklabs-io/ethwns/event"
	"github.com/blinklabs-io/ethwns/registrar"
	"github.com/blinklabs-io/ethwns/registry"
)

const tracerName = "github.com/blinklabs-io/ethwns/indexer"

var ErrUnsupportedEvent = errors.New("unsupported event")

// EventReader yields events in chain order and returns io.EOF at the end
type EventReader interface {
	Next() (event.RegistrarEvent, error)
}

type IndexerConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	EventBus     *event.EventBus
	Registrar    *registrar.Registrar
	Registry     *registry.Registry
	// DisableJournal stops applied events from being appended to the blob
	// journal
	DisableJournal bool
}

type Indexer struct {
	db      *database.Database
	config  IndexerConfig
	logger  *slog.Logger
	metrics struct {
		applied       *prometheus.CounterVec
		failed        *prometheus.CounterVec
		skipped       prometheus.Counter
		lastBlock     prometheus.Gauge
		applyDuration prometheus.Histogram
	}
}

func NewIndexer(db *database.Database, config IndexerConfig) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("no database configured")
	}
	if config.Registrar == nil {
		return nil, errors.New("no registrar configured")
	}
	if config.Registry == nil {
		config.Registry = registry.NewRegistry(registry.RegistryConfig{
			Logger: config.Logger,
		})
	}
	i := &Indexer{
		db:     db,
		config: config,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		i.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		i.logger = config.Logger
	}
	i.logger = i.logger.With("component", "indexer")
	promautoFactory := promauto.With(config.PromRegistry)
	i.metrics.applied = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethwns_indexer_events_applied_total",
			Help: "events applied by kind",
		},
		[]string{"kind"},
	)
	i.metrics.failed = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethwns_indexer_events_failed_total",
			Help: "events that halted the indexer by kind",
		},
		[]string{"kind"},
	)
	i.metrics.skipped = promautoFactory.NewCounter(prometheus.CounterOpts{
		Name: "ethwns_indexer_events_skipped_total",
		Help: "events at or before the stored cursor",
	})
	i.metrics.lastBlock = promautoFactory.NewGauge(prometheus.GaugeOpts{
		Name: "ethwns_indexer_last_block",
		Help: "block number of the last applied event",
	})
	i.metrics.applyDuration = promautoFactory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ethwns_indexer_apply_duration_seconds",
			Help:    "time to apply and commit a single event",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)
	return i, nil
}

// Cursor returns the position of the last applied event
func (i *Indexer) Cursor() (event.LogPosition, bool, error) {
	txn := i.db.Transaction(false)
	defer txn.Release()
	return txn.GetCursor()
}

// ResumeBlock returns the block to resume following from. The block of the
// cursor is fetched again since it may have been partially applied.
func (i *Indexer) ResumeBlock(startBlock uint64) (uint64, error) {
	pos, ok, err := i.Cursor()
	if err != nil {
		return 0, err
	}
	if !ok {
		return startBlock, nil
	}
	return max(pos.BlockNumber, startBlock), nil
}

// Apply handles a single event in its own transaction. Events at or before
// the cursor are skipped.
func (i *Indexer) Apply(ctx context.Context, evt event.RegistrarEvent) error {
	_, err := i.apply(ctx, evt, !i.config.DisableJournal)
	return err
}

// ApplyStream applies every event from r and returns the number applied
func (i *Indexer) ApplyStream(ctx context.Context, r EventReader) (int, error) {
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		evt, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return count, err
		}
		applied, err := i.apply(ctx, evt, !i.config.DisableJournal)
		if err != nil {
			return count, err
		}
		if applied {
			count++
		}
	}
}

// Replay discards all entity state and rebuilds it from the event journal
func (i *Indexer) Replay(ctx context.Context) (int, error) {
	if err := i.db.Transaction(true).Do(func(txn *database.Txn) error {
		return txn.ResetState()
	}); err != nil {
		return 0, fmt.Errorf("reset state: %w", err)
	}
	i.logger.Info("replaying event journal")
	count := 0
	err := i.db.ReplayJournal(func(evt event.RegistrarEvent) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		applied, err := i.apply(ctx, evt, false)
		if err != nil {
			return err
		}
		if applied {
			count++
		}
		return nil
	})
	if err != nil {
		return count, err
	}
	i.logger.Info("finished replaying event journal", "events", count)
	return count, nil
}

func (i *Indexer) apply(
	ctx context.Context,
	evt event.RegistrarEvent,
	journal bool,
) (bool, error) {
	meta := evt.Meta()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "indexer.apply")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.kind", evt.Kind()),
		attribute.Int64("event.block", int64(meta.BlockNumber)), //nolint:gosec
		attribute.Int64("event.log_index", int64(meta.LogIndex)), //nolint:gosec
		attribute.String("event.tx", meta.TxHash.Hex()),
	)
	start := time.Now()
	applied := false
	err := i.db.Transaction(true).Do(func(txn *database.Txn) error {
		pos, ok, err := txn.GetCursor()
		if err != nil {
			return err
		}
		if ok && !pos.Before(meta.Position()) {
			return nil
		}
		if journal {
			if err := txn.AppendJournal(evt); err != nil {
				return err
			}
		}
		if err := i.dispatch(ctx, txn, evt); err != nil {
			return err
		}
		if err := txn.SetCursor(meta.Position()); err != nil {
			return err
		}
		applied = true
		return nil
	})
	indexerEvt := event.IndexerEvent{
		Kind:     evt.Kind(),
		Position: meta.Position(),
		TxHash:   meta.TxHash,
	}
	if err != nil {
		err = fmt.Errorf(
			"apply %s at block %d log %d: %w",
			evt.Kind(),
			meta.BlockNumber,
			meta.LogIndex,
			err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "apply failed")
		i.metrics.failed.WithLabelValues(evt.Kind()).Inc()
		i.logger.Error(
			"failed to apply event",
			"kind", evt.Kind(),
			"block", meta.BlockNumber,
			"log_index", meta.LogIndex,
			"tx", meta.TxHash.Hex(),
			"error", err,
		)
		indexerEvt.Error = err
		i.publish(event.IndexerHaltedEventType, indexerEvt)
		return false, err
	}
	if !applied {
		i.metrics.skipped.Inc()
		i.logger.Debug(
			"skipping already applied event",
			"kind", evt.Kind(),
			"block", meta.BlockNumber,
			"log_index", meta.LogIndex,
		)
		i.publish(event.IndexerSkippedEventType, indexerEvt)
		return false, nil
	}
	i.metrics.applyDuration.Observe(time.Since(start).Seconds())
	i.metrics.applied.WithLabelValues(evt.Kind()).Inc()
	i.metrics.lastBlock.Set(float64(meta.BlockNumber))
	i.publish(event.IndexerAppliedEventType, indexerEvt)
	return true, nil
}

func (i *Indexer) dispatch(
	ctx context.Context,
	txn *database.Txn,
	evt event.RegistrarEvent,
) error {
	reg := i.config.Registrar
	switch e := evt.(type) {
	case event.NameRegistered:
		return reg.HandleNameRegistered(ctx, txn, e)
	case event.NameRenewed:
		return reg.HandleNameRenewed(txn, e)
	case event.Transfer:
		return reg.HandleTransfer(txn, e)
	case event.ControllerNameRegistered:
		return reg.HandleControllerNameRegistered(txn, e)
	case event.ControllerNameRenewed:
		return reg.HandleControllerNameRenewed(txn, e)
	case event.NewOwner:
		return i.config.Registry.HandleNewOwner(txn, e)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedEvent, evt)
	}
}

func (i *Indexer) publish(eventType event.EventType, data event.IndexerEvent) {
	if i.config.EventBus == nil {
		return
	}
	i.config.EventBus.PublishAsync(eventType, event.NewEvent(eventType, data))
}
