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

// Package registrar maps base registrar and controller events onto the
// account, domain and registration entities
package registrar

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/blinklabs-io/ethwns/database/models"
	"github.com/blinklabs-io/ethwns/namehash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ErrRegistrationNotFound is returned when an event requires a
	// registration that has not been indexed
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrDomainNotFound is returned when a verified preimage references a
	// domain node that has not been created
	ErrDomainNotFound = errors.New("domain not found")
)

// Store is the entity storage used by the handlers. All calls made while
// handling one event belong to the same unit of work. Getters return nil
// without error when the entity does not exist.
type Store interface {
	SetAccount(id string) error
	GetDomain(id string) (*models.Domain, error)
	SetDomainName(id string, labelName string, name string) error
	GetRegistration(id string) (*models.Registration, error)
	SetRegistration(registration *models.Registration) error
	GetLabelPreimage(id string) (*models.LabelPreimage, error)
	SetLabelPreimage(preimage *models.LabelPreimage) error
	AddNameRegistered(record *models.NameRegistered) error
	AddNameRenewed(record *models.NameRenewed) error
	AddNameTransferred(record *models.NameTransferred) error
}

// NameLookup is a best-effort reverse lookup from label hash to plain text.
// Answers are not verified.
type NameLookup interface {
	LookupName(ctx context.Context, label common.Hash) (string, bool)
}

type RegistrarConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	NameLookup   NameLookup
	// RootNode is the node that registrar labels hang from. Defaults to
	// namehash.RootNode
	RootNode common.Hash
	// Suffix is appended to labels to form the full name. Defaults to
	// namehash.DefaultSuffix
	Suffix   string
	Policies Policies
}

type Registrar struct {
	config  RegistrarConfig
	logger  *slog.Logger
	metrics struct {
		preimagesRejected *prometheus.CounterVec
		preimagesApplied  prometheus.Counter
		missingEntities   *prometheus.CounterVec
		lookups           *prometheus.CounterVec
	}
}

// NewRegistrar fills in the root node and suffix defaults and rejects
// unknown policies
func NewRegistrar(config RegistrarConfig) (*Registrar, error) {
	if config.RootNode == (common.Hash{}) {
		config.RootNode = namehash.RootNode
	}
	if config.Suffix == "" {
		config.Suffix = namehash.DefaultSuffix
	}
	if err := config.Policies.Validate(); err != nil {
		return nil, err
	}
	r := &Registrar{
		config: config,
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		r.logger = config.Logger
	}
	r.logger = r.logger.With("component", "registrar")
	// Init metrics
	promautoFactory := promauto.With(config.PromRegistry)
	r.metrics.preimagesRejected = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethwns_registrar_preimages_rejected_total",
			Help: "label preimage claims discarded by reason",
		},
		[]string{"reason"},
	)
	r.metrics.preimagesApplied = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "ethwns_registrar_preimages_applied_total",
			Help: "verified label preimages",
		},
	)
	r.metrics.missingEntities = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethwns_registrar_missing_entities_total",
			Help: "events referencing an entity that was not indexed",
		},
		[]string{"event", "entity"},
	)
	r.metrics.lookups = promautoFactory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ethwns_registrar_name_lookups_total",
			Help: "reverse name lookups by result",
		},
		[]string{"result"},
	)
	return r, nil
}

// RootNode returns the node that registrar labels hang from
func (r *Registrar) RootNode() common.Hash {
	return r.config.RootNode
}

// Suffix returns the name suffix appended to labels
func (r *Registrar) Suffix() string {
	return r.config.Suffix
}

// Policies returns the configured missing-entity policies
func (r *Registrar) Policies() Policies {
	return r.config.Policies
}

// lookupName asks the configured reverse lookup for the plain text of label
func (r *Registrar) lookupName(ctx context.Context, label common.Hash) (string, bool) {
	if r.config.NameLookup == nil {
		return "", false
	}
	name, ok := r.config.NameLookup.LookupName(ctx, label)
	if ok {
		r.metrics.lookups.WithLabelValues("hit").Inc()
	} else {
		r.metrics.lookups.WithLabelValues("miss").Inc()
	}
	return name, ok
}
