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

// Package registry maintains the domain hierarchy from registry events
package registry

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/ethwns/database/models"
	"github.com/blinklabs-io/ethwns/event"
	"github.com/blinklabs-io/ethwns/namehash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store is the entity storage used by the registry handler. Getters return
// nil without error when the entity does not exist.
type Store interface {
	SetAccount(id string) error
	GetDomain(id string) (*models.Domain, error)
	SetDomain(domain *models.Domain) error
}

type RegistryConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

type Registry struct {
	logger  *slog.Logger
	metrics struct {
		domainsCreated prometheus.Counter
		ownerChanges   prometheus.Counter
	}
}

func NewRegistry(config RegistryConfig) *Registry {
	r := &Registry{}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	} else {
		r.logger = config.Logger
	}
	r.logger = r.logger.With("component", "registry")
	promautoFactory := promauto.With(config.PromRegistry)
	r.metrics.domainsCreated = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "ethwns_registry_domains_created_total",
			Help: "domain nodes created from registry events",
		},
	)
	r.metrics.ownerChanges = promautoFactory.NewCounter(
		prometheus.CounterOpts{
			Name: "ethwns_registry_owner_changes_total",
			Help: "owner changes of existing domain nodes",
		},
	)
	return r
}

// HandleNewOwner creates the subnode named by the event if it does not
// exist yet, or records its new owner. Label and name fields are left to
// the registrar.
func (r *Registry) HandleNewOwner(store Store, evt event.NewOwner) error {
	ownerID := namehash.AccountID(evt.Owner)
	if err := store.SetAccount(ownerID); err != nil {
		return fmt.Errorf("set account %s: %w", ownerID, err)
	}
	domainID := namehash.DomainID(namehash.NodeHashOf(evt.Node, evt.Label))
	domain, err := store.GetDomain(domainID)
	if err != nil {
		return fmt.Errorf("get domain %s: %w", domainID, err)
	}
	if domain == nil {
		parentID := namehash.DomainID(evt.Node)
		labelHash := namehash.RegistrationID(evt.Label)
		domain = &models.Domain{
			ID:        domainID,
			ParentID:  &parentID,
			LabelHash: &labelHash,
			OwnerID:   &ownerID,
			CreatedAt: evt.BlockTimestamp,
		}
		if err := store.SetDomain(domain); err != nil {
			return fmt.Errorf("set domain %s: %w", domainID, err)
		}
		r.metrics.domainsCreated.Inc()
		r.logger.Debug(
			"created domain",
			"domain", domainID,
			"parent", parentID,
			"block", evt.BlockNumber,
		)
		return nil
	}
	if domain.OwnerID != nil && *domain.OwnerID == ownerID {
		return nil
	}
	domain.OwnerID = &ownerID
	if err := store.SetDomain(domain); err != nil {
		return fmt.Errorf("set domain %s: %w", domainID, err)
	}
	r.metrics.ownerChanges.Inc()
	return nil
}
