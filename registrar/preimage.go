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

package registrar

import (
	"fmt"
	"math/big"

	"github.com/blinklabs-io/ethwns/database/models"
	"github.com/blinklabs-io/ethwns/database/types"
	"github.com/blinklabs-io/ethwns/namehash"
	"github.com/ethereum/go-ethereum/common"
)

// SetNamePreimage verifies that name hashes to labelHash and, if so,
// backfills the name onto the domain node and registration for the label.
// Claims that fail verification are logged and dropped without error.
func (r *Registrar) SetNamePreimage(
	store Store,
	name string,
	labelHash common.Hash,
	cost *big.Int,
) error {
	if actual := namehash.LabelHash(name); actual != labelHash {
		r.logger.Warn(
			fmt.Sprintf(
				"expected '%s' to hash to %s, but got %s instead, skipping",
				name,
				labelHash.Hex(),
				actual.Hex(),
			),
		)
		r.metrics.preimagesRejected.WithLabelValues("hash_mismatch").Inc()
		return nil
	}
	if !namehash.IsSingleLabel(name) {
		r.logger.Warn(
			fmt.Sprintf("invalid label '%s', skipping", name),
		)
		r.metrics.preimagesRejected.WithLabelValues("invalid_label").Inc()
		return nil
	}
	// Remember the verified label so a registration arriving later picks it up
	if err := r.setLabelPreimage(store, name, labelHash, cost); err != nil {
		return err
	}
	r.metrics.preimagesApplied.Inc()

	node := namehash.NodeHashOf(r.config.RootNode, labelHash)
	domainID := namehash.DomainID(node)
	domain, err := store.GetDomain(domainID)
	if err != nil {
		return fmt.Errorf("get domain %s: %w", domainID, err)
	}
	if domain == nil {
		r.metrics.missingEntities.WithLabelValues("preimage", "domain").Inc()
		if r.config.Policies.preimageMissingDomain() == PolicyFail {
			return fmt.Errorf("%w: %s (label %s)", ErrDomainNotFound, domainID, name)
		}
		r.logger.Debug(
			"no domain for verified label",
			"domain", domainID,
			"label", name,
		)
	} else if domain.LabelName == nil || *domain.LabelName != name {
		if err := store.SetDomainName(
			domainID,
			name,
			namehash.FullName(name, r.config.Suffix),
		); err != nil {
			return fmt.Errorf("set domain name %s: %w", domainID, err)
		}
	}

	registrationID := namehash.RegistrationID(labelHash)
	registration, err := store.GetRegistration(registrationID)
	if err != nil {
		return fmt.Errorf("get registration %s: %w", registrationID, err)
	}
	if registration == nil {
		r.metrics.missingEntities.WithLabelValues("preimage", "registration").Inc()
		if r.config.Policies.preimageMissingRegistration() == PolicyFail {
			return fmt.Errorf(
				"%w: %s (label %s)",
				ErrRegistrationNotFound,
				registrationID,
				name,
			)
		}
		return nil
	}
	registration.LabelName = &name
	if cost != nil {
		registration.Cost = types.NewBigInt(cost)
	}
	if err := store.SetRegistration(registration); err != nil {
		return fmt.Errorf("set registration %s: %w", registrationID, err)
	}
	return nil
}

func (r *Registrar) setLabelPreimage(
	store Store,
	name string,
	labelHash common.Hash,
	cost *big.Int,
) error {
	preimageID := namehash.RegistrationID(labelHash)
	preimage := &models.LabelPreimage{
		ID:   preimageID,
		Name: name,
		Cost: types.NewBigInt(cost),
	}
	if cost == nil {
		prev, err := store.GetLabelPreimage(preimageID)
		if err != nil {
			return fmt.Errorf("get label preimage %s: %w", preimageID, err)
		}
		if prev != nil {
			preimage.Cost = prev.Cost
		}
	}
	if err := store.SetLabelPreimage(preimage); err != nil {
		return fmt.Errorf("set label preimage %s: %w", preimageID, err)
	}
	return nil
}
