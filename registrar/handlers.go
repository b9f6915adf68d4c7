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
	"context"
	"fmt"

	"github.com/blinklabs-io/ethwns/database/models"
	"github.com/blinklabs-io/ethwns/event"
	"github.com/blinklabs-io/ethwns/namehash"
	"github.com/ethereum/go-ethereum/common"
)

// HandleNameRegistered creates or replaces the registration for a newly
// minted label
func (r *Registrar) HandleNameRegistered(
	ctx context.Context,
	store Store,
	evt event.NameRegistered,
) error {
	registrantID := namehash.AccountID(evt.Owner)
	if err := store.SetAccount(registrantID); err != nil {
		return fmt.Errorf("set account %s: %w", registrantID, err)
	}
	label := namehash.LabelBytesOf(evt.TokenID)
	registrationID := namehash.RegistrationID(label)
	registration := &models.Registration{
		ID:               registrationID,
		DomainID:         namehash.DomainID(namehash.NodeHashOf(r.config.RootNode, label)),
		RegistrationDate: evt.BlockTimestamp,
		ExpiryDate:       evt.Expires,
		RegistrantID:     registrantID,
	}
	// A re-registration keeps what was learned about the label before
	prev, err := store.GetRegistration(registrationID)
	if err != nil {
		return fmt.Errorf("get registration %s: %w", registrationID, err)
	}
	if prev != nil {
		registration.LabelName = prev.LabelName
		registration.Cost = prev.Cost
	}
	if name, ok := r.lookupName(ctx, common.Hash(label)); ok {
		registration.LabelName = &name
	}
	preimage, err := store.GetLabelPreimage(registrationID)
	if err != nil {
		return fmt.Errorf("get label preimage %s: %w", registrationID, err)
	}
	if preimage != nil {
		registration.LabelName = &preimage.Name
		if preimage.Cost.Int != nil {
			registration.Cost = preimage.Cost
		}
	}
	if err := store.SetRegistration(registration); err != nil {
		return fmt.Errorf("set registration %s: %w", registrationID, err)
	}
	if err := store.AddNameRegistered(&models.NameRegistered{
		ID:             namehash.EventID(evt.TxHash, evt.LogIndex),
		RegistrationID: registrationID,
		BlockNumber:    evt.BlockNumber,
		TransactionID:  evt.TxHash.Hex(),
		RegistrantID:   registrantID,
		ExpiryDate:     evt.Expires,
	}); err != nil {
		return fmt.Errorf("add name registered: %w", err)
	}
	return nil
}

// HandleControllerNameRegistered applies the label revealed by a controller
// registration
func (r *Registrar) HandleControllerNameRegistered(
	store Store,
	evt event.ControllerNameRegistered,
) error {
	return r.SetNamePreimage(store, evt.Name, evt.Label, evt.Cost)
}

// HandleControllerNameRenewed applies the label revealed by a controller
// renewal
func (r *Registrar) HandleControllerNameRenewed(
	store Store,
	evt event.ControllerNameRenewed,
) error {
	return r.SetNamePreimage(store, evt.Name, evt.Label, evt.Cost)
}

// HandleNameRenewed extends the expiry of an existing registration
func (r *Registrar) HandleNameRenewed(
	store Store,
	evt event.NameRenewed,
) error {
	label := namehash.LabelBytesOf(evt.TokenID)
	registrationID := namehash.RegistrationID(label)
	registration, err := store.GetRegistration(registrationID)
	if err != nil {
		return fmt.Errorf("get registration %s: %w", registrationID, err)
	}
	if registration == nil {
		r.metrics.missingEntities.WithLabelValues("renewal", "registration").Inc()
		if r.config.Policies.renewalMissingRegistration() == PolicyFail {
			return fmt.Errorf(
				"%w: renewal of %s in tx %s",
				ErrRegistrationNotFound,
				registrationID,
				evt.TxHash.Hex(),
			)
		}
		r.logger.Warn(
			"renewal for unknown registration, skipping",
			"registration", registrationID,
			"tx", evt.TxHash.Hex(),
		)
		return nil
	}
	registration.ExpiryDate = evt.Expires
	if err := store.SetRegistration(registration); err != nil {
		return fmt.Errorf("set registration %s: %w", registrationID, err)
	}
	if err := store.AddNameRenewed(&models.NameRenewed{
		ID:             namehash.EventID(evt.TxHash, evt.LogIndex),
		RegistrationID: registrationID,
		BlockNumber:    evt.BlockNumber,
		TransactionID:  evt.TxHash.Hex(),
		ExpiryDate:     evt.Expires,
	}); err != nil {
		return fmt.Errorf("add name renewed: %w", err)
	}
	return nil
}

// HandleTransfer moves a registration to a new registrant. Transfers of
// tokens without a registration are ignored.
func (r *Registrar) HandleTransfer(
	store Store,
	evt event.Transfer,
) error {
	newOwnerID := namehash.AccountID(evt.To)
	if err := store.SetAccount(newOwnerID); err != nil {
		return fmt.Errorf("set account %s: %w", newOwnerID, err)
	}
	label := namehash.LabelBytesOf(evt.TokenID)
	registrationID := namehash.RegistrationID(label)
	registration, err := store.GetRegistration(registrationID)
	if err != nil {
		return fmt.Errorf("get registration %s: %w", registrationID, err)
	}
	if registration == nil {
		r.metrics.missingEntities.WithLabelValues("transfer", "registration").Inc()
		if r.config.Policies.transferMissingRegistration() == PolicyFail {
			return fmt.Errorf(
				"%w: transfer of %s in tx %s",
				ErrRegistrationNotFound,
				registrationID,
				evt.TxHash.Hex(),
			)
		}
		return nil
	}
	registration.RegistrantID = newOwnerID
	if err := store.SetRegistration(registration); err != nil {
		return fmt.Errorf("set registration %s: %w", registrationID, err)
	}
	if err := store.AddNameTransferred(&models.NameTransferred{
		ID:             namehash.EventID(evt.TxHash, evt.LogIndex),
		RegistrationID: registrationID,
		BlockNumber:    evt.BlockNumber,
		TransactionID:  evt.TxHash.Hex(),
		NewOwnerID:     newOwnerID,
	}); err != nil {
		return fmt.Errorf("add name transferred: %w", err)
	}
	return nil
}
