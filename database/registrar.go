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

package database

import (
	"github.com/blinklabs-io/ethwns/database/models"
	"github.com/blinklabs-io/ethwns/database/types"
)

// The methods below scope metadata queries to the transaction so that all
// reads observe the writes made earlier in the same unit of work

func (t *Txn) metadataOrErr() (types.Txn, error) {
	if t.metadataTxn == nil {
		return nil, types.ErrNilTxn
	}
	return t.metadataTxn, nil
}

func (t *Txn) GetAccount(id string) (*models.Account, error) {
	txn, err := t.metadataOrErr()
	if err != nil {
		return nil, err
	}
	return t.db.Metadata().GetAccount(id, txn)
}

func (t *Txn) SetAccount(id string) error {
	txn, err := t.metadataOrErr()
	if err != nil {
		return err
	}
	return t.db.Metadata().SetAccount(id, txn)
}

func (t *Txn) GetDomain(id string) (*models.Domain, error) {
	txn, err := t.metadataOrErr()
	if err != nil {
		return nil, err
	}
	return t.db.Metadata().GetDomain(id, txn)
}

func (t *Txn) SetDomain(domain *models.Domain) error {
	txn, err := t.metadataOrErr()
	if err != nil {
		return err
	}
	return t.db.Metadata().SetDomain(domain, txn)
}

func (t *Txn) SetDomainName(id string, labelName string, name string) error {
	txn, err := t.metadataOrErr()
	if err != nil {
		return err
	}
	return t.db.Metadata().SetDomainName(id, labelName, name, txn)
}

func (t *Txn) GetRegistration(id string) (*models.Registration, error) {
	txn, err := t.metadataOrErr()
	if err != nil {
		return nil, err
	}
	return t.db.Metadata().GetRegistration(id, txn)
}

func (t *Txn) SetRegistration(registration *models.Registration) error {
	txn, err := t.metadataOrErr()
	if err != nil {
		return err
	}
	return t.db.Metadata().SetRegistration(registration, txn)
}

func (t *Txn) GetLabelPreimage(id string) (*models.LabelPreimage, error) {
	txn, err := t.metadataOrErr()
	if err != nil {
		return nil, err
	}
	return t.db.Metadata().GetLabelPreimage(id, txn)
}

func (t *Txn) SetLabelPreimage(preimage *models.LabelPreimage) error {
	txn, err := t.metadataOrErr()
	if err != nil {
		return err
	}
	return t.db.Metadata().SetLabelPreimage(preimage, txn)
}

func (t *Txn) AddNameRegistered(record *models.NameRegistered) error {
	txn, err := t.metadataOrErr()
	if err != nil {
		return err
	}
	return t.db.Metadata().AddNameRegistered(record, txn)
}

func (t *Txn) AddNameRenewed(record *models.NameRenewed) error {
	txn, err := t.metadataOrErr()
	if err != nil {
		return err
	}
	return t.db.Metadata().AddNameRenewed(record, txn)
}

func (t *Txn) AddNameTransferred(record *models.NameTransferred) error {
	txn, err := t.metadataOrErr()
	if err != nil {
		return err
	}
	return t.db.Metadata().AddNameTransferred(record, txn)
}

func (t *Txn) GetNameRegistered(
	registrationID string,
) ([]models.NameRegistered, error) {
	txn, err := t.metadataOrErr()
	if err != nil {
		return nil, err
	}
	return t.db.Metadata().GetNameRegistered(registrationID, txn)
}

func (t *Txn) GetNameRenewed(
	registrationID string,
) ([]models.NameRenewed, error) {
	txn, err := t.metadataOrErr()
	if err != nil {
		return nil, err
	}
	return t.db.Metadata().GetNameRenewed(registrationID, txn)
}

func (t *Txn) GetNameTransferred(
	registrationID string,
) ([]models.NameTransferred, error) {
	txn, err := t.metadataOrErr()
	if err != nil {
		return nil, err
	}
	return t.db.Metadata().GetNameTransferred(registrationID, txn)
}
