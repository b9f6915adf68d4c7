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

package gormstore

import (
	"errors"

	"github.com/blinklabs-io/ethwns/database/models"
	"github.com/blinklabs-io/ethwns/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	upsertClause = clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}
	// History records are immutable, a replayed insert is a no-op
	insertOnceClause = clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}
)

// getByID loads a row by primary key. A missing row returns nil, nil.
func getByID[T any](s *Store, id string, txn types.Txn) (*T, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := new(T)
	result := db.Where("id = ?", id).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

func (s *Store) create(value any, onConflict clause.OnConflict, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(onConflict).Create(value).Error
}

// SetAccount creates the account if it does not exist
func (s *Store) SetAccount(id string, txn types.Txn) error {
	return s.create(&models.Account{ID: id}, insertOnceClause, txn)
}

func (s *Store) GetAccount(id string, txn types.Txn) (*models.Account, error) {
	return getByID[models.Account](s, id, txn)
}

func (s *Store) GetDomain(id string, txn types.Txn) (*models.Domain, error) {
	return getByID[models.Domain](s, id, txn)
}

// SetDomain creates or replaces a domain row
func (s *Store) SetDomain(domain *models.Domain, txn types.Txn) error {
	return s.create(domain, upsertClause, txn)
}

// SetDomainName updates only the label and name columns of a domain
func (s *Store) SetDomainName(
	id string,
	labelName string,
	name string,
	txn types.Txn,
) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Domain{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"label_name": labelName,
			"name":       name,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (s *Store) GetRegistration(
	id string,
	txn types.Txn,
) (*models.Registration, error) {
	return getByID[models.Registration](s, id, txn)
}

// SetRegistration creates or replaces a registration row
func (s *Store) SetRegistration(
	registration *models.Registration,
	txn types.Txn,
) error {
	return s.create(registration, upsertClause, txn)
}

func (s *Store) GetLabelPreimage(
	id string,
	txn types.Txn,
) (*models.LabelPreimage, error) {
	return getByID[models.LabelPreimage](s, id, txn)
}

func (s *Store) SetLabelPreimage(
	preimage *models.LabelPreimage,
	txn types.Txn,
) error {
	return s.create(preimage, upsertClause, txn)
}

func (s *Store) AddNameRegistered(
	record *models.NameRegistered,
	txn types.Txn,
) error {
	return s.create(record, insertOnceClause, txn)
}

func (s *Store) AddNameRenewed(
	record *models.NameRenewed,
	txn types.Txn,
) error {
	return s.create(record, insertOnceClause, txn)
}

func (s *Store) AddNameTransferred(
	record *models.NameTransferred,
	txn types.Txn,
) error {
	return s.create(record, insertOnceClause, txn)
}

// GetNameRegistered returns the registration history of a label in block order
func (s *Store) GetNameRegistered(
	registrationID string,
	txn types.Txn,
) ([]models.NameRegistered, error) {
	var ret []models.NameRegistered
	err := s.history(&ret, registrationID, txn)
	return ret, err
}

// GetNameRenewed returns the renewal history of a label in block order
func (s *Store) GetNameRenewed(
	registrationID string,
	txn types.Txn,
) ([]models.NameRenewed, error) {
	var ret []models.NameRenewed
	err := s.history(&ret, registrationID, txn)
	return ret, err
}

// GetNameTransferred returns the transfer history of a label in block order
func (s *Store) GetNameTransferred(
	registrationID string,
	txn types.Txn,
) ([]models.NameTransferred, error) {
	var ret []models.NameTransferred
	err := s.history(&ret, registrationID, txn)
	return ret, err
}

func (s *Store) history(dest any, registrationID string, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Where("registration_id = ?", registrationID).
		Order("block_number, id").
		Find(dest).Error
}
