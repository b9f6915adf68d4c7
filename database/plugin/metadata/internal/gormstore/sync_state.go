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

// GetSyncState returns the value stored under key, or "" when unset
func (s *Store) GetSyncState(key string, txn types.Txn) (string, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return "", err
	}
	var tmpState models.SyncState
	result := db.Where("key = ?", key).First(&tmpState)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return tmpState.Value, nil
}

func (s *Store) SetSyncState(key string, value string, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.SyncState{Key: key, Value: value}).Error
}

func (s *Store) DeleteSyncState(key string, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	return db.Where("key = ?", key).Delete(&models.SyncState{}).Error
}
