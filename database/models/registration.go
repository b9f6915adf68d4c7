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

package models

import "github.com/blinklabs-io/ethwns/database/types"

// Registration is the ownership record of one registrar label. The ID is the
// hex label, not the domain node.
type Registration struct {
	ID               string `gorm:"primaryKey;size:66"`
	DomainID         string `gorm:"index;size:66"`
	RegistrationDate uint64
	ExpiryDate       uint64 `gorm:"index"`
	RegistrantID     string `gorm:"index;size:42"`
	LabelName        *string
	Cost             types.BigInt `gorm:"type:text"`
}

func (Registration) TableName() string {
	return "registration"
}

// NameRegistered is the history record of a registration event
type NameRegistered struct {
	ID             string `gorm:"primaryKey"`
	RegistrationID string `gorm:"index;size:66"`
	BlockNumber    uint64 `gorm:"index"`
	TransactionID  string `gorm:"size:66"`
	RegistrantID   string `gorm:"size:42"`
	ExpiryDate     uint64
}

func (NameRegistered) TableName() string {
	return "name_registered"
}

// NameRenewed is the history record of a renewal event
type NameRenewed struct {
	ID             string `gorm:"primaryKey"`
	RegistrationID string `gorm:"index;size:66"`
	BlockNumber    uint64 `gorm:"index"`
	TransactionID  string `gorm:"size:66"`
	ExpiryDate     uint64
}

func (NameRenewed) TableName() string {
	return "name_renewed"
}

// NameTransferred is the history record of a transfer event
type NameTransferred struct {
	ID             string `gorm:"primaryKey"`
	RegistrationID string `gorm:"index;size:66"`
	BlockNumber    uint64 `gorm:"index"`
	TransactionID  string `gorm:"size:66"`
	NewOwnerID     string `gorm:"size:42"`
}

func (NameTransferred) TableName() string {
	return "name_transferred"
}
