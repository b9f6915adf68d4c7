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

// Domain is a node in the naming hierarchy. The hierarchy columns are
// written by the registry handler, LabelName and Name by the registrar.
type Domain struct {
	ID        string  `gorm:"primaryKey;size:66"`
	ParentID  *string `gorm:"index;size:66"`
	LabelHash *string `gorm:"size:66"`
	LabelName *string
	Name      *string `gorm:"index"`
	OwnerID   *string `gorm:"index;size:42"`
	CreatedAt uint64  `gorm:"autoCreateTime:false"`
}

func (Domain) TableName() string {
	return "domain"
}

// LabelPreimage records a label whose plain text has been verified against
// its hash, along with the last cost revealed for it
type LabelPreimage struct {
	ID   string `gorm:"primaryKey;size:66"`
	Name string
	Cost types.BigInt `gorm:"type:text"`
}

func (LabelPreimage) TableName() string {
	return "label_preimage"
}
