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

package event

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	IndexerAppliedEventType EventType = "indexer.applied"
	IndexerSkippedEventType EventType = "indexer.skipped"
	IndexerHaltedEventType  EventType = "indexer.halted"
)

// Names of the decoded log kinds
const (
	KindNameRegistered           = "NameRegistered"
	KindNameRenewed              = "NameRenewed"
	KindTransfer                 = "Transfer"
	KindControllerNameRegistered = "ControllerNameRegistered"
	KindControllerNameRenewed    = "ControllerNameRenewed"
	KindNewOwner                 = "NewOwner"
)

// RegistrarEvent is a decoded contract log
type RegistrarEvent interface {
	Meta() LogMeta
	Kind() string
}

// LogMeta carries the block and transaction context of a decoded log
type LogMeta struct {
	BlockNumber    uint64      `cbor:"1,keyasint"`
	BlockTimestamp uint64      `cbor:"2,keyasint"`
	TxHash         common.Hash `cbor:"3,keyasint"`
	LogIndex       uint        `cbor:"4,keyasint"`
}

func (m LogMeta) Meta() LogMeta {
	return m
}

func (m LogMeta) Position() LogPosition {
	return LogPosition{
		BlockNumber: m.BlockNumber,
		LogIndex:    m.LogIndex,
	}
}

// LogPosition orders logs within the chain
type LogPosition struct {
	BlockNumber uint64
	LogIndex    uint
}

// Before reports whether p sorts strictly before other
func (p LogPosition) Before(other LogPosition) bool {
	if p.BlockNumber != other.BlockNumber {
		return p.BlockNumber < other.BlockNumber
	}
	return p.LogIndex < other.LogIndex
}

// NameRegistered is emitted by the base registrar when a name is minted
type NameRegistered struct {
	LogMeta `cbor:"1,keyasint"`
	TokenID *big.Int       `cbor:"2,keyasint"`
	Owner   common.Address `cbor:"3,keyasint"`
	Expires uint64         `cbor:"4,keyasint"`
}

func (NameRegistered) Kind() string { return KindNameRegistered }

// NameRenewed is emitted by the base registrar when a name is extended
type NameRenewed struct {
	LogMeta `cbor:"1,keyasint"`
	TokenID *big.Int `cbor:"2,keyasint"`
	Expires uint64   `cbor:"3,keyasint"`
}

func (NameRenewed) Kind() string { return KindNameRenewed }

// Transfer is the ERC-721 transfer of a registrar token
type Transfer struct {
	LogMeta `cbor:"1,keyasint"`
	From    common.Address `cbor:"2,keyasint"`
	To      common.Address `cbor:"3,keyasint"`
	TokenID *big.Int       `cbor:"4,keyasint"`
}

func (Transfer) Kind() string { return KindTransfer }

// ControllerNameRegistered reveals the plain-text label of a registration
type ControllerNameRegistered struct {
	LogMeta `cbor:"1,keyasint"`
	Name    string         `cbor:"2,keyasint"`
	Label   common.Hash    `cbor:"3,keyasint"`
	Owner   common.Address `cbor:"4,keyasint"`
	Cost    *big.Int       `cbor:"5,keyasint"`
	Expires uint64         `cbor:"6,keyasint"`
}

func (ControllerNameRegistered) Kind() string { return KindControllerNameRegistered }

// ControllerNameRenewed reveals the plain-text label of a renewal
type ControllerNameRenewed struct {
	LogMeta `cbor:"1,keyasint"`
	Name    string      `cbor:"2,keyasint"`
	Label   common.Hash `cbor:"3,keyasint"`
	Cost    *big.Int    `cbor:"4,keyasint"`
	Expires uint64      `cbor:"5,keyasint"`
}

func (ControllerNameRenewed) Kind() string { return KindControllerNameRenewed }

// NewOwner is emitted by the registry when a subnode is assigned
type NewOwner struct {
	LogMeta `cbor:"1,keyasint"`
	Node    common.Hash    `cbor:"2,keyasint"`
	Label   common.Hash    `cbor:"3,keyasint"`
	Owner   common.Address `cbor:"4,keyasint"`
}

func (NewOwner) Kind() string { return KindNewOwner }

// IndexerEvent is published on the bus after the indexer handles a log
type IndexerEvent struct {
	Kind     string
	Position LogPosition
	TxHash   common.Hash
	Error    error
}
