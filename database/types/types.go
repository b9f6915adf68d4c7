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

package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
)

// BigInt stores an arbitrary precision integer as decimal text. A nil value
// is stored as NULL.
//
//nolint:recvcheck
type BigInt struct {
	*big.Int
}

func NewBigInt(val *big.Int) BigInt {
	if val == nil {
		return BigInt{}
	}
	return BigInt{Int: new(big.Int).Set(val)}
}

func (b BigInt) Value() (driver.Value, error) {
	if b.Int == nil {
		return nil, nil
	}
	return b.String(), nil
}

func (b *BigInt) Scan(val any) error {
	var tmpStr string
	switch v := val.(type) {
	case nil:
		b.Int = nil
		return nil
	case string:
		tmpStr = v
	case []byte:
		tmpStr = string(v)
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	tmpInt, ok := new(big.Int).SetString(tmpStr, 10)
	if !ok {
		return fmt.Errorf("failed to set big.Int value from string: %s", tmpStr)
	}
	b.Int = tmpInt
	return nil
}

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrTxnWrongType is returned when a transaction has the wrong type
var ErrTxnWrongType = errors.New("invalid transaction type")

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrNoStoreAvailable is returned when no blob or metadata store is available
var ErrNoStoreAvailable = errors.New("no store available")

// ErrTxnFinished is returned when a transaction is used after commit or rollback
var ErrTxnFinished = errors.New("transaction already finished")

// BlobItem represents a value returned by an iterator
type BlobItem interface {
	Key() []byte
	ValueCopy(dst []byte) ([]byte, error)
}

// BlobIterator provides ordered key iteration over the blob store. Items are
// only valid while the transaction that created the iterator is open.
type BlobIterator interface {
	Rewind()
	Valid() bool
	Next()
	Item() BlobItem
	Close()
	Err() error
}

// BlobIteratorOptions configures blob iterator creation
type BlobIteratorOptions struct {
	Prefix []byte
}

// Txn is a store transaction handle. The database layer coordinates the
// metadata and blob transactions for one unit of work.
type Txn interface {
	Commit() error
	Rollback() error
}
