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
	"errors"
	"fmt"

	"github.com/blinklabs-io/ethwns/database/types"
	"github.com/blinklabs-io/ethwns/event"
)

// AppendJournal stores the raw registrar event in the blob store, keyed by
// its chain position. Writing the same position twice replaces the entry.
func (t *Txn) AppendJournal(evt event.RegistrarEvent) error {
	if t.blobTxn == nil {
		return types.ErrNilTxn
	}
	data, err := event.MarshalCBOR(evt)
	if err != nil {
		return err
	}
	meta := evt.Meta()
	return t.db.Blob().Set(
		t.blobTxn,
		types.JournalKey(meta.BlockNumber, meta.LogIndex),
		data,
	)
}

// ReplayJournal calls fn for every journaled event in chain order. The
// iteration holds a read-only blob transaction, so fn may open its own
// transactions. Iteration stops at the first error returned by fn.
func (d *Database) ReplayJournal(fn func(event.RegistrarEvent) error) error {
	txn := newJournalTxn(d)
	defer txn.Release()
	if txn.Blob() == nil {
		return types.ErrNoStoreAvailable
	}
	iter := d.Blob().NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{
			Prefix: []byte(types.JournalKeyPrefix),
		},
	)
	defer iter.Close()
	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		key := item.Key()
		blockNumber, logIndex, err := types.ParseJournalKey(key)
		if err != nil {
			// Other blob keys can share the prefix byte
			if errors.Is(err, types.ErrInvalidJournalKey) {
				continue
			}
			return err
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf(
				"read journal entry %d:%d: %w",
				blockNumber,
				logIndex,
				err,
			)
		}
		evt, err := event.UnmarshalCBOR(data)
		if err != nil {
			return fmt.Errorf(
				"decode journal entry %d:%d: %w",
				blockNumber,
				logIndex,
				err,
			)
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
	return iter.Err()
}
