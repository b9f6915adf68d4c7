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
	"sync"
	"time"

	"github.com/blinklabs-io/ethwns/database/types"
)

// Txn pairs the metadata transaction that holds entity and history rows
// with the blob transaction that holds the event journal. An event applied
// through one Txn lands in both stores or in neither.
type Txn struct {
	db          *Database
	blobTxn     types.Txn
	metadataTxn types.Txn
	lock        sync.Mutex
	closed      bool
	readWrite   bool
}

func NewTxn(db *Database, readWrite bool) *Txn {
	t := &Txn{db: db, readWrite: readWrite}
	if bs := db.Blob(); bs != nil {
		t.blobTxn = bs.NewTransaction(readWrite)
	}
	if ms := db.Metadata(); ms != nil {
		t.metadataTxn = ms.Transaction()
	}
	return t
}

// newJournalTxn opens a read-only transaction on the journal alone. The
// sqlite plugin has a single connection, so a replay must leave it free
// for the transactions it opens per event.
func newJournalTxn(db *Database) *Txn {
	t := &Txn{db: db}
	if bs := db.Blob(); bs != nil {
		t.blobTxn = bs.NewTransaction(false)
	}
	return t
}

func (t *Txn) DB() *Database {
	return t.db
}

// Metadata returns the entity store transaction, or nil for a journal-only
// transaction
func (t *Txn) Metadata() types.Txn {
	return t.metadataTxn
}

// Blob returns the journal transaction
func (t *Txn) Blob() types.Txn {
	return t.blobTxn
}

func (t *Txn) ReadWrite() bool {
	return t.readWrite
}

// Do runs fn and commits. If fn fails, nothing it wrote is kept.
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %w", err, rbErr)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Commit writes both stores. Committing a closed transaction is a no-op.
func (t *Txn) Commit() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.closed {
		return nil
	}
	if !t.readWrite {
		return t.rollback()
	}
	defer func() { t.closed = true }()
	if t.blobTxn == nil && t.metadataTxn == nil {
		return types.ErrNoStoreAvailable
	}
	if t.blobTxn != nil && t.metadataTxn != nil {
		return t.commitPaired()
	}
	if t.blobTxn != nil {
		return t.blobTxn.Commit()
	}
	return t.metadataTxn.Commit()
}

// commitPaired stamps both stores with the same commit time, then commits
// the journal before the entities. A failure between the two commits
// leaves the stamps unequal, which the next open reports as a
// CommitTimestampError so that the entities can be rebuilt from the
// journal.
func (t *Txn) commitPaired() error {
	if err := t.db.updateCommitTimestamp(t, time.Now().UnixMilli()); err != nil {
		t.abort()
		return fmt.Errorf("set commit timestamp: %w", err)
	}
	if err := t.blobTxn.Commit(); err != nil {
		_ = t.metadataTxn.Rollback()
		return fmt.Errorf("journal commit: %w", err)
	}
	if err := t.metadataTxn.Commit(); err != nil {
		t.db.logger.Error(
			"journal committed without entity changes, replay required",
			"component", "database",
			"error", err,
		)
		_ = t.metadataTxn.Rollback()
		return fmt.Errorf("metadata commit after journal commit: %w", err)
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.rollback()
}

func (t *Txn) rollback() error {
	if t.closed {
		return nil
	}
	t.closed = true
	var errs []error
	if t.blobTxn != nil {
		if err := t.blobTxn.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("journal rollback: %w", err))
		}
	}
	if t.metadataTxn != nil {
		if err := t.metadataTxn.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("metadata rollback: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (t *Txn) abort() {
	_ = t.blobTxn.Rollback()
	_ = t.metadataTxn.Rollback()
}

// Release discards the transaction. Deferring it after Commit is safe.
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"error", err,
			"read_write", t.readWrite,
		)
	}
}
