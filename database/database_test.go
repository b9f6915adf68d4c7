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

package database_test

import (
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/ethwns/database"
	"github.com/blinklabs-io/ethwns/database/models"
	"github.com/blinklabs-io/ethwns/event"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestTxnDoCommit(t *testing.T) {
	db := newTestDatabase(t)
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := txn.SetAccount("0xaa"); err != nil {
			return err
		}
		return txn.SetRegistration(&models.Registration{
			ID:           "0x01",
			DomainID:     "0xd1",
			ExpiryDate:   100,
			RegistrantID: "0xaa",
		})
	})
	require.NoError(t, err)

	txn := db.Transaction(false)
	defer txn.Release()
	reg, err := txn.GetRegistration("0x01")
	require.NoError(t, err)
	require.NotNil(t, reg)
	assert.Equal(t, "0xaa", reg.RegistrantID)
	acct, err := txn.GetAccount("0xaa")
	require.NoError(t, err)
	assert.NotNil(t, acct)
}

func TestTxnDoRollbackOnError(t *testing.T) {
	db := newTestDatabase(t)
	errTest := errors.New("test failure")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := txn.SetAccount("0xaa"); err != nil {
			return err
		}
		if err := txn.AppendJournal(event.NameRenewed{
			LogMeta: event.LogMeta{BlockNumber: 1},
			TokenID: big.NewInt(1),
		}); err != nil {
			return err
		}
		return errTest
	})
	require.ErrorIs(t, err, errTest)

	txn := db.Transaction(false)
	acct, err := txn.GetAccount("0xaa")
	require.NoError(t, err)
	assert.Nil(t, acct)
	txn.Release()

	count := 0
	require.NoError(t, db.ReplayJournal(func(event.RegistrarEvent) error {
		count++
		return nil
	}))
	assert.Equal(t, 0, count)
}

func TestTxnCommitStampsBothStores(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(true)
	require.NoError(t, txn.SetAccount("0xaa"))
	require.NoError(t, txn.AppendJournal(event.NameRenewed{
		LogMeta: event.LogMeta{BlockNumber: 5},
		TokenID: big.NewInt(1),
	}))
	require.NoError(t, txn.Commit())
	// A closed transaction ignores further commits and rollbacks
	require.NoError(t, txn.Commit())
	require.NoError(t, txn.Rollback())

	metadataTs, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	blobTs, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Positive(t, metadataTs)
	assert.Equal(t, metadataTs, blobTs)

	// Committing a read-only transaction only releases it
	ro := db.Transaction(false)
	require.NoError(t, ro.Commit())
	ro = db.Transaction(false)
	defer ro.Release()
	acct, err := ro.GetAccount("0xaa")
	require.NoError(t, err)
	assert.NotNil(t, acct)
}

func TestReplayJournalOrder(t *testing.T) {
	db := newTestDatabase(t)
	positions := []event.LogMeta{
		{BlockNumber: 300, LogIndex: 0},
		{BlockNumber: 2, LogIndex: 7},
		{BlockNumber: 2, LogIndex: 1},
		{BlockNumber: 256, LogIndex: 3},
	}
	for _, meta := range positions {
		err := db.Transaction(true).Do(func(txn *database.Txn) error {
			return txn.AppendJournal(event.Transfer{
				LogMeta: meta,
				From:    common.HexToAddress("0x01"),
				To:      common.HexToAddress("0x02"),
				TokenID: big.NewInt(int64(meta.BlockNumber)),
			})
		})
		require.NoError(t, err)
	}
	var got []event.LogPosition
	err := db.ReplayJournal(func(evt event.RegistrarEvent) error {
		got = append(got, evt.Meta().Position())
		// Writing from inside the replay callback must not block
		return db.Transaction(true).Do(func(txn *database.Txn) error {
			return txn.SetCursor(evt.Meta().Position())
		})
	})
	require.NoError(t, err)
	assert.Equal(
		t,
		[]event.LogPosition{
			{BlockNumber: 2, LogIndex: 1},
			{BlockNumber: 2, LogIndex: 7},
			{BlockNumber: 256, LogIndex: 3},
			{BlockNumber: 300, LogIndex: 0},
		},
		got,
	)
}

func TestReplayJournalStopsOnError(t *testing.T) {
	db := newTestDatabase(t)
	for i := range uint64(3) {
		err := db.Transaction(true).Do(func(txn *database.Txn) error {
			return txn.AppendJournal(event.NameRenewed{
				LogMeta: event.LogMeta{BlockNumber: i},
				TokenID: big.NewInt(1),
			})
		})
		require.NoError(t, err)
	}
	errStop := errors.New("stop")
	calls := 0
	err := db.ReplayJournal(func(event.RegistrarEvent) error {
		calls++
		return errStop
	})
	require.ErrorIs(t, err, errStop)
	assert.Equal(t, 1, calls)
}

func TestCursorAndResetState(t *testing.T) {
	db := newTestDatabase(t)
	txn := db.Transaction(true)
	_, ok, err := txn.GetCursor()
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, txn.SetCursor(event.LogPosition{BlockNumber: 42, LogIndex: 3}))
	require.NoError(t, txn.AppendJournal(event.NameRenewed{
		LogMeta: event.LogMeta{BlockNumber: 42, LogIndex: 3},
		TokenID: big.NewInt(1),
	}))
	require.NoError(t, txn.Commit())

	txn = db.Transaction(false)
	pos, ok, err := txn.GetCursor()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, event.LogPosition{BlockNumber: 42, LogIndex: 3}, pos)
	txn.Release()

	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return txn.ResetState()
	}))
	txn = db.Transaction(false)
	_, ok, err = txn.GetCursor()
	require.NoError(t, err)
	assert.False(t, ok)
	txn.Release()

	// The journal survives a state reset
	count := 0
	require.NoError(t, db.ReplayJournal(func(event.RegistrarEvent) error {
		count++
		return nil
	}))
	assert.Equal(t, 1, count)
}

func TestCommitTimestampMismatch(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "data")
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return txn.SetAccount("0xaa")
	}))
	// Simulate a partial commit by moving only the blob timestamp
	blobTxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(1, blobTxn))
	require.NoError(t, blobTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dataDir})
	require.Error(t, err)
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(1), tsErr.BlobTimestamp)
	assert.Positive(t, tsErr.MetadataTimestamp)
	require.NotNil(t, db)
	require.NoError(t, db.Close())
}

func TestUnknownPlugins(t *testing.T) {
	_, err := database.New(&database.Config{MetadataPlugin: "mysql"})
	require.Error(t, err)
	_, err = database.New(&database.Config{BlobPlugin: "s3"})
	require.Error(t, err)
}
