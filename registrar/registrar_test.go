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

package registrar_test

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/ethwns/database"
	"github.com/blinklabs-io/ethwns/database/models"
	"github.com/blinklabs-io/ethwns/event"
	"github.com/blinklabs-io/ethwns/namehash"
	"github.com/blinklabs-io/ethwns/registrar"
)

var (
	testOwner = common.HexToAddress("0xAAAaaAAAaaaAAaAaaAAAAAAaAaAAaaaAaAAAaaAA")
	testOther = common.HexToAddress("0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB")
	testTx1   = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	testTx2   = common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
)

type staticLookup map[common.Hash]string

func (s staticLookup) LookupName(_ context.Context, label common.Hash) (string, bool) {
	name, ok := s[label]
	return name, ok
}

type testEnv struct {
	db  *database.Database
	reg *registrar.Registrar
}

func newTestEnv(t *testing.T, config registrar.RegistrarConfig) *testEnv {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	reg, err := registrar.NewRegistrar(config)
	require.NoError(t, err)
	return &testEnv{db: db, reg: reg}
}

func (e *testEnv) apply(fn func(*database.Txn) error) error {
	return e.db.Transaction(true).Do(fn)
}

func (e *testEnv) registration(t *testing.T, id string) *models.Registration {
	t.Helper()
	txn := e.db.Transaction(false)
	defer txn.Release()
	ret, err := txn.GetRegistration(id)
	require.NoError(t, err)
	return ret
}

func (e *testEnv) domain(t *testing.T, id string) *models.Domain {
	t.Helper()
	txn := e.db.Transaction(false)
	defer txn.Release()
	ret, err := txn.GetDomain(id)
	require.NoError(t, err)
	return ret
}

func (e *testEnv) createDomain(t *testing.T, labelHash common.Hash) string {
	t.Helper()
	domainID := namehash.DomainID(namehash.NodeHashOf(e.reg.RootNode(), labelHash))
	labelHex := namehash.RegistrationID(labelHash)
	parentID := namehash.DomainID(e.reg.RootNode())
	require.NoError(t, e.apply(func(txn *database.Txn) error {
		return txn.SetDomain(&models.Domain{
			ID:        domainID,
			ParentID:  &parentID,
			LabelHash: &labelHex,
		})
	}))
	return domainID
}

func (e *testEnv) register(
	t *testing.T,
	tokenID *big.Int,
	txHash common.Hash,
	logIndex uint,
	owner common.Address,
	expires uint64,
) {
	t.Helper()
	require.NoError(t, e.apply(func(txn *database.Txn) error {
		return e.reg.HandleNameRegistered(
			context.Background(),
			txn,
			event.NameRegistered{
				LogMeta: event.LogMeta{
					BlockNumber:    10,
					BlockTimestamp: 1000,
					TxHash:         txHash,
					LogIndex:       logIndex,
				},
				TokenID: tokenID,
				Owner:   owner,
				Expires: expires,
			},
		)
	}))
}

func (e *testEnv) reveal(t *testing.T, name string, label common.Hash, cost *big.Int) error {
	t.Helper()
	return e.apply(func(txn *database.Txn) error {
		return e.reg.HandleControllerNameRegistered(
			txn,
			event.ControllerNameRegistered{
				LogMeta: event.LogMeta{BlockNumber: 10, TxHash: testTx1, LogIndex: 5},
				Name:    name,
				Label:   label,
				Owner:   testOwner,
				Cost:    cost,
				Expires: 2000,
			},
		)
	})
}

func TestRegistrationTokenOne(t *testing.T) {
	env := newTestEnv(t, registrar.RegistrarConfig{})
	env.register(t, big.NewInt(1), testTx1, 3, testOwner, 2000)

	label := make([]byte, 32)
	label[31] = 1
	expectedID := "0x" + strings.Repeat("0", 63) + "1"
	expectedDomain := crypto.Keccak256Hash(namehash.RootNode.Bytes(), label).Hex()

	reg := env.registration(t, expectedID)
	require.NotNil(t, reg)
	assert.Equal(t, expectedID, reg.ID)
	assert.Equal(t, expectedDomain, reg.DomainID)
	assert.Equal(t, "0x"+strings.Repeat("aa", 20), reg.RegistrantID)
	assert.Equal(t, uint64(1000), reg.RegistrationDate)
	assert.Equal(t, uint64(2000), reg.ExpiryDate)
	assert.Nil(t, reg.LabelName)
	assert.Nil(t, reg.Cost.Int)

	txn := env.db.Transaction(false)
	defer txn.Release()
	history, err := txn.GetNameRegistered(expectedID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint64(2000), history[0].ExpiryDate)
	assert.Equal(t, uint64(10), history[0].BlockNumber)
	assert.Equal(t, testTx1.Hex(), history[0].TransactionID)
	assert.Equal(t, reg.RegistrantID, history[0].RegistrantID)
	assert.Equal(t, namehash.EventID(testTx1, 3), history[0].ID)
	acct, err := txn.GetAccount(reg.RegistrantID)
	require.NoError(t, err)
	assert.NotNil(t, acct)
}

func TestRegistrationReplayIdempotent(t *testing.T) {
	env := newTestEnv(t, registrar.RegistrarConfig{})
	tokenID := big.NewInt(42)
	regID := namehash.RegistrationID(namehash.LabelBytesOf(tokenID))
	env.register(t, tokenID, testTx1, 0, testOwner, 2000)
	first := env.registration(t, regID)
	env.register(t, tokenID, testTx1, 0, testOwner, 2000)
	second := env.registration(t, regID)
	assert.Equal(t, first, second)

	txn := env.db.Transaction(false)
	defer txn.Release()
	history, err := txn.GetNameRegistered(regID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestReRegistrationOverwrites(t *testing.T) {
	env := newTestEnv(t, registrar.RegistrarConfig{})
	label := namehash.LabelHash("alice")
	env.createDomain(t, label)
	tokenID := label.Big()
	regID := namehash.RegistrationID(label)
	env.register(t, tokenID, testTx1, 0, testOwner, 2000)
	require.NoError(t, env.reveal(t, "alice", label, big.NewInt(7)))
	env.register(t, tokenID, testTx2, 0, testOther, 9000)

	reg := env.registration(t, regID)
	require.NotNil(t, reg)
	assert.Equal(t, namehash.AccountID(testOther), reg.RegistrantID)
	assert.Equal(t, uint64(9000), reg.ExpiryDate)
	require.NotNil(t, reg.LabelName)
	assert.Equal(t, "alice", *reg.LabelName)
	assert.Equal(t, "7", reg.Cost.String())

	txn := env.db.Transaction(false)
	defer txn.Release()
	history, err := txn.GetNameRegistered(regID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestPreimageBackfill(t *testing.T) {
	env := newTestEnv(t, registrar.RegistrarConfig{})
	label := namehash.LabelHash("alice")
	domainID := env.createDomain(t, label)
	env.register(t, label.Big(), testTx1, 0, testOwner, 2000)
	require.NoError(t, env.reveal(t, "alice", label, big.NewInt(10)))

	domain := env.domain(t, domainID)
	require.NotNil(t, domain)
	require.NotNil(t, domain.LabelName)
	require.NotNil(t, domain.Name)
	assert.Equal(t, "alice", *domain.LabelName)
	assert.Equal(t, "alice.ethw", *domain.Name)

	reg := env.registration(t, namehash.RegistrationID(label))
	require.NotNil(t, reg)
	require.NotNil(t, reg.LabelName)
	assert.Equal(t, "alice", *reg.LabelName)
	assert.Equal(t, "10", reg.Cost.String())
	assert.Equal(t, domainID, reg.DomainID)

	// Applying the same reveal again changes nothing
	require.NoError(t, env.reveal(t, "alice", label, big.NewInt(10)))
	assert.Equal(t, domain, env.domain(t, domainID))
	assert.Equal(t, reg, env.registration(t, namehash.RegistrationID(label)))
}

func TestPreimageNilCostKeepsCost(t *testing.T) {
	env := newTestEnv(t, registrar.RegistrarConfig{})
	label := namehash.LabelHash("alice")
	env.createDomain(t, label)
	env.register(t, label.Big(), testTx1, 0, testOwner, 2000)
	require.NoError(t, env.reveal(t, "alice", label, big.NewInt(10)))
	require.NoError(t, env.reveal(t, "alice", label, nil))
	reg := env.registration(t, namehash.RegistrationID(label))
	require.NotNil(t, reg)
	assert.Equal(t, "10", reg.Cost.String())
}

func TestPreimageHashMismatch(t *testing.T) {
	promRegistry := prometheus.NewRegistry()
	env := newTestEnv(t, registrar.RegistrarConfig{PromRegistry: promRegistry})
	label := namehash.LabelHash("bob")
	domainID := env.createDomain(t, label)
	env.register(t, label.Big(), testTx1, 0, testOwner, 2000)
	regBefore := env.registration(t, namehash.RegistrationID(label))
	domainBefore := env.domain(t, domainID)

	require.NoError(t, env.reveal(t, "alice", label, big.NewInt(99)))

	assert.Equal(t, regBefore, env.registration(t, namehash.RegistrationID(label)))
	assert.Equal(t, domainBefore, env.domain(t, domainID))
	txn := env.db.Transaction(false)
	defer txn.Release()
	preimage, err := txn.GetLabelPreimage(namehash.RegistrationID(label))
	require.NoError(t, err)
	assert.Nil(t, preimage)
	count, err := testutil.GatherAndCount(
		promRegistry,
		"ethwns_registrar_preimages_rejected_total",
	)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPreimageRejectsSeparator(t *testing.T) {
	env := newTestEnv(t, registrar.RegistrarConfig{})
	label := namehash.LabelHash("foo.bar")
	domainID := env.createDomain(t, label)
	env.register(t, label.Big(), testTx1, 0, testOwner, 2000)
	regBefore := env.registration(t, namehash.RegistrationID(label))
	domainBefore := env.domain(t, domainID)

	// The hash matches, but the label is not a single segment
	require.NoError(t, env.reveal(t, "foo.bar", label, big.NewInt(1)))

	assert.Equal(t, regBefore, env.registration(t, namehash.RegistrationID(label)))
	assert.Equal(t, domainBefore, env.domain(t, domainID))
}

func TestPreimageOrderIndependence(t *testing.T) {
	label := namehash.LabelHash("alice")

	forward := newTestEnv(t, registrar.RegistrarConfig{})
	forwardDomain := forward.createDomain(t, label)
	forward.register(t, label.Big(), testTx1, 0, testOwner, 2000)
	require.NoError(t, forward.reveal(t, "alice", label, big.NewInt(3)))

	reverse := newTestEnv(t, registrar.RegistrarConfig{})
	reverseDomain := reverse.createDomain(t, label)
	require.NoError(t, reverse.reveal(t, "alice", label, big.NewInt(3)))
	// Nothing to backfill yet
	assert.Nil(t, reverse.registration(t, namehash.RegistrationID(label)))
	reverse.register(t, label.Big(), testTx1, 0, testOwner, 2000)

	assert.Equal(
		t,
		forward.registration(t, namehash.RegistrationID(label)),
		reverse.registration(t, namehash.RegistrationID(label)),
	)
	assert.Equal(
		t,
		forward.domain(t, forwardDomain),
		reverse.domain(t, reverseDomain),
	)
}

func TestPreimageMissingDomain(t *testing.T) {
	label := namehash.LabelHash("alice")

	env := newTestEnv(t, registrar.RegistrarConfig{})
	env.register(t, label.Big(), testTx1, 0, testOwner, 2000)
	err := env.reveal(t, "alice", label, big.NewInt(1))
	require.ErrorIs(t, err, registrar.ErrDomainNotFound)
	// The failed event was rolled back as a whole
	reg := env.registration(t, namehash.RegistrationID(label))
	require.NotNil(t, reg)
	assert.Nil(t, reg.LabelName)

	policies := registrar.DefaultPolicies()
	policies.PreimageMissingDomain = registrar.PolicySkip
	env = newTestEnv(t, registrar.RegistrarConfig{Policies: policies})
	env.register(t, label.Big(), testTx1, 0, testOwner, 2000)
	require.NoError(t, env.reveal(t, "alice", label, big.NewInt(1)))
	reg = env.registration(t, namehash.RegistrationID(label))
	require.NotNil(t, reg)
	require.NotNil(t, reg.LabelName)
	assert.Equal(t, "alice", *reg.LabelName)
}

func TestPreimageMissingRegistration(t *testing.T) {
	label := namehash.LabelHash("alice")
	env := newTestEnv(t, registrar.RegistrarConfig{})
	domainID := env.createDomain(t, label)
	require.NoError(t, env.reveal(t, "alice", label, nil))
	domain := env.domain(t, domainID)
	require.NotNil(t, domain.Name)
	assert.Equal(t, "alice.ethw", *domain.Name)

	env = newTestEnv(t, registrar.RegistrarConfig{
		Policies: registrar.Policies{
			PreimageMissingRegistration: registrar.PolicyFail,
		},
	})
	env.createDomain(t, label)
	err := env.reveal(t, "alice", label, nil)
	require.ErrorIs(t, err, registrar.ErrRegistrationNotFound)
}

func TestControllerRenewedReveals(t *testing.T) {
	env := newTestEnv(t, registrar.RegistrarConfig{})
	label := namehash.LabelHash("carol")
	env.createDomain(t, label)
	env.register(t, label.Big(), testTx1, 0, testOwner, 2000)
	require.NoError(t, env.apply(func(txn *database.Txn) error {
		return env.reg.HandleControllerNameRenewed(
			txn,
			event.ControllerNameRenewed{
				LogMeta: event.LogMeta{BlockNumber: 20, TxHash: testTx2},
				Name:    "carol",
				Label:   label,
				Cost:    big.NewInt(4),
				Expires: 5000,
			},
		)
	}))
	reg := env.registration(t, namehash.RegistrationID(label))
	require.NotNil(t, reg.LabelName)
	assert.Equal(t, "carol", *reg.LabelName)
	assert.Equal(t, "4", reg.Cost.String())
	// Expiry comes from the base registrar renewal, not the controller
	assert.Equal(t, uint64(2000), reg.ExpiryDate)
}

func TestRenewal(t *testing.T) {
	env := newTestEnv(t, registrar.RegistrarConfig{})
	tokenID := big.NewInt(7)
	regID := namehash.RegistrationID(namehash.LabelBytesOf(tokenID))
	env.register(t, tokenID, testTx1, 0, testOwner, 2000)
	require.NoError(t, env.apply(func(txn *database.Txn) error {
		return env.reg.HandleNameRenewed(txn, event.NameRenewed{
			LogMeta: event.LogMeta{BlockNumber: 20, TxHash: testTx2, LogIndex: 1},
			TokenID: tokenID,
			Expires: 5000,
		})
	}))
	reg := env.registration(t, regID)
	require.NotNil(t, reg)
	assert.Equal(t, uint64(5000), reg.ExpiryDate)
	assert.Equal(t, uint64(1000), reg.RegistrationDate)

	txn := env.db.Transaction(false)
	defer txn.Release()
	history, err := txn.GetNameRenewed(regID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint64(5000), history[0].ExpiryDate)
	assert.Equal(t, uint64(20), history[0].BlockNumber)
	assert.Equal(t, namehash.EventID(testTx2, 1), history[0].ID)
}

func TestRenewalMissingRegistration(t *testing.T) {
	renew := func(env *testEnv) error {
		return env.apply(func(txn *database.Txn) error {
			return env.reg.HandleNameRenewed(txn, event.NameRenewed{
				LogMeta: event.LogMeta{BlockNumber: 20, TxHash: testTx2},
				TokenID: big.NewInt(8),
				Expires: 5000,
			})
		})
	}
	env := newTestEnv(t, registrar.RegistrarConfig{})
	require.ErrorIs(t, renew(env), registrar.ErrRegistrationNotFound)

	env = newTestEnv(t, registrar.RegistrarConfig{
		Policies: registrar.Policies{
			RenewalMissingRegistration: registrar.PolicySkip,
		},
	})
	require.NoError(t, renew(env))
	assert.Nil(t, env.registration(t, namehash.RegistrationID(namehash.LabelBytesOf(big.NewInt(8)))))
}

func TestTransfer(t *testing.T) {
	env := newTestEnv(t, registrar.RegistrarConfig{})
	tokenID := big.NewInt(9)
	regID := namehash.RegistrationID(namehash.LabelBytesOf(tokenID))
	env.register(t, tokenID, testTx1, 0, testOwner, 2000)
	require.NoError(t, env.apply(func(txn *database.Txn) error {
		return env.reg.HandleTransfer(txn, event.Transfer{
			LogMeta: event.LogMeta{BlockNumber: 30, TxHash: testTx2, LogIndex: 2},
			From:    testOwner,
			To:      testOther,
			TokenID: tokenID,
		})
	}))
	reg := env.registration(t, regID)
	require.NotNil(t, reg)
	assert.Equal(t, namehash.AccountID(testOther), reg.RegistrantID)

	txn := env.db.Transaction(false)
	defer txn.Release()
	history, err := txn.GetNameTransferred(regID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, namehash.AccountID(testOther), history[0].NewOwnerID)
	acct, err := txn.GetAccount(namehash.AccountID(testOther))
	require.NoError(t, err)
	assert.NotNil(t, acct)
}

func TestTransferUnknownToken(t *testing.T) {
	env := newTestEnv(t, registrar.RegistrarConfig{})
	tokenID := big.NewInt(10)
	regID := namehash.RegistrationID(namehash.LabelBytesOf(tokenID))
	require.NoError(t, env.apply(func(txn *database.Txn) error {
		return env.reg.HandleTransfer(txn, event.Transfer{
			LogMeta: event.LogMeta{BlockNumber: 30, TxHash: testTx2},
			From:    common.Address{},
			To:      testOther,
			TokenID: tokenID,
		})
	}))
	assert.Nil(t, env.registration(t, regID))
	txn := env.db.Transaction(false)
	defer txn.Release()
	history, err := txn.GetNameTransferred(regID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRegistrationNameLookup(t *testing.T) {
	aliceLabel := namehash.LabelHash("alice")
	bobLabel := namehash.LabelHash("bob")
	env := newTestEnv(t, registrar.RegistrarConfig{
		NameLookup: staticLookup{
			aliceLabel: "alice",
			// Lookups are not verified
			bobLabel: "mallory",
		},
	})
	env.register(t, aliceLabel.Big(), testTx1, 0, testOwner, 2000)
	reg := env.registration(t, namehash.RegistrationID(aliceLabel))
	require.NotNil(t, reg.LabelName)
	assert.Equal(t, "alice", *reg.LabelName)

	// A verified preimage wins over the lookup answer
	env.createDomain(t, bobLabel)
	require.NoError(t, env.reveal(t, "bob", bobLabel, nil))
	env.register(t, bobLabel.Big(), testTx2, 0, testOwner, 2000)
	reg = env.registration(t, namehash.RegistrationID(bobLabel))
	require.NotNil(t, reg.LabelName)
	assert.Equal(t, "bob", *reg.LabelName)
}

func TestCustomRootAndSuffix(t *testing.T) {
	root := namehash.Namehash("test")
	env := newTestEnv(t, registrar.RegistrarConfig{
		RootNode: root,
		Suffix:   "test",
	})
	label := namehash.LabelHash("dave")
	domainID := env.createDomain(t, label)
	assert.Equal(t, namehash.Namehash("dave.test").Hex(), domainID)
	require.NoError(t, env.reveal(t, "dave", label, nil))
	domain := env.domain(t, domainID)
	require.NotNil(t, domain.Name)
	assert.Equal(t, "dave.test", *domain.Name)
}

func TestPolicies(t *testing.T) {
	_, err := registrar.ParsePolicy("explode")
	require.ErrorIs(t, err, registrar.ErrInvalidPolicy)
	p, err := registrar.ParsePolicy("skip")
	require.NoError(t, err)
	assert.Equal(t, registrar.PolicySkip, p)

	_, err = registrar.NewRegistrar(registrar.RegistrarConfig{
		Policies: registrar.Policies{TransferMissingRegistration: "explode"},
	})
	require.ErrorIs(t, err, registrar.ErrInvalidPolicy)
	assert.NoError(t, registrar.DefaultPolicies().Validate())
}
