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

package jsonl_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/ethwns/event"
	"github.com/blinklabs-io/ethwns/namehash"
	"github.com/blinklabs-io/ethwns/source/jsonl"
)

const (
	testOwner  = "0x4000000000000000000000000000000000000004"
	testTxHash = "0x00000000000000000000000000000000000000000000000000000000000000aa"
)

const testStream = `
{"kind":"NewOwner","blockNumber":"0x10","blockTimestamp":1600000000,"txHash":"` + testTxHash + `","logIndex":0,"node":"0x13dee413edb145672cb5b774d12aca9899044f674519087a2a45289d27854ece","label":"0x9c0257114eb9399a2985f8e75dad7600c5d89fe3824ffa99ec1c3eb8bf3b0501","owner":"` + testOwner + `"}
{"kind":"NameRegistered","blockNumber":16,"blockTimestamp":1600000000,"txHash":"` + testTxHash + `","logIndex":1,"tokenId":"1","owner":"` + testOwner + `","expires":"1700000000"}

{"kind":"ControllerNameRegistered","blockNumber":16,"blockTimestamp":1600000000,"txHash":"` + testTxHash + `","logIndex":2,"name":"alice","label":"0x9c0257114eb9399a2985f8e75dad7600c5d89fe3824ffa99ec1c3eb8bf3b0501","owner":"` + testOwner + `","cost":"0x1388","expires":1700000000}
{"kind":"NameRenewed","blockNumber":17,"blockTimestamp":1600000012,"txHash":"` + testTxHash + `","logIndex":0,"tokenId":"0x01","expires":1800000000}
{"kind":"ControllerNameRenewed","blockNumber":17,"blockTimestamp":1600000012,"txHash":"` + testTxHash + `","logIndex":1,"name":"alice","label":"0x9c0257114eb9399a2985f8e75dad7600c5d89fe3824ffa99ec1c3eb8bf3b0501","expires":1800000000}
{"kind":"Transfer","blockNumber":18,"blockTimestamp":1600000024,"txHash":"` + testTxHash + `","logIndex":0,"from":"` + testOwner + `","to":"0x5000000000000000000000000000000000000005","tokenId":1}
`

func TestReadAll(t *testing.T) {
	events, err := jsonl.NewReader(strings.NewReader(testStream)).ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 6)

	kinds := make([]string, 0, len(events))
	for _, evt := range events {
		kinds = append(kinds, evt.Kind())
	}
	assert.Equal(t, []string{
		event.KindNewOwner,
		event.KindNameRegistered,
		event.KindControllerNameRegistered,
		event.KindNameRenewed,
		event.KindControllerNameRenewed,
		event.KindTransfer,
	}, kinds)

	newOwner := events[0].(event.NewOwner)
	assert.Equal(t, namehash.RootNode, newOwner.Node)
	assert.Equal(t, namehash.LabelHash("alice"), newOwner.Label)
	assert.Equal(t, uint64(16), newOwner.BlockNumber)
	assert.Equal(t, common.HexToHash(testTxHash), newOwner.TxHash)

	reg := events[1].(event.NameRegistered)
	assert.Equal(t, int64(1), reg.TokenID.Int64())
	assert.Equal(t, common.HexToAddress(testOwner), reg.Owner)
	assert.Equal(t, uint64(1_700_000_000), reg.Expires)
	assert.Equal(t, uint(1), reg.LogIndex)

	ctrl := events[2].(event.ControllerNameRegistered)
	assert.Equal(t, "alice", ctrl.Name)
	assert.Equal(t, int64(5000), ctrl.Cost.Int64())

	// Cost is optional
	renewed := events[4].(event.ControllerNameRenewed)
	assert.Nil(t, renewed.Cost)

	transfer := events[5].(event.Transfer)
	assert.Equal(t, common.HexToAddress(testOwner), transfer.From)
	assert.Equal(t, common.HexToAddress("0x5000000000000000000000000000000000000005"), transfer.To)
}

func TestReadErrors(t *testing.T) {
	// Log context shared by the cases below
	meta := `"blockNumber":1,"blockTimestamp":1600000000,"txHash":"` + testTxHash + `","logIndex":0`
	testDefs := []struct {
		name    string
		input   string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown kind",
			input:   `{"kind":"Approval",` + meta + `}`,
			wantErr: jsonl.ErrUnknownKind,
		},
		{
			name:    "missing token",
			input:   `{"kind":"NameRenewed",` + meta + `,"expires":5}`,
			wantErr: jsonl.ErrMissingField,
			wantMsg: "tokenId",
		},
		{
			name:    "missing label",
			input:   `{"kind":"ControllerNameRegistered",` + meta + `,"name":"alice","expires":5}`,
			wantErr: jsonl.ErrMissingField,
			wantMsg: "label",
		},
		{
			name:    "renewal without expiry",
			input:   `{"kind":"NameRenewed",` + meta + `,"tokenId":"1"}`,
			wantErr: jsonl.ErrMissingField,
			wantMsg: "expires",
		},
		{
			name:    "registration without expiry",
			input:   `{"kind":"NameRegistered",` + meta + `,"tokenId":"1","owner":"` + testOwner + `"}`,
			wantErr: jsonl.ErrMissingField,
			wantMsg: "expires",
		},
		{
			name:    "controller renewal without expiry",
			input:   `{"kind":"ControllerNameRenewed",` + meta + `,"name":"alice","label":"` + testTxHash + `"}`,
			wantErr: jsonl.ErrMissingField,
			wantMsg: "expires",
		},
		{
			name:    "missing tx hash",
			input:   `{"kind":"NameRenewed","blockNumber":1,"blockTimestamp":1600000000,"logIndex":0,"tokenId":"1","expires":5}`,
			wantErr: jsonl.ErrMissingField,
			wantMsg: "txHash",
		},
		{
			name:    "missing block timestamp",
			input:   `{"kind":"Transfer","blockNumber":1,"txHash":"` + testTxHash + `","logIndex":0,"tokenId":"1","to":"` + testOwner + `"}`,
			wantErr: jsonl.ErrMissingField,
			wantMsg: "blockTimestamp",
		},
		{
			name:    "missing log index",
			input:   `{"kind":"NewOwner","blockNumber":1,"blockTimestamp":1600000000,"txHash":"` + testTxHash + `","node":"` + testTxHash + `","label":"` + testTxHash + `","owner":"` + testOwner + `"}`,
			wantErr: jsonl.ErrMissingField,
			wantMsg: "logIndex",
		},
		{
			name:    "negative token",
			input:   `{"kind":"NameRegistered",` + meta + `,"tokenId":"-1","owner":"` + testOwner + `","expires":5}`,
			wantErr: jsonl.ErrInvalidValue,
			wantMsg: "tokenId",
		},
		{
			name:    "negative cost",
			input:   `{"kind":"ControllerNameRegistered",` + meta + `,"name":"alice","label":"` + testTxHash + `","cost":"-5","expires":5}`,
			wantErr: jsonl.ErrInvalidValue,
			wantMsg: "cost",
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			_, err := jsonl.NewReader(strings.NewReader(testDef.input)).ReadAll()
			require.ErrorIs(t, err, testDef.wantErr)
			assert.Contains(t, err.Error(), "line 1")
			assert.Contains(t, err.Error(), testDef.wantMsg)
		})
	}

	// A bad line stops the stream at its own line number
	_, err := jsonl.NewReader(strings.NewReader(
		`{"kind":"NameRenewed",` + meta + `,"tokenId":"1","expires":5}` + "\n" +
			`{"kind":"NameRenewed",` + meta + `,"tokenId":"-1","expires":5}` + "\n",
	)).ReadAll()
	require.ErrorIs(t, err, jsonl.ErrInvalidValue)
	assert.Contains(t, err.Error(), "line 2")

	// Syntax errors and unknown fields report the offending line
	_, err = jsonl.NewReader(strings.NewReader("\n{\"kind\":\n")).ReadAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	_, err = jsonl.NewReader(strings.NewReader(`{"kind":"NameRenewed","tokenId":1,"extra":true}`)).ReadAll()
	require.Error(t, err)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(testStream), 0o600))
	events, err := jsonl.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, events, 6)

	_, err = jsonl.ReadFile(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.Error(t, err)
}
