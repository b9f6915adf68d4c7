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

package event_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/ethwns/event"
)

func TestCodecControllerNameRegistered(t *testing.T) {
	cost, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	orig := event.ControllerNameRegistered{
		LogMeta: event.LogMeta{
			BlockNumber:    100,
			BlockTimestamp: 1700000000,
			TxHash:         common.HexToHash("0xdeadbeef"),
			LogIndex:       3,
		},
		Name:    "alice",
		Label:   common.HexToHash("0x01"),
		Owner:   common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Cost:    cost,
		Expires: 2000,
	}
	data, err := event.MarshalCBOR(orig)
	require.NoError(t, err)
	decoded, err := event.UnmarshalCBOR(data)
	require.NoError(t, err)
	got, ok := decoded.(event.ControllerNameRegistered)
	require.True(t, ok, "unexpected type %T", decoded)
	assert.Equal(t, orig.LogMeta, got.LogMeta)
	assert.Equal(t, orig.Name, got.Name)
	assert.Equal(t, orig.Label, got.Label)
	assert.Equal(t, orig.Owner, got.Owner)
	assert.Equal(t, orig.Expires, got.Expires)
	require.NotNil(t, got.Cost)
	assert.Equal(t, cost.String(), got.Cost.String())
}

func TestCodecNilTokenID(t *testing.T) {
	data, err := event.MarshalCBOR(event.NameRenewed{Expires: 5})
	require.NoError(t, err)
	decoded, err := event.UnmarshalCBOR(data)
	require.NoError(t, err)
	got, ok := decoded.(event.NameRenewed)
	require.True(t, ok)
	assert.Nil(t, got.TokenID)
	assert.Equal(t, uint64(5), got.Expires)
}

func TestCodecUnknownKind(t *testing.T) {
	data, err := cbor.Marshal([]any{"Bogus", []byte{0xa0}})
	require.NoError(t, err)
	_, err = event.UnmarshalCBOR(data)
	require.ErrorIs(t, err, event.ErrUnknownKind)
}

func TestLogPositionBefore(t *testing.T) {
	a := event.LogPosition{BlockNumber: 1, LogIndex: 5}
	b := event.LogPosition{BlockNumber: 2, LogIndex: 0}
	c := event.LogPosition{BlockNumber: 2, LogIndex: 1}
	assert.True(t, a.Before(b))
	assert.True(t, b.Before(c))
	assert.False(t, c.Before(b))
	assert.False(t, b.Before(b))
}
