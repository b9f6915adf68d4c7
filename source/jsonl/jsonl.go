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

// Package jsonl reads decoded registrar events from a JSON-lines stream.
//
// Each non-empty line is one object with a "kind" field naming the event
// and the log context fields blockNumber, blockTimestamp, txHash and
// logIndex, all of which are required. Numbers may be decimal or
// 0x-prefixed hex, quoted or not. uint256 values must not be negative.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/blinklabs-io/ethwns/event"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
)

const maxLineSize = 1024 * 1024

var (
	ErrUnknownKind  = errors.New("unknown event kind")
	ErrMissingField = errors.New("missing field")
	// ErrInvalidValue is returned for values outside the range of the
	// on-chain type, such as a negative uint256
	ErrInvalidValue = errors.New("invalid value")
)

type record struct {
	Kind           string                `json:"kind"`
	BlockNumber    *math.HexOrDecimal64  `json:"blockNumber"`
	BlockTimestamp *math.HexOrDecimal64  `json:"blockTimestamp"`
	TxHash         *common.Hash          `json:"txHash"`
	LogIndex       *math.HexOrDecimal64  `json:"logIndex"`
	TokenID        *math.HexOrDecimal256 `json:"tokenId"`
	Owner          *common.Address       `json:"owner"`
	Expires        *math.HexOrDecimal64  `json:"expires"`
	From           common.Address        `json:"from"`
	To             *common.Address       `json:"to"`
	Name           *string               `json:"name"`
	Label          *common.Hash          `json:"label"`
	Cost           *math.HexOrDecimal256 `json:"cost"`
	Node           *common.Hash          `json:"node"`
}

// Reader decodes one event per line
type Reader struct {
	scanner *bufio.Scanner
	line    int
}

func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: scanner}
}

// Next returns the next event, or io.EOF at the end of the stream
func (r *Reader) Next() (event.RegistrarEvent, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		evt, err := decodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return evt, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	return nil, io.EOF
}

// ReadAll returns the remaining events in stream order
func (r *Reader) ReadAll() ([]event.RegistrarEvent, error) {
	var ret []event.RegistrarEvent
	for {
		evt, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return ret, nil
			}
			return nil, err
		}
		ret = append(ret, evt)
	}
}

// ReadFile reads all events from the named file
func ReadFile(path string) ([]event.RegistrarEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return NewReader(f).ReadAll()
}

func decodeLine(line []byte) (event.RegistrarEvent, error) {
	var rec record
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rec); err != nil {
		return nil, err
	}
	switch rec.Kind {
	case event.KindNameRegistered,
		event.KindNameRenewed,
		event.KindTransfer,
		event.KindControllerNameRegistered,
		event.KindControllerNameRenewed,
		event.KindNewOwner:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, rec.Kind)
	}
	// History records are keyed by tx hash and log index, so the log
	// context is required for every kind
	if err := requireFields(
		field{"blockNumber", rec.BlockNumber != nil},
		field{"blockTimestamp", rec.BlockTimestamp != nil},
		field{"txHash", rec.TxHash != nil},
		field{"logIndex", rec.LogIndex != nil},
	); err != nil {
		return nil, err
	}
	if err := checkUint256(rec.TokenID, "tokenId"); err != nil {
		return nil, err
	}
	if err := checkUint256(rec.Cost, "cost"); err != nil {
		return nil, err
	}
	meta := event.LogMeta{
		BlockNumber:    uint64(*rec.BlockNumber),
		BlockTimestamp: uint64(*rec.BlockTimestamp),
		TxHash:         *rec.TxHash,
		LogIndex:       uint(*rec.LogIndex),
	}
	switch rec.Kind {
	case event.KindNameRegistered:
		if err := requireFields(
			field{"tokenId", rec.TokenID != nil},
			field{"owner", rec.Owner != nil},
			field{"expires", rec.Expires != nil},
		); err != nil {
			return nil, err
		}
		return event.NameRegistered{
			LogMeta: meta,
			TokenID: bigInt(rec.TokenID),
			Owner:   *rec.Owner,
			Expires: uint64(*rec.Expires),
		}, nil
	case event.KindNameRenewed:
		if err := requireFields(
			field{"tokenId", rec.TokenID != nil},
			field{"expires", rec.Expires != nil},
		); err != nil {
			return nil, err
		}
		return event.NameRenewed{
			LogMeta: meta,
			TokenID: bigInt(rec.TokenID),
			Expires: uint64(*rec.Expires),
		}, nil
	case event.KindTransfer:
		if err := requireFields(
			field{"tokenId", rec.TokenID != nil},
			field{"to", rec.To != nil},
		); err != nil {
			return nil, err
		}
		return event.Transfer{
			LogMeta: meta,
			From:    rec.From,
			To:      *rec.To,
			TokenID: bigInt(rec.TokenID),
		}, nil
	case event.KindControllerNameRegistered:
		if err := requireFields(
			field{"name", rec.Name != nil},
			field{"label", rec.Label != nil},
			field{"expires", rec.Expires != nil},
		); err != nil {
			return nil, err
		}
		var owner common.Address
		if rec.Owner != nil {
			owner = *rec.Owner
		}
		return event.ControllerNameRegistered{
			LogMeta: meta,
			Name:    *rec.Name,
			Label:   *rec.Label,
			Owner:   owner,
			Cost:    bigInt(rec.Cost),
			Expires: uint64(*rec.Expires),
		}, nil
	case event.KindControllerNameRenewed:
		if err := requireFields(
			field{"name", rec.Name != nil},
			field{"label", rec.Label != nil},
			field{"expires", rec.Expires != nil},
		); err != nil {
			return nil, err
		}
		return event.ControllerNameRenewed{
			LogMeta: meta,
			Name:    *rec.Name,
			Label:   *rec.Label,
			Cost:    bigInt(rec.Cost),
			Expires: uint64(*rec.Expires),
		}, nil
	default:
		if err := requireFields(
			field{"node", rec.Node != nil},
			field{"label", rec.Label != nil},
			field{"owner", rec.Owner != nil},
		); err != nil {
			return nil, err
		}
		return event.NewOwner{
			LogMeta: meta,
			Node:    *rec.Node,
			Label:   *rec.Label,
			Owner:   *rec.Owner,
		}, nil
	}
}

type field struct {
	name    string
	present bool
}

// requireFields returns an error naming the first absent field
func requireFields(fields ...field) error {
	for _, f := range fields {
		if !f.present {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}

func checkUint256(v *math.HexOrDecimal256, name string) error {
	if v == nil {
		return nil
	}
	b := (*big.Int)(v)
	if b.Sign() < 0 || b.BitLen() > 256 {
		return fmt.Errorf("%w: %s %s is not a uint256", ErrInvalidValue, name, b)
	}
	return nil
}

func bigInt(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return nil
	}
	return (*big.Int)(v)
}
