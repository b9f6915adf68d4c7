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

// Package ethlog decodes registrar, controller and registry contract logs
// and follows them from an Ethereum JSON-RPC endpoint
package ethlog

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/blinklabs-io/ethwns/event"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrUnknownLog is returned for logs that are not one of the indexed
	// events of the configured contracts
	ErrUnknownLog = errors.New("unknown log")
	// ErrMalformedLog is returned when a known event fails to decode
	ErrMalformedLog = errors.New("malformed log")
)

type contractKind int

const (
	contractRegistrar contractKind = iota
	contractController
	contractRegistry
)

type knownEvent struct {
	contract contractKind
	event    abi.Event
}

// Addresses selects the contracts whose logs are decoded. A zero address
// accepts logs of that contract from any address.
type Addresses struct {
	Registrar  common.Address
	Controller common.Address
	Registry   common.Address
}

func (a Addresses) forContract(kind contractKind) common.Address {
	switch kind {
	case contractRegistrar:
		return a.Registrar
	case contractController:
		return a.Controller
	default:
		return a.Registry
	}
}

// List returns the non-zero addresses
func (a Addresses) List() []common.Address {
	var ret []common.Address
	for _, addr := range []common.Address{a.Registrar, a.Controller, a.Registry} {
		if addr != (common.Address{}) {
			ret = append(ret, addr)
		}
	}
	return ret
}

type Decoder struct {
	addresses Addresses
	events    map[common.Hash]knownEvent
}

func NewDecoder(addresses Addresses) (*Decoder, error) {
	d := &Decoder{
		addresses: addresses,
		events:    make(map[common.Hash]knownEvent),
	}
	for kind, abiJSON := range map[contractKind]string{
		contractRegistrar:  BaseRegistrarABI,
		contractController: RegistrarControllerABI,
		contractRegistry:   RegistryABI,
	} {
		parsed, err := abi.JSON(strings.NewReader(abiJSON))
		if err != nil {
			return nil, fmt.Errorf("parse contract ABI: %w", err)
		}
		for _, ev := range parsed.Events {
			d.events[ev.ID] = knownEvent{contract: kind, event: ev}
		}
	}
	return d, nil
}

// Topics returns the event signatures of all decoded events, for use as the
// first topic of a log filter
func (d *Decoder) Topics() []common.Hash {
	ret := make([]common.Hash, 0, len(d.events))
	for id := range d.events {
		ret = append(ret, id)
	}
	return ret
}

// Decode converts a log into a registrar event. The block timestamp is not
// part of the log and must be supplied by the caller.
func (d *Decoder) Decode(
	log types.Log,
	blockTimestamp uint64,
) (event.RegistrarEvent, error) {
	if len(log.Topics) == 0 {
		return nil, ErrUnknownLog
	}
	known, ok := d.events[log.Topics[0]]
	if !ok {
		return nil, ErrUnknownLog
	}
	if addr := d.addresses.forContract(known.contract); addr != (common.Address{}) &&
		addr != log.Address {
		return nil, ErrUnknownLog
	}
	values, err := unpackLog(known.event, log)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: %s in tx %s: %w",
			ErrMalformedLog,
			known.event.Name,
			log.TxHash.Hex(),
			err,
		)
	}
	meta := event.LogMeta{
		BlockNumber:    log.BlockNumber,
		BlockTimestamp: blockTimestamp,
		TxHash:         log.TxHash,
		LogIndex:       log.Index,
	}
	ret, err := toEvent(known, meta, values)
	if err != nil {
		return nil, fmt.Errorf(
			"%w: %s in tx %s: %w",
			ErrMalformedLog,
			known.event.Name,
			log.TxHash.Hex(),
			err,
		)
	}
	return ret, nil
}

func unpackLog(ev abi.Event, log types.Log) (map[string]any, error) {
	values := make(map[string]any)
	if len(log.Data) > 0 {
		if err := ev.Inputs.NonIndexed().UnpackIntoMap(values, log.Data); err != nil {
			return nil, err
		}
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(log.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf(
			"expected %d indexed topics, got %d",
			len(indexed),
			len(log.Topics)-1,
		)
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, log.Topics[1:]); err != nil {
		return nil, err
	}
	return values, nil
}

func toEvent(
	known knownEvent,
	meta event.LogMeta,
	values map[string]any,
) (event.RegistrarEvent, error) {
	v := valueReader{values: values}
	var ret event.RegistrarEvent
	switch {
	case known.contract == contractRegistrar && known.event.Name == "NameRegistered":
		ret = event.NameRegistered{
			LogMeta: meta,
			TokenID: v.bigIntValue("id"),
			Owner:   v.addressValue("owner"),
			Expires: v.uint64Value("expires"),
		}
	case known.contract == contractRegistrar && known.event.Name == "NameRenewed":
		ret = event.NameRenewed{
			LogMeta: meta,
			TokenID: v.bigIntValue("id"),
			Expires: v.uint64Value("expires"),
		}
	case known.contract == contractRegistrar && known.event.Name == "Transfer":
		ret = event.Transfer{
			LogMeta: meta,
			From:    v.addressValue("from"),
			To:      v.addressValue("to"),
			TokenID: v.bigIntValue("tokenId"),
		}
	case known.contract == contractController && known.event.Name == "NameRegistered":
		ret = event.ControllerNameRegistered{
			LogMeta: meta,
			Name:    v.stringValue("name"),
			Label:   v.hashValue("label"),
			Owner:   v.addressValue("owner"),
			Cost:    v.bigIntValue("cost"),
			Expires: v.uint64Value("expires"),
		}
	case known.contract == contractController && known.event.Name == "NameRenewed":
		ret = event.ControllerNameRenewed{
			LogMeta: meta,
			Name:    v.stringValue("name"),
			Label:   v.hashValue("label"),
			Cost:    v.bigIntValue("cost"),
			Expires: v.uint64Value("expires"),
		}
	case known.contract == contractRegistry && known.event.Name == "NewOwner":
		ret = event.NewOwner{
			LogMeta: meta,
			Node:    v.hashValue("node"),
			Label:   v.hashValue("label"),
			Owner:   v.addressValue("owner"),
		}
	default:
		return nil, ErrUnknownLog
	}
	if v.err != nil {
		return nil, v.err
	}
	return ret, nil
}

// valueReader extracts typed values from an unpacked log and keeps the
// first error
type valueReader struct {
	values map[string]any
	err    error
}

func (v *valueReader) fail(name string, val any) {
	if v.err == nil {
		v.err = fmt.Errorf("unexpected type %T for %s", val, name)
	}
}

func (v *valueReader) bigIntValue(name string) *big.Int {
	val, ok := v.values[name].(*big.Int)
	if !ok {
		v.fail(name, v.values[name])
		return nil
	}
	return val
}

func (v *valueReader) uint64Value(name string) uint64 {
	val := v.bigIntValue(name)
	if val == nil {
		return 0
	}
	if !val.IsUint64() {
		if v.err == nil {
			v.err = fmt.Errorf("%s out of range: %s", name, val)
		}
		return 0
	}
	return val.Uint64()
}

func (v *valueReader) addressValue(name string) common.Address {
	val, ok := v.values[name].(common.Address)
	if !ok {
		v.fail(name, v.values[name])
	}
	return val
}

func (v *valueReader) hashValue(name string) common.Hash {
	val, ok := v.values[name].([32]byte)
	if !ok {
		v.fail(name, v.values[name])
	}
	return common.Hash(val)
}

func (v *valueReader) stringValue(name string) string {
	val, ok := v.values[name].(string)
	if !ok {
		v.fail(name, v.values[name])
	}
	return val
}
