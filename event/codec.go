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
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var ErrUnknownKind = errors.New("unknown registrar event kind")

type envelope struct {
	_       struct{} `cbor:",toarray"`
	Kind    string
	Payload cbor.RawMessage
}

// MarshalCBOR encodes a registrar event with its kind so that it can be
// restored by UnmarshalCBOR
func MarshalCBOR(evt RegistrarEvent) ([]byte, error) {
	payload, err := cbor.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", evt.Kind(), err)
	}
	return cbor.Marshal(
		envelope{
			Kind:    evt.Kind(),
			Payload: payload,
		},
	)
}

// UnmarshalCBOR decodes an event produced by MarshalCBOR
func UnmarshalCBOR(data []byte) (RegistrarEvent, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	var err error
	var ret RegistrarEvent
	switch env.Kind {
	case KindNameRegistered:
		var tmp NameRegistered
		err = cbor.Unmarshal(env.Payload, &tmp)
		ret = tmp
	case KindNameRenewed:
		var tmp NameRenewed
		err = cbor.Unmarshal(env.Payload, &tmp)
		ret = tmp
	case KindTransfer:
		var tmp Transfer
		err = cbor.Unmarshal(env.Payload, &tmp)
		ret = tmp
	case KindControllerNameRegistered:
		var tmp ControllerNameRegistered
		err = cbor.Unmarshal(env.Payload, &tmp)
		ret = tmp
	case KindControllerNameRenewed:
		var tmp ControllerNameRenewed
		err = cbor.Unmarshal(env.Payload, &tmp)
		ret = tmp
	case KindNewOwner:
		var tmp NewOwner
		err = cbor.Unmarshal(env.Payload, &tmp)
		ret = tmp
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Kind, err)
	}
	return ret, nil
}
