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

package namehash

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// All entity identities are lower-case 0x-prefixed hex strings.

// AccountID returns the identity of an owner account
func AccountID(addr common.Address) string {
	return hexutil.Encode(addr.Bytes())
}

// RegistrationID returns the identity of the registration for a label
func RegistrationID(label [LabelLength]byte) string {
	return hexutil.Encode(label[:])
}

// DomainID returns the identity of a domain node
func DomainID(node common.Hash) string {
	return hexutil.Encode(node.Bytes())
}

// EventID returns the identity of a history record created by the log at
// logIndex in the given transaction
func EventID(txHash common.Hash, logIndex uint) string {
	return hexutil.Encode(txHash.Bytes()) + "-" + strconv.FormatUint(uint64(logIndex), 10)
}
