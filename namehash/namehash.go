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

// Package namehash derives the stable identities of registrar entities.
//
// A registrar token id is the keccak256 hash of a single label. Its
// 32-byte big-endian form is the label, and the domain node for that label
// is keccak256(root || label).
package namehash

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// LabelLength is the fixed width of a label in bytes
	LabelLength = 32

	// Separator splits a fully-qualified name into labels
	Separator = "."

	// DefaultSuffix is the top-level name managed by the base registrar
	DefaultSuffix = "ethw"
)

// RootNode is the node of the top-level name that owns the base registrar
var RootNode = common.HexToHash(
	"0x13dee413edb145672cb5b774d12aca9899044f674519087a2a45289d27854ece",
)

// LabelBytesOf encodes a token id as a fixed-width big-endian label.
// Leading zero bytes are preserved. A nil token id yields the zero label.
func LabelBytesOf(tokenID *big.Int) [LabelLength]byte {
	var label [LabelLength]byte
	if tokenID == nil {
		return label
	}
	math.ReadBits(tokenID, label[:])
	return label
}

// TokenIDOf is the inverse of LabelBytesOf
func TokenIDOf(label [LabelLength]byte) *big.Int {
	return new(big.Int).SetBytes(label[:])
}

// NodeHashOf returns keccak256(root || label)
func NodeHashOf(root common.Hash, label [LabelLength]byte) common.Hash {
	return crypto.Keccak256Hash(root.Bytes(), label[:])
}

// LabelHash returns the keccak256 hash of the UTF-8 bytes of a single label
func LabelHash(label string) common.Hash {
	return crypto.Keccak256Hash([]byte(label))
}

// Namehash computes the recursive node hash of a fully-qualified name.
// The empty name maps to the zero hash.
func Namehash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, Separator)
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := LabelHash(labels[i])
		node = crypto.Keccak256Hash(node.Bytes(), labelHash.Bytes())
	}
	return node
}

// IsSingleLabel reports whether name can be used as one path segment
func IsSingleLabel(name string) bool {
	return !strings.Contains(name, Separator)
}

// FullName joins a label with the registrar suffix
func FullName(label string, suffix string) string {
	return label + Separator + suffix
}
