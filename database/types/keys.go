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

package types

import (
	"encoding/binary"
	"errors"
)

const (
	JournalKeyPrefix = "j"
	journalKeyLength = len(JournalKeyPrefix) + 8 + 8
)

var ErrInvalidJournalKey = errors.New("invalid journal key")

// JournalKey orders journal entries by block number then log index
func JournalKey(blockNumber uint64, logIndex uint) []byte {
	key := make([]byte, 0, journalKeyLength)
	key = append(key, JournalKeyPrefix...)
	key = binary.BigEndian.AppendUint64(key, blockNumber)
	key = binary.BigEndian.AppendUint64(key, uint64(logIndex))
	return key
}

// ParseJournalKey is the inverse of JournalKey
func ParseJournalKey(key []byte) (uint64, uint, error) {
	if len(key) != journalKeyLength ||
		string(key[:len(JournalKeyPrefix)]) != JournalKeyPrefix {
		return 0, 0, ErrInvalidJournalKey
	}
	rest := key[len(JournalKeyPrefix):]
	blockNumber := binary.BigEndian.Uint64(rest[:8])
	logIndex := binary.BigEndian.Uint64(rest[8:])
	return blockNumber, uint(logIndex), nil
}
