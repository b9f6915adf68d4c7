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

package database

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blinklabs-io/ethwns/event"
)

const cursorSyncStateKey = "cursor"

// GetCursor returns the position of the last applied log. The boolean is
// false when nothing has been applied yet.
func (t *Txn) GetCursor() (event.LogPosition, bool, error) {
	txn, err := t.metadataOrErr()
	if err != nil {
		return event.LogPosition{}, false, err
	}
	val, err := t.db.Metadata().GetSyncState(cursorSyncStateKey, txn)
	if err != nil {
		return event.LogPosition{}, false, err
	}
	if val == "" {
		return event.LogPosition{}, false, nil
	}
	pos, err := parseCursor(val)
	if err != nil {
		return event.LogPosition{}, false, err
	}
	return pos, true, nil
}

// SetCursor records the position of the last applied log
func (t *Txn) SetCursor(pos event.LogPosition) error {
	txn, err := t.metadataOrErr()
	if err != nil {
		return err
	}
	return t.db.Metadata().SetSyncState(
		cursorSyncStateKey,
		formatCursor(pos),
		txn,
	)
}

// ResetState removes all indexed state, including the cursor. The journal
// is kept.
func (t *Txn) ResetState() error {
	txn, err := t.metadataOrErr()
	if err != nil {
		return err
	}
	return t.db.Metadata().ResetState(txn)
}

func formatCursor(pos event.LogPosition) string {
	return fmt.Sprintf("%d:%d", pos.BlockNumber, pos.LogIndex)
}

func parseCursor(val string) (event.LogPosition, error) {
	blockStr, logIndexStr, ok := strings.Cut(val, ":")
	if !ok {
		return event.LogPosition{}, fmt.Errorf("invalid cursor: %q", val)
	}
	blockNumber, err := strconv.ParseUint(blockStr, 10, 64)
	if err != nil {
		return event.LogPosition{}, fmt.Errorf("invalid cursor block: %w", err)
	}
	logIndex, err := strconv.ParseUint(logIndexStr, 10, 0)
	if err != nil {
		return event.LogPosition{}, fmt.Errorf("invalid cursor log index: %w", err)
	}
	return event.LogPosition{
		BlockNumber: blockNumber,
		LogIndex:    uint(logIndex),
	}, nil
}
