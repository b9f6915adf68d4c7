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

package namelookup

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Chain asks each lookup in order and returns the first answer
type Chain []Lookup

func (c Chain) LookupName(ctx context.Context, label common.Hash) (string, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if name, ok := l.LookupName(ctx, label); ok {
			return name, true
		}
	}
	return "", false
}
