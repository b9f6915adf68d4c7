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
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheSize = 10000

// Lookup is the reverse lookup implemented by every backend
type Lookup interface {
	LookupName(ctx context.Context, label common.Hash) (string, bool)
}

// Cached keeps recent positive answers of another lookup. Misses are not
// cached since a name may be added to the backend later.
type Cached struct {
	next  Lookup
	cache *lru.Cache[common.Hash, string]
}

func NewCached(next Lookup, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[common.Hash, string](size)
	if err != nil {
		return nil, fmt.Errorf("create lookup cache: %w", err)
	}
	return &Cached{
		next:  next,
		cache: cache,
	}, nil
}

func (c *Cached) LookupName(ctx context.Context, label common.Hash) (string, bool) {
	if name, ok := c.cache.Get(label); ok {
		return name, true
	}
	name, ok := c.next.LookupName(ctx, label)
	if ok {
		c.cache.Add(label, name)
	}
	return name, ok
}

func (c *Cached) Len() int {
	return c.cache.Len()
}
