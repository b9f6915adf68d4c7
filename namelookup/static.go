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

// Package namelookup provides best-effort reverse lookups from a label hash
// to its plain text. None of the backends verify their answers.
package namelookup

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/blinklabs-io/ethwns/namehash"
	"github.com/ethereum/go-ethereum/common"
)

// Static answers lookups from an in-memory set of known names
type Static struct {
	mu    sync.RWMutex
	names map[common.Hash]string
}

func NewStatic(names ...string) *Static {
	s := &Static{
		names: make(map[common.Hash]string, len(names)),
	}
	s.Add(names...)
	return s
}

// LoadNamesFile reads one label per line. Blank lines and lines starting
// with '#' are ignored.
func LoadNamesFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open names file: %w", err)
	}
	defer f.Close()
	s := NewStatic()
	if err := s.Load(f); err != nil {
		return nil, fmt.Errorf("read names file %s: %w", path, err)
	}
	return s, nil
}

// Load adds the names read from r, one per line
func (s *Static) Load(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s.Add(line)
	}
	return scanner.Err()
}

func (s *Static) Add(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, name := range names {
		s.names[namehash.LabelHash(name)] = name
	}
}

func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.names)
}

// Names returns all known names in no particular order
func (s *Static) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]string, 0, len(s.names))
	for _, name := range s.names {
		ret = append(ret, name)
	}
	return ret
}

func (s *Static) LookupName(_ context.Context, label common.Hash) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name, ok := s.names[label]
	return name, ok
}
