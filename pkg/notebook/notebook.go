// Copyright 2025 Kadir Pekel
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

// Package notebook implements the NotebookStorage contract (§3): a
// string -> string map guarded by a single lock, every operation atomic,
// values capped at 1 MB. Backends beyond the key-value contract are an
// external collaborator concern (§1); Memory is the reference
// implementation and sqlnotebook the durable one.
package notebook

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fluxgraph/agentcore/internal/corerr"
)

// MaxValueSize bounds a single stored value.
const MaxValueSize = 1 << 20

// Storage is the key-value contract every notebook backend satisfies.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	Keys() ([]string, error)
}

// Memory is the in-process Storage: one mutex, one map.
type Memory struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemory builds an empty in-memory notebook.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

// Get returns the value stored under key and whether it was present.
func (m *Memory) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

// Set stores value under key, replacing any previous value.
func (m *Memory) Set(key, value string) error {
	if err := checkValue(key, value); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

// Delete removes key, if present.
func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Keys returns every stored key, sorted.
func (m *Memory) Keys() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for k := range m.entries {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

func checkValue(key, value string) error {
	if key == "" {
		return corerr.New("notebook.Set", corerr.KindInvalidInput, "key must not be empty")
	}
	if len(value) > MaxValueSize {
		return corerr.New("notebook.Set", corerr.KindInvalidInput,
			fmt.Sprintf("value for key %q exceeds %d bytes", key, MaxValueSize)).
			WithField("key", key).WithField("size", len(value))
	}
	return nil
}
