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

// Package state implements the Memory/Relay reference-cell pair: Memory
// owns one interior-mutable cell, Relay is a typed, possibly-derived
// accessor to it. Every Relay operation takes the owning cell's lock for
// its full duration, so concurrent Relay operations on the same cell are
// linearizable (P5).
package state

import "sync"

// cell is the locked storage behind a Memory, or a transformed view of
// one. update runs f under the lock and returns the resulting value;
// read runs f under the lock without writing, for affordances that must
// inspect a reference-typed value (map, slice) without letting it
// escape the lock.
type cell[V any] interface {
	load() V
	store(V)
	update(f func(V) V) V
	read(f func(V))
}

// Memory owns one heap-allocated, interior-mutable cell (I1): all access
// to its value happens through a Relay obtained via Memory.Relay.
type Memory[V any] struct {
	mu    sync.Mutex
	value V
}

// NewMemory allocates a cell holding initial.
func NewMemory[V any](initial V) *Memory[V] {
	return &Memory[V]{value: initial}
}

func (m *Memory[V]) load() V {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value
}

func (m *Memory[V]) store(v V) {
	m.mu.Lock()
	m.value = v
	m.mu.Unlock()
}

func (m *Memory[V]) update(f func(V) V) V {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = f(m.value)
	return m.value
}

func (m *Memory[V]) read(f func(V)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f(m.value)
}

// Relay returns a read-write accessor aliasing m's cell. Many Relays may
// alias one Memory; the Memory's lifetime is the longest-held reference.
func (m *Memory[V]) Relay() Relay[V] {
	return Relay[V]{c: m}
}

// Relay is a typed accessor to a shared cell: a pair of get/set closures
// conceptually, materialized here as a thin wrapper over a cell so that
// Map/ReadOnly/Constant views can be built without re-locking semantics.
type Relay[V any] struct {
	c        cell[V]
	readOnly bool
}

// Get reads the current value.
func (r Relay[V]) Get() V {
	return r.c.load()
}

// Set writes a new value. A no-op on a constant or read-only relay (I2).
func (r Relay[V]) Set(v V) {
	if r.readOnly {
		return
	}
	r.c.store(v)
}

// Update atomically replaces the value with f(current) and returns it.
// A no-op returning the current value on a constant or read-only relay.
func (r Relay[V]) Update(f func(V) V) V {
	if r.readOnly {
		return r.Get()
	}
	return r.c.update(f)
}

// ReadOnly reports whether Set/Update are no-ops on this relay.
func (r Relay[V]) ReadOnly() bool {
	return r.readOnly
}

type constantCell[V any] struct{ v V }

func (c constantCell[V]) load() V              { return c.v }
func (c constantCell[V]) store(V)              {}
func (c constantCell[V]) update(f func(V) V) V { return c.v }
func (c constantCell[V]) read(f func(V))       { f(c.v) }

// Constant returns a read-only relay that always yields v.
func Constant[V any](v V) Relay[V] {
	return Relay[V]{c: constantCell[V]{v: v}, readOnly: true}
}

type mappedCell[V, U any] struct {
	base    cell[V]
	forward func(V) U
	inverse func(U) V
}

func (m mappedCell[V, U]) load() U { return m.forward(m.base.load()) }

func (m mappedCell[V, U]) store(u U) {
	m.base.update(func(V) V { return m.inverse(u) })
}

func (m mappedCell[V, U]) update(f func(U) U) U {
	var result U
	m.base.update(func(v V) V {
		result = f(m.forward(v))
		return m.inverse(result)
	})
	return result
}

func (m mappedCell[V, U]) read(f func(U)) {
	m.base.read(func(v V) { f(m.forward(v)) })
}

// Map returns a read-write view of r through forward/inverse. Each
// operation still locks r's underlying cell for its full duration, so
// whether the transform is applied lazily or eagerly is immaterial to
// linearizability — it is evaluated eagerly here on each access.
func Map[V, U any](r Relay[V], forward func(V) U, inverse func(U) V) Relay[U] {
	return Relay[U]{c: mappedCell[V, U]{base: r.c, forward: forward, inverse: inverse}, readOnly: r.readOnly}
}

// ReadOnly returns a derived view of r where Set/Update are no-ops (I2).
func ReadOnly[V, U any](r Relay[V], forward func(V) U) Relay[U] {
	return Relay[U]{
		c:        mappedCell[V, U]{base: r.c, forward: forward, inverse: func(U) V { var zero V; return zero }},
		readOnly: true,
	}
}
