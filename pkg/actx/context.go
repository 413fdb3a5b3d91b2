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

// Package actx implements the statically-typed, task-local ambient
// context table. Go has no task-local storage primitive, so — per the
// design notes on "task-local ambient values" — scoping is implemented
// as an explicit context.Context threaded through every Step.Run call,
// with stack-discipline With/Get helpers standing in for withContext.
package actx

import (
	"context"
	"fmt"

	"github.com/fluxgraph/agentcore/internal/corerr"
)

// Key identifies a statically-typed ambient slot. Keys are comparable
// and should be created once per logical slot (typically a package-level
// var) so that With/Get agree on identity.
type Key[V any] struct {
	name string
}

// NewKey creates a new context key. name is used only for diagnostics.
func NewKey[V any](name string) Key[V] {
	return Key[V]{name: name}
}

func (k Key[V]) String() string { return k.name }

// With installs value for key over the extent of the returned context,
// shadowing any outer value for the same key (nesting).
func With[V any](ctx context.Context, key Key[V], value V) context.Context {
	return context.WithValue(ctx, key, value)
}

// Get returns the value installed for key and whether it was present.
func Get[V any](ctx context.Context, key Key[V]) (V, bool) {
	v, ok := ctx.Value(key).(V)
	return v, ok
}

// Require returns the value installed for key, or a ContextMissing error
// if absent — the "required read" behavior for non-optional context.
func Require[V any](ctx context.Context, key Key[V]) (V, error) {
	v, ok := Get(ctx, key)
	if !ok {
		var zero V
		return zero, corerr.New("actx.Require", corerr.KindContextMissing, fmt.Sprintf("context key %q not set", key.name))
	}
	return v, nil
}

// Optional returns the value installed for key, or the zero value of V
// when absent — the "OptionalContext" behavior, never an error.
func Optional[V any](ctx context.Context, key Key[V]) V {
	v, _ := Get(ctx, key)
	return v
}
