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

// Package step implements the Step algebra: a generic asynchronous
// transformation I -> O with composable primitives (Chain, Parallel,
// Race, Loop, Map, Reduce) and an Agent wrapper for declaratively
// composed bodies. Steps are values; composition builds a tree whose
// leaves are primitives and whose interior nodes are combinators.
package step

import "context"

// Step is a polymorphic async function I -> O. Implementations must be
// safe for concurrent use across task boundaries, since combinators may
// invoke the same Step value from multiple goroutines (e.g. inside a
// Map or Parallel).
type Step[I, O any] interface {
	Run(ctx context.Context, input I) (O, error)
}

// Func adapts a plain function to the Step interface.
type Func[I, O any] func(ctx context.Context, input I) (O, error)

// Run implements Step.
func (f Func[I, O]) Run(ctx context.Context, input I) (O, error) {
	return f(ctx, input)
}

// Transform lifts a pure function to an async Step.
func Transform[I, O any](f func(I) O) Step[I, O] {
	return Func[I, O](func(_ context.Context, input I) (O, error) {
		return f(input), nil
	})
}

// TransformErr lifts a function that may fail to an async Step.
func TransformErr[I, O any](f func(I) (O, error)) Step[I, O] {
	return Func[I, O](func(_ context.Context, input I) (O, error) {
		return f(input)
	})
}

// Empty is the identity Step on an arbitrary passthrough type.
func Empty[I any]() Step[I, I] {
	return Func[I, I](func(_ context.Context, input I) (I, error) {
		return input, nil
	})
}

// Pair is the tuple type produced by Join, collapsing two steps'
// outputs into one value for the next stage in a chain.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Join builds a Step producing a Pair from two steps run over the same
// input — the "collapses tuple inputs in a chain context" primitive.
// Both sub-steps run sequentially, First before Second.
func Join[I, A, B any](first Step[I, A], second Step[I, B]) Step[I, Pair[A, B]] {
	return Func[I, Pair[A, B]](func(ctx context.Context, input I) (Pair[A, B], error) {
		a, err := first.Run(ctx, input)
		if err != nil {
			return Pair[A, B]{}, err
		}
		b, err := second.Run(ctx, input)
		if err != nil {
			return Pair[A, B]{}, err
		}
		return Pair[A, B]{First: a, Second: b}, nil
	})
}

// Agent is the "body" sugar: a type embedding Agent[I,O] automatically
// satisfies Step[I,O] by delegating to Body. Authors implement Step
// directly only when the control flow cannot be expressed declaratively.
type Agent[I, O any] struct {
	Body Step[I, O]
}

// Run delegates to Body.Run.
func (a Agent[I, O]) Run(ctx context.Context, input I) (O, error) {
	return a.Body.Run(ctx, input)
}
