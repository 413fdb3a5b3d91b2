package step

import (
	"context"

	"github.com/fluxgraph/agentcore/internal/corerr"
)

// Chain composes first then second: Chain(s1, s2).Run(x) == s2.Run(s1.Run(x)).
// This is Chain_2; Chain_n for n up to 8 (and beyond) is expressed by
// nesting — Chain(Chain(s1, s2), s3) is Chain_3 — which is the
// language-neutral strategy for a result-builder in a language without
// macros (§9 "Result builder / declarative bodies").
//
// Sequential composition is strict: cancellation or failure of the
// current sub-step aborts the chain and the error propagates (P6).
func Chain[I, M, O any](first Step[I, M], second Step[M, O]) Step[I, O] {
	return Func[I, O](func(ctx context.Context, input I) (O, error) {
		mid, err := first.Run(ctx, input)
		if err != nil {
			var zero O
			return zero, err
		}
		if err := ctx.Err(); err != nil {
			var zero O
			return zero, err
		}
		return second.Run(ctx, mid)
	})
}

// Chain3 composes three steps left to right.
func Chain3[I, A, B, O any](s1 Step[I, A], s2 Step[A, B], s3 Step[B, O]) Step[I, O] {
	return Chain(Chain(s1, s2), s3)
}

// Chain4 composes four steps left to right.
func Chain4[I, A, B, C, O any](s1 Step[I, A], s2 Step[A, B], s3 Step[B, C], s4 Step[C, O]) Step[I, O] {
	return Chain(Chain3(s1, s2, s3), s4)
}

// Chain5 composes five steps left to right.
func Chain5[I, A, B, C, D, O any](s1 Step[I, A], s2 Step[A, B], s3 Step[B, C], s4 Step[C, D], s5 Step[D, O]) Step[I, O] {
	return Chain(Chain4(s1, s2, s3, s4), s5)
}

// Sequence composes any number of same-typed steps left to right,
// covering the n > 5 cases of Chain_n without a combinatorial explosion
// of fixed-arity signatures. Fails with ChainShapeMismatch if given zero
// steps — that shape is only meaningful at the type level, so in this
// value-level form it is treated as a caller error.
func Sequence[T any](steps ...Step[T, T]) Step[T, T] {
	return Func[T, T](func(ctx context.Context, input T) (T, error) {
		if len(steps) == 0 {
			return input, corerr.New("step.Sequence", corerr.KindChainShapeMismatch, "no sub-steps")
		}
		current := input
		for _, s := range steps {
			var err error
			current, err = s.Run(ctx, current)
			if err != nil {
				return current, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return current, ctxErr
			}
		}
		return current, nil
	})
}
