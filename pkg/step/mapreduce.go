package step

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map runs body(item, index) concurrently for every element of the
// input slice, preserving input order in the result; any sub-step error
// is fatal to the whole Map (first error wins, remaining work is
// cancelled) via errgroup's shared cancellation context.
func Map[A, B any](body func(a A, index int) Step[A, B]) Step[[]A, []B] {
	return Func[[]A, []B](func(ctx context.Context, items []A) ([]B, error) {
		results := make([]B, len(items))
		g, gctx := errgroup.WithContext(ctx)
		for i, item := range items {
			i, item := i, item
			g.Go(func() error {
				out, err := body(item, i).Run(gctx, item)
				if err != nil {
					return err
				}
				results[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	})
}

// Reduce left-folds over the input slice, sequentially: body(acc, item,
// index) produces a Step<Acc,Acc> run with the current accumulator as
// input, strictly ordered by input index.
func Reduce[A, Acc any](initial Acc, body func(acc Acc, a A, index int) Step[Acc, Acc]) Step[[]A, Acc] {
	return Func[[]A, Acc](func(ctx context.Context, items []A) (Acc, error) {
		acc := initial
		for i, item := range items {
			next, err := body(acc, item, i).Run(ctx, acc)
			if err != nil {
				return acc, err
			}
			acc = next
			if err := ctx.Err(); err != nil {
				return acc, err
			}
		}
		return acc, nil
	})
}
