package step

import (
	"context"

	"github.com/fluxgraph/agentcore/internal/corerr"
)

// Loop iterates body up to max times, feeding each output back as the
// next input. If until is non-nil, the loop stops as soon as until
// holds for an output and that output is returned (P9); if until never
// holds within max iterations, Loop fails with LoopMaxExceeded. If until
// is nil, Loop always runs exactly max iterations and returns the final
// output.
func Loop[I any](max int, until func(I) bool, body Step[I, I]) Step[I, I] {
	return Func[I, I](func(ctx context.Context, input I) (I, error) {
		current := input
		for i := 0; i < max; i++ {
			next, err := body.Run(ctx, current)
			if err != nil {
				return current, err
			}
			current = next
			if until != nil && until(current) {
				return current, nil
			}
			if err := ctx.Err(); err != nil {
				return current, err
			}
		}
		if until != nil {
			return current, corerr.New("step.Loop", corerr.KindLoopMaxExceeded, "until predicate never held within max iterations")
		}
		return current, nil
	})
}
