package step

import (
	"context"
	"sync"

	"github.com/fluxgraph/agentcore/internal/corerr"
)

// Parallel runs every sub-step concurrently against the same input and
// collects the successes in completion order. It fails with
// ParallelAllFailed only if every sub-step fails (or there are none);
// otherwise it returns the partial success set (§4.1, P8, §9 OQ2).
//
// Grounded in the fan-out/fan-in shape of a goroutine-per-branch worker
// pool funneling results through a shared channel, closed once every
// branch has reported.
func Parallel[I, O any](steps ...Step[I, O]) Step[I, []O] {
	return Func[I, []O](func(ctx context.Context, input I) ([]O, error) {
		if len(steps) == 0 {
			return nil, corerr.New("step.Parallel", corerr.KindParallelAllFailed, "no sub-steps").WithField("underlying", []error{})
		}

		type outcome struct {
			value O
			err   error
		}
		results := make(chan outcome, len(steps))

		var wg sync.WaitGroup
		for _, s := range steps {
			wg.Add(1)
			go func(s Step[I, O]) {
				defer wg.Done()
				v, err := s.Run(ctx, input)
				results <- outcome{value: v, err: err}
			}(s)
		}
		go func() {
			wg.Wait()
			close(results)
		}()

		successes := make([]O, 0, len(steps))
		var failures []error
		for r := range results {
			if r.err != nil {
				failures = append(failures, r.err)
				continue
			}
			successes = append(successes, r.value)
		}

		if len(successes) == 0 {
			return nil, corerr.New("step.Parallel", corerr.KindParallelAllFailed, "every sub-step failed").WithField("underlying", failures)
		}
		return successes, nil
	})
}
