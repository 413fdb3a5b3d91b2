package step

import (
	"context"
	"time"

	"github.com/fluxgraph/agentcore/internal/corerr"
)

// Race runs every sub-step concurrently and returns the value of the
// first one to succeed; the rest are cancelled once a winner is known.
// If timeout elapses with no success yet, Race fails immediately with
// RaceTimeout. If every sub-step fails before a winner or timeout, Race
// fails with RaceAllFailed wrapping the last error observed (§4.1, P7).
//
// timeout <= 0 means no timeout, except that timeout == 0 with at least
// one step still pending fails immediately (§8 boundary behavior).
func Race[I, O any](timeout time.Duration, steps ...Step[I, O]) Step[I, O] {
	return Func[I, O](func(ctx context.Context, input I) (O, error) {
		var zero O
		if len(steps) == 0 {
			return zero, corerr.New("step.Race", corerr.KindRaceAllFailed, "no sub-steps")
		}

		raceCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		type outcome struct {
			value O
			err   error
		}
		results := make(chan outcome, len(steps))
		for _, s := range steps {
			go func(s Step[I, O]) {
				v, err := s.Run(raceCtx, input)
				results <- outcome{value: v, err: err}
			}(s)
		}

		var timer <-chan time.Time
		if timeout == 0 {
			immediate := make(chan time.Time, 1)
			immediate <- time.Now()
			timer = immediate
		} else if timeout > 0 {
			t := time.NewTimer(timeout)
			defer t.Stop()
			timer = t.C
		}

		var lastErr error
		remaining := len(steps)
		for remaining > 0 {
			select {
			case r := <-results:
				remaining--
				if r.err == nil {
					cancel()
					return r.value, nil
				}
				lastErr = r.err
			case <-timer:
				cancel()
				return zero, corerr.New("step.Race", corerr.KindRaceTimeout, "race timed out before any success")
			}
		}

		if lastErr == nil {
			lastErr = corerr.New("step.Race", corerr.KindRaceAllFailed, "every sub-step failed")
		}
		return zero, corerr.Wrap("step.Race", corerr.KindRaceAllFailed, "every sub-step failed", lastErr)
	})
}
