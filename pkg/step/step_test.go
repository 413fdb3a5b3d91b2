package step

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fluxgraph/agentcore/internal/corerr"
)

func double(ctx context.Context, n int) (int, error) {
	return n * 2, nil
}

func TestTransformAndChain(t *testing.T) {
	incr := Transform(func(n int) int { return n + 1 })
	dbl := Func[int, int](double)

	chained := Chain(incr, dbl)
	out, err := chained.Run(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 12, out)
}

func TestChainShortCircuitsOnError(t *testing.T) {
	boom := TransformErr[int, int](func(int) (int, error) {
		return 0, errors.New("boom")
	})
	neverRuns := Transform(func(n int) int { t.Fatal("should not run"); return n })

	chained := Chain(boom, neverRuns)
	_, err := chained.Run(context.Background(), 1)
	require.Error(t, err)
}

func TestChain3Through5Associativity(t *testing.T) {
	add1 := Transform(func(n int) int { return n + 1 })
	mul2 := Transform(func(n int) int { return n * 2 })
	sub3 := Transform(func(n int) int { return n - 3 })
	sq := Transform(func(n int) int { return n * n })

	c3 := Chain3(add1, mul2, sub3)
	out, err := c3.Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, out) // (1+1)*2-3 = 1

	c4 := Chain4(add1, mul2, sub3, sq)
	out, err = c4.Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, out) // 1*1 = 1

	c5 := Chain5(add1, mul2, sub3, sq, add1)
	out, err = c5.Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, out)
}

func TestSequenceRunsInOrder(t *testing.T) {
	var order []int
	mk := func(i int) Step[int, int] {
		return Transform(func(n int) int {
			order = append(order, i)
			return n
		})
	}
	seq := Sequence(mk(1), mk(2), mk(3))
	_, err := seq.Run(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestJoinProducesPair(t *testing.T) {
	a := Transform(func(n int) string { return "a" })
	b := Transform(func(n int) int { return n + 1 })
	joined := Join(a, b)
	out, err := joined.Run(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, Pair[string, int]{First: "a", Second: 11}, out)
}

func TestAgentDelegatesToBody(t *testing.T) {
	ag := Agent[int, int]{Body: Transform(func(n int) int { return n * 3 })}
	out, err := ag.Run(context.Background(), 4)
	require.NoError(t, err)
	require.Equal(t, 12, out)
}

func TestParallelCollectsPartialSuccesses(t *testing.T) {
	ok1 := Transform(func(n int) int { return n + 1 })
	ok2 := Transform(func(n int) int { return n + 2 })
	fail := TransformErr[int, int](func(int) (int, error) {
		return 0, errors.New("fails")
	})

	p := Parallel(ok1, fail, ok2)
	out, err := p.Run(context.Background(), 10)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{11, 12}, out)
}

func TestParallelFailsOnlyWhenAllFail(t *testing.T) {
	fail := func(msg string) Step[int, int] {
		return TransformErr[int, int](func(int) (int, error) {
			return 0, errors.New(msg)
		})
	}
	p := Parallel(fail("a"), fail("b"))
	_, err := p.Run(context.Background(), 0)
	require.Error(t, err)
	require.True(t, corerr.HasKind(err, corerr.KindParallelAllFailed))
}

func TestParallelZeroStepsFailsImmediately(t *testing.T) {
	p := Parallel[int, int]()
	_, err := p.Run(context.Background(), 0)
	require.Error(t, err)
	require.True(t, corerr.HasKind(err, corerr.KindParallelAllFailed))
}

func TestRaceReturnsFirstSuccess(t *testing.T) {
	fast := Func[int, string](func(ctx context.Context, n int) (string, error) {
		return "fast", nil
	})
	slow := Func[int, string](func(ctx context.Context, n int) (string, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return "slow", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})

	r := Race(time.Second, slow, fast)
	out, err := r.Run(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, "fast", out)
}

func TestRaceAllFailed(t *testing.T) {
	fail := func(msg string) Step[int, int] {
		return TransformErr[int, int](func(int) (int, error) {
			return 0, errors.New(msg)
		})
	}
	r := Race(time.Second, fail("a"), fail("b"))
	_, err := r.Run(context.Background(), 0)
	require.Error(t, err)
	require.True(t, corerr.HasKind(err, corerr.KindRaceAllFailed))
}

func TestRaceZeroTimeoutFailsImmediately(t *testing.T) {
	slow := Func[int, int](func(ctx context.Context, n int) (int, error) {
		select {
		case <-time.After(time.Second):
			return n, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})
	r := Race(0, slow)
	_, err := r.Run(context.Background(), 0)
	require.Error(t, err)
	require.True(t, corerr.HasKind(err, corerr.KindRaceTimeout))
}

func TestLoopStopsAtPredicate(t *testing.T) {
	incr := Transform(func(n int) int { return n + 1 })
	l := Loop(100, func(n int) bool { return n >= 3 }, incr)
	out, err := l.Run(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 3, out)
}

func TestLoopMaxExceededWhenPredicateNeverHolds(t *testing.T) {
	incr := Transform(func(n int) int { return n + 1 })
	l := Loop(5, func(n int) bool { return n >= 1000 }, incr)
	_, err := l.Run(context.Background(), 0)
	require.Error(t, err)
	require.True(t, corerr.HasKind(err, corerr.KindLoopMaxExceeded))
}

func TestLoopWithNilPredicateRunsExactlyMaxTimes(t *testing.T) {
	count := 0
	incr := Transform(func(n int) int { count++; return n + 1 })
	l := Loop[int](4, nil, incr)
	out, err := l.Run(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 4, out)
	require.Equal(t, 4, count)
}

func TestMapPreservesOrder(t *testing.T) {
	m := Map(func(a int, index int) Step[int, int] {
		return Transform(func(n int) int { return n * 10 })
	})
	out, err := m.Run(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []int{10, 20, 30}, out)
}

func TestMapFailsFastOnFirstError(t *testing.T) {
	m := Map(func(a int, index int) Step[int, int] {
		return TransformErr[int, int](func(n int) (int, error) {
			if n == 2 {
				return 0, errors.New("bad item")
			}
			return n, nil
		})
	})
	_, err := m.Run(context.Background(), []int{1, 2, 3})
	require.Error(t, err)
}

func TestReduceFoldsSequentially(t *testing.T) {
	var order []int
	r := Reduce(0, func(acc int, a int, index int) Step[int, int] {
		return Transform(func(acc int) int {
			order = append(order, a)
			return acc + a
		})
	})
	out, err := r.Run(context.Background(), []int{1, 2, 3, 4})
	require.NoError(t, err)
	require.Equal(t, 10, out)
	require.Equal(t, []int{1, 2, 3, 4}, order)
}
