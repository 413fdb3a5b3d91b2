package notebook

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluxgraph/agentcore/internal/corerr"
)

func TestMemoryRoundTrip(t *testing.T) {
	nb := NewMemory()

	require.NoError(t, nb.Set("plan", "step one"))
	v, ok, err := nb.Get("plan")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "step one", v)

	require.NoError(t, nb.Set("plan", "step two"))
	v, _, _ = nb.Get("plan")
	require.Equal(t, "step two", v)

	require.NoError(t, nb.Delete("plan"))
	_, ok, err = nb.Get("plan")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryValueSizeCap(t *testing.T) {
	nb := NewMemory()
	err := nb.Set("big", strings.Repeat("x", MaxValueSize+1))
	require.Error(t, err)
	require.True(t, corerr.HasKind(err, corerr.KindInvalidInput))

	require.NoError(t, nb.Set("exact", strings.Repeat("x", MaxValueSize)))
}

func TestMemoryEmptyKeyRejected(t *testing.T) {
	nb := NewMemory()
	require.Error(t, nb.Set("", "value"))
}

func TestMemoryKeysSorted(t *testing.T) {
	nb := NewMemory()
	for _, k := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(t, nb.Set(k, k))
	}
	keys, err := nb.Keys()
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "bravo", "charlie"}, keys)
}

func TestMemoryConcurrentSets(t *testing.T) {
	nb := NewMemory()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			key := string(rune('a' + n))
			for j := 0; j < 100; j++ {
				_ = nb.Set(key, key)
				_, _, _ = nb.Get(key)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	keys, err := nb.Keys()
	require.NoError(t, err)
	require.Len(t, keys, 8)
}

func TestNotebookTool(t *testing.T) {
	nb := NewMemory()
	nt := NewTool(nb)
	ctx := context.Background()

	res, err := nt.Call(ctx, map[string]any{"action": "set", "key": "k", "value": "v"})
	require.NoError(t, err)
	require.Contains(t, res.Content, "stored")

	res, err = nt.Call(ctx, map[string]any{"action": "get", "key": "k"})
	require.NoError(t, err)
	require.Equal(t, "v", res.Content)

	res, err = nt.Call(ctx, map[string]any{"action": "list"})
	require.NoError(t, err)
	require.Equal(t, "k", res.Content)

	_, err = nt.Call(ctx, map[string]any{"action": "explode"})
	require.Error(t, err)
	require.True(t, corerr.HasKind(err, corerr.KindInvalidInput))
}
