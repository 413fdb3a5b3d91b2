package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryRelayBasic(t *testing.T) {
	m := NewMemory(0)
	r := m.Relay()
	require.Equal(t, 0, r.Get())
	r.Set(5)
	require.Equal(t, 5, r.Get())
}

func TestReadOnlyRelaySetIsNoOp(t *testing.T) {
	m := NewMemory(10)
	ro := ReadOnly(m.Relay(), func(v int) int { return v * 2 })
	require.Equal(t, 20, ro.Get())
	ro.Set(999)
	require.Equal(t, 20, ro.Get())
}

func TestConstantRelaySetIsNoOp(t *testing.T) {
	c := Constant("fixed")
	require.Equal(t, "fixed", c.Get())
	c.Set("changed")
	require.Equal(t, "fixed", c.Get())
}

func TestMapRelayReadWrite(t *testing.T) {
	m := NewMemory(2)
	doubled := Map(m.Relay(), func(v int) int { return v * 2 }, func(v int) int { return v / 2 })
	require.Equal(t, 4, doubled.Get())
	doubled.Set(10)
	require.Equal(t, 5, m.Relay().Get())
}

func TestIntegerAffordances(t *testing.T) {
	m := NewMemory(0)
	r := m.Relay()
	require.Equal(t, 1, Increment(r))
	require.Equal(t, 0, Decrement(r))
	require.Equal(t, 10, AddDelta(r, 10))
}

func TestSequenceAffordances(t *testing.T) {
	m := NewMemory([]string{})
	r := m.Relay()
	Append(r, "a")
	AppendAll(r, []string{"b", "c"})
	require.Equal(t, []string{"a", "b", "c"}, r.Get())
	Clear(r)
	require.Empty(t, r.Get())
}

func TestSetAffordances(t *testing.T) {
	m := NewMemory(map[string]struct{}{})
	r := m.Relay()
	Insert(r, "x")
	require.True(t, Contains(r, "x"))
	FormUnion(r, map[string]struct{}{"y": {}, "z": {}})
	require.True(t, Contains(r, "y"))
	Remove(r, "x")
	require.False(t, Contains(r, "x"))
}

func TestRelayOperationsAreLinearizable(t *testing.T) {
	m := NewMemory(0)
	r := m.Relay()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Increment(r)
		}()
	}
	wg.Wait()
	require.Equal(t, 100, r.Get())
}

func TestContainsIsSafeAgainstConcurrentInsert(t *testing.T) {
	m := NewMemory(map[int]struct{}{})
	r := m.Relay()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			Insert(r, n)
		}(i)
		go func(n int) {
			defer wg.Done()
			Contains(r, n)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		require.True(t, Contains(r, i))
	}
}
