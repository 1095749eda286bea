package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryInsertGetRemove(t *testing.T) {
	r := newRegistry[string]()
	id1 := r.Insert("a")
	id2 := r.Insert("b")
	require.NotEqual(t, id1, id2)
	require.Equal(t, 2, r.Len())

	v, ok := r.Get(id1)
	require.True(t, ok)
	require.Equal(t, "a", v)

	require.True(t, r.Remove(id1))
	require.False(t, r.Remove(id1), "removing twice reports false")
	_, ok = r.Get(id1)
	require.False(t, ok)
	require.Equal(t, 1, r.Len())
}

func TestRegistrySlotReuseKeepsIDsStable(t *testing.T) {
	r := newRegistry[int]()
	idA := r.Insert(1)
	idB := r.Insert(2)
	require.True(t, r.Remove(idA))

	idC := r.Insert(3) // should reuse idA's freed slot
	require.NotEqual(t, idA, idC, "IDs are never reused, only slots")

	vB, ok := r.Get(idB)
	require.True(t, ok)
	require.Equal(t, 2, vB)

	vC, ok := r.Get(idC)
	require.True(t, ok)
	require.Equal(t, 3, vC)
}

func TestRegistryEachVisitsOnlyLive(t *testing.T) {
	r := newRegistry[int]()
	id1 := r.Insert(10)
	id2 := r.Insert(20)
	r.Remove(id1)

	seen := map[uint64]int{}
	r.Each(func(id uint64, v int) { seen[id] = v })
	require.Equal(t, map[uint64]int{id2: 20}, seen)
}

func TestRegistryRejectAllClearsAndVisits(t *testing.T) {
	r := newRegistry[int]()
	id1 := r.Insert(1)
	id2 := r.Insert(2)

	seen := map[uint64]int{}
	r.RejectAll(func(id uint64, v int) { seen[id] = v })
	require.Equal(t, map[uint64]int{id1: 1, id2: 2}, seen)
	require.Equal(t, 0, r.Len())

	id3 := r.Insert(3)
	_, ok := r.Get(id3)
	require.True(t, ok)
}
