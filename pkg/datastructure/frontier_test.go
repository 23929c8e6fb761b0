package datastructure

import (
	"math/rand"
	"testing"

	"github.com/lintang-b-s/navigatorx-transit/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(f Frontier) []Index {
	out := make([]Index, 0, f.Len())
	for {
		v, ok := f.PopMin()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

func TestFrontierOrdering(t *testing.T) {
	for _, kind := range []pkg.FrontierKind{pkg.SORTED_LIST_FRONTIER, pkg.HEAP_FRONTIER} {
		t.Run(kind.String(), func(t *testing.T) {
			f := NewFrontier(kind, 8)
			f.Push(1, 30)
			f.Push(2, 10)
			f.Push(3, 20)
			f.Push(4, 10) // tie with 2, inserted later
			f.Push(2, 5)  // already present, ignored

			assert.Equal(t, 4, f.Len())
			assert.True(t, f.Contains(3))
			assert.Equal(t, []Index{2, 4, 3, 1}, drain(f))
			assert.False(t, f.Contains(3))

			_, ok := f.PopMin()
			assert.False(t, ok)
		})
	}
}

func TestFrontierUpdate(t *testing.T) {
	for _, kind := range []pkg.FrontierKind{pkg.SORTED_LIST_FRONTIER, pkg.HEAP_FRONTIER} {
		t.Run(kind.String(), func(t *testing.T) {
			f := NewFrontier(kind, 8)
			f.Push(1, 10)
			f.Push(2, 20)
			f.Push(3, 30)

			f.Update(3, 10) // ties with 1, but 1 was inserted first
			f.Update(9, 1)  // not in frontier

			assert.Equal(t, []Index{1, 3, 2}, drain(f))
		})
	}
}

func TestFrontierImplementationsAgree(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		list := NewSortedListFrontier(16)
		heap := NewHeapFrontier(16)
		arrivals := make(map[Index]float64)

		var gotList, gotHeap []Index
		for op := 0; op < 200; op++ {
			switch r := rng.Intn(10); {
			case r < 5:
				v := Index(rng.Intn(40))
				arr := float64(rng.Intn(20))
				if !list.Contains(v) {
					arrivals[v] = arr
				}
				list.Push(v, arr)
				heap.Push(v, arr)
			case r < 7:
				v := Index(rng.Intn(40))
				if list.Contains(v) {
					arr := arrivals[v] - float64(rng.Intn(5))
					arrivals[v] = arr
					list.Update(v, arr)
					heap.Update(v, arr)
				}
			default:
				a, okA := list.PopMin()
				b, okB := heap.PopMin()
				require.Equal(t, okA, okB)
				gotList = append(gotList, a)
				gotHeap = append(gotHeap, b)
			}
			require.Equal(t, list.Len(), heap.Len())
		}
		gotList = append(gotList, drain(list)...)
		gotHeap = append(gotHeap, drain(heap)...)
		assert.Equal(t, gotList, gotHeap)
	}
}

func TestMinHeapDecreaseKey(t *testing.T) {
	h := NewdAryHeap[string, int](2, 0)
	assert.True(t, h.Push("a", 5))
	assert.True(t, h.Push("b", 3))
	assert.True(t, h.Push("c", 9))
	assert.False(t, h.Push("a", 1))

	assert.True(t, h.DecreaseKey("c", 1))
	assert.False(t, h.DecreaseKey("a", 10))
	assert.False(t, h.DecreaseKey("z", 0))

	item, rank, ok := h.Peek()
	require.True(t, ok)
	assert.Equal(t, "c", item)
	assert.Equal(t, 1, rank)

	order := []string{}
	for h.Len() > 0 {
		item, _, ok := h.PopMin()
		require.True(t, ok)
		order = append(order, item)
	}
	assert.Equal(t, []string{"c", "b", "a"}, order)
	assert.False(t, h.Contains("a"))

	_, _, ok = h.PopMin()
	assert.False(t, ok)
}

func TestMinHeapTiesKeepInsertionOrder(t *testing.T) {
	h := NewFourAryHeap[int, float64](16)
	for i := 0; i < 16; i++ {
		h.Push(i, 1.0)
	}
	for i := 0; i < 16; i++ {
		v, _, ok := h.PopMin()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}
