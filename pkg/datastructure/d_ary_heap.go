package datastructure

import (
	"golang.org/x/exp/constraints"
)

type heapEntry[T comparable, R constraints.Ordered] struct {
	item T
	rank R
	seq  uint64 // insertion order, breaks rank ties
}

/*
MinHeap d-ary heap keyed by item. every item is at most once in the heap, its position is
tracked so the rank can be decreased in O(log_d n). items with equal rank come out in insertion order.
*/
type MinHeap[T comparable, R constraints.Ordered] struct {
	heap    []heapEntry[T, R]
	pos     map[T]int
	d       int
	nextSeq uint64
}

func NewFourAryHeap[T comparable, R constraints.Ordered](capacity int) *MinHeap[T, R] {
	return NewdAryHeap[T, R](4, capacity)
}

func NewdAryHeap[T comparable, R constraints.Ordered](d, capacity int) *MinHeap[T, R] {
	if d < 2 {
		d = 2
	}
	return &MinHeap[T, R]{
		heap: make([]heapEntry[T, R], 0, capacity),
		pos:  make(map[T]int, capacity),
		d:    d,
	}
}

func (h *MinHeap[T, R]) less(i, j int) bool {
	a, b := h.heap[i], h.heap[j]
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.seq < b.seq
}

func (h *MinHeap[T, R]) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
	h.pos[h.heap[i].item] = i
	h.pos[h.heap[j].item] = j
}

// heapifyUp swap dengan parent selama lebih kecil dari parent.
func (h *MinHeap[T, R]) heapifyUp(index int) {
	for index > 0 {
		parent := (index - 1) / h.d
		if !h.less(index, parent) {
			return
		}
		h.swap(index, parent)
		index = parent
	}
}

// heapifyDown swap dengan child terkecil selama child itu lebih kecil.
func (h *MinHeap[T, R]) heapifyDown(index int) {
	for {
		first := index*h.d + 1
		if first >= len(h.heap) {
			return
		}
		last := min(first+h.d, len(h.heap))

		smallest := first
		for i := first + 1; i < last; i++ {
			if h.less(i, smallest) {
				smallest = i
			}
		}
		if !h.less(smallest, index) {
			return
		}
		h.swap(index, smallest)
		index = smallest
	}
}

func (h *MinHeap[T, R]) Len() int {
	return len(h.heap)
}

func (h *MinHeap[T, R]) Contains(item T) bool {
	_, ok := h.pos[item]
	return ok
}

// Push inserts item. it reports false if item is already in the heap.
func (h *MinHeap[T, R]) Push(item T, rank R) bool {
	if h.Contains(item) {
		return false
	}
	h.heap = append(h.heap, heapEntry[T, R]{item: item, rank: rank, seq: h.nextSeq})
	h.nextSeq++
	i := len(h.heap) - 1
	h.pos[item] = i
	h.heapifyUp(i)
	return true
}

// Peek returns the minimum without removing it.
func (h *MinHeap[T, R]) Peek() (T, R, bool) {
	if len(h.heap) == 0 {
		var item T
		var rank R
		return item, rank, false
	}
	return h.heap[0].item, h.heap[0].rank, true
}

// PopMin removes and returns the minimum.
func (h *MinHeap[T, R]) PopMin() (T, R, bool) {
	item, rank, ok := h.Peek()
	if !ok {
		return item, rank, false
	}
	last := len(h.heap) - 1
	h.swap(0, last)
	h.heap = h.heap[:last]
	delete(h.pos, item)
	if last > 0 {
		h.heapifyDown(0)
	}
	return item, rank, true
}

// DecreaseKey lowers the rank of item. it reports false if item is absent or rank is not lower.
func (h *MinHeap[T, R]) DecreaseKey(item T, rank R) bool {
	i, ok := h.pos[item]
	if !ok || !(rank < h.heap[i].rank) {
		return false
	}
	h.heap[i].rank = rank
	h.heapifyUp(i)
	return true
}
