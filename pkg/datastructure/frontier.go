package datastructure

import (
	"sort"

	"github.com/lintang-b-s/navigatorx-transit/pkg"
)

// Frontier holds the reached, not yet visited vertices ordered by (tentative arrival, insertion order).
// the arrival passed to Push/Update is the key, vertices are not re-read.
type Frontier interface {
	Push(v Index, arrival float64)
	// Update moves v to the position of its improved arrival. no-op if v is not in the frontier.
	Update(v Index, arrival float64)
	PopMin() (Index, bool)
	Contains(v Index) bool
	Len() int
}

func NewFrontier(kind pkg.FrontierKind, capacity int) Frontier {
	switch kind {
	case pkg.HEAP_FRONTIER:
		return NewHeapFrontier(capacity)
	default:
		return NewSortedListFrontier(capacity)
	}
}

type frontierEntry struct {
	v       Index
	arrival float64
	seq     uint64
}

func (a frontierEntry) less(b frontierEntry) bool {
	if a.arrival != b.arrival {
		return a.arrival < b.arrival
	}
	return a.seq < b.seq
}

// SortedListFrontier is an insertion-sorted slice. O(n) insert, O(1) amortized pop.
type SortedListFrontier struct {
	entries []frontierEntry
	seqs    map[Index]uint64
	nextSeq uint64
}

func NewSortedListFrontier(capacity int) *SortedListFrontier {
	return &SortedListFrontier{
		entries: make([]frontierEntry, 0, capacity),
		seqs:    make(map[Index]uint64, capacity),
	}
}

func (f *SortedListFrontier) Push(v Index, arrival float64) {
	if _, ok := f.seqs[v]; ok {
		return
	}
	e := frontierEntry{v: v, arrival: arrival, seq: f.nextSeq}
	f.nextSeq++
	f.seqs[v] = e.seq
	f.insert(e)
}

func (f *SortedListFrontier) insert(e frontierEntry) {
	pos := sort.Search(len(f.entries), func(i int) bool {
		return e.less(f.entries[i])
	})
	f.entries = append(f.entries, frontierEntry{})
	copy(f.entries[pos+1:], f.entries[pos:])
	f.entries[pos] = e
}

func (f *SortedListFrontier) Update(v Index, arrival float64) {
	seq, ok := f.seqs[v]
	if !ok {
		return
	}
	for i := range f.entries {
		if f.entries[i].v == v {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			break
		}
	}
	f.insert(frontierEntry{v: v, arrival: arrival, seq: seq})
}

func (f *SortedListFrontier) PopMin() (Index, bool) {
	if len(f.entries) == 0 {
		return INVALID_INDEX, false
	}
	head := f.entries[0]
	f.entries = f.entries[1:]
	delete(f.seqs, head.v)
	return head.v, true
}

func (f *SortedListFrontier) Contains(v Index) bool {
	_, ok := f.seqs[v]
	return ok
}

func (f *SortedListFrontier) Len() int {
	return len(f.entries)
}

// HeapFrontier is the 4-ary MinHeap with decrease-key. same pop order as SortedListFrontier.
type HeapFrontier struct {
	pq *MinHeap[Index, float64]
}

func NewHeapFrontier(capacity int) *HeapFrontier {
	return &HeapFrontier{
		pq: NewFourAryHeap[Index, float64](capacity),
	}
}

func (f *HeapFrontier) Push(v Index, arrival float64) {
	f.pq.Push(v, arrival)
}

// Update only lowers the arrival of v, a larger arrival is ignored.
func (f *HeapFrontier) Update(v Index, arrival float64) {
	f.pq.DecreaseKey(v, arrival)
}

func (f *HeapFrontier) PopMin() (Index, bool) {
	v, _, ok := f.pq.PopMin()
	if !ok {
		return INVALID_INDEX, false
	}
	return v, true
}

func (f *HeapFrontier) Contains(v Index) bool {
	return f.pq.Contains(v)
}

func (f *HeapFrontier) Len() int {
	return f.pq.Len()
}
