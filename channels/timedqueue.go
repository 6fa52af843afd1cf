package channels

import (
	"container/heap"
	"time"
)

type timedItem[T any] struct {
	value   T
	release time.Time
	seq     uint64
}

// timedHeap orders items by release time, then by arrival.
type timedHeap[T any] []timedItem[T]

// Len returns the number of items in the heap.
func (h timedHeap[T]) Len() int {
	return len(h)
}

// Less returns true if the i-th item is released before the j-th item.
func (h timedHeap[T]) Less(i, j int) bool {
	if h[i].release.Equal(h[j].release) {
		return h[i].seq < h[j].seq
	}

	return h[i].release.Before(h[j].release)
}

// Swap changes the position of two items.
func (h timedHeap[T]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an item into the heap.
func (h *timedHeap[T]) Push(x interface{}) {
	*h = append(*h, x.(timedItem[T]))
}

// Pop removes and returns the last item.
func (h *timedHeap[T]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = timedItem[T]{}
	*h = old[0 : n-1]

	return item
}

// timedQueue is a min-heap of items keyed by release time. It is not thread
// safe.
type timedQueue[T any] struct {
	items   timedHeap[T]
	nextSeq uint64
}

func newTimedQueue[T any]() *timedQueue[T] {
	q := &timedQueue[T]{}
	heap.Init(&q.items)

	return q
}

func (q *timedQueue[T]) push(v T, release time.Time) {
	heap.Push(&q.items, timedItem[T]{value: v, release: release, seq: q.nextSeq})
	q.nextSeq++
}

func (q *timedQueue[T]) peek() (timedItem[T], bool) {
	if len(q.items) == 0 {
		return timedItem[T]{}, false
	}

	return q.items[0], true
}

func (q *timedQueue[T]) pop() timedItem[T] {
	return heap.Pop(&q.items).(timedItem[T])
}

func (q *timedQueue[T]) len() int {
	return len(q.items)
}
