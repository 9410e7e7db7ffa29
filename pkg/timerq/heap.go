package timerq

import "time"

// heapEntry is the priority-index record for one timer. The jobs map, not
// the heap, is the source of truth: an entry whose uid is absent from the
// map has been cancelled and is skipped by the dispatcher.
type heapEntry struct {
	uid      UID
	deadline time.Time
}

// timerHeap is a min-heap over (deadline, uid). The uid tie-break makes
// dispatch order among equal deadlines equal to enqueue order.
type timerHeap []heapEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].uid < h[j].uid
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(heapEntry))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
