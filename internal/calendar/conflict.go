package calendar

import (
	"cmp"
	"container/heap"
	"slices"

	"deskcal/internal/model"
)

// Conflict is an unordered pair of overlapping events. A always precedes B
// in the input order, so each pair appears exactly once.
type Conflict struct {
	A model.Event
	B model.Event
}

// DetectConflicts reports every pair of events whose [Start, End)
// intervals overlap. Events that merely touch (A.End == B.Start) do not
// conflict. The input is expected to hold a single day's events; pairs on
// different dates are never reported.
//
// Pairs are ordered by the index of A, then B.
func DetectConflicts(events []model.Event) []Conflict {
	var out []Conflict
	for i := 0; i < len(events); i++ {
		for j := i + 1; j < len(events); j++ {
			if events[i].Overlaps(events[j]) {
				out = append(out, Conflict{A: events[i], B: events[j]})
			}
		}
	}
	return out
}

// DetectConflictsSweep returns the same pairs as DetectConflicts, in the
// same order, in O(n log n + k) time: events are visited by start time and
// compared only against those still active, kept in a min-heap keyed by end.
func DetectConflictsSweep(events []model.Event) []Conflict {
	order := make([]int, len(events))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		ea, eb := events[a], events[b]
		if c := ea.Date.Compare(eb.Date); c != 0 {
			return c
		}
		return cmp.Compare(ea.Start, eb.Start)
	})

	type pair struct{ i, j int }
	var pairs []pair

	active := &endHeap{events: events}
	for _, idx := range order {
		ev := events[idx]
		for active.Len() > 0 {
			top := events[active.idx[0]]
			if top.Date == ev.Date && top.End > ev.Start {
				break
			}
			heap.Pop(active)
		}
		for _, other := range active.idx {
			if other < idx {
				pairs = append(pairs, pair{other, idx})
			} else {
				pairs = append(pairs, pair{idx, other})
			}
		}
		heap.Push(active, idx)
	}

	slices.SortFunc(pairs, func(a, b pair) int {
		if c := cmp.Compare(a.i, b.i); c != 0 {
			return c
		}
		return cmp.Compare(a.j, b.j)
	})

	var out []Conflict
	for _, p := range pairs {
		out = append(out, Conflict{A: events[p.i], B: events[p.j]})
	}
	return out
}

// endHeap orders indexes into events by (Date, End) so the earliest-ending
// active event sits on top.
type endHeap struct {
	events []model.Event
	idx    []int
}

func (h *endHeap) Len() int { return len(h.idx) }

func (h *endHeap) Less(a, b int) bool {
	ea, eb := h.events[h.idx[a]], h.events[h.idx[b]]
	if c := ea.Date.Compare(eb.Date); c != 0 {
		return c < 0
	}
	return ea.End < eb.End
}

func (h *endHeap) Swap(a, b int) { h.idx[a], h.idx[b] = h.idx[b], h.idx[a] }

func (h *endHeap) Push(x any) { h.idx = append(h.idx, x.(int)) }

func (h *endHeap) Pop() any {
	n := len(h.idx)
	v := h.idx[n-1]
	h.idx = h.idx[:n-1]
	return v
}
