package scheduler

import "container/heap"

// bellHeap implements container/heap.Interface for BellEvent, sorted
// by TriggerAt (earliest first).
type bellHeap []BellEvent

func (h bellHeap) Len() int           { return len(h) }
func (h bellHeap) Less(i, j int) bool { return h[i].TriggerAt.Before(h[j].TriggerAt) }
func (h bellHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *bellHeap) Push(x any) {
	*h = append(*h, x.(BellEvent))
}

func (h *bellHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// heapPush adds a BellEvent to the heap, maintaining heap invariant.
func heapPush(h *bellHeap, e BellEvent) {
	heap.Push(h, e)
}

// heapPop removes and returns the BellEvent with the earliest TriggerAt.
// Panics if the heap is empty.
func heapPop(h *bellHeap) BellEvent {
	return heap.Pop(h).(BellEvent)
}

// heapRemoveBySlot removes every BellEvent with the given slot.
// Returns true if at least one event was removed.
func heapRemoveBySlot(h *bellHeap, slot string) bool {
	removed := false
	for i := 0; i < len(*h); {
		if (*h)[i].Slot == slot {
			heap.Remove(h, i)
			removed = true
			continue
		}
		i++
	}
	return removed
}
