package simulator

import "container/heap"

// EventQueue is a min-priority queue of events ordered by timestamp.
// There is no removal from the interior: stale predictions stay queued until
// they reach the front, where the simulator checks and drops them.
type EventQueue struct {
	entries eventHeap
}

// queuedEvent caches the timestamp so heap comparisons skip the interface call
type queuedEvent struct {
	t     float64
	event Event
}

// NewEventQueue creates a new event queue
func NewEventQueue() *EventQueue {
	eq := &EventQueue{
		entries: make(eventHeap, 0, 64),
	}
	heap.Init(&eq.entries)
	return eq
}

// Push adds an event in O(log n)
func (eq *EventQueue) Push(event Event) {
	heap.Push(&eq.entries, queuedEvent{t: event.Timestamp(), event: event})
}

// Pop removes and returns the earliest event, or nil if the queue is empty
func (eq *EventQueue) Pop() Event {
	if eq.IsEmpty() {
		return nil
	}
	return heap.Pop(&eq.entries).(queuedEvent).event
}

// Peek returns the earliest event without removing it
func (eq *EventQueue) Peek() Event {
	if eq.IsEmpty() {
		return nil
	}
	return eq.entries[0].event
}

func (eq *EventQueue) IsEmpty() bool {
	return len(eq.entries) == 0
}

func (eq *EventQueue) Len() int {
	return len(eq.entries)
}

// CountByType counts queued events of one type, stale ones included
func (eq *EventQueue) CountByType(t EventType) int {
	count := 0
	for _, e := range eq.entries {
		if e.event.Type() == t {
			count++
		}
	}
	return count
}

type eventHeap []queuedEvent

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].t < h[j].t }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(queuedEvent))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = queuedEvent{}
	*h = old[:n-1]
	return x
}
