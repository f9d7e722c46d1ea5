package sched

import (
	"sync"

	"github.com/freeeve/boardwatch/internal/track"
)

// Request is one queued analysis request: the board it came from and
// the encoded position at enqueue time. It goes stale if the board is
// evicted before the worker reaches it.
type Request struct {
	Entity   *track.Entity
	Position string
}

// Queue is a simple FIFO of analysis requests, safe for concurrent
// push from the scheduling pass and pop from the drain worker.
type Queue struct {
	mu    sync.Mutex
	items []Request
}

func NewQueue() *Queue {
	return &Queue{items: make([]Request, 0, 16)}
}

// Push appends a request.
func (q *Queue) Push(r Request) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()
}

// Pop removes and returns the oldest request, or false if empty.
func (q *Queue) Pop() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Request{}, false
	}
	r := q.items[0]
	q.items = q.items[1:]
	return r, true
}

// Purge drops every queued request referencing the given board and
// returns how many were removed.
func (q *Queue) Purge(entityID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.items[:0]
	removed := 0
	for _, r := range q.items {
		if r.Entity.ID() == entityID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	q.items = kept
	return removed
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
