package queue

import (
	"iter"
	"slices"
	"sync"
)

// Track is a queued item. It is never mutated after creation.
type Track struct {
	Title   string
	Locator string
	Raw     map[string]any
}

// Queue is a FIFO of tracks. Every method is safe for concurrent use.
type Queue struct {
	mu     sync.Mutex
	tracks []Track
}

// New creates an empty queue
func New() *Queue {
	return &Queue{tracks: make([]Track, 0)}
}

// Enqueue appends tracks at the tail in the given order and returns how many were added
func (q *Queue) Enqueue(tracks ...Track) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, tracks...)
	return len(tracks)
}

// Dequeue removes and returns the head. ok is false when the queue is empty.
func (q *Queue) Dequeue() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tracks) == 0 {
		return Track{}, false
	}
	head := q.tracks[0]
	q.tracks[0] = Track{}
	q.tracks = q.tracks[1:]
	return head, true
}

// PushFront puts a track back at the head, undoing a Dequeue
func (q *Queue) PushFront(t Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = slices.Insert(q.tracks, 0, t)
}

// Clear removes every track
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = q.tracks[:0:0]
}

// Len returns the number of queued tracks
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

// IsEmpty reports whether nothing is queued
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Snapshot returns a read-only view of the queue as it is now. The sequence
// can be ranged over any number of times and is unaffected by later changes.
func (q *Queue) Snapshot() iter.Seq2[int, Track] {
	q.mu.Lock()
	tracks := slices.Clone(q.tracks)
	q.mu.Unlock()

	return func(yield func(int, Track) bool) {
		for i, t := range tracks {
			if !yield(i, t) {
				return
			}
		}
	}
}
