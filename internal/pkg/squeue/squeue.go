package squeue

import "fmt"

// Cursor identifies an independent read position into a Queue.
type Cursor int

// Queue is an ordered buffer of values with per-cursor watermarks.
// The zero value is not usable; create instances with New.
type Queue[T any] struct {
	held       []T
	cursors    map[Cursor]int
	nextCursor Cursor
}

// New creates an empty queue with no cursors.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		cursors: make(map[Cursor]int),
	}
}

// Write appends a value to the tail. It becomes the next unread value for
// every existing cursor.
func (q *Queue[T]) Write(value T) {
	q.held = append(q.held, value)
}

// Subscribe registers a new cursor positioned at the current tail. The
// cursor will only ever observe values written after this call.
func (q *Queue[T]) Subscribe() Cursor {
	cursor := q.nextCursor
	q.cursors[cursor] = len(q.held)
	q.nextCursor++
	return cursor
}

// Unsubscribe acknowledges all values the cursor has not yet seen and then
// removes it, so that it cannot keep pinning old values.
func (q *Queue[T]) Unsubscribe(cursor Cursor) {
	// Not maximally efficient when this cursor is far behind all others.
	for q.Ack(cursor) {
	}
	delete(q.cursors, cursor)
}

// Peek returns the next unread value for the cursor without consuming it.
// The second return is false when the cursor is caught up. An unknown
// cursor is a defect in the calling code and panics.
func (q *Queue[T]) Peek(cursor Cursor) (T, bool) {
	pos, ok := q.cursors[cursor]
	if !ok {
		panic(fmt.Sprintf("squeue: invalid cursor %d", cursor))
	}
	if pos >= len(q.held) {
		var zero T
		return zero, false
	}
	return q.held[pos], true
}

// Ack advances the cursor past its current value, if any, and reports
// whether it advanced. When the cursor was the last one pinning the oldest
// value, that value is discarded. An unknown cursor panics.
func (q *Queue[T]) Ack(cursor Cursor) bool {
	pos, ok := q.cursors[cursor]
	if !ok {
		panic(fmt.Sprintf("squeue: invalid cursor %d", cursor))
	}
	if pos >= len(q.held) {
		return false
	}
	pos++
	q.cursors[cursor] = pos
	if pos > 1 {
		// This cursor was not at the oldest value, so it cannot have been
		// the last one pinning it.
		return true
	}
	for _, other := range q.cursors {
		if other == 0 {
			// Another cursor still needs the oldest value.
			return true
		}
	}
	for c, other := range q.cursors {
		q.cursors[c] = other - 1
	}
	var zero T
	q.held[0] = zero
	q.held = q.held[1:]
	return true
}

// Len returns the number of values currently retained.
func (q *Queue[T]) Len() int {
	return len(q.held)
}

// Cursors returns the number of live cursors.
func (q *Queue[T]) Cursors() int {
	return len(q.cursors)
}
