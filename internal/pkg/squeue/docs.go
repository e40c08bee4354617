// Package squeue implements an ordered buffer with multiple independent
// read cursors.
//
// Several logical consumers can observe the same stream of values at their
// own pace without duplicating storage: the queue keeps one copy of each
// value and a watermark per cursor, and discards the oldest value exactly
// when every live cursor has advanced past it. A cursor created mid-stream
// sees only values written after its subscription, never history.
//
// The queue is not safe for concurrent use. It is owned and mutated by a
// single caller, matching the session layer's single-owner model.
package squeue
