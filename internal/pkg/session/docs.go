// Package session composes the subscriber queue, the message codec and the
// handshake logic into the client side of the remote-control protocol.
//
// A Session owns one duplex message channel and one subscriber queue.
// Inbound frames are read lazily, exactly one frame per read, into the
// queue, where any number of independent cursors consume them at their own
// pace: one cursor can wait for a specific request's response while another
// streams every event, both observing the same physical byte stream in
// transport order.
//
// "Get" operations position a cursor on the next frame matching some
// predicate without consuming it; the caller acks the cursor when done with
// the frame. A second get without an intervening ack returns the same
// frame. Frames that do not decode as server messages are skipped for the
// reading cursor (a best-effort reader is not brought down by one anomalous
// message); other cursors still see them.
//
// The session is exclusively owned by one caller and performs no internal
// locking. Every operation does at most one transport I/O action per queue
// fill, so a would-block condition from a non-blocking transport can always
// be retried without duplicating side effects.
package session
