// Package stream abstracts the duplex message channel that the protocol
// engine is driven over.
//
// The core packages never touch a network connection directly; they depend
// on the MessageStream interface, which can read one frame, write one frame,
// or flush pending writes, each possibly failing with a would-block
// condition. The would-block condition is the only asynchronous signal in
// the system: a caller driving the engine over a non-blocking transport
// waits for readiness out of band and retries the exact same step.
//
// Conn adapts a gorilla/websocket connection to the interface. It is
// blocking by default; configuring a poll interval moves reads onto a
// background pump and bounds each Read call, reporting the would-block
// condition on expiry so the same connection can be driven from a polling
// loop. Frames that arrive between polls stay queued for later reads.
package stream
