// Package auth implements the salted challenge-response handshake.
//
// The handshake is a strictly linear exchange: the server sends Hello, the
// client answers with Identify, the server confirms with Identified. Machine
// drives it one I/O action at a time over an abstract message stream, so the
// same machine works against a blocking socket (every step succeeds or is
// fatal) and a non-blocking one (a step may report a would-block condition
// and be retried without re-entering partially completed work).
//
// Decode violations during the handshake are always fatal; they mean one
// side broke the protocol and retrying cannot help.
package auth
