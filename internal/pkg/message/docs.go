// Package message defines the wire envelope of the remote-control protocol
// and typed codecs for every payload shape.
//
// Every frame is a JSON object {"op": <integer>, "d": <object>} where the
// opcode fully determines the shape of d. Client->server payloads implement
// the Data interface and are encoded with Encode; server->client frames are
// decoded either strictly (DecodeData, used during the handshake, where any
// mismatch is a protocol violation) or into the ServerMessage tagged union
// (DecodeServer, used by the session's general-purpose reader, where an
// undecodable frame is something the caller may choose to skip).
package message
