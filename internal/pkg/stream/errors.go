package stream

import "github.com/pkg/errors"

// ErrWouldBlock indicates that the operation could not complete without
// blocking and should be retried after the transport signals readiness.
var ErrWouldBlock = errors.New("operation would block")

// ErrClosed indicates that the connection has been closed locally.
var ErrClosed = errors.New("connection closed")
