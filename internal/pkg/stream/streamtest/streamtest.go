// Package streamtest provides a scripted MessageStream for tests.
package streamtest

import (
	"github.com/pkg/errors"

	"github.com/cyradotpink/influencer/internal/pkg/stream"
)

type readResult struct {
	frame stream.Frame
	err   error
}

// Fake is a MessageStream whose reads are served from a queued script and
// whose writes and flushes are recorded. Queued read errors are consumed in
// order along with frames, so tests can interleave would-block conditions
// with real traffic.
type Fake struct {
	reads   []readResult
	Written []stream.Frame
	Flushes int

	// Consumed once by the next Write / Flush call, respectively.
	NextWriteErr error
	NextFlushErr error
}

// New creates an empty fake.
func New() *Fake {
	return &Fake{}
}

// QueueFrame appends a frame to the read script.
func (f *Fake) QueueFrame(frame stream.Frame) {
	f.reads = append(f.reads, readResult{frame: frame})
}

// QueueError appends a read error to the read script.
func (f *Fake) QueueError(err error) {
	f.reads = append(f.reads, readResult{err: err})
}

// Read serves the next scripted result. An exhausted script is an error, so
// a test that reads more than it scripted fails loudly.
func (f *Fake) Read() (stream.Frame, error) {
	if len(f.reads) == 0 {
		return stream.Frame{}, errors.New("streamtest: read past end of script")
	}
	next := f.reads[0]
	f.reads = f.reads[1:]
	return next.frame, next.err
}

// Write records the frame.
func (f *Fake) Write(frame stream.Frame) error {
	if err := f.NextWriteErr; err != nil {
		f.NextWriteErr = nil
		return err
	}
	f.Written = append(f.Written, frame)
	return nil
}

// Flush counts the call.
func (f *Fake) Flush() error {
	if err := f.NextFlushErr; err != nil {
		f.NextFlushErr = nil
		return err
	}
	f.Flushes++
	return nil
}
