package auth

import (
	"github.com/pkg/errors"

	"github.com/cyradotpink/influencer/internal/pkg/message"
	"github.com/cyradotpink/influencer/internal/pkg/stream"
)

// State is the handshake progress. Transitions are strictly forward;
// StateReady is terminal.
type State int

const (
	StateConnected State = iota
	StateGotHello
	StateSentIdentify
	StateReady
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "Connected"
	case StateGotHello:
		return "GotHello"
	case StateSentIdentify:
		return "SentIdentify"
	case StateReady:
		return "Ready"
	default:
		return "Invalid"
	}
}

// Machine drives the handshake over a message stream it owns for the
// duration of the exchange. On a fatal error the caller takes the stream
// back via Stream and disposes of it.
type Machine struct {
	stream             stream.MessageStream
	password           string
	eventSubscriptions *uint32
	needsFlush         bool
	state              State
	challenge          *message.HelloAuthentication
	rpcVersion         uint32
}

// Cfg configures a Machine.
type Cfg func(*Machine) error

// WithPassword sets the password used to answer a challenge. Without it the
// empty string is hashed.
func WithPassword(password string) Cfg {
	return func(m *Machine) error {
		m.password = password
		return nil
	}
}

// WithEventSubscriptions sets the event subscription bitmask sent at
// Identify time.
func WithEventSubscriptions(mask uint32) Cfg {
	return func(m *Machine) error {
		m.eventSubscriptions = &mask
		return nil
	}
}

// NewMachine creates a handshake machine over the given stream.
func NewMachine(s stream.MessageStream, cfgs ...Cfg) (*Machine, error) {
	machine := &Machine{
		stream: s,
		state:  StateConnected,
	}
	for _, cfg := range cfgs {
		if err := cfg(machine); err != nil {
			return nil, errors.Wrap(err, "apply Machine cfg failed")
		}
	}
	return machine, nil
}

// State returns the current handshake progress.
func (m *Machine) State() State {
	return m.state
}

// RPCVersion returns the version negotiated by the server. Valid only in
// StateReady.
func (m *Machine) RPCVersion() uint32 {
	return m.rpcVersion
}

// Stream hands the underlying channel back to the caller, typically for
// disposal after a fatal error or for regular use after StateReady.
func (m *Machine) Stream() stream.MessageStream {
	return m.stream
}

// Step performs exactly one I/O action: a read, a write, or an owed flush.
// A would-block error leaves the machine unchanged so the identical step
// can be retried; any other error is fatal. Stepping a machine that has
// reached StateReady is a defect in the calling code and panics.
func (m *Machine) Step() error {
	if m.state == StateReady {
		panic("auth: step on a machine in terminal state")
	}
	if m.needsFlush {
		if err := m.stream.Flush(); err != nil {
			return errors.Wrap(err, "flush identify failed")
		}
		m.needsFlush = false
		return nil
	}
	switch m.state {
	case StateConnected:
		frame, err := m.stream.Read()
		if err != nil {
			return errors.Wrap(err, "read hello failed")
		}
		var hello message.Hello
		if err := message.DecodeData(frame, message.OpHello, &hello); err != nil {
			return errors.Wrap(err, "decode hello failed")
		}
		m.challenge = hello.Authentication
		m.state = StateGotHello
	case StateGotHello:
		frame, err := message.Encode(IdentifyFor(m.password, m.challenge, m.eventSubscriptions))
		if err != nil {
			return errors.Wrap(err, "encode identify failed")
		}
		if err := m.stream.Write(frame); err != nil {
			return errors.Wrap(err, "write identify failed")
		}
		m.state = StateSentIdentify
		m.needsFlush = true
	case StateSentIdentify:
		frame, err := m.stream.Read()
		if err != nil {
			return errors.Wrap(err, "read identified failed")
		}
		var identified message.Identified
		if err := message.DecodeData(frame, message.OpIdentified, &identified); err != nil {
			return errors.Wrap(err, "decode identified failed")
		}
		m.rpcVersion = identified.NegotiatedRPCVersion
		m.state = StateReady
	}
	return nil
}

// Drive steps the machine until it reaches StateReady or an error occurs,
// and returns the negotiated version. Over a non-blocking stream the error
// may be a would-block condition, in which case the machine is still valid
// and Drive can be called again after waiting for readiness.
func (m *Machine) Drive() (uint32, error) {
	for m.state != StateReady {
		if err := m.Step(); err != nil {
			return 0, errors.Wrapf(err, "handshake step in state %s failed", m.state)
		}
	}
	return m.rpcVersion, nil
}
