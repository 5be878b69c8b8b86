package transport

import "fmt"

// Kind separates calls that never completed from calls the server answered
// in a way that violates the wire contract. Scenario code folds both into a
// failed outcome, but the report detail keeps them distinguishable.
type Kind string

const (
	// KindTransport covers refused connections, I/O errors, and early
	// closes: the call did not complete.
	KindTransport Kind = "transport"

	// KindProtocol covers completed calls whose reply broke the contract:
	// unexpected status on a fetch, non-JSON bodies, frames that cannot be
	// paired with a request.
	KindProtocol Kind = "protocol"
)

// Error is the failure type of every transport operation.
type Error struct {
	Kind Kind
	Op   string // operation that failed: "fetch", "submit", "probe", "exchange"
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s error: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s %s error: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func transportErr(op, msg string, err error) *Error {
	return &Error{Kind: KindTransport, Op: op, Msg: msg, Err: err}
}

func protocolErr(op, msg string) *Error {
	return &Error{Kind: KindProtocol, Op: op, Msg: msg}
}
