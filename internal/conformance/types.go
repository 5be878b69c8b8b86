package conformance

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reclaw/conformance/internal/protocol"
)

// Transport is the capability set the catalog is written against. Both
// "the call never completed" and "the server answered with a protocol-level
// rejection" are distinguishable in every operation's result shape: the
// former is a non-nil error, the latter a valid result (non-success status,
// res frame with ok=false).
type Transport interface {
	// FetchJSON performs one simple call; any non-success status is an error.
	FetchJSON(ctx context.Context, path string) (json.RawMessage, error)

	// SubmitJSON performs one call where non-success statuses are valid
	// results, needed to assert not-found responses.
	SubmitJSON(ctx context.Context, path string, body any) (int, json.RawMessage, error)

	// HandshakeProbe opens a session, sends exactly one frame, and returns
	// the first reply.
	HandshakeProbe(ctx context.Context, frame protocol.Request) (protocol.Response, error)

	// Exchange opens a session and sends the frames one at a time, each
	// awaiting its paired reply before the next is sent.
	Exchange(ctx context.Context, frames []protocol.Request) ([]protocol.Response, error)
}

// Scenario is one named, self-contained conformance check. Check builds its
// own request payloads, including fresh collision-resistant identifiers per
// invocation, and never lets a failure escape: every path ends in an Outcome.
type Scenario struct {
	Name  string
	Check func(ctx context.Context, t Transport) Outcome
}

// Outcome is the result of one scenario execution. It is produced once and
// never mutated afterward.
type Outcome struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func pass(name, format string, args ...any) Outcome {
	return Outcome{Name: name, Passed: true, Detail: fmt.Sprintf(format, args...)}
}

// fail always interpolates the observed values into the detail; a bare
// "failed" helps nobody auditing a report.
func fail(name, format string, args ...any) Outcome {
	return Outcome{Name: name, Passed: false, Detail: fmt.Sprintf(format, args...)}
}
