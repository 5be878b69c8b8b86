// Package protocol defines the wire shapes of the reclaw gateway: the
// req/res frames exchanged over the message channel, the method and error
// code vocabulary, and typed views of the JSON payloads each method returns.
//
// Payload parsers convert loose JSON into small records with explicit
// optional fields. A missing required field is an error at the parse site,
// so scenario code never threads untyped maps around.
package protocol

import "encoding/json"

// Frame types on the message channel.
const (
	FrameRequest  = "req"
	FrameResponse = "res"
	FramePing     = "ping"
	FramePong     = "pong"
	FrameEvent    = "event"
)

// Methods exercised over the message channel.
const (
	MethodConnect        = "connect"
	MethodAgent          = "agent"
	MethodChatSend       = "chat.send"
	MethodAgentWait      = "agent.wait"
	MethodChatAbort      = "chat.abort"
	MethodChannelsStatus = "channels.status"
	MethodChannelsLogout = "channels.logout"
)

// Error codes the gateway reports in res frames and webhook bodies.
const (
	CodeNotFound       = "NOT_FOUND"
	CodeNotConnected   = "NOT_CONNECTED"
	CodeInvalidRequest = "INVALID_REQUEST"
)

// Run lifecycle statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
	StatusTimeout   = "timeout"
)

// Request is one client frame on the message channel.
type Request struct {
	Type   string `json:"type"`
	ID     string `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// NewRequest builds a req frame.
func NewRequest(id, method string, params any) Request {
	return Request{Type: FrameRequest, ID: id, Method: method, Params: params}
}

// Response is one server reply frame. Payload stays raw until a scenario
// parses it with the typed helpers below.
type Response struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

// ErrorDetail is the protocol-level rejection attached to a failed res frame.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ErrorCode returns the rejection code, or "" when the reply succeeded or
// carried no structured error.
func (r Response) ErrorCode() string {
	if r.Error == nil {
		return ""
	}
	return r.Error.Code
}

// ConnectParams is the params object of the mandatory first frame.
type ConnectParams struct {
	MinProtocolVersion uint64     `json:"minProtocolVersion"`
	MaxProtocolVersion uint64     `json:"maxProtocolVersion"`
	Client             ClientInfo `json:"client"`
	Role               string     `json:"role"`
	Scopes             []string   `json:"scopes"`
	Auth               string     `json:"auth,omitempty"`
}

// ClientInfo identifies the connecting client.
type ClientInfo struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

// RunParams creates a run via agent or chat.send. Exactly one of RunID and
// IdempotencyKey correlates the run; with IdempotencyKey the server assigns
// the run id and echoes it in the acknowledgment.
type RunParams struct {
	RunID          string `json:"runId,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
	SessionKey     string `json:"sessionKey"`
	Message        string `json:"message,omitempty"`
	Deferred       bool   `json:"deferred,omitempty"`
}

// WaitParams polls a run until terminal or the in-band deadline.
type WaitParams struct {
	RunID     string `json:"runId"`
	TimeoutMs int64  `json:"timeoutMs"`
}

// AbortParams cancels one run (RunID set) or every outstanding run of the
// session (RunID empty).
type AbortParams struct {
	RunID      string `json:"runId,omitempty"`
	SessionKey string `json:"sessionKey"`
}

// LogoutParams logs one account out of a channel.
type LogoutParams struct {
	ChannelID string `json:"channelId"`
	AccountID string `json:"accountId,omitempty"`
}
