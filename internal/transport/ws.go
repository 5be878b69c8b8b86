package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/coder/websocket"

	"github.com/reclaw/conformance/internal/protocol"
)

// HandshakeProbe opens a session, sends exactly one frame, returns the
// first reply, and releases the session. Used to assert that the gateway
// rejects a non-connect first frame.
func (c *Client) HandshakeProbe(ctx context.Context, frame protocol.Request) (protocol.Response, error) {
	sess, err := c.openSession(ctx, "probe")
	if err != nil {
		return protocol.Response{}, err
	}
	defer sess.close()

	if err := sess.send(ctx, frame); err != nil {
		return protocol.Response{}, err
	}
	return sess.awaitResponse(ctx, frame.ID)
}

// Exchange opens a session and sends the frames strictly one at a time,
// waiting for exactly one reply per frame before sending the next. No
// pipelining: a scenario's later frames may rely on state the earlier ones
// created server-side.
func (c *Client) Exchange(ctx context.Context, frames []protocol.Request) ([]protocol.Response, error) {
	sess, err := c.openSession(ctx, "exchange")
	if err != nil {
		return nil, err
	}
	defer sess.close()

	replies := make([]protocol.Response, 0, len(frames))
	for _, frame := range frames {
		if err := sess.send(ctx, frame); err != nil {
			return nil, err
		}
		reply, err := sess.awaitResponse(ctx, frame.ID)
		if err != nil {
			return nil, err
		}
		replies = append(replies, reply)
	}
	return replies, nil
}

// session is one websocket connection. Sessions are single-use and never
// shared between scenarios.
type session struct {
	conn        *websocket.Conn
	op          string
	readTimeout time.Duration
}

func (c *Client) openSession(ctx context.Context, op string) (*session, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, c.wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, transportErr(op, fmt.Sprintf("dial %s (status %d)", c.wsURL, resp.StatusCode), err)
		}
		return nil, transportErr(op, "dial "+c.wsURL, err)
	}
	conn.SetReadLimit(1 << 20)

	return &session{conn: conn, op: op, readTimeout: c.readTimeout}, nil
}

func (s *session) send(ctx context.Context, frame protocol.Request) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return transportErr(s.op, "encode frame "+frame.ID, err)
	}
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return transportErr(s.op, "send frame "+frame.ID, err)
	}
	return nil
}

// awaitResponse reads until the res frame answering the given request id
// arrives. Keep-alive pings are answered transparently and event frames are
// skipped; neither counts as the reply. A binary frame, malformed JSON, or
// a reply for a different request id is a failure.
func (s *session) awaitResponse(ctx context.Context, id string) (protocol.Response, error) {
	for {
		readCtx, cancel := context.WithTimeout(ctx, s.readTimeout)
		kind, data, err := s.conn.Read(readCtx)
		cancel()
		if err != nil {
			return protocol.Response{}, transportErr(s.op, "read reply for frame "+id, err)
		}
		if kind != websocket.MessageText {
			return protocol.Response{}, protocolErr(s.op, "received non-text frame while waiting for frame "+id)
		}

		var envelope struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			return protocol.Response{}, protocolErr(s.op, fmt.Sprintf("received non-JSON frame while waiting for frame %s: %v", id, err))
		}

		switch envelope.Type {
		case protocol.FramePing:
			pong, _ := json.Marshal(map[string]string{"type": protocol.FramePong})
			if err := s.conn.Write(ctx, websocket.MessageText, pong); err != nil {
				return protocol.Response{}, transportErr(s.op, "answer keep-alive", err)
			}
		case protocol.FrameEvent:
			// Unsolicited; not a reply to anything.
		case protocol.FrameResponse:
			var reply protocol.Response
			if err := json.Unmarshal(data, &reply); err != nil {
				return protocol.Response{}, protocolErr(s.op, fmt.Sprintf("malformed res frame: %v", err))
			}
			if reply.ID != id {
				return protocol.Response{}, protocolErr(s.op, fmt.Sprintf("reply id %q does not match frame id %q", reply.ID, id))
			}
			return reply, nil
		default:
			return protocol.Response{}, protocolErr(s.op, fmt.Sprintf("unexpected frame type %q while waiting for frame %s", envelope.Type, id))
		}
	}
}

func (s *session) close() {
	_ = s.conn.Close(websocket.StatusNormalClosure, "")
}
