package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reclaw/conformance/internal/protocol"
)

// newWSServer starts an httptest server whose /ws endpoint upgrades the
// connection and hands it to the given session handler.
func newWSServer(t *testing.T, handle func(ctx context.Context, conn *websocket.Conn)) *Client {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept failed: %v", err)
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		handle(r.Context(), conn)
	}))
	t.Cleanup(server.Close)

	client, err := New(Options{BaseURL: server.URL, ReadTimeout: 5 * time.Second})
	require.NoError(t, err)
	return client
}

func readRequest(ctx context.Context, conn *websocket.Conn) (protocol.Request, error) {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return protocol.Request{}, err
	}
	var req protocol.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return protocol.Request{}, err
	}
	return req, nil
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func TestExchange_OneReplyPerFrameInOrder(t *testing.T) {
	client := newWSServer(t, func(ctx context.Context, conn *websocket.Conn) {
		for {
			req, err := readRequest(ctx, conn)
			if err != nil {
				return
			}
			_ = writeJSON(ctx, conn, protocol.Response{
				Type:    protocol.FrameResponse,
				ID:      req.ID,
				OK:      true,
				Payload: json.RawMessage(fmt.Sprintf(`{"method":%q}`, req.Method)),
			})
		}
	})

	frames := []protocol.Request{
		protocol.NewRequest("1", protocol.MethodConnect, nil),
		protocol.NewRequest("2", protocol.MethodChannelsStatus, nil),
		protocol.NewRequest("3", protocol.MethodChatAbort, nil),
	}
	replies, err := client.Exchange(context.Background(), frames)
	require.NoError(t, err)
	require.Len(t, replies, 3)
	for i, reply := range replies {
		assert.Equal(t, frames[i].ID, reply.ID)
		assert.True(t, reply.OK)
		assert.JSONEq(t, fmt.Sprintf(`{"method":%q}`, frames[i].Method), string(reply.Payload))
	}
}

func TestExchange_AnswersKeepAliveWithoutCountingIt(t *testing.T) {
	client := newWSServer(t, func(ctx context.Context, conn *websocket.Conn) {
		req, err := readRequest(ctx, conn)
		if err != nil {
			return
		}

		// Interleave a keep-alive before the real reply and require the pong.
		_ = writeJSON(ctx, conn, map[string]string{"type": protocol.FramePing})
		pong, err := readRequest(ctx, conn)
		if err != nil || pong.Type != protocol.FramePong {
			t.Errorf("expected pong frame, got %+v (err %v)", pong, err)
			return
		}
		_ = writeJSON(ctx, conn, protocol.Response{Type: protocol.FrameResponse, ID: req.ID, OK: true})
	})

	replies, err := client.Exchange(context.Background(), []protocol.Request{
		protocol.NewRequest("1", protocol.MethodConnect, nil),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "1", replies[0].ID)
}

func TestExchange_SkipsUnsolicitedEvents(t *testing.T) {
	client := newWSServer(t, func(ctx context.Context, conn *websocket.Conn) {
		req, err := readRequest(ctx, conn)
		if err != nil {
			return
		}
		_ = writeJSON(ctx, conn, map[string]any{"type": protocol.FrameEvent, "payload": map[string]any{"kind": "presence"}})
		_ = writeJSON(ctx, conn, protocol.Response{Type: protocol.FrameResponse, ID: req.ID, OK: true})
	})

	replies, err := client.Exchange(context.Background(), []protocol.Request{
		protocol.NewRequest("1", protocol.MethodConnect, nil),
	})
	require.NoError(t, err)
	require.Len(t, replies, 1)
}

func TestExchange_MismatchedReplyIDIsProtocolError(t *testing.T) {
	client := newWSServer(t, func(ctx context.Context, conn *websocket.Conn) {
		if _, err := readRequest(ctx, conn); err != nil {
			return
		}
		_ = writeJSON(ctx, conn, protocol.Response{Type: protocol.FrameResponse, ID: "other", OK: true})
	})

	_, err := client.Exchange(context.Background(), []protocol.Request{
		protocol.NewRequest("1", protocol.MethodConnect, nil),
	})
	require.Error(t, err)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, KindProtocol, terr.Kind)
	assert.Contains(t, err.Error(), `reply id "other"`)
}

func TestExchange_BinaryFrameIsFailure(t *testing.T) {
	client := newWSServer(t, func(ctx context.Context, conn *websocket.Conn) {
		if _, err := readRequest(ctx, conn); err != nil {
			return
		}
		_ = conn.Write(ctx, websocket.MessageBinary, []byte{0x01, 0x02})
	})

	_, err := client.Exchange(context.Background(), []protocol.Request{
		protocol.NewRequest("1", protocol.MethodConnect, nil),
	})
	require.Error(t, err)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, KindProtocol, terr.Kind)
}

func TestExchange_EarlyCloseIsTransportError(t *testing.T) {
	client := newWSServer(t, func(ctx context.Context, conn *websocket.Conn) {
		if _, err := readRequest(ctx, conn); err != nil {
			return
		}
		conn.Close(websocket.StatusGoingAway, "shutting down")
	})

	_, err := client.Exchange(context.Background(), []protocol.Request{
		protocol.NewRequest("1", protocol.MethodConnect, nil),
	})
	require.Error(t, err)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, KindTransport, terr.Kind)
}

func TestHandshakeProbe_ReturnsFirstReply(t *testing.T) {
	client := newWSServer(t, func(ctx context.Context, conn *websocket.Conn) {
		for {
			req, err := readRequest(ctx, conn)
			if err != nil {
				return
			}
			_ = writeJSON(ctx, conn, protocol.Response{
				Type:  protocol.FrameResponse,
				ID:    req.ID,
				OK:    false,
				Error: &protocol.ErrorDetail{Code: protocol.CodeNotConnected},
			})
		}
	})

	reply, err := client.HandshakeProbe(context.Background(), protocol.NewRequest("1", protocol.MethodChannelsStatus, nil))
	require.NoError(t, err)
	assert.False(t, reply.OK)
	assert.Equal(t, protocol.CodeNotConnected, reply.ErrorCode())
}

func TestHandshakeProbe_RefusedDialIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := New(Options{BaseURL: url, DialTimeout: time.Second})
	require.NoError(t, err)

	_, err = client.HandshakeProbe(context.Background(), protocol.NewRequest("1", protocol.MethodConnect, nil))
	require.Error(t, err)

	var terr *Error
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, KindTransport, terr.Kind)
}
