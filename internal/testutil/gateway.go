package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/reclaw/conformance/internal/protocol"
)

// Fixed wall-clock milliseconds stamped on logouts, so golden assertions
// stay stable.
const logoutStampMs = 1_700_000_000_000

// FakeGateway is an in-memory transport implementing the gateway protocol's
// happy path. Every invariant the catalog checks has a fixture knob that
// breaks exactly that invariant, so tests can flip one value and watch
// exactly one scenario fail.
//
// The zero value is not usable; construct with NewFakeGateway.
type FakeGateway struct {
	// Simple-call fixtures.
	HealthOK        bool
	ReadyOK         bool
	ProtocolVersion uint64
	// InfoVersionOverride, when non-nil, is marshaled verbatim as
	// protocolVersion (set it to a string to simulate a non-numeric value).
	InfoVersionOverride any
	Methods             []string
	WebhookStatus       int
	WebhookCode         string

	// Message-channel knobs. Defaults conform; each knob breaks one
	// scenario's invariant.
	AcceptNonConnectFirstFrame  bool   // handshake gating
	AgentWaitStatus             string // terminal status reported for agent-created runs
	BreakIdempotency            bool   // repeated idempotencyKey gets a fresh run id
	SingleAbortOmitsRunID       bool   // runId-scoped abort ack names nothing
	DropSecondSessionAbort      bool   // session-wide ack names only the first run
	MismatchAbortExecutes       bool   // mismatched-session abort executes instead of rejecting
	TerminalAbortReportsAborted bool   // no-op abort claims something was newly aborted
	UnknownWaitStatus           string // status reported when waiting on an unknown run
	BreakAggregate              bool   // last channel's aggregate flag inverted
	LogoutSkipsTimestamp        bool   // logout leaves loggedOutAtMs at zero
	LogoutFlipsAggregate        bool   // logout drops the whole channel aggregate

	mu              sync.Mutex
	channels        []*fakeChannel
	defaultAccounts map[string]string
	runs            map[string]*fakeRun
	runOrder        []string
	idempotency     map[string]string
	nextRun         int
}

type fakeRun struct {
	id         string
	sessionKey string
	message    string
	method     string
	status     string
}

type fakeChannel struct {
	id               string
	kind             string
	aggregateDropped bool
	accounts         []*fakeAccount
}

type fakeAccount struct {
	id            string
	connected     bool
	loggedOutAtMs int64
}

// NewFakeGateway returns a gateway whose fixtures satisfy every catalog
// invariant: two channels, one of them with two connected accounts so the
// logout scenario can exercise the aggregate rule.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		HealthOK:        true,
		ReadyOK:         true,
		ProtocolVersion: 3,
		Methods: []string{
			protocol.MethodConnect,
			protocol.MethodAgent,
			protocol.MethodChatSend,
			protocol.MethodAgentWait,
			protocol.MethodChatAbort,
			protocol.MethodChannelsStatus,
			protocol.MethodChannelsLogout,
		},
		WebhookStatus: http.StatusNotFound,
		WebhookCode:   protocol.CodeNotFound,
		channels: []*fakeChannel{
			{
				id:   "whatsapp-main",
				kind: "whatsapp",
				accounts: []*fakeAccount{
					{id: "acct-alpha", connected: true},
					{id: "acct-beta", connected: true},
				},
			},
			{
				id:   "telegram-bot",
				kind: "telegram",
				accounts: []*fakeAccount{
					{id: "acct-gamma", connected: false, loggedOutAtMs: logoutStampMs - 1000},
				},
			},
		},
		defaultAccounts: map[string]string{
			"whatsapp-main": "acct-alpha",
			"telegram-bot":  "acct-gamma",
		},
		runs:        make(map[string]*fakeRun),
		idempotency: make(map[string]string),
	}
}

// FetchJSON serves the simple calls.
func (g *FakeGateway) FetchJSON(ctx context.Context, path string) (json.RawMessage, error) {
	switch path {
	case "/healthz":
		return marshal(map[string]any{"ok": g.HealthOK}), nil
	case "/readyz":
		return marshal(map[string]any{"ok": g.ReadyOK}), nil
	case "/info":
		version := any(g.ProtocolVersion)
		if g.InfoVersionOverride != nil {
			version = g.InfoVersionOverride
		}
		return marshal(map[string]any{
			"protocolVersion": version,
			"methods":         g.Methods,
		}), nil
	default:
		return nil, fmt.Errorf("fetch protocol error: unexpected status 404 for %s", path)
	}
}

// SubmitJSON serves the webhook surface.
func (g *FakeGateway) SubmitJSON(ctx context.Context, path string, body any) (int, json.RawMessage, error) {
	if strings.HasPrefix(path, "/channels/") && strings.HasSuffix(path, "/webhook") {
		reply := marshal(map[string]any{
			"ok":    false,
			"error": map[string]any{"code": g.WebhookCode},
		})
		return g.WebhookStatus, reply, nil
	}
	return http.StatusNotFound, marshal(map[string]any{
		"ok":    false,
		"error": map[string]any{"code": protocol.CodeNotFound},
	}), nil
}

// HandshakeProbe answers a single first frame without session state.
func (g *FakeGateway) HandshakeProbe(ctx context.Context, frame protocol.Request) (protocol.Response, error) {
	if frame.Method != protocol.MethodConnect && !g.AcceptNonConnectFirstFrame {
		return resErr(frame.ID, protocol.CodeNotConnected), nil
	}
	return res(frame.ID, map[string]any{"protocolVersion": g.ProtocolVersion}), nil
}

// Exchange runs the session state machine one frame at a time.
func (g *FakeGateway) Exchange(ctx context.Context, frames []protocol.Request) ([]protocol.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	connected := false
	replies := make([]protocol.Response, 0, len(frames))
	for _, frame := range frames {
		if !connected && frame.Method != protocol.MethodConnect {
			if g.AcceptNonConnectFirstFrame {
				connected = true
			} else {
				replies = append(replies, resErr(frame.ID, protocol.CodeNotConnected))
				continue
			}
		}

		switch frame.Method {
		case protocol.MethodConnect:
			connected = true
			replies = append(replies, res(frame.ID, map[string]any{"protocolVersion": g.ProtocolVersion}))
		case protocol.MethodAgent, protocol.MethodChatSend:
			replies = append(replies, g.handleRunCreate(frame))
		case protocol.MethodAgentWait:
			replies = append(replies, g.handleWait(frame))
		case protocol.MethodChatAbort:
			replies = append(replies, g.handleAbort(frame))
		case protocol.MethodChannelsStatus:
			replies = append(replies, res(frame.ID, g.statusPayload()))
		case protocol.MethodChannelsLogout:
			replies = append(replies, g.handleLogout(frame))
		default:
			replies = append(replies, resErr(frame.ID, protocol.CodeInvalidRequest))
		}
	}
	return replies, nil
}

func (g *FakeGateway) handleRunCreate(frame protocol.Request) protocol.Response {
	var params protocol.RunParams
	if err := decodeParams(frame.Params, &params); err != nil {
		return resErr(frame.ID, protocol.CodeInvalidRequest)
	}

	runID := params.RunID
	if runID == "" {
		if mapped, ok := g.idempotency[params.IdempotencyKey]; ok && !g.BreakIdempotency {
			runID = mapped
		} else {
			g.nextRun++
			runID = fmt.Sprintf("run-%04d", g.nextRun)
			g.idempotency[params.IdempotencyKey] = runID
		}
	}

	if _, exists := g.runs[runID]; !exists {
		g.runs[runID] = &fakeRun{
			id:         runID,
			sessionKey: params.SessionKey,
			message:    params.Message,
			method:     frame.Method,
			status:     protocol.StatusQueued,
		}
		g.runOrder = append(g.runOrder, runID)
	}
	return res(frame.ID, map[string]any{"runId": runID, "status": protocol.StatusQueued})
}

func (g *FakeGateway) handleWait(frame protocol.Request) protocol.Response {
	var params protocol.WaitParams
	if err := decodeParams(frame.Params, &params); err != nil {
		return resErr(frame.ID, protocol.CodeInvalidRequest)
	}

	run, ok := g.runs[params.RunID]
	if !ok {
		status := g.UnknownWaitStatus
		if status == "" {
			status = protocol.StatusTimeout
		}
		return res(frame.ID, map[string]any{"status": status})
	}

	// Queued runs finish instantly here; the fake has no executor to wait on.
	if run.status == protocol.StatusQueued {
		run.status = protocol.StatusCompleted
	}

	switch run.status {
	case protocol.StatusCompleted:
		status := protocol.StatusCompleted
		if run.method == protocol.MethodAgent && g.AgentWaitStatus != "" {
			status = g.AgentWaitStatus
		}
		return res(frame.ID, map[string]any{
			"status":     status,
			"sessionKey": run.sessionKey,
			"result": map[string]any{
				"output":     "Echo: " + run.message,
				"sessionKey": run.sessionKey,
			},
		})
	case protocol.StatusAborted:
		return res(frame.ID, map[string]any{
			"status":     protocol.StatusAborted,
			"sessionKey": run.sessionKey,
			"result":     nil,
		})
	default:
		return res(frame.ID, map[string]any{"status": run.status, "sessionKey": run.sessionKey})
	}
}

func (g *FakeGateway) handleAbort(frame protocol.Request) protocol.Response {
	var params protocol.AbortParams
	if err := decodeParams(frame.Params, &params); err != nil {
		return resErr(frame.ID, protocol.CodeInvalidRequest)
	}

	if params.RunID != "" {
		run, ok := g.runs[params.RunID]
		if !ok {
			return resErr(frame.ID, protocol.CodeInvalidRequest)
		}
		if run.sessionKey != params.SessionKey && !g.MismatchAbortExecutes {
			return resErr(frame.ID, protocol.CodeInvalidRequest)
		}

		if run.status != protocol.StatusQueued && run.status != protocol.StatusRunning {
			// Already terminal: idempotent no-op that still names the id.
			return res(frame.ID, map[string]any{
				"aborted": g.TerminalAbortReportsAborted,
				"runIds":  []string{run.id},
			})
		}
		run.status = protocol.StatusAborted
		ids := []string{run.id}
		if g.SingleAbortOmitsRunID {
			ids = []string{}
		}
		return res(frame.ID, map[string]any{"aborted": true, "runIds": ids})
	}

	ids := make([]string, 0, 2)
	for _, id := range g.runOrder {
		run := g.runs[id]
		if run.sessionKey != params.SessionKey {
			continue
		}
		if run.status == protocol.StatusQueued || run.status == protocol.StatusRunning {
			run.status = protocol.StatusAborted
			ids = append(ids, run.id)
		}
	}
	if g.DropSecondSessionAbort && len(ids) > 1 {
		ids = ids[:1]
	}
	return res(frame.ID, map[string]any{"aborted": len(ids) > 0, "runIds": ids})
}

func (g *FakeGateway) handleLogout(frame protocol.Request) protocol.Response {
	var params protocol.LogoutParams
	if err := decodeParams(frame.Params, &params); err != nil {
		return resErr(frame.ID, protocol.CodeInvalidRequest)
	}

	for _, ch := range g.channels {
		if ch.id != params.ChannelID {
			continue
		}
		for _, acct := range ch.accounts {
			if acct.id != params.AccountID {
				continue
			}
			acct.connected = false
			if !g.LogoutSkipsTimestamp {
				acct.loggedOutAtMs = logoutStampMs
			}
			if g.LogoutFlipsAggregate {
				ch.aggregateDropped = true
			}
			return res(frame.ID, map[string]any{"ok": true})
		}
	}
	return resErr(frame.ID, protocol.CodeNotFound)
}

func (g *FakeGateway) statusPayload() map[string]any {
	channels := make([]map[string]any, 0, len(g.channels))
	for i, ch := range g.channels {
		anyConnected := false
		accounts := make([]map[string]any, 0, len(ch.accounts))
		for _, acct := range ch.accounts {
			if acct.connected {
				anyConnected = true
			}
			entry := map[string]any{
				"accountId": acct.id,
				"connected": acct.connected,
			}
			if acct.loggedOutAtMs > 0 {
				entry["loggedOutAtMs"] = acct.loggedOutAtMs
			}
			accounts = append(accounts, entry)
		}

		aggregate := anyConnected
		if ch.aggregateDropped {
			aggregate = false
		}
		if g.BreakAggregate && i == len(g.channels)-1 {
			aggregate = !aggregate
		}
		channels = append(channels, map[string]any{
			"channelId": ch.id,
			"kind":      ch.kind,
			"connected": aggregate,
			"accounts":  accounts,
		})
	}
	return map[string]any{
		"channels":        channels,
		"defaultAccounts": g.defaultAccounts,
	}
}

func decodeParams(params any, dst any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

func marshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("fake gateway fixture not marshalable: %v", err))
	}
	return data
}

func res(id string, payload any) protocol.Response {
	return protocol.Response{
		Type:    protocol.FrameResponse,
		ID:      id,
		OK:      true,
		Payload: marshal(payload),
	}
}

func resErr(id, code string) protocol.Response {
	return protocol.Response{
		Type:  protocol.FrameResponse,
		ID:    id,
		OK:    false,
		Error: &protocol.ErrorDetail{Code: code},
	}
}
