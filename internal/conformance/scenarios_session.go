package conformance

import (
	"context"

	"github.com/reclaw/conformance/internal/protocol"
)

// scenarioHandshakeGate asserts that a session's first frame must be
// connect: any other first frame is rejected with NOT_CONNECTED and the
// session does not proceed.
func scenarioHandshakeGate(cfg Config) Scenario {
	const name = "ws.first_frame_must_connect"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			frame := protocol.NewRequest("1", protocol.MethodChannelsStatus, nil)
			reply, err := t.HandshakeProbe(ctx, frame)
			if err != nil {
				return fail(name, "handshake probe failed: %v", err)
			}

			if reply.OK {
				return fail(name, "non-connect first frame was accepted: method=%s ok=true", frame.Method)
			}
			if code := reply.ErrorCode(); code != protocol.CodeNotConnected {
				return fail(name, "expected error.code=%s for non-connect first frame, found %q", protocol.CodeNotConnected, code)
			}
			return pass(name, "non-connect first frame rejected with %s", protocol.CodeNotConnected)
		},
	}
}

// scenarioDeferredLifecycle asserts the deferred run lifecycle: creation
// acknowledges queuing rather than the result, and a later wait blocks
// until terminal, returning the status, textual output, and the
// originating session key.
func scenarioDeferredLifecycle(cfg Config) Scenario {
	const name = "agent.deferred_lifecycle"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			runID := cfg.Keys.Generate()
			sessionKey := cfg.Keys.Generate()

			replies, err := t.Exchange(ctx, []protocol.Request{
				cfg.connectFrame("1"),
				protocol.NewRequest("2", protocol.MethodAgent, protocol.RunParams{
					RunID:      runID,
					SessionKey: sessionKey,
					Message:    "deferred lifecycle check",
					Deferred:   true,
				}),
				protocol.NewRequest("3", protocol.MethodAgentWait, protocol.WaitParams{
					RunID:     runID,
					TimeoutMs: cfg.WaitTimeoutMs,
				}),
			})
			if err != nil {
				return fail(name, "exchange failed: %v", err)
			}
			if msg := frameFailure("connect", replies[0]); msg != "" {
				return fail(name, "%s", msg)
			}

			if msg := frameFailure("deferred agent", replies[1]); msg != "" {
				return fail(name, "%s", msg)
			}
			ack, err := protocol.ParseRunAck(replies[1].Payload)
			if err != nil {
				return fail(name, "%v", err)
			}
			if ack.Status != protocol.StatusQueued {
				return fail(name, "expected deferred ack status=queued, found %q", ack.Status)
			}
			if ack.RunID != runID {
				return fail(name, "deferred ack runId=%q does not match submitted %q", ack.RunID, runID)
			}

			if msg := frameFailure("agent.wait", replies[2]); msg != "" {
				return fail(name, "%s", msg)
			}
			result, err := protocol.ParseWaitResult(replies[2].Payload)
			if err != nil {
				return fail(name, "%v", err)
			}
			if result.Status != protocol.StatusCompleted {
				return fail(name, "expected wait status=completed, found %q", result.Status)
			}
			if result.Result == nil {
				return fail(name, "completed wait reply carries no result")
			}
			if result.Result.Output == "" {
				return fail(name, "completed wait reply has empty output")
			}
			if result.Result.SessionKey != sessionKey {
				return fail(name, "result sessionKey=%q does not match originating %q", result.Result.SessionKey, sessionKey)
			}
			return pass(name, "deferred run acknowledged queued, then completed with output and session key")
		},
	}
}

// scenarioIdempotencyKeyReuse asserts the server maps a repeated
// idempotencyKey to the same run id, so retried submissions resolve to one
// run.
func scenarioIdempotencyKeyReuse(cfg Config) Scenario {
	const name = "chat.idempotency_key_reuse"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			key := cfg.Keys.Generate()
			sessionKey := cfg.Keys.Generate()
			send := protocol.RunParams{
				IdempotencyKey: key,
				SessionKey:     sessionKey,
				Message:        "idempotency key check",
				Deferred:       true,
			}

			replies, err := t.Exchange(ctx, []protocol.Request{
				cfg.connectFrame("1"),
				protocol.NewRequest("2", protocol.MethodChatSend, send),
				protocol.NewRequest("3", protocol.MethodChatSend, send),
				protocol.NewRequest("4", protocol.MethodChatAbort, protocol.AbortParams{SessionKey: sessionKey}),
			})
			if err != nil {
				return fail(name, "exchange failed: %v", err)
			}
			if msg := frameFailure("connect", replies[0]); msg != "" {
				return fail(name, "%s", msg)
			}

			for i := 1; i <= 2; i++ {
				if msg := frameFailure("chat.send", replies[i]); msg != "" {
					return fail(name, "%s", msg)
				}
			}
			first, err := protocol.ParseRunAck(replies[1].Payload)
			if err != nil {
				return fail(name, "first ack: %v", err)
			}
			second, err := protocol.ParseRunAck(replies[2].Payload)
			if err != nil {
				return fail(name, "second ack: %v", err)
			}
			if first.RunID != second.RunID {
				return fail(name, "idempotencyKey mapped to two run ids: %q and %q", first.RunID, second.RunID)
			}

			if msg := frameFailure("cleanup abort", replies[3]); msg != "" {
				return fail(name, "%s", msg)
			}
			return pass(name, "repeated idempotencyKey resolved to run %s both times", first.RunID)
		},
	}
}

// scenarioAbortSingleRun asserts cancellation scoped to one runId: the ack
// names the affected id, and a later wait reports aborted with null result
// and the original session key.
func scenarioAbortSingleRun(cfg Config) Scenario {
	const name = "chat.abort_single_run"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			runID := cfg.Keys.Generate()
			sessionKey := cfg.Keys.Generate()

			replies, err := t.Exchange(ctx, []protocol.Request{
				cfg.connectFrame("1"),
				protocol.NewRequest("2", protocol.MethodChatSend, protocol.RunParams{
					RunID:      runID,
					SessionKey: sessionKey,
					Message:    "single-run abort check",
					Deferred:   true,
				}),
				protocol.NewRequest("3", protocol.MethodChatAbort, protocol.AbortParams{
					RunID:      runID,
					SessionKey: sessionKey,
				}),
				protocol.NewRequest("4", protocol.MethodAgentWait, protocol.WaitParams{
					RunID:     runID,
					TimeoutMs: cfg.WaitTimeoutMs,
				}),
			})
			if err != nil {
				return fail(name, "exchange failed: %v", err)
			}
			if msg := frameFailure("connect", replies[0]); msg != "" {
				return fail(name, "%s", msg)
			}
			if msg := frameFailure("chat.send", replies[1]); msg != "" {
				return fail(name, "%s", msg)
			}

			if msg := frameFailure("chat.abort", replies[2]); msg != "" {
				return fail(name, "%s", msg)
			}
			ack, err := protocol.ParseAbortAck(replies[2].Payload)
			if err != nil {
				return fail(name, "%v", err)
			}
			if !ack.Aborted {
				return fail(name, "abort ack reported aborted=false for outstanding run %s", runID)
			}
			if !ack.Names(runID) {
				return fail(name, "abort ack does not name run %s, found %v", runID, ack.RunIDs)
			}

			if msg := frameFailure("agent.wait", replies[3]); msg != "" {
				return fail(name, "%s", msg)
			}
			result, err := protocol.ParseWaitResult(replies[3].Payload)
			if err != nil {
				return fail(name, "%v", err)
			}
			if result.Status != protocol.StatusAborted {
				return fail(name, "expected wait status=aborted, found %q", result.Status)
			}
			if result.Result != nil {
				return fail(name, "aborted wait reply carries a result: output=%q", result.Result.Output)
			}
			if result.SessionKey != sessionKey {
				return fail(name, "aborted wait sessionKey=%q does not match originating %q", result.SessionKey, sessionKey)
			}
			return pass(name, "run %s aborted by id and reported aborted with null result", runID)
		},
	}
}

// scenarioAbortSessionWide asserts that a cancel omitting runId cancels
// every outstanding run under the session key, naming all affected ids.
func scenarioAbortSessionWide(cfg Config) Scenario {
	const name = "chat.abort_session_wide"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			runA := cfg.Keys.Generate()
			runB := cfg.Keys.Generate()
			sessionKey := cfg.Keys.Generate()

			replies, err := t.Exchange(ctx, []protocol.Request{
				cfg.connectFrame("1"),
				protocol.NewRequest("2", protocol.MethodAgent, protocol.RunParams{
					RunID: runA, SessionKey: sessionKey, Message: "session-wide abort check A", Deferred: true,
				}),
				protocol.NewRequest("3", protocol.MethodAgent, protocol.RunParams{
					RunID: runB, SessionKey: sessionKey, Message: "session-wide abort check B", Deferred: true,
				}),
				protocol.NewRequest("4", protocol.MethodChatAbort, protocol.AbortParams{SessionKey: sessionKey}),
				protocol.NewRequest("5", protocol.MethodAgentWait, protocol.WaitParams{RunID: runA, TimeoutMs: cfg.WaitTimeoutMs}),
				protocol.NewRequest("6", protocol.MethodAgentWait, protocol.WaitParams{RunID: runB, TimeoutMs: cfg.WaitTimeoutMs}),
			})
			if err != nil {
				return fail(name, "exchange failed: %v", err)
			}
			for i, what := range []string{"connect", "agent A", "agent B"} {
				if msg := frameFailure(what, replies[i]); msg != "" {
					return fail(name, "%s", msg)
				}
			}

			if msg := frameFailure("chat.abort", replies[3]); msg != "" {
				return fail(name, "%s", msg)
			}
			ack, err := protocol.ParseAbortAck(replies[3].Payload)
			if err != nil {
				return fail(name, "%v", err)
			}
			if !ack.Aborted {
				return fail(name, "session-wide abort reported aborted=false with two outstanding runs")
			}
			if !ack.Names(runA) || !ack.Names(runB) {
				return fail(name, "abort ack does not name both runs %s and %s, found %v", runA, runB, ack.RunIDs)
			}

			waits := []struct {
				reply int
				runID string
			}{{4, runA}, {5, runB}}
			for _, w := range waits {
				i, runID := w.reply, w.runID
				if msg := frameFailure("agent.wait", replies[i]); msg != "" {
					return fail(name, "%s", msg)
				}
				result, err := protocol.ParseWaitResult(replies[i].Payload)
				if err != nil {
					return fail(name, "wait on %s: %v", runID, err)
				}
				if result.Status != protocol.StatusAborted {
					return fail(name, "expected run %s wait status=aborted, found %q", runID, result.Status)
				}
			}
			return pass(name, "session-wide abort named and aborted both outstanding runs")
		},
	}
}

// scenarioAbortSessionMismatch asserts cancellation scoping: an abort
// naming a runId owned by a different session than the supplied sessionKey
// is rejected as invalid, never silently executed or ignored.
func scenarioAbortSessionMismatch(cfg Config) Scenario {
	const name = "chat.abort_session_mismatch"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			runID := cfg.Keys.Generate()
			owner := cfg.Keys.Generate()
			other := cfg.Keys.Generate()

			replies, err := t.Exchange(ctx, []protocol.Request{
				cfg.connectFrame("1"),
				protocol.NewRequest("2", protocol.MethodAgent, protocol.RunParams{
					RunID: runID, SessionKey: owner, Message: "mismatched abort check", Deferred: true,
				}),
				protocol.NewRequest("3", protocol.MethodChatAbort, protocol.AbortParams{
					RunID: runID, SessionKey: other,
				}),
				protocol.NewRequest("4", protocol.MethodChatAbort, protocol.AbortParams{
					RunID: runID, SessionKey: owner,
				}),
			})
			if err != nil {
				return fail(name, "exchange failed: %v", err)
			}
			if msg := frameFailure("connect", replies[0]); msg != "" {
				return fail(name, "%s", msg)
			}
			if msg := frameFailure("agent", replies[1]); msg != "" {
				return fail(name, "%s", msg)
			}

			if replies[2].OK {
				return fail(name, "abort with mismatched sessionKey executed: ok=true for run %s", runID)
			}
			if code := replies[2].ErrorCode(); code != protocol.CodeInvalidRequest {
				return fail(name, "expected error.code=%s for mismatched abort, found %q", protocol.CodeInvalidRequest, code)
			}

			if msg := frameFailure("cleanup abort", replies[3]); msg != "" {
				return fail(name, "%s", msg)
			}
			return pass(name, "abort naming a foreign run was rejected with %s", protocol.CodeInvalidRequest)
		},
	}
}

// scenarioAbortTerminalNoop asserts cancellation idempotence: aborting an
// already-terminal run still names the run id but reports nothing newly
// aborted.
func scenarioAbortTerminalNoop(cfg Config) Scenario {
	const name = "chat.abort_terminal_noop"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			runID := cfg.Keys.Generate()
			sessionKey := cfg.Keys.Generate()

			replies, err := t.Exchange(ctx, []protocol.Request{
				cfg.connectFrame("1"),
				protocol.NewRequest("2", protocol.MethodChatSend, protocol.RunParams{
					RunID: runID, SessionKey: sessionKey, Message: "terminal abort check", Deferred: true,
				}),
				protocol.NewRequest("3", protocol.MethodAgentWait, protocol.WaitParams{
					RunID: runID, TimeoutMs: cfg.WaitTimeoutMs,
				}),
				protocol.NewRequest("4", protocol.MethodChatAbort, protocol.AbortParams{
					RunID: runID, SessionKey: sessionKey,
				}),
			})
			if err != nil {
				return fail(name, "exchange failed: %v", err)
			}
			for i, what := range []string{"connect", "chat.send", "agent.wait"} {
				if msg := frameFailure(what, replies[i]); msg != "" {
					return fail(name, "%s", msg)
				}
			}

			result, err := protocol.ParseWaitResult(replies[2].Payload)
			if err != nil {
				return fail(name, "%v", err)
			}
			if result.Status != protocol.StatusCompleted {
				return fail(name, "run did not reach terminal state before abort: status=%q", result.Status)
			}

			if msg := frameFailure("chat.abort", replies[3]); msg != "" {
				return fail(name, "%s", msg)
			}
			ack, err := protocol.ParseAbortAck(replies[3].Payload)
			if err != nil {
				return fail(name, "%v", err)
			}
			if ack.Aborted {
				return fail(name, "abort of completed run %s reported aborted=true", runID)
			}
			if !ack.Names(runID) {
				return fail(name, "no-op abort ack does not name run %s, found %v", runID, ack.RunIDs)
			}
			return pass(name, "abort of completed run was a no-op that still named the run id")
		},
	}
}

// scenarioWaitUnknownTimesOut asserts the timeout policy: waiting on an
// unknown runId reports timeout after the caller's in-band deadline rather
// than blocking or erroring.
func scenarioWaitUnknownTimesOut(cfg Config) Scenario {
	const name = "agent.wait_unknown_run_times_out"
	return Scenario{
		Name: name,
		Check: func(ctx context.Context, t Transport) Outcome {
			runID := cfg.Keys.Generate()

			replies, err := t.Exchange(ctx, []protocol.Request{
				cfg.connectFrame("1"),
				protocol.NewRequest("2", protocol.MethodAgentWait, protocol.WaitParams{
					RunID:     runID,
					TimeoutMs: cfg.ProbeTimeoutMs,
				}),
			})
			if err != nil {
				return fail(name, "exchange failed: %v", err)
			}
			if msg := frameFailure("connect", replies[0]); msg != "" {
				return fail(name, "%s", msg)
			}
			if msg := frameFailure("agent.wait", replies[1]); msg != "" {
				return fail(name, "%s", msg)
			}

			result, err := protocol.ParseWaitResult(replies[1].Payload)
			if err != nil {
				return fail(name, "%v", err)
			}
			if result.Status != protocol.StatusTimeout {
				return fail(name, "expected wait status=timeout for unknown run, found %q", result.Status)
			}
			return pass(name, "wait on unknown run reported timeout after %dms", cfg.ProbeTimeoutMs)
		},
	}
}
