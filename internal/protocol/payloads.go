package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Health is the body of /healthz and /readyz.
type Health struct {
	OK bool
}

// ParseHealth requires a boolean "ok" field.
func ParseHealth(raw json.RawMessage) (Health, error) {
	var p struct {
		OK *bool `json:"ok"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Health{}, fmt.Errorf("health body: %w", err)
	}
	if p.OK == nil {
		return Health{}, fmt.Errorf("health body: missing boolean \"ok\"")
	}
	return Health{OK: *p.OK}, nil
}

// Info is the body of /info. ProtocolVersion is nil when the field is
// missing or not a number; VersionRaw preserves whatever was observed so
// the version scenario can report it.
type Info struct {
	ProtocolVersion *uint64
	VersionRaw      string
	Methods         []string
}

// ParseInfo tolerates a missing or malformed protocolVersion (the version
// scenario asserts on it explicitly) but rejects a body that is not an
// object.
func ParseInfo(raw json.RawMessage) (Info, error) {
	var p struct {
		ProtocolVersion json.RawMessage `json:"protocolVersion"`
		Methods         []string        `json:"methods"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return Info{}, fmt.Errorf("info body: %w", err)
	}

	info := Info{Methods: p.Methods, VersionRaw: "<missing>"}
	if len(p.ProtocolVersion) > 0 {
		info.VersionRaw = string(p.ProtocolVersion)
		var n json.Number
		if err := json.Unmarshal(p.ProtocolVersion, &n); err == nil {
			if v, err := strconv.ParseUint(n.String(), 10, 64); err == nil {
				info.ProtocolVersion = &v
			}
		}
	}
	return info, nil
}

// WebhookError is the error envelope of a webhook rejection body.
type WebhookError struct {
	Code string
}

// ParseWebhookError extracts error.code from a webhook reply body.
// Returns an empty code when no structured error is present.
func ParseWebhookError(raw json.RawMessage) (WebhookError, error) {
	var p struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return WebhookError{}, fmt.Errorf("webhook body: %w", err)
	}
	if p.Error == nil {
		return WebhookError{}, nil
	}
	return WebhookError{Code: p.Error.Code}, nil
}

// RunAck acknowledges run creation. For deferred runs Status is "queued"
// and no result is attached.
type RunAck struct {
	RunID  string
	Status string
}

// ParseRunAck requires runId and status.
func ParseRunAck(raw json.RawMessage) (RunAck, error) {
	var p struct {
		RunID  *string `json:"runId"`
		Status *string `json:"status"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return RunAck{}, fmt.Errorf("run ack: %w", err)
	}
	if p.RunID == nil || *p.RunID == "" {
		return RunAck{}, fmt.Errorf("run ack: missing runId")
	}
	if p.Status == nil {
		return RunAck{}, fmt.Errorf("run ack: missing status")
	}
	return RunAck{RunID: *p.RunID, Status: *p.Status}, nil
}

// RunResult is the terminal result of a completed run.
type RunResult struct {
	Output     string
	SessionKey string
}

// WaitResult is the reply to agent.wait. Result is nil for aborted and
// timed-out runs; SessionKey is the originating session when the gateway
// reports one outside the result.
type WaitResult struct {
	Status     string
	SessionKey string
	Result     *RunResult
}

// ParseWaitResult requires status; result and sessionKey stay optional
// because their presence depends on the terminal state.
func ParseWaitResult(raw json.RawMessage) (WaitResult, error) {
	var p struct {
		Status     *string `json:"status"`
		SessionKey string  `json:"sessionKey"`
		Result     *struct {
			Output     *string `json:"output"`
			SessionKey string  `json:"sessionKey"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return WaitResult{}, fmt.Errorf("wait reply: %w", err)
	}
	if p.Status == nil {
		return WaitResult{}, fmt.Errorf("wait reply: missing status")
	}

	out := WaitResult{Status: *p.Status, SessionKey: p.SessionKey}
	if p.Result != nil {
		if p.Result.Output == nil {
			return WaitResult{}, fmt.Errorf("wait reply: result present but missing output")
		}
		out.Result = &RunResult{Output: *p.Result.Output, SessionKey: p.Result.SessionKey}
	}
	return out, nil
}

// AbortAck is the reply to chat.abort. RunIDs names every run the request
// addressed, whether or not anything was newly aborted.
type AbortAck struct {
	Aborted bool
	RunIDs  []string
}

// ParseAbortAck requires the aborted flag; runIds may legitimately be empty.
func ParseAbortAck(raw json.RawMessage) (AbortAck, error) {
	var p struct {
		Aborted *bool    `json:"aborted"`
		RunIDs  []string `json:"runIds"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return AbortAck{}, fmt.Errorf("abort ack: %w", err)
	}
	if p.Aborted == nil {
		return AbortAck{}, fmt.Errorf("abort ack: missing aborted")
	}
	return AbortAck{Aborted: *p.Aborted, RunIDs: p.RunIDs}, nil
}

// Names reports whether the ack lists the given run id.
func (a AbortAck) Names(runID string) bool {
	for _, id := range a.RunIDs {
		if id == runID {
			return true
		}
	}
	return false
}

// AccountStatus is one account's view within a channel.
type AccountStatus struct {
	AccountID     string
	Connected     bool
	LoggedOutAtMs int64
}

// ChannelStatus is one channel's aggregate view plus its per-account
// breakdown. Connected is "any account connected".
type ChannelStatus struct {
	ChannelID string
	Kind      string
	Connected bool
	Accounts  []AccountStatus
}

// ChannelsStatus is the reply to channels.status.
type ChannelsStatus struct {
	Channels        []ChannelStatus
	DefaultAccounts map[string]string
}

// ParseChannelsStatus requires the channels list and the default-account
// map, and on every entry the identifying and connected fields.
func ParseChannelsStatus(raw json.RawMessage) (ChannelsStatus, error) {
	var p struct {
		Channels []struct {
			ChannelID *string `json:"channelId"`
			Kind      string  `json:"kind"`
			Connected *bool   `json:"connected"`
			Accounts  []struct {
				AccountID     *string `json:"accountId"`
				Connected     *bool   `json:"connected"`
				LoggedOutAtMs int64   `json:"loggedOutAtMs"`
			} `json:"accounts"`
		} `json:"channels"`
		DefaultAccounts map[string]string `json:"defaultAccounts"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return ChannelsStatus{}, fmt.Errorf("channels status: %w", err)
	}
	if p.Channels == nil {
		return ChannelsStatus{}, fmt.Errorf("channels status: missing channels list")
	}
	if p.DefaultAccounts == nil {
		return ChannelsStatus{}, fmt.Errorf("channels status: missing defaultAccounts map")
	}

	out := ChannelsStatus{DefaultAccounts: p.DefaultAccounts}
	for i, ch := range p.Channels {
		if ch.ChannelID == nil || *ch.ChannelID == "" {
			return ChannelsStatus{}, fmt.Errorf("channels status: channel %d missing channelId", i)
		}
		if ch.Connected == nil {
			return ChannelsStatus{}, fmt.Errorf("channels status: channel %q missing connected", *ch.ChannelID)
		}
		entry := ChannelStatus{ChannelID: *ch.ChannelID, Kind: ch.Kind, Connected: *ch.Connected}
		for j, acct := range ch.Accounts {
			if acct.AccountID == nil || *acct.AccountID == "" {
				return ChannelsStatus{}, fmt.Errorf("channels status: channel %q account %d missing accountId", *ch.ChannelID, j)
			}
			if acct.Connected == nil {
				return ChannelsStatus{}, fmt.Errorf("channels status: channel %q account %q missing connected", *ch.ChannelID, *acct.AccountID)
			}
			entry.Accounts = append(entry.Accounts, AccountStatus{
				AccountID:     *acct.AccountID,
				Connected:     *acct.Connected,
				LoggedOutAtMs: acct.LoggedOutAtMs,
			})
		}
		out.Channels = append(out.Channels, entry)
	}
	return out, nil
}

// Account returns the named account's status within the channel.
func (c ChannelStatus) Account(accountID string) (AccountStatus, bool) {
	for _, acct := range c.Accounts {
		if acct.AccountID == accountID {
			return acct, true
		}
	}
	return AccountStatus{}, false
}

// Channel returns the named channel's status.
func (s ChannelsStatus) Channel(channelID string) (ChannelStatus, bool) {
	for _, ch := range s.Channels {
		if ch.ChannelID == channelID {
			return ch, true
		}
	}
	return ChannelStatus{}, false
}
